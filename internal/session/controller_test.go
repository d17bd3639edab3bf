package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonathan/coldmail/internal/client"
	"github.com/jonathan/coldmail/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type result struct {
	resp *types.GenerationResponse
	err  error
}

// fakeGenerator blocks each call until a result is pushed for it, in call order.
type fakeGenerator struct {
	mu      sync.Mutex
	calls   []types.GenerationRequest
	pending []chan result
	started chan struct{}
}

func newFakeGenerator() *fakeGenerator {
	return &fakeGenerator{started: make(chan struct{}, 16)}
}

func (f *fakeGenerator) Generate(ctx context.Context, req types.GenerationRequest) (*types.GenerationResponse, error) {
	ch := make(chan result, 1)
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.pending = append(f.pending, ch)
	f.mu.Unlock()
	f.started <- struct{}{}

	select {
	case r := <-ch:
		return r.resp, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (f *fakeGenerator) respond(t *testing.T, call int, r result) {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.Less(t, call, len(f.pending))
	f.pending[call] <- r
}

func (f *fakeGenerator) waitStarted(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-f.started:
		case <-time.After(2 * time.Second):
			t.Fatalf("generator call %d never started", i)
		}
	}
}

func (f *fakeGenerator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func response(total int, titles ...string) *types.GenerationResponse {
	resp := &types.GenerationResponse{Success: true, TotalJobs: total, Message: "ok"}
	for _, title := range titles {
		resp.Emails = append(resp.Emails, types.EmailResult{JobTitle: title, EmailContent: "Hi"})
	}
	return resp
}

func waitOutcome(t *testing.T, sub *Submission) State {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	st, err := sub.Wait(ctx)
	require.NoError(t, err)
	return st
}

func newController(t *testing.T, gen Generator) *Controller {
	t.Helper()
	c := New(gen, &Options{Timeout: 2 * time.Second, Logger: zaptest.NewLogger(t)})
	t.Cleanup(c.Close)
	return c
}

func TestController_StartsIdle(t *testing.T) {
	c := newController(t, newFakeGenerator())
	assert.Equal(t, StatusIdle, c.State().Status)
}

func TestController_SubmitSuccess(t *testing.T) {
	gen := newFakeGenerator()
	c := newController(t, gen)
	updates, unsubscribe := c.Subscribe(8)
	defer unsubscribe()

	sub := c.Submit(context.Background(), types.URLRequest{URL: "https://example.com/job"})
	gen.waitStarted(t, 1)

	loading := c.State()
	assert.Equal(t, StatusLoading, loading.Status)
	assert.Equal(t, sub.ID, loading.SubmissionID)
	assert.Nil(t, loading.Response)
	assert.Empty(t, loading.Error)

	gen.respond(t, 0, result{resp: response(2, "A", "B")})
	outcome := waitOutcome(t, sub)

	assert.False(t, sub.Superseded())
	assert.Equal(t, StatusSuccess, outcome.Status)
	final := c.State()
	assert.Equal(t, StatusSuccess, final.Status)
	require.NotNil(t, final.Response)
	assert.Equal(t, 2, final.Response.TotalJobs)
	assert.Empty(t, final.Error)

	var seen []Status
	for len(seen) < 3 {
		select {
		case s := <-updates:
			seen = append(seen, s.Status)
		case <-time.After(2 * time.Second):
			t.Fatalf("missing updates, saw %v", seen)
		}
	}
	assert.Equal(t, []Status{StatusIdle, StatusLoading, StatusSuccess}, seen)
}

func TestController_SubmitRequestError(t *testing.T) {
	gen := newFakeGenerator()
	c := newController(t, gen)

	sub := c.Submit(context.Background(), types.URLRequest{URL: "https://example.com"})
	gen.waitStarted(t, 1)
	gen.respond(t, 0, result{err: &client.RequestError{StatusCode: 500, Message: "bad url"}})
	waitOutcome(t, sub)

	st := c.State()
	assert.Equal(t, StatusFailed, st.Status)
	assert.Equal(t, "bad url", st.Error)
	assert.Nil(t, st.Response)
}

func TestController_SubmitTransportError(t *testing.T) {
	gen := newFakeGenerator()
	c := newController(t, gen)

	sub := c.Submit(context.Background(), types.DescriptionRequest{JobDescription: "Go"})
	gen.waitStarted(t, 1)
	gen.respond(t, 0, result{err: &client.TransportError{Op: "send", Cause: errors.New("connection refused")}})
	waitOutcome(t, sub)

	st := c.State()
	assert.Equal(t, StatusFailed, st.Status)
	assert.Equal(t, "connection refused", st.Error)
	assert.Equal(t, types.ModeDescription, st.Mode)
}

func TestController_Timeout(t *testing.T) {
	gen := newFakeGenerator()
	c := New(gen, &Options{Timeout: 30 * time.Millisecond, Logger: zaptest.NewLogger(t)})
	defer c.Close()

	sub := c.Submit(context.Background(), types.URLRequest{URL: "https://example.com"})
	st := waitOutcome(t, sub)

	assert.Equal(t, StatusFailed, st.Status)
	assert.Contains(t, st.Error, "timed out")
	assert.Equal(t, StatusFailed, c.State().Status)
}

func TestController_CallerContextDoesNotCancelCall(t *testing.T) {
	gen := newFakeGenerator()
	c := newController(t, gen)

	ctx, cancel := context.WithCancel(context.Background())
	sub := c.Submit(ctx, types.URLRequest{URL: "https://example.com"})
	gen.waitStarted(t, 1)
	cancel()

	gen.respond(t, 0, result{resp: response(1, "A")})
	assert.Equal(t, StatusSuccess, waitOutcome(t, sub).Status)
}

func TestController_ResetFromTerminalStates(t *testing.T) {
	tests := []struct {
		name string
		r    result
	}{
		{"from success", result{resp: response(1, "A")}},
		{"from failed", result{err: &client.RequestError{StatusCode: 400, Message: "nope"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := newFakeGenerator()
			c := newController(t, gen)

			sub := c.Submit(context.Background(), types.URLRequest{URL: "https://example.com"})
			gen.waitStarted(t, 1)
			gen.respond(t, 0, tt.r)
			waitOutcome(t, sub)
			require.True(t, c.State().IsTerminal())

			c.Reset()

			st := c.State()
			assert.Equal(t, StatusIdle, st.Status)
			assert.Nil(t, st.Response)
			assert.Empty(t, st.Error)
			assert.Empty(t, st.SubmissionID)
		})
	}
}

func TestController_ResetIdleIsNoop(t *testing.T) {
	c := newController(t, newFakeGenerator())
	updates, unsubscribe := c.Subscribe(4)
	defer unsubscribe()
	<-updates

	c.Reset()

	assert.Equal(t, StatusIdle, c.State().Status)
	select {
	case s := <-updates:
		t.Fatalf("unexpected update %v", s.Status)
	default:
	}
}

func TestController_ResetDuringLoadingDiscardsResponse(t *testing.T) {
	gen := newFakeGenerator()
	c := newController(t, gen)

	sub := c.Submit(context.Background(), types.URLRequest{URL: "https://example.com"})
	gen.waitStarted(t, 1)

	c.Reset()
	waitOutcome(t, sub)

	assert.True(t, sub.Superseded())
	assert.Equal(t, StatusIdle, c.State().Status)
}

func TestController_ResubmitFromTerminal(t *testing.T) {
	gen := newFakeGenerator()
	c := newController(t, gen)

	first := c.Submit(context.Background(), types.URLRequest{URL: "https://example.com/1"})
	gen.waitStarted(t, 1)
	gen.respond(t, 0, result{err: &client.RequestError{StatusCode: 500, Message: "down"}})
	waitOutcome(t, first)
	require.Equal(t, StatusFailed, c.State().Status)

	second := c.Submit(context.Background(), types.URLRequest{URL: "https://example.com/2"})
	gen.waitStarted(t, 1)
	assert.Equal(t, StatusLoading, c.State().Status)
	assert.Empty(t, c.State().Error)

	gen.respond(t, 1, result{resp: response(1, "B")})
	waitOutcome(t, second)
	assert.Equal(t, StatusSuccess, c.State().Status)
}

func TestController_LastSubmissionWins(t *testing.T) {
	gen := &blockingGenerator{release: make(chan struct{}), started: make(chan struct{}, 2)}
	c := newController(t, gen)

	first := c.Submit(context.Background(), types.URLRequest{URL: "https://example.com/first"})
	<-gen.started
	second := c.Submit(context.Background(), types.URLRequest{URL: "https://example.com/second"})
	<-gen.started

	secondOutcome := waitOutcome(t, second)
	require.Equal(t, StatusSuccess, secondOutcome.Status)

	close(gen.release)
	waitOutcome(t, first)

	assert.True(t, first.Superseded())
	assert.False(t, second.Superseded())

	st := c.State()
	assert.Equal(t, StatusSuccess, st.Status)
	assert.Equal(t, second.ID, st.SubmissionID)
	require.NotNil(t, st.Response)
	assert.Equal(t, "https://example.com/second", st.Response.Message)
	assert.Equal(t, 2, gen.calls())
}

// blockingGenerator answers "second" immediately and holds "first" until released,
// ignoring cancellation so the stale response still arrives.
type blockingGenerator struct {
	mu      sync.Mutex
	n       int
	release chan struct{}
	started chan struct{}
}

func (g *blockingGenerator) Generate(_ context.Context, req types.GenerationRequest) (*types.GenerationResponse, error) {
	g.mu.Lock()
	g.n++
	g.mu.Unlock()
	g.started <- struct{}{}

	if req.Value() == "https://example.com/first" {
		<-g.release
	}
	return &types.GenerationResponse{Success: true, TotalJobs: 1, Message: req.Value()}, nil
}

func (g *blockingGenerator) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.n
}

func TestController_ExactlyOneCallPerSubmission(t *testing.T) {
	gen := newFakeGenerator()
	c := newController(t, gen)

	sub := c.Submit(context.Background(), types.URLRequest{URL: "https://example.com"})
	gen.waitStarted(t, 1)
	gen.respond(t, 0, result{err: &client.TransportError{Op: "send", Cause: errors.New("reset by peer")}})
	waitOutcome(t, sub)

	assert.Equal(t, 1, gen.callCount())
}

func TestController_SubscribeKeepsLatestWhenFull(t *testing.T) {
	gen := newFakeGenerator()
	c := newController(t, gen)
	updates, unsubscribe := c.Subscribe(1)

	sub := c.Submit(context.Background(), types.URLRequest{URL: "https://example.com"})
	gen.waitStarted(t, 1)
	gen.respond(t, 0, result{resp: response(0)})
	waitOutcome(t, sub)

	// Idle and Loading were pushed out by the terminal state.
	latest := <-updates
	assert.Equal(t, StatusSuccess, latest.Status)
	assert.Equal(t, sub.ID, latest.SubmissionID)

	unsubscribe()
	unsubscribe()
	_, open := <-updates
	assert.False(t, open)
}

func TestController_SubmitNilRequestFails(t *testing.T) {
	gen := newFakeGenerator()
	c := newController(t, gen)

	first := c.Submit(context.Background(), types.URLRequest{URL: "https://example.com"})
	gen.waitStarted(t, 1)

	var sub *Submission
	require.NotPanics(t, func() { sub = c.Submit(context.Background(), nil) })
	st := waitOutcome(t, sub)
	assert.Equal(t, StatusFailed, st.Status)
	assert.Equal(t, "generation request is required", st.Error)
	assert.False(t, sub.Superseded())
	assert.Equal(t, st, c.State())

	assert.True(t, first.Superseded())
	assert.Equal(t, StatusFailed, c.State().Status)
	assert.Equal(t, 1, gen.callCount())
}

func TestState_IsTerminal(t *testing.T) {
	assert.False(t, State{Status: StatusIdle}.IsTerminal())
	assert.False(t, State{Status: StatusLoading}.IsTerminal())
	assert.True(t, State{Status: StatusSuccess}.IsTerminal())
	assert.True(t, State{Status: StatusFailed}.IsTerminal())
}
