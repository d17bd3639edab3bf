package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/coldmail/internal/client"
	"github.com/jonathan/coldmail/internal/logger"
	"github.com/jonathan/coldmail/internal/metrics"
	"github.com/jonathan/coldmail/internal/types"
	"go.uber.org/zap"
)

// DefaultTimeout bounds a single generation call.
const DefaultTimeout = 30 * time.Second

// Generator performs the generation call. *client.Client implements it.
type Generator interface {
	Generate(ctx context.Context, req types.GenerationRequest) (*types.GenerationResponse, error)
}

// Options configures a Controller.
type Options struct {
	Timeout time.Duration
	Logger  *zap.Logger
	Now     func() time.Time
}

// Controller owns the session state. Only the latest submission may change it:
// outcomes of calls started before a newer Submit or a Reset are discarded.
type Controller struct {
	gen     Generator
	timeout time.Duration
	logger  *zap.Logger
	now     func() time.Time

	mu       sync.Mutex
	state    State
	seq      uint64
	cancel   context.CancelFunc
	subs     map[int]chan State
	nextSub  int
	inflight sync.WaitGroup
}

// New creates a controller in the Idle state.
func New(gen Generator, opts *Options) *Controller {
	if opts == nil {
		opts = &Options{}
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Controller{
		gen:     gen,
		timeout: timeout,
		logger:  logger.OrNop(opts.Logger),
		now:     now,
		state:   idleState(now()),
		subs:    make(map[int]chan State),
	}
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Submit moves the session to Loading and issues one generation call for req.
// It is allowed from any state; a pending submission is superseded.
func (c *Controller) Submit(ctx context.Context, req types.GenerationRequest) *Submission {
	if req == nil {
		return c.reject("generation request is required")
	}
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)

	c.mu.Lock()
	c.seq++
	sub := &Submission{
		ID:   uuid.NewString(),
		Mode: req.Mode(),
		seq:  c.seq,
		done: make(chan struct{}),
	}
	if c.cancel != nil {
		c.cancel()
	}
	c.cancel = cancel
	c.setStateLocked(loadingState(sub.ID, sub.Mode, c.now()))
	c.inflight.Add(1)
	c.mu.Unlock()

	metrics.SubmissionsTotal.WithLabelValues(string(sub.Mode)).Inc()
	c.logger.Info("submission started", zap.String("submission_id", sub.ID), zap.String("mode", string(sub.Mode)))

	go c.run(callCtx, cancel, sub, req)
	return sub
}

// reject supersedes any pending call and fails the session without issuing a call.
func (c *Controller) reject(msg string) *Submission {
	c.mu.Lock()
	c.seq++
	sub := &Submission{ID: uuid.NewString(), seq: c.seq, done: make(chan struct{})}
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	next := failedState(sub.ID, "", msg, c.now())
	c.setStateLocked(next)
	c.mu.Unlock()

	sub.resolve(next, false)
	c.logger.Warn("submission rejected", zap.String("submission_id", sub.ID), zap.String("error", msg))
	return sub
}

func (c *Controller) run(ctx context.Context, cancel context.CancelFunc, sub *Submission, req types.GenerationRequest) {
	defer c.inflight.Done()

	start := c.now()
	resp, err := c.gen.Generate(ctx, req)
	timedOut := errors.Is(ctx.Err(), context.DeadlineExceeded)
	cancel()

	var next State
	log := c.logger.With(zap.String("submission_id", sub.ID))
	switch {
	case err == nil && resp == nil:
		next = failedState(sub.ID, sub.Mode, client.FallbackMessage, c.now())
	case err == nil:
		next = successState(sub.ID, sub.Mode, resp, c.now())
	case timedOut:
		next = failedState(sub.ID, sub.Mode, fmt.Sprintf("request timed out after %s", c.timeout), c.now())
	default:
		next = failedState(sub.ID, sub.Mode, client.UserMessage(err), c.now())
	}

	c.mu.Lock()
	applied := sub.seq == c.seq
	if applied {
		c.cancel = nil
		c.setStateLocked(next)
	}
	c.mu.Unlock()

	sub.resolve(next, !applied)

	if !applied {
		metrics.SupersededTotal.Inc()
		log.Debug("discarding superseded response", zap.String("status", string(next.Status)))
		return
	}

	metrics.OutcomesTotal.WithLabelValues(outcomeLabel(err)).Inc()
	if next.Status == StatusSuccess {
		metrics.EmailsGenerated.Add(float64(len(resp.Emails)))
		log.Info("submission succeeded", zap.Int("total_jobs", resp.TotalJobs), zap.Duration("elapsed", c.now().Sub(start)))
	} else {
		log.Warn("submission failed", zap.String("error", next.Error), zap.Duration("elapsed", c.now().Sub(start)))
	}
}

// Reset returns the session to Idle and drops any response. A pending call is
// cancelled and its outcome discarded. Reset in Idle does nothing.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Status == StatusIdle {
		return
	}
	c.seq++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.setStateLocked(idleState(c.now()))
	c.logger.Info("session reset")
}

// Subscribe returns a channel receiving every state change in order, starting with
// the current state. When the buffer is full, changes are dropped for that
// subscriber. Call the returned func to unsubscribe.
func (c *Controller) Subscribe(buffer int) (<-chan State, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan State, buffer)

	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	ch <- c.state
	c.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs, id)
			close(ch)
			c.mu.Unlock()
		})
	}
}

// Close cancels any pending call and waits for it to finish.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.seq++
	c.mu.Unlock()
	c.inflight.Wait()
}

// setStateLocked publishes s to every subscriber. A full buffer loses its oldest
// entry so the latest state is always delivered.
func (c *Controller) setStateLocked(s State) {
	c.state = s
	for _, ch := range c.subs {
		select {
		case ch <- s:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- s:
		default:
		}
	}
}

func outcomeLabel(err error) string {
	if err == nil {
		return metrics.OutcomeSuccess
	}
	var reqErr *client.RequestError
	if errors.As(err, &reqErr) {
		return metrics.OutcomeRequestError
	}
	return metrics.OutcomeTransportError
}
