package session

import (
	"context"

	"github.com/jonathan/coldmail/internal/types"
)

// Submission tracks one Submit call.
type Submission struct {
	ID   string
	Mode types.Mode

	seq        uint64
	done       chan struct{}
	outcome    State
	superseded bool
}

func (s *Submission) resolve(outcome State, superseded bool) {
	s.outcome = outcome
	s.superseded = superseded
	close(s.done)
}

// Done is closed when the call has resolved.
func (s *Submission) Done() <-chan struct{} {
	return s.done
}

// Wait blocks until the call resolves and returns its outcome. The outcome of a
// superseded submission was not applied to the session.
func (s *Submission) Wait(ctx context.Context) (State, error) {
	select {
	case <-s.done:
		return s.outcome, nil
	case <-ctx.Done():
		return State{}, ctx.Err()
	}
}

// Superseded blocks until the call resolves and reports whether a newer submit or
// a reset replaced this submission first.
func (s *Submission) Superseded() bool {
	<-s.done
	return s.superseded
}
