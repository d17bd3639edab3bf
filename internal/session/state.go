// Package session owns the lifecycle of generate-emails requests: one state machine
// per console or CLI run, moving between Idle, Loading, Success and Failed.
package session

import (
	"time"

	"github.com/jonathan/coldmail/internal/types"
)

// Status names the active state.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// State is a snapshot of the session. Response is set only in StatusSuccess and
// Error only in StatusFailed.
type State struct {
	Status       Status                    `json:"status"`
	SubmissionID string                    `json:"submission_id,omitempty"`
	Mode         types.Mode                `json:"mode,omitempty"`
	Response     *types.GenerationResponse `json:"response,omitempty"`
	Error        string                    `json:"error,omitempty"`
	UpdatedAt    time.Time                 `json:"updated_at"`
}

// IsTerminal reports whether the state is Success or Failed.
func (s State) IsTerminal() bool {
	return s.Status == StatusSuccess || s.Status == StatusFailed
}

func idleState(now time.Time) State {
	return State{Status: StatusIdle, UpdatedAt: now}
}

func loadingState(id string, mode types.Mode, now time.Time) State {
	return State{Status: StatusLoading, SubmissionID: id, Mode: mode, UpdatedAt: now}
}

func successState(id string, mode types.Mode, resp *types.GenerationResponse, now time.Time) State {
	return State{Status: StatusSuccess, SubmissionID: id, Mode: mode, Response: resp, UpdatedAt: now}
}

func failedState(id string, mode types.Mode, msg string, now time.Time) State {
	return State{Status: StatusFailed, SubmissionID: id, Mode: mode, Error: msg, UpdatedAt: now}
}
