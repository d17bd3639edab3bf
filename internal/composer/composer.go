// Package composer holds the job input form: one input per mode, validation, and
// the submit/reset callbacks. It never talks to the network.
package composer

import (
	"fmt"
	"strings"
	"sync"

	"github.com/jonathan/coldmail/internal/types"
)

// ValidationError is returned when the active input is empty. It blocks submission
// and is not a session failure.
type ValidationError struct {
	Mode    types.Mode
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Mode, e.Message)
}

// SubmitFunc receives the request built on submit.
type SubmitFunc func(types.GenerationRequest)

// ResetFunc is invoked after the inputs are cleared.
type ResetFunc func()

// Composer collects a job URL or a job description.
type Composer struct {
	mu       sync.Mutex
	mode     types.Mode
	inputs   map[types.Mode]string
	onSubmit SubmitFunc
	onReset  ResetFunc
}

// New creates a composer in URL mode. Either callback may be nil.
func New(onSubmit SubmitFunc, onReset ResetFunc) *Composer {
	return &Composer{
		mode:     types.ModeURL,
		inputs:   map[types.Mode]string{types.ModeURL: "", types.ModeDescription: ""},
		onSubmit: onSubmit,
		onReset:  onReset,
	}
}

// Mode returns the active mode.
func (c *Composer) Mode() types.Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// SetMode switches the active mode. Inputs of both modes are kept.
func (c *Composer) SetMode(mode types.Mode) error {
	if mode != types.ModeURL && mode != types.ModeDescription {
		return fmt.Errorf("unknown mode %q", mode)
	}
	c.mu.Lock()
	c.mode = mode
	c.mu.Unlock()
	return nil
}

// SetInput stores the raw input for mode.
func (c *Composer) SetInput(mode types.Mode, value string) error {
	if mode != types.ModeURL && mode != types.ModeDescription {
		return fmt.Errorf("unknown mode %q", mode)
	}
	c.mu.Lock()
	c.inputs[mode] = value
	c.mu.Unlock()
	return nil
}

// Input returns the raw input for mode.
func (c *Composer) Input(mode types.Mode) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inputs[mode]
}

// CanSubmit reports whether the active mode's trimmed input is non-empty.
func (c *Composer) CanSubmit() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return strings.TrimSpace(c.inputs[c.mode]) != ""
}

// Build returns the request for the active mode without submitting it.
func (c *Composer) Build() (types.GenerationRequest, error) {
	c.mu.Lock()
	mode, value := c.mode, c.inputs[c.mode]
	c.mu.Unlock()

	if strings.TrimSpace(value) == "" {
		msg := "job URL is required"
		if mode == types.ModeDescription {
			msg = "job description is required"
		}
		return nil, &ValidationError{Mode: mode, Message: msg}
	}
	return types.NewRequest(mode, value)
}

// Submit builds the request for the active mode and hands it to the submit callback.
func (c *Composer) Submit() (types.GenerationRequest, error) {
	req, err := c.Build()
	if err != nil {
		return nil, err
	}
	if c.onSubmit != nil {
		c.onSubmit(req)
	}
	return req, nil
}

// Reset clears both inputs and invokes the reset callback.
func (c *Composer) Reset() {
	c.mu.Lock()
	c.inputs[types.ModeURL] = ""
	c.inputs[types.ModeDescription] = ""
	c.mu.Unlock()

	if c.onReset != nil {
		c.onReset()
	}
}
