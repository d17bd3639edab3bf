package render

import (
	"fmt"
	"sync"
	"time"

	"github.com/jonathan/coldmail/internal/types"
)

// CopiedFor is how long a card shows its "copied" marker.
const CopiedFor = 2 * time.Second

// Viewer holds per-card display toggles for one displayed response. It is not
// part of the session state; a new response gets a new Viewer.
type Viewer struct {
	resp      *types.GenerationResponse
	clipboard Clipboard
	now       func() time.Time

	mu          sync.Mutex
	expanded    map[int]bool
	copied      int
	copiedUntil time.Time
}

// NewViewer creates a viewer for resp. clipboard may be nil, in which case Copy fails.
func NewViewer(resp *types.GenerationResponse, clipboard Clipboard) *Viewer {
	return &Viewer{
		resp:      resp,
		clipboard: clipboard,
		now:       time.Now,
		expanded:  make(map[int]bool),
		copied:    -1,
	}
}

// Response returns the payload this viewer displays.
func (v *Viewer) Response() *types.GenerationResponse {
	return v.resp
}

// Email returns the email at index.
func (v *Viewer) Email(index int) (types.EmailResult, error) {
	if v.resp == nil || index < 0 || index >= len(v.resp.Emails) {
		return types.EmailResult{}, fmt.Errorf("email index %d out of range", index)
	}
	return v.resp.Emails[index], nil
}

// Toggle flips the expanded flag of a card and returns the new value.
func (v *Viewer) Toggle(index int) (bool, error) {
	if _, err := v.Email(index); err != nil {
		return false, err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.expanded[index] = !v.expanded[index]
	return v.expanded[index], nil
}

// Expanded reports whether the card at index is expanded.
func (v *Viewer) Expanded(index int) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.expanded[index]
}

// ExpandAll expands every card.
func (v *Viewer) ExpandAll() {
	if v.resp == nil {
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	for i := range v.resp.Emails {
		v.expanded[i] = true
	}
}

// Copy writes the email body at index to the clipboard and marks that card as
// copied for CopiedFor. Only one card is marked at a time.
func (v *Viewer) Copy(index int) error {
	email, err := v.Email(index)
	if err != nil {
		return err
	}
	if v.clipboard == nil {
		return fmt.Errorf("clipboard unavailable")
	}
	if err := v.clipboard.WriteAll(email.EmailContent); err != nil {
		return fmt.Errorf("failed to copy email: %w", err)
	}

	v.mu.Lock()
	v.copied = index
	v.copiedUntil = v.now().Add(CopiedFor)
	v.mu.Unlock()
	return nil
}

// Copied reports whether the card at index shows the copied marker.
func (v *Viewer) Copied(index int) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.copied == index && v.now().Before(v.copiedUntil)
}
