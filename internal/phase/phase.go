// Package phase tracks the greeter's coarse UI state and emits phase
// transitions to the UI.
package phase

import (
	"sync"

	"github.com/tiss-greeter/greetd-backend/internal/uiproto"
)

// Phase is the greeter's coarse UI state.
type Phase string

// The legal phases, per the transition DAG: idle -> auth -> waiting ->
// success, with auth and waiting each able to fall back to error or (for
// auth) back to idle on a soft failure. success is terminal.
const (
	Idle    Phase = "idle"
	Auth    Phase = "auth"
	Waiting Phase = "waiting"
	Success Phase = "success"
	Error   Phase = "error"
)

// Tracker holds the current phase and publishes every change to the UI as a
// state{phase} response.
type Tracker struct {
	mu      sync.Mutex
	current Phase
	writer  *uiproto.Writer
}

// NewTracker returns a Tracker in Idle, publishing transitions through w.
func NewTracker(w *uiproto.Writer) *Tracker {
	return &Tracker{current: Idle, writer: w}
}

// Set updates the current phase and emits the corresponding state response.
func (t *Tracker) Set(p Phase) error {
	t.mu.Lock()
	t.current = p
	t.mu.Unlock()

	return t.writer.WriteResponse(uiproto.State(string(p)))
}

// Get returns the current phase.
func (t *Tracker) Get() Phase {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}
