package powergate

import "github.com/tiss-greeter/greetd-backend/internal/phase"

// NewForTest builds a Gate around an arbitrary dbusCaller, letting tests
// exercise Dispatch's gating and error-classification logic without a live
// system bus connection.
func NewForTest(bus dbusCaller, allowedStates []phase.Phase, allowedActions []string) *Gate {
	return newGate(bus, allowedStates, allowedActions)
}
