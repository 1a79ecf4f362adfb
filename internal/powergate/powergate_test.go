package powergate_test

import (
	"errors"
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/require"
	"github.com/tiss-greeter/greetd-backend/internal/phase"
	"github.com/tiss-greeter/greetd-backend/internal/powergate"
)

// This package's Gate is normally constructed with New(conn, ...), which
// dispatches over a system bus connection; these tests exercise Dispatch's
// gating logic directly via exported test seams instead.

func TestDispatchDeniedByPhase(t *testing.T) {
	t.Parallel()

	gate := powergate.NewForTest(nil, []phase.Phase{phase.Idle}, []string{"poweroff"})

	ok, code, reason := gate.Dispatch(phase.Auth, "poweroff")
	require.False(t, ok)
	require.Equal(t, powergate.PowerDenied, code)
	require.Contains(t, reason, "not allowed during auth")
}

func TestDispatchDeniedByActionAllowList(t *testing.T) {
	t.Parallel()

	gate := powergate.NewForTest(nil, []phase.Phase{phase.Idle}, nil)

	ok, code, _ := gate.Dispatch(phase.Idle, "poweroff")
	require.False(t, ok)
	require.Equal(t, powergate.PowerDenied, code)
}

type fakeCaller struct {
	err error
}

func (f fakeCaller) Call(method string, flags dbus.Flags, args ...interface{}) *dbus.Call {
	return &dbus.Call{Err: f.err}
}

func TestDispatchSucceeds(t *testing.T) {
	t.Parallel()

	gate := powergate.NewForTest(fakeCaller{}, []phase.Phase{phase.Idle}, []string{"poweroff"})

	ok, _, _ := gate.Dispatch(phase.Idle, "  PowerOff ")
	require.True(t, ok)
}

func TestDispatchClassifiesPermissionError(t *testing.T) {
	t.Parallel()

	gate := powergate.NewForTest(fakeCaller{err: errors.New("org.freedesktop.PolicyKit1.Error.NotAuthorized")}, []phase.Phase{phase.Idle}, []string{"poweroff"})

	ok, code, _ := gate.Dispatch(phase.Idle, "poweroff")
	require.False(t, ok)
	require.Equal(t, powergate.PowerDenied, code)
}

func TestDispatchClassifiesOtherErrorAsPowerError(t *testing.T) {
	t.Parallel()

	gate := powergate.NewForTest(fakeCaller{err: errors.New("timeout")}, []phase.Phase{phase.Idle}, []string{"poweroff"})

	ok, code, _ := gate.Dispatch(phase.Idle, "poweroff")
	require.False(t, ok)
	require.Equal(t, powergate.PowerError, code)
}
