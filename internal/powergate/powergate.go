// Package powergate dispatches system-power actions over D-Bus, gated by
// the greeter's current phase and a configured allow-list.
package powergate

import (
	"errors"
	"strings"

	"github.com/godbus/dbus/v5"
	"github.com/tiss-greeter/greetd-backend/internal/phase"
)

const (
	login1BusName    = "org.freedesktop.login1"
	login1ObjectPath = "/org/freedesktop/login1"
	login1Interface  = "org.freedesktop.login1.Manager"
)

// Code is a power-gate specific error code, returned alongside pam_error's
// siblings but never produced by the classifier.
type Code string

// Recognised power-gate outcomes.
const (
	PowerDenied Code = "power_denied"
	PowerError  Code = "power_error"
)

var methodByAction = map[string]string{
	"poweroff": "PowerOff",
	"reboot":   "Reboot",
	"suspend":  "Suspend",
}

var permissionMarkers = []string{
	"accessdenied",
	"notauthorized",
	"not authorized",
	"permission",
	"polkit",
}

// Gate checks power requests against the current phase and an allow-list,
// then dispatches accepted ones over the system bus.
type Gate struct {
	bus dbusCaller

	allowedStates map[phase.Phase]struct{}
	allowedAction map[string]struct{}
}

// dbusCaller is the subset of *dbus.Object used here, so tests can supply a
// fake bus object.
type dbusCaller interface {
	Call(method string, flags dbus.Flags, args ...interface{}) *dbus.Call
}

// New returns a Gate that dispatches over the system bus, accepting actions
// in allowedActions while the phase tracker reports a phase in
// allowedStates. An empty allowedStates defaults to {idle}. A nil conn is
// accepted so the caller can still construct a Gate when the system bus is
// unreachable at startup; every Dispatch that passes the phase and
// allow-list checks then fails with PowerError.
func New(conn *dbus.Conn, allowedStates []phase.Phase, allowedActions []string) *Gate {
	var bus dbusCaller = unavailableBus{}
	if conn != nil {
		bus = conn.Object(login1BusName, dbus.ObjectPath(login1ObjectPath))
	}
	return newGate(bus, allowedStates, allowedActions)
}

// unavailableBus answers every call with an error, used when New is given
// no live system bus connection.
type unavailableBus struct{}

func (unavailableBus) Call(string, dbus.Flags, ...interface{}) *dbus.Call {
	return &dbus.Call{Err: errors.New("system bus unavailable")}
}

func newGate(bus dbusCaller, allowedStates []phase.Phase, allowedActions []string) *Gate {
	if len(allowedStates) == 0 {
		allowedStates = []phase.Phase{phase.Idle}
	}

	g := &Gate{
		bus:           bus,
		allowedStates: make(map[phase.Phase]struct{}, len(allowedStates)),
		allowedAction: make(map[string]struct{}, len(allowedActions)),
	}
	for _, s := range allowedStates {
		g.allowedStates[s] = struct{}{}
	}
	for _, a := range allowedActions {
		g.allowedAction[strings.ToLower(strings.TrimSpace(a))] = struct{}{}
	}
	return g
}

// Dispatch validates action against the current phase and allow-list, then
// invokes the matching login1 method. It returns the power-gate Code to
// report to the UI alongside a human-readable reason on any failure.
func (g *Gate) Dispatch(current phase.Phase, action string) (ok bool, code Code, reason string) {
	if _, allowed := g.allowedStates[current]; !allowed {
		return false, PowerDenied, "power action not allowed during " + string(current)
	}

	action = strings.ToLower(strings.TrimSpace(action))
	if _, allowed := g.allowedAction[action]; !allowed {
		return false, PowerDenied, "power action not allowed: " + action
	}

	method, ok := methodByAction[action]
	if !ok {
		return false, PowerError, "unrecognised power action: " + action
	}

	call := g.bus.Call(login1Interface+"."+method, 0, false)
	if call.Err != nil {
		if isPermissionError(call.Err) {
			return false, PowerDenied, call.Err.Error()
		}
		return false, PowerError, call.Err.Error()
	}

	return true, "", ""
}

func isPermissionError(err error) bool {
	lower := strings.ToLower(err.Error())
	for _, marker := range permissionMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
