package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tiss-greeter/greetd-backend/internal/uiproto"
)

// resolveCommand implements the effective-command resolution of the
// conversation engine: the request's command wins if non-empty, else the
// command of the session named by session_id, falling back to the session
// referenced by the named profile, else the configured default command.
func (c Config) resolveCommand(req uiproto.Request) []string {
	if len(req.Command) > 0 {
		return req.Command
	}

	if req.SessionID != "" {
		if s, ok := c.SessionByID(req.SessionID); ok && len(s.Command) > 0 {
			return s.Command
		}
	}

	if req.ProfileID != "" {
		if p, ok := c.ProfileByID(req.ProfileID); ok {
			if s, ok := c.SessionByID(p.Session); ok && len(s.Command) > 0 {
				return s.Command
			}
		}
	}

	return c.DefaultCommand
}

// resolveEnv builds the flattened KEY=VALUE environment for the session,
// overlaying in order: session-type defaults, the resolved session's own
// environment, the profile's environment (or the base session environment
// when no profile is selected), the request's environment, and finally the
// locale.
func (c Config) resolveEnv(req uiproto.Request) []string {
	session, _ := c.SessionByID(req.SessionID)
	profile, hasProfile := c.ProfileByID(req.ProfileID)

	desktop := session.Name
	if desktop == "" {
		desktop = "niri"
	}

	merged := map[string]string{
		"XDG_SESSION_TYPE":    "wayland",
		"XDG_SESSION_CLASS":   "user",
		"XDG_CURRENT_DESKTOP": desktop,
		"XDG_SESSION_DESKTOP": desktop,
	}

	overlay(merged, session.Env)
	if hasProfile {
		overlay(merged, profile.Env)
	} else {
		overlay(merged, c.BaseEnv)
	}
	overlay(merged, req.Env)

	if req.Locale != "" {
		merged["LANG"] = req.Locale
		merged["LC_ALL"] = req.Locale
	}

	return flatten(merged)
}

func overlay(dst, src map[string]string) {
	for k, v := range src {
		if strings.TrimSpace(k) == "" {
			continue
		}
		dst[k] = v
	}
}

func flatten(env map[string]string) []string {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, fmt.Sprintf("%s=%s", k, env[k]))
	}
	return out
}
