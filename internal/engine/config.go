package engine

import (
	"context"
	"encoding/json"
	"os"
	"strconv"
	"time"

	"github.com/tiss-greeter/greetd-backend/internal/phase"
	"github.com/tiss-greeter/greetd-backend/log"
)

// Session is a selectable session entry, referenced by UiRequest.session_id.
type Session struct {
	ID      string            `json:"id"`
	Name    string            `json:"name"`
	Command []string          `json:"command"`
	Env     map[string]string `json:"env"`
}

// Profile is a selectable profile entry, referenced by UiRequest.profile_id.
// Session names the Session.ID it falls back to for command resolution when
// the request names no session directly.
type Profile struct {
	ID      string            `json:"id"`
	Name    string            `json:"name"`
	Session string            `json:"session"`
	Env     map[string]string `json:"env"`
}

// Locales describes the configured default and available locale tags.
type Locales struct {
	Default   string   `json:"default"`
	Available []string `json:"available"`
}

// Config is the engine's startup configuration, assembled entirely from
// environment variables published by the external launcher.
type Config struct {
	GreetdSocket   string
	DefaultCommand []string
	BaseEnv        map[string]string
	Sessions       []Session
	Profiles       []Profile
	Locales        Locales
	PowerAllowed   []phase.Phase
	PowerActions   []string
	PromptTimeout  time.Duration
}

// defaultCommand is used when neither the request, the selected session, nor
// TISS_GREETD_SESSION_JSON name a command.
var defaultCommand = []string{"niri"}

// LoadConfigFromEnv reads the launcher's environment contract. Every JSON
// payload is parsed once; a malformed value is logged at warn and treated
// as empty, per the external-interfaces contract.
func LoadConfigFromEnv() Config {
	ctx := context.Background()

	cfg := Config{
		GreetdSocket: os.Getenv("GREETD_SOCK"),
	}

	parseJSONEnv(ctx, "TISS_GREETD_SESSION_JSON", &cfg.DefaultCommand)
	parseJSONEnv(ctx, "TISS_GREETD_SESSION_ENV_JSON", &cfg.BaseEnv)
	parseJSONEnv(ctx, "TISS_GREETD_SESSIONS_JSON", &cfg.Sessions)
	parseJSONEnv(ctx, "TISS_GREETD_PROFILES_JSON", &cfg.Profiles)
	parseJSONEnv(ctx, "TISS_GREETD_LOCALES_JSON", &cfg.Locales)

	var allowedStates []string
	parseJSONEnv(ctx, "TISS_GREETD_POWER_ALLOWED_STATES_JSON", &allowedStates)
	for _, s := range allowedStates {
		cfg.PowerAllowed = append(cfg.PowerAllowed, phase.Phase(s))
	}

	parseJSONEnv(ctx, "TISS_GREETD_POWER_ACTIONS_JSON", &cfg.PowerActions)

	if raw := os.Getenv("TISS_GREETD_PROMPT_TIMEOUT_SECS"); raw != "" {
		secs, err := strconv.Atoi(raw)
		if err != nil {
			log.Warningf(ctx, "invalid TISS_GREETD_PROMPT_TIMEOUT_SECS %q: %v", raw, err)
		} else if secs > 0 {
			cfg.PromptTimeout = time.Duration(secs) * time.Second
		}
	}

	if len(cfg.DefaultCommand) == 0 {
		cfg.DefaultCommand = defaultCommand
	}

	return cfg
}

func parseJSONEnv(ctx context.Context, name string, dst interface{}) {
	raw := os.Getenv(name)
	if raw == "" {
		return
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		log.Warningf(ctx, "invalid %s: %v", name, err)
	}
}

// SessionByID returns the session with the given ID, if configured.
func (c Config) SessionByID(id string) (Session, bool) {
	for _, s := range c.Sessions {
		if s.ID == id {
			return s, true
		}
	}
	return Session{}, false
}

// ProfileByID returns the profile with the given ID, if configured.
func (c Config) ProfileByID(id string) (Profile, bool) {
	for _, p := range c.Profiles {
		if p.ID == id {
			return p, true
		}
	}
	return Profile{}, false
}
