// Package statestore persists the "last session / profile / locale"
// selection across runs, with crash-safe atomic writes.
package statestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tiss-greeter/greetd-backend/internal/fileutils"
	"github.com/tiss-greeter/greetd-backend/log"
	"github.com/ubuntu/decorate"
)

const appName = "tiss-greetd"

// State is the persisted selection. Any field may be absent; absent and
// empty are the same thing on disk.
type State struct {
	LastSessionID string `json:"last_session_id,omitempty"`
	LastProfileID string `json:"last_profile_id,omitempty"`
	LastLocale    string `json:"last_locale,omitempty"`
}

// Store reads and writes the state file at a resolved path.
type Store struct {
	path string
}

// New resolves the state file path from the environment and returns a
// Store bound to it. Resolution order: $XDG_STATE_HOME/tiss-greetd/state.json,
// then $HOME/.local/state/tiss-greetd/state.json, then
// /tmp/tiss-greetd-state.json.
func New() *Store {
	return &Store{path: resolvePath()}
}

func resolvePath() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, appName, "state.json")
	}
	if home := os.Getenv("HOME"); home != "" {
		return filepath.Join(home, ".local", "state", appName, "state.json")
	}
	return fmt.Sprintf("/tmp/%s-state.json", appName)
}

// Path returns the resolved state file path.
func (s *Store) Path() string {
	return s.path
}

// Read loads the current state, normalising empty fields to absent. A
// missing file is an empty state. A malformed file is logged and treated
// as an empty state, never returned as an error.
func (s *Store) Read() State {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Warningf(context.Background(), "failed to read state file %q: %v", s.path, err)
		}
		return State{}
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		log.Warningf(context.Background(), "failed to parse state file %q: %v", s.path, err)
		return State{}
	}

	return st
}

// Merge reads the current state, overlays any non-empty field from update,
// and writes the result back atomically. Fields absent from update are
// preserved from the prior record.
func (s *Store) Merge(update State) error {
	cur := s.Read()

	if update.LastSessionID != "" {
		cur.LastSessionID = update.LastSessionID
	}
	if update.LastProfileID != "" {
		cur.LastProfileID = update.LastProfileID
	}
	if update.LastLocale != "" {
		cur.LastLocale = update.LastLocale
	}

	return s.write(cur)
}

// write serialises st and publishes it atomically: write to a sibling .tmp
// file, fsync, rename-in-place. A concurrent reader observes either the
// previous complete record or the new one, never a partial write.
func (s *Store) write(st State) (err error) {
	defer decorate.OnError(&err, "write state file %q", s.path)

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}

	tmpPath := s.path + ".tmp"
	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("create tempfile: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("write tempfile: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("fsync tempfile: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close tempfile: %w", err)
	}

	if err := fileutils.Lrename(tmpPath, s.path); err != nil {
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}
