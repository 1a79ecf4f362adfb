package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// NewForTests returns an App with its root command wired for isolated
// testing: args are preset and a scratch --config file is installed so
// initViperConfig's config file search never touches the real filesystem.
func NewForTests(t *testing.T, args ...string) *App {
	t.Helper()

	confPath := filepath.Join(t.TempDir(), "testconfig.yaml")
	require.NoError(t, os.WriteFile(confPath, []byte("verbosity: 0\n"), 0o600))

	a := New()
	a.rootCmd.SetArgs(append([]string{"--config", confPath}, args...))
	return a
}
