package fileutils_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tiss-greeter/greetd-backend/internal/fileutils"
)

// errAny represents any error type, for testing purposes.
var errAny = errors.New("this is an error type for testing purposes")

func TestFileExists(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		fileExists            bool
		parentDirIsFile       bool
		parentDirDoesNotExist bool

		wantExists bool
		wantError  bool
	}{
		"Returns_true_when_file_exists":                      {fileExists: true, wantExists: true},
		"Returns_false_when_file_does_not_exist":             {fileExists: false, wantExists: false},
		"Returns_false_when_parent_directory_does_not_exist": {parentDirDoesNotExist: true, wantExists: false},

		"Error_when_parent_directory_is_a_file": {parentDirIsFile: true, wantError: true},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			tempDir := t.TempDir()
			path := filepath.Join(tempDir, "file")
			if tc.fileExists {
				require.NoError(t, os.WriteFile(path, nil, 0o600))
			}
			if tc.parentDirIsFile {
				path = filepath.Join(tempDir, "file", "file")
				require.NoError(t, os.WriteFile(filepath.Join(tempDir, "file"), nil, 0o600))
			}
			if tc.parentDirDoesNotExist {
				path = filepath.Join(tempDir, "nonexistent", "file")
			}

			exists, err := fileutils.FileExists(path)
			if tc.wantError {
				require.Error(t, err, "FileExists should return an error")
			} else {
				require.NoError(t, err, "FileExists should not return an error")
			}
			require.Equal(t, tc.wantExists, exists, "FileExists should return the expected result")
		})
	}
}

func TestLrename(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		sourceDoesNotExist     bool
		destIsFile             bool
		destIsSymlink          bool
		destIsDanglingSymlink  bool
		destIsDir              bool
		destParentDoesNotExist bool

		wantError error
	}{
		"Successfully_rename_file_if_destination_does_not_exist": {},
		"Successfully_rename_file_if_destination_is_a_file":      {destIsFile: true},
		"Successfully_rename_file_if_destination_is_a_symlink":   {destIsSymlink: true},

		"Error_when_source_does_not_exist":                       {sourceDoesNotExist: true, wantError: errAny},
		"Error_when_destination_is_a_directory":                  {destIsDir: true, wantError: errAny},
		"Error_when_destination_parent_directory_does_not_exist": {destParentDoesNotExist: true, wantError: errAny},
		"Error_when_destination_is_a_dangling_symlink":           {destIsDanglingSymlink: true, wantError: fileutils.SymlinkResolutionError{}},
		"Error_unwrap_when_destination_is_a_dangling_symlink":    {destIsDanglingSymlink: true, wantError: os.ErrNotExist},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			tempDir := t.TempDir()
			srcPath := filepath.Join(tempDir, "source")
			destPath := filepath.Join(tempDir, "dest")

			if !tc.sourceDoesNotExist {
				require.NoError(t, os.WriteFile(srcPath, []byte("test content"), 0o600))
			}

			if tc.destIsFile {
				require.NoError(t, os.WriteFile(destPath, []byte("existing content"), 0o600))
			}

			if tc.destIsSymlink {
				symlinkTarget := filepath.Join(tempDir, "symlink_target")
				require.NoError(t, os.WriteFile(symlinkTarget, []byte("symlink content"), 0o600))
				require.NoError(t, os.Symlink(symlinkTarget, destPath))
			}

			if tc.destIsDanglingSymlink {
				require.NoError(t, os.Symlink("nonexistent_target", destPath))
			}

			if tc.destIsDir {
				require.NoError(t, os.Mkdir(destPath, 0o700))
			}

			if tc.destParentDoesNotExist {
				destPath = filepath.Join(tempDir, "nonexistent", "dest")
			}

			err := fileutils.Lrename(srcPath, destPath)
			if errors.Is(tc.wantError, errAny) {
				require.Error(t, err, "Lrename should return an error")
				return
			}
			if tc.wantError != nil {
				require.ErrorIs(t, err, tc.wantError, "Error should match")
				return
			}
			require.NoError(t, err, "Lrename should not return an error")

			exists, err := fileutils.FileExists(srcPath)
			require.NoError(t, err, "FileExists should not return an error")
			require.False(t, exists, "Source file should no longer exist")

			exists, err = fileutils.FileExists(destPath)
			require.NoError(t, err, "FileExists should not return an error")
			require.True(t, exists, "Destination file should exist")
		})
	}
}
