package test

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// TempDir creates a temporary directory for testing and returns its path.
// The directory is automatically cleaned up after the test.
func TempDir(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "mockgps-test-*")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = os.RemoveAll(dir) // Ignore cleanup errors in tests
	})
	return dir
}

// WriteTrack writes lines as a newline-terminated track file in dir and
// returns its path.
func WriteTrack(t *testing.T, dir, name string, lines []string) string {
	t.Helper()
	if dir == "" {
		dir = TempDir(t)
	}
	path := filepath.Join(dir, name)
	content := strings.Join(lines, "\n")
	if len(lines) > 0 {
		content += "\n"
	}
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// Track returns n well-formed track lines walking north from a fixed point
func Track(n int) []string {
	lines := make([]string, n)
	for i := range lines {
		lines[i] = fmt.Sprintf("%.3f,4.9,%d", 52.0+float64(i)/1000, i)
	}
	return lines
}

// AssertFileExists checks if a file exists and fails the test if it doesn't.
func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	_, err := os.Stat(path)
	require.NoError(t, err, "file should exist: %s", path)
}

// AssertFileNotExists checks if a file doesn't exist and fails the test if it does.
func AssertFileNotExists(t *testing.T, path string) {
	t.Helper()
	_, err := os.Stat(path)
	require.Error(t, err, "file should not exist: %s", path)
	require.True(t, os.IsNotExist(err), "expected file not to exist: %s", path)
}
