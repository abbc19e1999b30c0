package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_LevelFallback(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	require.NoError(t, Init(&Config{Level: "debug", Format: "json"}))
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())

	require.NoError(t, Init(&Config{Level: "nonsense", Format: "json"}))
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}

func TestInit_FileOutput(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mockgps.log")

	require.NoError(t, Init(&Config{Level: "info", Format: "json", Output: path}))
	defer func() {
		require.NoError(t, Init(&Config{Level: "info", Format: "json"}))
	}()

	l := WithComponent("logger.test")
	l.Info().Msg("hello")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"component":"logger.test"`)
	assert.Contains(t, string(data), `"message":"hello"`)
}
