package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "glimpse.log")

	closeFn, err := Setup(Config{Level: "debug", File: path, Console: false})
	require.NoError(t, err)
	defer closeFn()

	log := For("test")
	log.Info().Str("key", "value").Msg("hello from test")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"component":"test"`)
	assert.Contains(t, string(data), "hello from test")
}

func TestSetupLevelFiltersOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "glimpse.log")

	closeFn, err := Setup(Config{Level: "warn", File: path, Console: false})
	require.NoError(t, err)
	defer closeFn()

	log := For("filtered")
	log.Debug().Msg("suppressed debug line")
	log.Warn().Msg("visible warn line")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "suppressed debug line")
	assert.Contains(t, string(data), "visible warn line")
}

func TestSetupBadLevelFallsBackToInfo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "glimpse.log")

	closeFn, err := Setup(Config{Level: "loud", File: path, Console: false})
	require.NoError(t, err)
	defer closeFn()

	log := For("fallback")
	log.Debug().Msg("debug filtered at info")
	log.Info().Msg("info passes at info")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "debug filtered at info")
	assert.Contains(t, string(data), "info passes at info")
}
