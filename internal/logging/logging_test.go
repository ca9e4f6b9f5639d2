package logging

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogFilePath(t *testing.T) {
	start := time.Date(2026, 3, 1, 15, 4, 5, 0, time.UTC)
	path := LogFilePath("logs", start)
	assert.Equal(t, filepath.Join("logs", "edmap.20260301_150405.log"), path)
}

func TestSetup_ConsoleOnly(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("logLevel", "debug")

	logger, cleanup, err := Setup()
	require.NoError(t, err)
	defer cleanup()

	assert.Equal(t, "debug", logger.GetLevel().String())
}

func TestSetup_InvalidLevelFallsBackToInfo(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("logLevel", "loud")

	logger, cleanup, err := Setup()
	require.NoError(t, err)
	defer cleanup()

	assert.Equal(t, "info", logger.GetLevel().String())
}

func TestSetup_CreatesLogFile(t *testing.T) {
	t.Cleanup(viper.Reset)
	dir := filepath.Join(t.TempDir(), "logs")
	viper.Set("logLevel", "info")
	viper.Set("logsDir", dir)

	logger, cleanup, err := Setup()
	require.NoError(t, err)

	logger.Info().Msg("hello")
	cleanup()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	data, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello")
}
