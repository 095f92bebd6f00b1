package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerManager_CreatesLogDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "app.log")

	lm, err := NewLoggerManager(path, "INFO")

	require.NoError(t, err)
	defer lm.Close()

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestLevelFiltering(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")

	lm, err := NewLoggerManager(path, "ERROR")
	require.NoError(t, err)
	defer lm.Close()

	lm.Debug("debug-сообщение")
	lm.Info("info-сообщение")
	lm.Error("error-сообщение")

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	content := string(data)
	assert.NotContains(t, content, "debug-сообщение")
	assert.NotContains(t, content, "info-сообщение")
	assert.Contains(t, content, "error-сообщение")
}

func TestUnknownLevelFallsBackToInfo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")

	lm, err := NewLoggerManager(path, "weird")
	require.NoError(t, err)
	defer lm.Close()

	lm.Debug("debug-сообщение")
	lm.Info("info-сообщение")

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	content := string(data)
	assert.NotContains(t, content, "debug-сообщение")
	assert.Contains(t, content, "info-сообщение")
}

func TestLogError_NilIsSilent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")

	lm, err := NewLoggerManager(path, "DEBUG")
	require.NoError(t, err)
	defer lm.Close()

	lm.LogError(nil, "контекст")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Empty(t, data)
}
