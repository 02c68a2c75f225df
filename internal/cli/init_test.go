package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupLogger_JSONAndLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := setupLogger(&buf, "cli", "warn", "json")

	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"shown"`)
	assert.Contains(t, out, `"component":"cli"`)
}

func TestSetupLogger_UnknownLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := setupLogger(&buf, "cli", "loud", "text")

	logger.Info("visible")
	logger.Debug("invisible")

	out := buf.String()
	assert.Contains(t, out, "Unknown log level")
	assert.Contains(t, out, "visible")
	assert.NotContains(t, out, "invisible")
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("FINBOARD_TEST_VALUE=from-file\n"), 0o600))
	t.Setenv("FINBOARD_TEST_VALUE", "")
	require.NoError(t, os.Unsetenv("FINBOARD_TEST_VALUE"))

	LoadEnvFile(path)
	assert.Equal(t, "from-file", os.Getenv("FINBOARD_TEST_VALUE"))

	// missing files are ignored
	LoadEnvFile(filepath.Join(dir, "missing.env"))
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("DATA_BACKEND", "memory")
	t.Setenv("PORT", "9090")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, ":9090", Addr(cfg.Port))

	t.Setenv("NOTION_TRANSPORT", "carrier-pigeon")
	_, err = LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid notion transport")
}

func TestWaitForShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	cancel()
	close(done)
	WaitForShutdown(ctx, done)
}
