package bootstrap

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/target/opscrm-api/config"
)

func TestConfigureLogger(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	ctx := context.Background()

	logger := ConfigureLogger(config.LogConfig{Level: "debug", Format: "text"})
	assert.True(t, logger.Enabled(ctx, slog.LevelDebug))
	assert.IsType(t, &slog.TextHandler{}, logger.Handler())
	assert.Same(t, logger, slog.Default())

	logger = ConfigureLogger(config.LogConfig{Level: "warn", Format: "json"})
	assert.False(t, logger.Enabled(ctx, slog.LevelInfo))
	assert.IsType(t, &slog.JSONHandler{}, logger.Handler())

	logger = ConfigureLogger(config.LogConfig{Level: "verbose"})
	assert.True(t, logger.Enabled(ctx, slog.LevelInfo))
	assert.False(t, logger.Enabled(ctx, slog.LevelDebug))
}
