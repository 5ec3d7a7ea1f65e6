package logger_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reservation-settlement-backend/internal/logger"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, logger.ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, logger.ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, logger.ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, logger.ParseLevel("verbose"))
}

func TestWithJob_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger.InitializeWriter(&buf, "info", "json")
	t.Cleanup(func() { logger.Initialize("info", "text") })

	logger.WithJob("expire-stale-negotiations", "run-1").Info("Starting job")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "Starting job", line["msg"])
	assert.Equal(t, "expire-stale-negotiations", line["job"])
	assert.Equal(t, "run-1", line["run_id"])
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger.InitializeWriter(&buf, "info", "text")
	t.Cleanup(func() { logger.Initialize("info", "text") })

	logger.EnterMethod("svc.Op", "id", 1)
	logger.DatabaseCall("GetByID", "SELECT 1")
	assert.Empty(t, buf.String())

	logger.ExitMethodWithError("svc.Op", errors.New("boom"))
	logger.DatabaseResult("Update", 0, errors.New("deadlock"))
	out := buf.String()
	assert.Contains(t, out, "method=svc.Op")
	assert.Contains(t, out, "error=boom")
	assert.Contains(t, out, "operation=Update")
}
