package logging

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewJSONCarriesServiceAndEnv(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Options{Level: slog.LevelInfo, Environment: "staging", Output: &buf})
	logger.Info("hello", "order", "ORD20240101001")

	out := buf.String()
	assert.Contains(t, out, `"service":"vibemall"`)
	assert.Contains(t, out, `"env":"staging"`)
	assert.Contains(t, out, `"order":"ORD20240101001"`)
}

func TestNewTextRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Options{Level: slog.LevelWarn, Format: "text", Output: &buf})
	logger.Info("quiet")
	logger.Warn("loud")

	assert.NotContains(t, buf.String(), "quiet")
	assert.Contains(t, buf.String(), "loud")
}
