package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dshills/simcheck/internal/config"
)

func TestNewWithWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewWithWriter(config.Logging{Level: "info", Format: "json"}, &buf)
	require.NoError(t, err)

	log.Debug("hidden")
	log.Info("classified", zap.Int("records", 15))
	require.NoError(t, log.Sync())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1, "debug is below the configured level")

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "classified", entry["message"])
	assert.Equal(t, float64(15), entry["records"])
}

func TestNewWithWriter_Console(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewWithWriter(config.Logging{Level: "WARN", Format: "console"}, &buf)
	require.NoError(t, err)

	log.Info("hidden")
	log.Warn("skipped record", zap.String("reason", "missing run_id"))

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "WARN")
	assert.Contains(t, out, "skipped record")
	assert.Contains(t, out, "missing run_id")
}

func TestNewWithWriter_FormatIsCaseInsensitive(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Logging.Format = "JSON"
	require.NoError(t, cfg.Check(), "validation accepts upper-case formats")

	var buf bytes.Buffer
	log, err := NewWithWriter(cfg.Logging, &buf)
	require.NoError(t, err)
	log.Warn("upper-case format")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "upper-case format", entry["message"])

	_, err = NewWithWriter(config.Logging{Level: "info", Format: "Console"}, &bytes.Buffer{})
	assert.NoError(t, err)
}

func TestNewWithWriter_Invalid(t *testing.T) {
	_, err := NewWithWriter(config.Logging{Level: "loud", Format: "json"}, &bytes.Buffer{})
	assert.Error(t, err)

	_, err = NewWithWriter(config.Logging{Level: "info", Format: "xml"}, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestNewWithWriter_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "simcheck.log")
	var buf bytes.Buffer
	log, err := NewWithWriter(config.Logging{
		Level: "debug", Format: "console", File: path, MaxSizeMB: 1, MaxBackups: 1,
	}, &buf)
	require.NoError(t, err)

	log.Debug("fitted forest", zap.Int("trees", 100))
	_ = log.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"fitted forest"`)
	assert.Contains(t, buf.String(), "fitted forest")
}

func TestNop(t *testing.T) {
	assert.NotPanics(t, func() { Nop().Info("ignored") })
}
