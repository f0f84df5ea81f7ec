package utils

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureJSON(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, SetLogFormat("json"))
	SetLogOutput(&buf)
	t.Cleanup(func() {
		SetLogOutput(os.Stderr)
		_ = SetLogFormat("console")
		_ = SetLogLevel("info")
	})
	return &buf
}

func TestJSONOutput(t *testing.T) {
	buf := captureJSON(t)
	require.NoError(t, SetLogLevel("info"))

	Logger().Info().Str("alg", "Streebog256").Msg("digest")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "info", line["level"])
	assert.Equal(t, "Streebog256", line["alg"])
	assert.Equal(t, "digest", line["message"])
	assert.Contains(t, line, "time")
}

func TestLevelFiltering(t *testing.T) {
	buf := captureJSON(t)

	require.NoError(t, SetLogLevel("warn"))
	Logger().Info().Msg("hidden")
	Logger().Warn().Msg("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")

	buf.Reset()
	SetLogVerbosity(0)
	Logger().Warn().Msg("hidden")
	Logger().Error().Msg("shown")
	assert.Equal(t, 1, strings.Count(buf.String(), "\n"))

	buf.Reset()
	SetLogVerbosity(4)
	Logger().Debug().Msg("debug")
	assert.Contains(t, buf.String(), "debug")
}

func TestConsoleOutput(t *testing.T) {
	var buf bytes.Buffer
	SetLogOutput(&buf)
	t.Cleanup(func() { SetLogOutput(os.Stderr) })
	require.NoError(t, SetLogFormat("console"))
	require.NoError(t, SetLogLevel("info"))

	Logger().Info().Msg("hello")
	assert.Contains(t, buf.String(), "hello")
	assert.False(t, json.Valid(bytes.TrimSpace(buf.Bytes())), "console output is not json")
}

func TestBadSettings(t *testing.T) {
	assert.Error(t, SetLogLevel("loud"))
	assert.Error(t, SetLogFormat("xml"))
}
