package logging

import (
	"bytes"
	"encoding/json"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetupEmitsRenamedKeys(t *testing.T) {
	var buf bytes.Buffer
	logger, closer := Setup("casinod", "test", WithOutput(&buf), WithLevel(slog.LevelDebug))
	defer closer.Close()
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	logger.Debug("hello", "game", "dice")

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	require.Equal(t, "hello", line["message"])
	require.Equal(t, "DEBUG", line["severity"])
	require.Equal(t, "casinod", line["service"])
	require.Equal(t, "test", line["env"])
	require.Equal(t, "dice", line["game"])
	require.Contains(t, line, "timestamp")
}

func TestSetupBridgesStdLogAndFile(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "casinod.log")
	_, closer := Setup("casinod", "", WithOutput(&buf), WithFile(path, 1, 1, 1))
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	log.Print("from std log")
	require.NoError(t, closer.Close())

	require.Contains(t, buf.String(), "from std log")
	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(contents), "from std log")
	require.NotContains(t, buf.String(), `"env"`)
}

func TestParseLevel(t *testing.T) {
	require.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	require.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	require.Equal(t, slog.LevelError, ParseLevel("error"))
	require.Equal(t, slog.LevelInfo, ParseLevel("loud"))
}

func TestMaskField(t *testing.T) {
	require.Equal(t, RedactedValue, MaskField("passphrase", "hunter2").Value.String())
	require.Equal(t, "dice", MaskField("Game", "dice").Value.String())
	require.Equal(t, "", MaskValue(""))
}
