package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCapturingSessionLogger(t *testing.T, level slog.Level) (*SessionLogger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	l := &Logger{logger: slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: level}))}
	return NewSessionLogger(l, "sess-1"), &buf
}

func decodeLastLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.NotEmpty(t, lines)
	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &out))
	return out
}

func TestSessionLogger_NodeEnter_CarriesSessionIDAndFields(t *testing.T) {
	sl, buf := newCapturingSessionLogger(t, slog.LevelDebug)
	sl.NodeEnter("n1", "Classify", 2, map[string]any{"difficulty": "medium"})

	entry := decodeLastLine(t, buf)
	assert.Equal(t, "sess-1", entry["sessionId"])
	assert.Equal(t, "n1", entry["nodeId"])
	assert.Equal(t, "Classify", entry["nodeLabel"])
	assert.Equal(t, float64(2), entry["iteration"])
}

func TestSessionLogger_NodeExit_CarriesPreviewAndDuration(t *testing.T) {
	sl, buf := newCapturingSessionLogger(t, slog.LevelInfo)
	sl.NodeExit("n1", "Classify", 1, "medium", 42)

	entry := decodeLastLine(t, buf)
	assert.Equal(t, "medium", entry["preview"])
	assert.Equal(t, float64(42), entry["durationMs"])
}

func TestSessionLogger_EdgeDecision(t *testing.T) {
	sl, buf := newCapturingSessionLogger(t, slog.LevelDebug)
	sl.EdgeDecision("n1", "hard", 0)

	entry := decodeLastLine(t, buf)
	assert.Equal(t, "n1", entry["fromNodeId"])
	assert.Equal(t, "hard", entry["decision"])
}

func TestSessionLogger_NodeError(t *testing.T) {
	sl, buf := newCapturingSessionLogger(t, slog.LevelInfo)
	sl.NodeError("n2", 3, "node_execution_failed", "boom")

	entry := decodeLastLine(t, buf)
	assert.Equal(t, "n2", entry["nodeId"])
	assert.Equal(t, "node_execution_failed", entry["errorType"])
	assert.Equal(t, "boom", entry["message"])
}

func TestSessionLogger_NodeEnter_SuppressedBelowDebugLevel(t *testing.T) {
	sl, buf := newCapturingSessionLogger(t, slog.LevelInfo)
	sl.NodeEnter("n1", "Classify", 0, nil)
	assert.Empty(t, buf.String())
}
