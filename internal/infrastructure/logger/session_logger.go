package logger

import (
	"github.com/flowglyph/agentflow/pkg/executor"
)

// SessionLogger adapts Logger to the executor.SessionLogger capability
// (§5 "shared resources": "SessionLogger is owned per-session; writes
// are append-only"). Every line carries the owning session's id so a
// shared sink (stdout, a log aggregator) can be filtered per session
// without the logger itself needing per-session file handles, matching
// the teacher's single structured-logger-with-fields idiom rather than
// opening a log file per workflow run.
type SessionLogger struct {
	log       *Logger
	sessionID string
}

// NewSessionLogger wraps log with sessionID, implementing
// executor.SessionLogger.
func NewSessionLogger(log *Logger, sessionID string) *SessionLogger {
	return &SessionLogger{log: log.With("sessionId", sessionID), sessionID: sessionID}
}

var _ executor.SessionLogger = (*SessionLogger)(nil)

func (s *SessionLogger) NodeEnter(nodeID, nodeLabel string, iteration int, summary map[string]any) {
	s.log.Debug("node enter",
		"nodeId", nodeID, "nodeLabel", nodeLabel, "iteration", iteration, "stateSummary", summary)
}

func (s *SessionLogger) NodeExit(nodeID, nodeLabel string, iteration int, preview string, durationMs int64) {
	s.log.Info("node exit",
		"nodeId", nodeID, "nodeLabel", nodeLabel, "iteration", iteration,
		"preview", preview, "durationMs", durationMs)
}

func (s *SessionLogger) EdgeDecision(fromNodeID, decision string, iteration int) {
	s.log.Debug("edge decision", "fromNodeId", fromNodeID, "decision", decision, "iteration", iteration)
}

func (s *SessionLogger) NodeError(nodeID string, iteration int, errType, message string) {
	s.log.Error("node error", "nodeId", nodeID, "iteration", iteration, "errorType", errType, "message", message)
}
