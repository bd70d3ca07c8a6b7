// Package models defines the public domain models and error types for agentflow.
package models

import "errors"

// Common error sentinels, grouped by subsystem.
var (
	// Workflow errors
	ErrInvalidWorkflowID = errors.New("invalid workflow ID")
	ErrWorkflowNotFound  = errors.New("workflow not found")
	ErrWorkflowExists    = errors.New("workflow already exists")
	ErrInvalidWorkflow   = errors.New("invalid workflow")
	ErrOrphanedNodes     = errors.New("orphaned nodes detected")
	ErrInvalidNodeType   = errors.New("invalid node type")
	ErrNodeNotFound      = errors.New("node not found")
	ErrEdgeNotFound      = errors.New("edge not found")
	ErrInvalidEdge       = errors.New("invalid edge")

	// Execution errors
	ErrExecutionFailed     = errors.New("execution failed")
	ErrExecutionCancelled  = errors.New("execution cancelled")
	ErrExecutionTimeout    = errors.New("execution timeout")
	ErrNodeExecutionFailed = errors.New("node execution failed")
	ErrInvalidInput        = errors.New("invalid input")
	ErrInvalidOutput       = errors.New("invalid output")

	// Registry errors
	ErrNodeSpecNotFound = errors.New("node spec not found")
	ErrNodeSpecExists   = errors.New("node spec already registered")
	ErrInvalidConfig    = errors.New("invalid configuration")

	// Session errors
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionStale    = errors.New("session is stale")

	// Validation errors
	ErrValidationFailed = errors.New("validation failed")
	ErrRequired         = errors.New("required field is missing")

	// Structured output errors
	ErrStructuredOutputParse    = errors.New("structured output parse failed")
	ErrStructuredOutputSchema   = errors.New("structured output schema validation failed")
	ErrStructuredOutputCorrect  = errors.New("structured output correction failed")
)

// WorkflowError represents an error that occurred during workflow operations.
type WorkflowError struct {
	WorkflowID string
	Operation  string
	Err        error
}

func (e *WorkflowError) Error() string {
	return "workflow " + e.WorkflowID + " " + e.Operation + ": " + e.Err.Error()
}

func (e *WorkflowError) Unwrap() error {
	return e.Err
}

// ExecutionError represents an error that occurred during graph execution.
type ExecutionError struct {
	SessionID string
	NodeID    string
	Err       error
}

func (e *ExecutionError) Error() string {
	msg := "execution"
	if e.SessionID != "" {
		msg += " " + e.SessionID
	}
	if e.NodeID != "" {
		msg += " node " + e.NodeID
	}
	msg += ": " + e.Err.Error()
	return msg
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// ValidationError represents a single validation error with details.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// ValidationErrors represents multiple validation errors collected during
// workflow graph validation (see WorkflowDefinition.Validate).
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "validation failed"
	}
	return e[0].Error()
}

// Strings returns every message in the collection, for callers (the
// compiler, the editor) that want the full human-readable list rather
// than just the first error.
func (e ValidationErrors) Strings() []string {
	out := make([]string, len(e))
	for i, v := range e {
		out[i] = v.Error()
	}
	return out
}
