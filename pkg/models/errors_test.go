package models

import (
	"errors"
	"testing"
)

func TestWorkflowError(t *testing.T) {
	baseErr := errors.New("something went wrong")
	wfErr := &WorkflowError{
		WorkflowID: "wf-123",
		Operation:  "create",
		Err:        baseErr,
	}

	expectedMsg := "workflow wf-123 create: something went wrong"
	if wfErr.Error() != expectedMsg {
		t.Errorf("Error() = %s, want %s", wfErr.Error(), expectedMsg)
	}

	if unwrapped := wfErr.Unwrap(); unwrapped != baseErr {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, baseErr)
	}

	if !errors.Is(wfErr, baseErr) {
		t.Error("errors.Is() should return true for wrapped error")
	}
}

func TestExecutionError(t *testing.T) {
	baseErr := errors.New("execution failed")

	tests := []struct {
		name        string
		execErr     *ExecutionError
		expectedMsg string
	}{
		{
			name: "with node ID",
			execErr: &ExecutionError{
				SessionID: "sess-123",
				NodeID:    "node-456",
				Err:       baseErr,
			},
			expectedMsg: "execution sess-123 node node-456: execution failed",
		},
		{
			name: "without node ID",
			execErr: &ExecutionError{
				SessionID: "sess-123",
				Err:       baseErr,
			},
			expectedMsg: "execution sess-123: execution failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.execErr.Error() != tt.expectedMsg {
				t.Errorf("Error() = %s, want %s", tt.execErr.Error(), tt.expectedMsg)
			}
			if unwrapped := tt.execErr.Unwrap(); unwrapped != baseErr {
				t.Errorf("Unwrap() = %v, want %v", unwrapped, baseErr)
			}
			if !errors.Is(tt.execErr, baseErr) {
				t.Error("errors.Is() should return true for wrapped error")
			}
		})
	}
}

func TestValidationError(t *testing.T) {
	valErr := &ValidationError{Field: "name", Message: "name is required"}
	expectedMsg := "name: name is required"
	if valErr.Error() != expectedMsg {
		t.Errorf("Error() = %s, want %s", valErr.Error(), expectedMsg)
	}
}

func TestValidationErrors(t *testing.T) {
	tests := []struct {
		name        string
		errors      ValidationErrors
		expectedMsg string
	}{
		{
			name:        "single error",
			errors:      ValidationErrors{{Field: "name", Message: "name is required"}},
			expectedMsg: "name: name is required",
		},
		{
			name: "multiple errors returns first",
			errors: ValidationErrors{
				{Field: "name", Message: "name is required"},
				{Field: "type", Message: "type is invalid"},
			},
			expectedMsg: "name: name is required",
		},
		{
			name:        "no errors",
			errors:      ValidationErrors{},
			expectedMsg: "validation failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.errors.Error() != tt.expectedMsg {
				t.Errorf("Error() = %s, want %s", tt.errors.Error(), tt.expectedMsg)
			}
		})
	}
}

func TestValidationErrors_Strings(t *testing.T) {
	errs := ValidationErrors{
		{Field: "a", Message: "bad a"},
		{Field: "b", Message: "bad b"},
	}
	out := errs.Strings()
	if len(out) != 2 || out[0] != "a: bad a" || out[1] != "b: bad b" {
		t.Errorf("Strings() = %v", out)
	}
}

func TestCommonErrors(t *testing.T) {
	commonErrors := []error{
		ErrInvalidWorkflowID,
		ErrWorkflowNotFound,
		ErrWorkflowExists,
		ErrInvalidWorkflow,
		ErrOrphanedNodes,
		ErrInvalidNodeType,
		ErrNodeNotFound,
		ErrEdgeNotFound,
		ErrInvalidEdge,
		ErrExecutionFailed,
		ErrExecutionCancelled,
		ErrExecutionTimeout,
		ErrNodeExecutionFailed,
		ErrInvalidInput,
		ErrInvalidOutput,
		ErrNodeSpecNotFound,
		ErrNodeSpecExists,
		ErrInvalidConfig,
		ErrSessionNotFound,
		ErrSessionStale,
		ErrValidationFailed,
		ErrRequired,
		ErrStructuredOutputParse,
		ErrStructuredOutputSchema,
		ErrStructuredOutputCorrect,
	}

	for _, err := range commonErrors {
		if err == nil {
			t.Error("common error is nil")
		}
		if err.Error() == "" {
			t.Error("common error has empty message")
		}
	}
}

func TestErrorWrapping(t *testing.T) {
	wfErr := &WorkflowError{WorkflowID: "wf-123", Operation: "get", Err: ErrWorkflowNotFound}
	if !errors.Is(wfErr, ErrWorkflowNotFound) {
		t.Error("errors.Is() should work with WorkflowError")
	}

	execErr := &ExecutionError{SessionID: "sess-123", Err: ErrExecutionFailed}
	if !errors.Is(execErr, ErrExecutionFailed) {
		t.Error("errors.Is() should work with ExecutionError")
	}
}
