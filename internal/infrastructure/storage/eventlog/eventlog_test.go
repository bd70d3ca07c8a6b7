package eventlog

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowglyph/agentflow/pkg/models"
)

func TestNewEventModel_CarriesDeltaAndPreviewIntoPayload(t *testing.T) {
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	ev := models.ExecutionEvent{
		Kind:        models.EventExit,
		NodeID:      "n1",
		NodeLabel:   "Classify",
		NodeType:    "classify",
		Iteration:   2,
		EventNumber: 5,
		Preview:     "medium",
		Delta:       map[string]any{"difficulty": "medium"},
	}

	model := newEventModel("sess-1", "wf-1", ev, at)

	assert.Equal(t, "sess-1", model.SessionID)
	assert.Equal(t, "wf-1", model.WorkflowID)
	assert.Equal(t, "exit", model.Kind)
	assert.Equal(t, "n1", model.NodeID)
	assert.Equal(t, int64(5), model.EventNumber)
	assert.Equal(t, "medium", model.Payload["preview"])
	assert.Equal(t, map[string]any{"difficulty": "medium"}, model.Payload["delta"])
	assert.Equal(t, at, model.Timestamp)
}

func TestNewEventModel_ErrorEventCarriesErrorFields(t *testing.T) {
	ev := models.ExecutionEvent{
		Kind:         models.EventError,
		ErrorType:    "node_execution_failed",
		ErrorMessage: "boom",
	}
	model := newEventModel("sess-1", "wf-1", ev, time.Now())
	assert.Equal(t, "node_execution_failed", model.ErrorType)
	assert.Equal(t, "boom", model.ErrorMsg)
}

func TestNilJournal_MethodsAreNoOps(t *testing.T) {
	var j *Journal
	ctx := context.Background()

	require.NoError(t, j.Append(ctx, "sess-1", "wf-1", []models.ExecutionEvent{{Kind: models.EventEnd}}))

	rows, err := j.EventsForSession(ctx, "sess-1")
	require.NoError(t, err)
	assert.Nil(t, rows)

	require.NoError(t, j.Close())
}

func TestJournal_Append_EmptyEventsIsNoOp(t *testing.T) {
	j := &Journal{}
	require.NoError(t, j.Append(context.Background(), "sess-1", "wf-1", nil))
}
