package eventlog

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"github.com/flowglyph/agentflow/pkg/models"
)

// newJournalWithMock wires a Journal to a go-sqlmock driver instead of a
// real Postgres connection, matching the teacher's newBunDBWithMock
// pattern (internal/infrastructure/api/grpc/interceptors_test.go) so
// Append/EventsForSession's generated SQL can be asserted without a
// database.
func newJournalWithMock(t *testing.T) (*Journal, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	bunDB := bun.NewDB(db, pgdialect.New())
	return &Journal{db: bunDB}, mock
}

func TestJournal_Append_ExecutesInsert(t *testing.T) {
	j, mock := newJournalWithMock(t)
	mock.ExpectExec("^INSERT INTO \"execution_events\"").WillReturnResult(sqlmock.NewResult(1, 1))

	err := j.Append(context.Background(), "sess-1", "wf-1", []models.ExecutionEvent{
		{Kind: models.EventExit, NodeID: "n1", EventNumber: 1},
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestJournal_EventsForSession_ScansMatchingRows(t *testing.T) {
	j, mock := newJournalWithMock(t)

	columns := []string{
		"event_id", "session_id", "workflow_id", "kind", "node_id", "node_label",
		"node_type", "iteration", "event_number", "payload", "error_type",
		"error_message", "stop_reason", "timestamp",
	}
	now := time.Now()
	rows := sqlmock.NewRows(columns).AddRow(
		"00000000-0000-0000-0000-000000000001", "sess-1", "wf-1", "exit", "n1", "Classify",
		"classify", 0, int64(1), []byte(`{}`), "", "", "", now,
	)
	mock.ExpectQuery("^SELECT (.+) FROM \"execution_events\"").WithArgs("sess-1").WillReturnRows(rows)

	events, err := j.EventsForSession(context.Background(), "sess-1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "sess-1", events[0].SessionID)
	assert.Equal(t, "exit", events[0].Kind)
	require.NoError(t, mock.ExpectationsWereMet())
}
