package eventlog

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/flowglyph/agentflow/pkg/models"
)

// TestJournal_Open_RoundTripsAgainstRealPostgres spins up a disposable
// Postgres container the same way the teacher's
// internal/infrastructure/storage/event_repository_test.go does
// (setupEventRepoTest), trimmed to this package's single table and no
// migration runner since Open's initSchema creates it directly. Skipped
// in short mode since it needs a working Docker daemon.
func TestJournal_Open_RoundTripsAgainstRealPostgres(t *testing.T) {
	if testing.Short() {
		t.Skip("requires docker; skipped with -short")
	}
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "agentflow_test",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections"),
	}
	pg, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Terminate(ctx) })

	host, err := pg.Host(ctx)
	require.NoError(t, err)
	port, err := pg.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf("postgres://test:test@%s:%s/agentflow_test?sslmode=disable", host, port.Port())
	journal, err := Open(ctx, DefaultConfig(dsn))
	require.NoError(t, err)
	t.Cleanup(func() { _ = journal.Close() })

	events := []models.ExecutionEvent{
		{Kind: models.EventEnter, NodeID: "n1", EventNumber: 1},
		{Kind: models.EventExit, NodeID: "n1", EventNumber: 2, Preview: "hi"},
	}
	require.NoError(t, journal.Append(ctx, "sess-1", "wf-1", events))

	rows, err := journal.EventsForSession(ctx, "sess-1")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, "enter", rows[0].Kind)
	require.Equal(t, "exit", rows[1].Kind)
}
