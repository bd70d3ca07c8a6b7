// Package eventlog is the optional execution event journal (§6.3): a
// Postgres-backed audit trail of every ExecutionEvent a session's
// Executor emits, for post-hoc inspection once a run has finished. It is
// deliberately NOT the core's primary persistence path — the
// WorkflowStore (pkg/store) owns that on the local filesystem — so a
// deployment that never configures a DSN loses nothing but the audit
// trail.
//
// Grounded on internal/infrastructure/storage/bun_store.go's EventModel
// (one row per event, jsonb payload/metadata, a monotonic per-execution
// sequence number) and internal/infrastructure/storage/event_store.go's
// append/query interface shape, re-targeted from the teacher's
// domain.Event (event-sourced workflow/execution state) to this repo's
// flatter models.ExecutionEvent (§6.4), and from db.go's NewDB/Config
// connection-pool setup (pgdriver + bundebug query-hook-from-env).
package eventlog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"github.com/flowglyph/agentflow/pkg/models"
)

// EventModel is the event journal's row shape: one row per
// ExecutionEvent, scoped to the session and invocation that produced it.
type EventModel struct {
	bun.BaseModel `bun:"table:execution_events,alias:ev"`

	EventID     uuid.UUID      `bun:"event_id,pk"`
	SessionID   string         `bun:"session_id"`
	WorkflowID  string         `bun:"workflow_id"`
	Kind        string         `bun:"kind"`
	NodeID      string         `bun:"node_id"`
	NodeLabel   string         `bun:"node_label"`
	NodeType    string         `bun:"node_type"`
	Iteration   int            `bun:"iteration"`
	EventNumber int64          `bun:"event_number"`
	Payload     map[string]any `bun:"payload,type:jsonb"`
	ErrorType   string         `bun:"error_type"`
	ErrorMsg    string         `bun:"error_message"`
	StopReason  string         `bun:"stop_reason"`
	Timestamp   time.Time      `bun:"timestamp"`
}

func newEventModel(sessionID, workflowID string, ev models.ExecutionEvent, at time.Time) *EventModel {
	payload := map[string]any{}
	if ev.StateSummary != nil {
		payload["stateSummary"] = ev.StateSummary
	}
	if ev.Delta != nil {
		payload["delta"] = ev.Delta
	}
	if ev.Preview != "" {
		payload["preview"] = ev.Preview
	}
	return &EventModel{
		EventID:     uuid.New(),
		SessionID:   sessionID,
		WorkflowID:  workflowID,
		Kind:        string(ev.Kind),
		NodeID:      ev.NodeID,
		NodeLabel:   ev.NodeLabel,
		NodeType:    ev.NodeType,
		Iteration:   ev.Iteration,
		EventNumber: ev.EventNumber,
		Payload:     payload,
		ErrorType:   ev.ErrorType,
		ErrorMsg:    ev.ErrorMessage,
		StopReason:  ev.StopReason,
		Timestamp:   at,
	}
}

// Config configures the journal's database connection, mirroring the
// teacher's storage.Config shape (pool sizing plus a debug query-hook
// toggle, read from the BUNDEBUG environment variable via bundebug).
type Config struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	Debug           bool
}

// DefaultConfig returns sane pool defaults for a journal connection.
func DefaultConfig(dsn string) Config {
	return Config{
		DSN:             dsn,
		MaxOpenConns:    10,
		MaxIdleConns:    2,
		ConnMaxLifetime: time.Hour,
	}
}

// Journal persists ExecutionEvent batches for later inspection. A nil
// *Journal is valid and every method becomes a no-op, so a caller that
// never configures a DSN can pass it through unconditionally.
type Journal struct {
	db *bun.DB
}

// Open connects to the Postgres DSN in cfg, verifies connectivity, and
// ensures the execution_events table exists.
func Open(ctx context.Context, cfg Config) (*Journal, error) {
	connector := pgdriver.NewConnector(pgdriver.WithDSN(cfg.DSN))
	sqldb := sql.OpenDB(connector)
	sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	db := bun.NewDB(sqldb, pgdialect.New())
	if cfg.Debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true), bundebug.FromEnv("BUNDEBUG")))
	}

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("eventlog: ping: %w", err)
	}

	j := &Journal{db: db}
	if err := j.initSchema(ctx); err != nil {
		return nil, err
	}
	return j, nil
}

func (j *Journal) initSchema(ctx context.Context) error {
	_, err := j.db.NewCreateTable().Model((*EventModel)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return fmt.Errorf("eventlog: create table: %w", err)
	}
	return nil
}

// Append writes one invocation's full event stream in a single insert,
// timestamped at flush time. Called from the Session Façade's cleanup()
// once a run's events have all been collected (§6.3).
func (j *Journal) Append(ctx context.Context, sessionID, workflowID string, events []models.ExecutionEvent) error {
	if j == nil || j.db == nil || len(events) == 0 {
		return nil
	}

	now := time.Now().UTC()
	rows := make([]*EventModel, len(events))
	for i, ev := range events {
		rows[i] = newEventModel(sessionID, workflowID, ev, now)
	}

	if _, err := j.db.NewInsert().Model(&rows).Exec(ctx); err != nil {
		return fmt.Errorf("eventlog: append: %w", err)
	}
	return nil
}

// EventsForSession returns every journaled event for sessionID, oldest
// first, for post-hoc inspection tooling.
func (j *Journal) EventsForSession(ctx context.Context, sessionID string) ([]EventModel, error) {
	if j == nil || j.db == nil {
		return nil, nil
	}
	var rows []EventModel
	err := j.db.NewSelect().
		Model(&rows).
		Where("session_id = ?", sessionID).
		Order("event_number ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("eventlog: query session %s: %w", sessionID, err)
	}
	return rows, nil
}

// Close releases the underlying connection pool.
func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}
