package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowglyph/agentflow/pkg/executor"
	"github.com/flowglyph/agentflow/pkg/executor/builtin"
	"github.com/flowglyph/agentflow/pkg/models"
	"github.com/flowglyph/agentflow/pkg/store"
)

// fakeModel is a minimal executor.ModelAdapter that echoes a fixed reply,
// enough to drive llm_call without a real provider.
type fakeModel struct {
	reply   string
	cleaned bool
	invokes int
}

func (f *fakeModel) Invoke(ctx context.Context, messages []executor.ChatMessage, opts executor.InvokeOptions) (executor.InvokeResult, error) {
	f.invokes++
	return executor.InvokeResult{Content: f.reply, Model: "fake-model"}, nil
}
func (f *fakeModel) Cleanup() error       { f.cleaned = true; return nil }
func (f *fakeModel) IsInitialized() bool  { return true }
func (f *fakeModel) Metadata() executor.AdapterMetadata {
	return executor.AdapterMetadata{ModelName: "fake-model"}
}

// fakeMemory is a minimal executor.MemoryManager that records nothing
// durably, enough for a façade test that doesn't exercise memory recall.
type fakeMemory struct {
	initialized bool
	flushed     bool
	messages    []models.ChatMessage
}

func (f *fakeMemory) Initialize(ctx context.Context) error { f.initialized = true; return nil }
func (f *fakeMemory) RecordMessage(ctx context.Context, role models.Role, content string) error {
	f.messages = append(f.messages, models.ChatMessage{Role: role, Content: content})
	return nil
}
func (f *fakeMemory) Search(ctx context.Context, query string, maxResults int) ([]executor.SearchResult, error) {
	return nil, nil
}
func (f *fakeMemory) AutoFlush(ctx context.Context) error { f.flushed = true; return nil }

// fakeJournal records every Append call instead of touching Postgres.
type fakeJournal struct {
	appended [][]models.ExecutionEvent
	closed   bool
}

func (j *fakeJournal) Append(ctx context.Context, sessionID, workflowID string, events []models.ExecutionEvent) error {
	j.appended = append(j.appended, events)
	return nil
}
func (j *fakeJournal) Close() error { j.closed = true; return nil }

func newTestRegistry(t *testing.T) *executor.Registry {
	t.Helper()
	r := executor.NewRegistry()
	require.NoError(t, builtin.RegisterAll(r))
	return r
}

func newTestStore(t *testing.T) *store.WorkflowStore {
	t.Helper()
	s, err := store.New(t.TempDir())
	require.NoError(t, err)
	for _, tmpl := range store.BuiltinTemplates() {
		require.NoError(t, s.Save(tmpl))
	}
	return s
}

func TestInitialize_FallsBackToSimpleTemplateWhenGraphNameUnset(t *testing.T) {
	s := newTestStore(t)
	model := &fakeModel{reply: "pong"}
	memory := &fakeMemory{}

	sess, err := Initialize(context.Background(), Config{SessionID: "sess-1"}, Deps{
		Store:  s,
		Model:  model,
		Memory: memory,
		Nodes:  newTestRegistry(t),
	})
	require.NoError(t, err)
	assert.Equal(t, "tpl-simple", sess.SessionInfo().WorkflowID)
	assert.True(t, memory.initialized)
}

func TestInitialize_ResolvesByGraphName(t *testing.T) {
	s := newTestStore(t)
	sess, err := Initialize(context.Background(), Config{
		SessionID: "sess-1",
		GraphName: store.TemplateAutonomous,
	}, Deps{
		Store:  s,
		Model:  &fakeModel{reply: "easy"},
		Memory: &fakeMemory{},
		Nodes:  newTestRegistry(t),
	})
	require.NoError(t, err)
	assert.Equal(t, "tpl-autonomous", sess.SessionInfo().WorkflowID)
}

func TestInitialize_UnknownWorkflowIDFails(t *testing.T) {
	s := newTestStore(t)
	_, err := Initialize(context.Background(), Config{
		SessionID:  "sess-1",
		WorkflowID: "does-not-exist",
	}, Deps{
		Store:  s,
		Model:  &fakeModel{},
		Memory: &fakeMemory{},
		Nodes:  newTestRegistry(t),
	})
	require.Error(t, err)
}

func TestSession_Invoke_RunsSimpleTemplateAndJournals(t *testing.T) {
	s := newTestStore(t)
	model := &fakeModel{reply: "pong"}
	memory := &fakeMemory{}
	journal := &fakeJournal{}

	sess, err := Initialize(context.Background(), Config{SessionID: "sess-1"}, Deps{
		Store:   s,
		Model:   model,
		Memory:  memory,
		Journal: journal,
		Nodes:   newTestRegistry(t),
	})
	require.NoError(t, err)

	out, err := sess.Invoke(context.Background(), "ping", "")
	require.NoError(t, err)
	assert.Equal(t, "pong", out)
	assert.Equal(t, 1, model.invokes)
	require.Len(t, journal.appended, 1)
	assert.NotEmpty(t, journal.appended[0])
}

func TestSession_Invoke_RefusesAfterMaxAgeExceeded(t *testing.T) {
	s := newTestStore(t)
	sess, err := Initialize(context.Background(), Config{
		SessionID: "sess-1",
		MaxAge:    time.Nanosecond,
	}, Deps{
		Store:  s,
		Model:  &fakeModel{reply: "pong"},
		Memory: &fakeMemory{},
		Nodes:  newTestRegistry(t),
	})
	require.NoError(t, err)

	time.Sleep(time.Millisecond)
	_, err = sess.Invoke(context.Background(), "ping", "")
	require.ErrorIs(t, err, models.ErrSessionStale)
	assert.Equal(t, StatusError, sess.SessionInfo().Status)
}

func TestSession_Invoke_RefusesAfterMaxIterationsRunExceeded(t *testing.T) {
	s := newTestStore(t)
	sess, err := Initialize(context.Background(), Config{
		SessionID:        "sess-1",
		MaxIterationsRun: 1,
	}, Deps{
		Store:  s,
		Model:  &fakeModel{reply: "pong"},
		Memory: &fakeMemory{},
		Nodes:  newTestRegistry(t),
	})
	require.NoError(t, err)

	_, err = sess.Invoke(context.Background(), "ping", "")
	require.NoError(t, err)
	_, err = sess.Invoke(context.Background(), "ping again", "")
	require.NoError(t, err)

	_, err = sess.Invoke(context.Background(), "one too many", "")
	require.ErrorIs(t, err, models.ErrSessionStale)
}

func TestSession_Stream_PublishesEventsAndJournals(t *testing.T) {
	s := newTestStore(t)
	journal := &fakeJournal{}
	sess, err := Initialize(context.Background(), Config{SessionID: "sess-1"}, Deps{
		Store:   s,
		Model:   &fakeModel{reply: "pong"},
		Memory:  &fakeMemory{},
		Journal: journal,
		Nodes:   newTestRegistry(t),
	})
	require.NoError(t, err)

	events, result := sess.Stream(context.Background(), "ping", "")
	var kinds []models.EventKind
	for ev := range events {
		kinds = append(kinds, ev.Kind)
	}
	require.NoError(t, result())
	assert.Contains(t, kinds, models.EventEnd)
	require.Len(t, journal.appended, 1)
}

func TestSession_Cleanup_FlushesMemoryAndCleansModel(t *testing.T) {
	s := newTestStore(t)
	model := &fakeModel{}
	memory := &fakeMemory{}
	sess, err := Initialize(context.Background(), Config{SessionID: "sess-1"}, Deps{
		Store:  s,
		Model:  model,
		Memory: memory,
		Nodes:  newTestRegistry(t),
	})
	require.NoError(t, err)

	require.NoError(t, sess.Cleanup(context.Background()))
	assert.True(t, memory.flushed)
	assert.True(t, model.cleaned)
	assert.Equal(t, StatusClosed, sess.SessionInfo().Status)

	_, err = sess.Invoke(context.Background(), "ping", "")
	require.ErrorIs(t, err, models.ErrSessionStale)
}
