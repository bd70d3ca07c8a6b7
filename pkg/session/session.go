// Package session implements the Session Façade (§4.8): the object a
// caller actually talks to. It binds exactly one ModelAdapter, one
// MemoryManager, and one CompiledGraph together with session metadata,
// exposes invoke/stream/cleanup/sessionInfo, and enforces the freshness
// policy (§4.8, §5 "Freshness") before every invocation.
//
// Grounded on internal/application/engine/execution_manager.go's
// session-scoped execution bookkeeping (load workflow, create an
// execution record, notify observers, run the graph, update status,
// build per-node results) and pkg/engine/standalone.go's self-contained
// engine construction, generalized from the teacher's "one manager, many
// concurrent executions" shape down to one façade instance per session,
// each owning its own adapter/memory/graph instead of sharing them
// across executions.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/flowglyph/agentflow/pkg/compiler"
	"github.com/flowglyph/agentflow/pkg/engine"
	"github.com/flowglyph/agentflow/pkg/executor"
	"github.com/flowglyph/agentflow/pkg/models"
	"github.com/flowglyph/agentflow/pkg/store"
)

// configValidator enforces the struct tags on Config (§6.5's
// configuration surface), grounded on the teacher's validate-tagged
// persistence models (e.g. internal/infrastructure/storage/models's
// UserModel) repurposed here for a request-shaped struct instead of a
// database row.
var configValidator = validator.New()

// Status mirrors the teacher's execution status field, narrowed to the
// values a session façade (rather than a single execution) can be in.
type Status string

const (
	StatusActive Status = "active"
	StatusStale  Status = "stale"
	StatusError  Status = "error"
	StatusClosed Status = "closed"
)

// Role matches §6.5's informational manager/worker distinction.
type Role string

const (
	RoleManager Role = "manager"
	RoleWorker  Role = "worker"
)

// Journal is the subset of eventlog.Journal a session needs, so this
// package does not have to import the storage driver stack directly. A
// nil Journal is valid; Append and Close must already be no-ops on it
// (eventlog.Journal satisfies this).
type Journal interface {
	Append(ctx context.Context, sessionID, workflowID string, events []models.ExecutionEvent) error
	Close() error
}

// Config is the session configuration surface (§6.5), accepted at
// session creation time.
type Config struct {
	SessionID     string `validate:"required"` // generated by the caller if empty
	SessionName   string `validate:"omitempty,max=200"`
	WorkingDir    string
	ModelName     string `validate:"omitempty,max=100"`
	MaxTurns      int    `validate:"gte=0"`
	Timeout       time.Duration
	MaxIterations int `validate:"gte=0"`
	SystemPrompt  string
	AllowedTools  []string
	WorkflowID    string `validate:"omitempty,max=100"`
	GraphName     string `validate:"omitempty,max=100"`
	McpConfig     map[string]any
	Role          Role `validate:"omitempty,oneof=manager worker"`
	ManagerID     string
	EnvVars       map[string]string

	MaxRetries     int `validate:"gte=0"`
	FallbackModels []string
	ContextGuard   *executor.ContextGuardConfig

	// Freshness thresholds (§4.8, §5 "Freshness"): a session becomes
	// stale once any one of these is exceeded. Zero means "no limit"
	// for that dimension.
	MaxAge           time.Duration
	MaxIdle          time.Duration
	MaxIterationsRun int `validate:"gte=0"`
}

// Info is the serializable snapshot returned by sessionInfo() (§4.8).
type Info struct {
	SessionID  string
	Name       string
	Status     Status
	CreatedAt  time.Time
	ModelName  string
	Role       Role
	WorkflowID string
	ManagerID  string
}

// Session is the façade: one ModelAdapter, one MemoryManager, one
// CompiledGraph, for the lifetime of one logical client session (§4.8,
// §5 "ModelAdapter and MemoryManager are single-owner").
type Session struct {
	mu sync.Mutex

	id         string
	name       string
	role       Role
	managerID  string
	cfg        Config
	workflowID string

	model   executor.ModelAdapter
	memory  executor.MemoryManager
	logger  executor.SessionLogger
	journal Journal

	graph  *compiler.Graph
	ectx   *executor.ExecutionContext
	engine *engine.Executor

	createdAt      time.Time
	lastActivityAt time.Time
	iterationCount int
	status         Status
}

// Deps bundles the collaborators Initialize wires together, so callers
// don't have to know the façade's internal field order.
type Deps struct {
	Store   *store.WorkflowStore
	Model   executor.ModelAdapter
	Memory  executor.MemoryManager
	Logger  executor.SessionLogger
	Journal Journal // may be nil
	Nodes   *executor.Registry
}

// Initialize resolves a WorkflowDefinition (by WorkflowID, then by
// GraphName via the store's template lookup, then the "simple" built-in
// template as a last resort, matching §4.8's initialize() fallback
// chain), compiles it, and returns a ready-to-use Session.
func Initialize(ctx context.Context, cfg Config, deps Deps) (*Session, error) {
	if err := configValidator.Struct(cfg); err != nil {
		return nil, fmt.Errorf("session: invalid config: %w", err)
	}

	def, err := resolveWorkflow(cfg, deps.Store)
	if err != nil {
		return nil, fmt.Errorf("session: resolve workflow: %w", err)
	}

	graph, err := compiler.Compile(def, deps.Nodes)
	if err != nil {
		return nil, fmt.Errorf("session: compile workflow %s: %w", def.ID, err)
	}

	if err := deps.Memory.Initialize(ctx); err != nil {
		return nil, fmt.Errorf("session: initialize memory manager: %w", err)
	}

	ectx := &executor.ExecutionContext{
		SessionID:      cfg.SessionID,
		Model:          deps.Model,
		MemoryManager:  deps.Memory,
		SessionLogger:  deps.Logger,
		ContextGuard:   cfg.ContextGuard,
		MaxRetries:     cfg.MaxRetries,
		ModelName:      cfg.ModelName,
		FallbackModels: cfg.FallbackModels,
	}

	now := time.Now().UTC()
	s := &Session{
		id:             cfg.SessionID,
		name:           cfg.SessionName,
		role:           cfg.Role,
		managerID:      cfg.ManagerID,
		cfg:            cfg,
		workflowID:     def.ID,
		model:          deps.Model,
		memory:         deps.Memory,
		logger:         deps.Logger,
		journal:        deps.Journal,
		graph:          graph,
		ectx:           ectx,
		engine:         engine.New(graph, ectx),
		createdAt:      now,
		lastActivityAt: now,
		status:         StatusActive,
	}
	return s, nil
}

// resolveWorkflow implements §4.8's workflowId/graphName/fallback chain.
func resolveWorkflow(cfg Config, s *store.WorkflowStore) (*models.WorkflowDefinition, error) {
	if cfg.WorkflowID != "" {
		return s.Load(cfg.WorkflowID)
	}
	if cfg.GraphName != "" {
		if def, err := s.FindByTemplateName(cfg.GraphName); err == nil {
			return def, nil
		}
	}
	if def, err := s.FindByTemplateName(store.TemplateSimple); err == nil {
		return def, nil
	}
	for _, tmpl := range store.BuiltinTemplates() {
		if tmpl.TemplateName == store.TemplateSimple {
			return tmpl, nil
		}
	}
	return nil, fmt.Errorf("%w: no workflowId, graphName, or fallback template resolved", models.ErrWorkflowNotFound)
}

// Invoke runs one synchronous invocation of the bound graph (§4.8
// invoke()), refusing if the session has gone stale. The graph's full
// event stream is collected internally (for the journal) even though
// Invoke itself only returns the final answer string.
func (s *Session) Invoke(ctx context.Context, input, threadID string) (string, error) {
	if err := s.checkFreshness(); err != nil {
		return "", err
	}

	answer, events, err := s.runCollecting(ctx, input, threadID)
	s.recordActivity(err)
	s.flushEvents(ctx, events)
	return answer, err
}

// Stream runs one invocation and publishes every ExecutionEvent as it
// happens (§4.8 stream()), exactly mirroring engine.Executor.Stream's
// channel contract while also tee-ing events into the session's journal
// buffer once the stream is drained.
func (s *Session) Stream(ctx context.Context, input, threadID string) (<-chan models.ExecutionEvent, func() error) {
	if err := s.checkFreshness(); err != nil {
		ch := make(chan models.ExecutionEvent)
		close(ch)
		return ch, func() error { return err }
	}

	out := make(chan models.ExecutionEvent, 16)
	var collected []models.ExecutionEvent
	var walkErr error

	inner, result := s.engine.Stream(ctx, input, threadID, s.maxIterationsOverride())
	go func() {
		defer close(out)
		for ev := range inner {
			collected = append(collected, ev)
			select {
			case out <- ev:
			case <-ctx.Done():
			}
		}
		walkErr = result()
		s.recordActivity(walkErr)
		s.flushEvents(ctx, collected)
	}()

	return out, func() error { return walkErr }
}

// runCollecting drives the graph through engine.Executor.Stream so that
// Invoke can both return the final-answer string (§4.7's
// finalAnswer/answer/lastOutput priority, reconstructed here from the
// last relevant exit event's preview since Invoke itself doesn't expose
// a raw event channel) and hand the full event list to the journal.
func (s *Session) runCollecting(ctx context.Context, input, threadID string) (string, []models.ExecutionEvent, error) {
	events, result := s.engine.Stream(ctx, input, threadID, s.maxIterationsOverride())

	var collected []models.ExecutionEvent
	var lastPreview string
	var errType, errMsg string
	for ev := range events {
		collected = append(collected, ev)
		if ev.Kind == models.EventExit && ev.Preview != "" {
			lastPreview = ev.Preview
		}
		if ev.Kind == models.EventError {
			errType, errMsg = ev.ErrorType, ev.ErrorMessage
		}
	}
	walkErr := result()

	if errMsg != "" && errType != "canceled" {
		return "Error: " + errMsg, collected, walkErr
	}
	return lastPreview, collected, walkErr
}

func (s *Session) maxIterationsOverride() int {
	return s.cfg.MaxIterations
}

// flushEvents appends the run's event stream to the journal (§6.3). A
// nil journal, or one the caller never configured a DSN for, makes this
// a no-op — the journal is an audit trail, not the primary persistence
// path.
func (s *Session) flushEvents(ctx context.Context, events []models.ExecutionEvent) {
	if s.journal == nil || len(events) == 0 {
		return
	}
	if err := s.journal.Append(ctx, s.id, s.workflowID, events); err != nil && s.logger != nil {
		s.logger.NodeError("session", 0, "journal_append_failed", err.Error())
	}
}

// recordActivity updates the bookkeeping the freshness policy consults.
// It leaves the session's status unchanged even when err is non-nil
// (§7 "the session remains usable unless the freshness evaluator or
// cleanup has retired it" — an execution error alone does not retire
// it).
func (s *Session) recordActivity(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActivityAt = time.Now().UTC()
	s.iterationCount++
}

// checkFreshness implements §4.8/§5's staleness disjunction: age, idle
// time, and accumulated iteration count. Becoming stale transitions
// status to error and the call is refused.
func (s *Session) checkFreshness() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == StatusError || s.status == StatusClosed {
		return fmt.Errorf("%w: session %s", models.ErrSessionStale, s.id)
	}

	now := time.Now().UTC()
	stale := (s.cfg.MaxAge > 0 && now.Sub(s.createdAt) > s.cfg.MaxAge) ||
		(s.cfg.MaxIdle > 0 && now.Sub(s.lastActivityAt) > s.cfg.MaxIdle) ||
		(s.cfg.MaxIterationsRun > 0 && s.iterationCount > s.cfg.MaxIterationsRun)

	if stale {
		s.status = StatusError
		return fmt.Errorf("%w: session %s", models.ErrSessionStale, s.id)
	}
	return nil
}

// SessionInfo returns a serializable snapshot (§4.8 sessionInfo()).
func (s *Session) SessionInfo() Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Info{
		SessionID:  s.id,
		Name:       s.name,
		Status:     s.status,
		CreatedAt:  s.createdAt,
		ModelName:  s.cfg.ModelName,
		Role:       s.role,
		WorkflowID: s.workflowID,
		ManagerID:  s.managerID,
	}
}

// Cleanup releases the model adapter's process/resources, flushes
// memory, closes the journal connection if this session opened it, and
// marks the session closed so any further invoke/stream is refused
// (§4.8 cleanup()).
func (s *Session) Cleanup(ctx context.Context) error {
	s.mu.Lock()
	s.status = StatusClosed
	s.mu.Unlock()

	var errs []error
	if err := s.memory.AutoFlush(ctx); err != nil {
		errs = append(errs, fmt.Errorf("session: flush memory: %w", err))
	}
	if err := s.model.Cleanup(); err != nil {
		errs = append(errs, fmt.Errorf("session: cleanup model: %w", err))
	}

	return errors.Join(errs...)
}
