// Package executor defines the node capability contract (§4.2) and the
// process-wide Node Registry (§4.1) that built-in and user-defined node
// types are published through.
package executor

import (
	"context"
	"fmt"

	"github.com/flowglyph/agentflow/pkg/models"
	"github.com/flowglyph/agentflow/pkg/resilience"
)

// RoutingFunction decides, given the post-execute state, which output
// port to follow. The Compiler installs it as a conditional edge only
// when a node has more than one distinct outgoing target (§4.6 step 3).
type RoutingFunction func(state *models.State) string

// Node is the capability every node type implements (§4.2). Execute is
// mandatory; RoutingFunction and DynamicOutputPorts are resolved lazily
// by the registry/compiler via the optional interfaces below.
type Node interface {
	// Execute runs the node against the current state snapshot and
	// returns a sparse delta (§3.1); absent fields are left unchanged.
	Execute(ctx context.Context, ectx *ExecutionContext, config map[string]any, state *models.State) (models.StateDelta, error)

	// Validate checks a node instance's config at compile/save time.
	Validate(config map[string]any) error
}

// Router is implemented by nodes whose execute result can lead to more
// than one outgoing edge (Classify, Review, Check Progress, Iteration
// Gate, Conditional Router, ...).
type Router interface {
	RoutingFunction(config map[string]any) RoutingFunction
}

// DynamicPorts is implemented by nodes whose port set is derived from
// config rather than the static NodeSpec.OutputPorts (Conditional Router).
type DynamicPorts interface {
	DynamicOutputPorts(config map[string]any) []string
}

// ExecutionContext is threaded into every node's Execute call (§4.2). It
// exposes the capabilities a node may need without giving it direct
// control over process lifecycle.
type ExecutionContext struct {
	SessionID     string
	Model         ModelAdapter
	MemoryManager MemoryManager
	SessionLogger SessionLogger
	ContextGuard  *ContextGuardConfig
	MaxRetries    int
	ModelName     string
	FallbackModels []string
}

// ResilientInvoke wraps ectx.Model.Invoke with retry-with-backoff and a
// model-fallback ladder (§4.6/§7): transient failures are retried up to
// MaxRetries on the current model; once that rung is exhausted it demotes
// to the next model in FallbackModels and retries there, returning both
// the final response and a FallbackTrace delta recording the demotion
// (empty CurrentModel/OriginalModel when no demotion occurred). nodeName
// is attributed to SessionLogger's node-scoped log lines via the caller,
// not here; resilientInvoke itself stays logger-agnostic.
func (ectx *ExecutionContext) ResilientInvoke(ctx context.Context, messages []ChatMessage, nodeName string, opts InvokeOptions) (InvokeResult, models.FallbackTrace, error) {
	policy := resilience.DefaultRetryPolicy()
	if ectx.MaxRetries > 0 {
		policy.MaxAttempts = ectx.MaxRetries
	}

	var last InvokeResult
	outcome, err := resilience.ResilientInvoke(ctx, policy, ectx.FallbackModels, ectx.ModelName, func(ctx context.Context, model string) (string, error) {
		callOpts := opts
		callOpts.Model = model
		result, err := ectx.Model.Invoke(ctx, messages, callOpts)
		if err != nil {
			return "", err
		}
		last = result
		return result.Content, nil
	})
	if err != nil {
		return InvokeResult{}, models.FallbackTrace{}, fmt.Errorf("%s: resilient invoke: %w", nodeName, err)
	}

	trace := models.FallbackTrace{}
	if outcome.Demoted {
		trace = models.FallbackTrace{
			OriginalModel: ectx.ModelName,
			CurrentModel:  outcome.Model,
			Attempts:      outcome.Attempts,
		}
	}
	last.Content = outcome.Content
	last.Model = outcome.Model
	return last, trace, nil
}

// ContextGuardConfig is the static configuration the Context Guard and
// resilience layer consult; it is not itself state (state.contextBudget
// carries the computed result).
type ContextGuardConfig struct {
	ContextLimit int
	WarnRatio    float64
	BlockRatio   float64
}

// ChatMessage mirrors models.ChatMessage for the adapter boundary so that
// pkg/executor does not need to import provider SDK types.
type ChatMessage = models.ChatMessage

// ModelAdapter is the consumed capability that owns the LLM subprocess
// (§6.1). The core never manages its lifecycle beyond invoke/cleanup.
type ModelAdapter interface {
	Invoke(ctx context.Context, messages []ChatMessage, opts InvokeOptions) (InvokeResult, error)
	Cleanup() error
	IsInitialized() bool
	Metadata() AdapterMetadata
}

// InvokeOptions is passed to ModelAdapter.Invoke.
type InvokeOptions struct {
	Timeout         int // milliseconds; 0 = adapter default
	SystemPrompt    string
	SkipPermissions bool
	Model           string // overrides ExecutionContext.ModelName for this call (resilience fallback ladder)
}

// InvokeResult is ModelAdapter.Invoke's return shape (§6.1).
type InvokeResult struct {
	Content    string
	StopReason string
	CostUSD    float64
	DurationMs int64
	ToolCalls  []ToolCall
	NumTurns   int
	Model      string
}

// ToolCall is one tool invocation reported by the model adapter.
type ToolCall struct {
	Name string
	Args map[string]any
}

// AdapterMetadata is ModelAdapter.Metadata's return shape.
type AdapterMetadata struct {
	SessionID   string
	ModelName   string
	WorkingDir  string
	StoragePath string
	PID         int
}

// SearchResult is one hit from MemoryManager.Search.
type SearchResult struct {
	Entry models.MemoryRef
	Score float64
}

// MemoryManager is the consumed capability for per-session memory (§6.2).
type MemoryManager interface {
	Initialize(ctx context.Context) error
	RecordMessage(ctx context.Context, role models.Role, content string) error
	Search(ctx context.Context, query string, maxResults int) ([]SearchResult, error)
	AutoFlush(ctx context.Context) error
}

// SessionLogger is the append-only, per-session structured logger every
// node and the executor write lifecycle events through (§5 "shared
// resources").
type SessionLogger interface {
	NodeEnter(nodeID, nodeLabel string, iteration int, summary map[string]any)
	NodeExit(nodeID, nodeLabel string, iteration int, preview string, durationMs int64)
	EdgeDecision(fromNodeID, decision string, iteration int)
	NodeError(nodeID string, iteration int, errType, message string)
}

// ExecutorFunc adapts a pair of plain functions to the Node interface,
// for small built-ins that don't need a dedicated type.
type ExecutorFunc struct {
	ExecuteFn  func(ctx context.Context, ectx *ExecutionContext, config map[string]any, state *models.State) (models.StateDelta, error)
	ValidateFn func(config map[string]any) error
}

func (f *ExecutorFunc) Execute(ctx context.Context, ectx *ExecutionContext, config map[string]any, state *models.State) (models.StateDelta, error) {
	return f.ExecuteFn(ctx, ectx, config, state)
}

func (f *ExecutorFunc) Validate(config map[string]any) error {
	if f.ValidateFn == nil {
		return nil
	}
	return f.ValidateFn(config)
}

// BaseExecutor provides the config-parsing helpers every built-in node
// embeds, matching the teacher's BaseExecutor idiom.
type BaseExecutor struct {
	NodeType string
}

func NewBaseExecutor(nodeType string) BaseExecutor {
	return BaseExecutor{NodeType: nodeType}
}

func (b *BaseExecutor) ValidateRequired(config map[string]any, fields ...string) error {
	for _, field := range fields {
		if _, ok := config[field]; !ok {
			return fmt.Errorf("%s: required field missing: %s", b.NodeType, field)
		}
	}
	return nil
}

func (b *BaseExecutor) GetString(config map[string]any, key string) (string, error) {
	val, ok := config[key]
	if !ok {
		return "", fmt.Errorf("%s: field not found: %s", b.NodeType, key)
	}
	str, ok := val.(string)
	if !ok {
		return "", fmt.Errorf("%s: field %s is not a string", b.NodeType, key)
	}
	return str, nil
}

func (b *BaseExecutor) GetStringDefault(config map[string]any, key, defaultValue string) string {
	if val, ok := config[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return defaultValue
}

func (b *BaseExecutor) GetIntDefault(config map[string]any, key string, defaultValue int) int {
	val, ok := config[key]
	if !ok {
		return defaultValue
	}
	switch v := val.(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return defaultValue
	}
}

func (b *BaseExecutor) GetBoolDefault(config map[string]any, key string, defaultValue bool) bool {
	if val, ok := config[key]; ok {
		if bv, ok := val.(bool); ok {
			return bv
		}
	}
	return defaultValue
}

func (b *BaseExecutor) GetMap(config map[string]any, key string) (map[string]any, error) {
	val, ok := config[key]
	if !ok {
		return nil, fmt.Errorf("%s: field not found: %s", b.NodeType, key)
	}
	m, ok := val.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%s: field %s is not a map", b.NodeType, key)
	}
	return m, nil
}

// GetStringMapDefault retrieves a map[string]string from config (used by
// the Conditional Router's routeMap), tolerating a map[string]any with
// string values (the common JSON-decoded shape).
func (b *BaseExecutor) GetStringMapDefault(config map[string]any, key string) map[string]string {
	out := map[string]string{}
	val, ok := config[key]
	if !ok {
		return out
	}
	switch m := val.(type) {
	case map[string]string:
		for k, v := range m {
			out[k] = v
		}
	case map[string]any:
		for k, v := range m {
			if s, ok := v.(string); ok {
				out[k] = s
			}
		}
	}
	return out
}
