// Package engine drives one compiled workflow graph through a single
// invocation (§4.7). It is grounded on the teacher's
// pkg/engine/dag_executor.go per-node wrapping/retry/timeout/event
// structure (executeNode, safeNotify, ExecutionEvent), reshaped from
// wave-parallel fan-out to the spec's single cooperative walk driven by
// a node's routing function or its direct edge, and on
// pkg/engine/node_executor.go's PrepareNodeContext merge-input strategy,
// repurposed here as the state-merge step between nodes.
package engine

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/flowglyph/agentflow/internal/infrastructure/tracing"
	"github.com/flowglyph/agentflow/pkg/compiler"
	"github.com/flowglyph/agentflow/pkg/executor"
	"github.com/flowglyph/agentflow/pkg/models"
)

// Executor drives a single compiled graph for the lifetime of one
// invocation. It owns no resources of its own — the ModelAdapter,
// MemoryManager and SessionLogger are supplied by the caller (the
// session façade, §4.8) through ExecutionContext, matching the teacher's
// split between DAGExecutor (pure graph-walking) and the resources it is
// handed.
type Executor struct {
	Graph *compiler.Graph
	Ctx   *executor.ExecutionContext
}

// New builds an Executor for one invocation of graph.
func New(graph *compiler.Graph, ectx *executor.ExecutionContext) *Executor {
	return &Executor{Graph: graph, Ctx: ectx}
}

// Invoke runs one full walk of the graph to completion (or cancellation,
// or an unhandled node error) and returns the first non-empty of
// finalAnswer|answer|lastOutput from the resulting state (§4.7). Per
// §7's user-visible failure behavior, a node error is also folded into
// the returned string as "Error: <message>"; the error return carries
// the same failure for callers that want to branch on it programmatically
// instead of pattern-matching the string.
func (e *Executor) Invoke(ctx context.Context, input, threadID string, maxIterationsOverride int) (string, error) {
	ctx, span := tracing.StartSpan(ctx, "engine.invoke")
	defer span.End()
	if threadID != "" {
		span.SetAttributes(attribute.String("agentflow.thread_id", threadID))
	}

	state := models.NewState(input, maxIterationsOverride)
	e.recordUserMessage(ctx, input)

	walkErr := e.walk(ctx, state, func(models.ExecutionEvent) {})
	if walkErr != nil {
		tracing.RecordError(ctx, walkErr)
	}

	if state.Error != "" {
		return "Error: " + state.Error, walkErr
	}
	switch {
	case state.FinalAnswer != "":
		return state.FinalAnswer, nil
	case state.Answer != "":
		return state.Answer, nil
	default:
		return state.LastOutput, nil
	}
}

// Stream runs one walk of the graph, publishing every ExecutionEvent on
// the returned channel as it happens (§4.7, §6.4). The channel is closed
// once the walk ends, whether by completion, cancellation, or error. The
// returned func reports the walk's terminal error (nil on a clean
// completion); it is only safe to call after the event channel has been
// drained to closure — the close-after-assign ordering inside the
// driving goroutine makes that safe without an extra lock.
func (e *Executor) Stream(ctx context.Context, input, threadID string, maxIterationsOverride int) (<-chan models.ExecutionEvent, func() error) {
	events := make(chan models.ExecutionEvent, 16)
	var walkErr error

	go func() {
		defer close(events)

		ctx, span := tracing.StartSpan(ctx, "engine.stream")
		defer span.End()
		if threadID != "" {
			span.SetAttributes(attribute.String("agentflow.thread_id", threadID))
		}

		state := models.NewState(input, maxIterationsOverride)
		e.recordUserMessage(ctx, input)

		walkErr = e.walk(ctx, state, func(ev models.ExecutionEvent) {
			select {
			case events <- ev:
			case <-ctx.Done():
			}
		})
		if walkErr != nil {
			tracing.RecordError(ctx, walkErr)
		}
	}()

	return events, func() error { return walkErr }
}

// recordUserMessage records the invocation's input to memory (§4.7 step
// 2). Failures are non-fatal (§7 "Memory errors"): reported through
// SessionLogger's error channel, keyed under a synthetic "memory" node
// id since the interface has no freestanding debug-log method, and
// otherwise swallowed.
func (e *Executor) recordUserMessage(ctx context.Context, input string) {
	if e.Ctx == nil || e.Ctx.MemoryManager == nil {
		return
	}
	if err := e.Ctx.MemoryManager.RecordMessage(ctx, models.RoleUser, input); err != nil {
		if e.Ctx.SessionLogger != nil {
			e.Ctx.SessionLogger.NodeError("memory", 0, "memory_record_failed", err.Error())
		}
	}
}

// walk performs the single cooperative node-by-node traversal described
// in §4.7 step 3, emitting one enter/exit/edge event set per node plus a
// terminal error/end pair on failure, cancellation, or normal completion.
func (e *Executor) walk(ctx context.Context, state *models.State, emit func(models.ExecutionEvent)) error {
	var eventNumber int64
	next := func() int64 {
		eventNumber++
		return eventNumber
	}

	current := e.Graph.Entry
	for current != "" {
		if err := ctx.Err(); err != nil {
			return e.cancel(state, emit, next, err)
		}

		node, ok := e.Graph.Nodes[current]
		if !ok {
			return fmt.Errorf("%w: %s", models.ErrNodeNotFound, current)
		}

		delta, err := e.executeNode(ctx, node, state, emit, next)
		if err != nil {
			return err
		}
		state.Merge(delta)

		target, ended := node.Resolve(state)
		e.emitEdge(node, target, ended, state, emit, next)
		if ended {
			emit(models.ExecutionEvent{Kind: models.EventEnd, Iteration: state.Iteration, EventNumber: next(), StopReason: "complete"})
			return nil
		}
		current = target
	}

	emit(models.ExecutionEvent{Kind: models.EventEnd, Iteration: state.Iteration, EventNumber: next(), StopReason: "complete"})
	return nil
}

// executeNode wraps one node's Execute call with enter/exit logging and
// event emission, mirroring the teacher's executeNode/safeNotify pairing
// in dag_executor.go but for a single node rather than a wave.
func (e *Executor) executeNode(ctx context.Context, node *compiler.CompiledNode, state *models.State, emit func(models.ExecutionEvent), next func() int64) (models.StateDelta, error) {
	nodeID := node.Instance.ID
	nodeLabel := node.Instance.Label
	nodeType := node.Instance.NodeType

	if e.Ctx != nil && e.Ctx.SessionLogger != nil {
		e.Ctx.SessionLogger.NodeEnter(nodeID, nodeLabel, state.Iteration, summarize(state))
	}
	emit(models.ExecutionEvent{
		Kind: models.EventEnter, NodeID: nodeID, NodeLabel: nodeLabel, NodeType: nodeType,
		Iteration: state.Iteration, EventNumber: next(), StateSummary: summarize(state),
	})

	start := time.Now()
	delta, err := node.Spec.Node.Execute(ctx, e.Ctx, node.Instance.Config, state)
	elapsed := time.Since(start).Milliseconds()

	if err != nil {
		if e.Ctx != nil && e.Ctx.SessionLogger != nil {
			e.Ctx.SessionLogger.NodeError(nodeID, state.Iteration, "node_execution_failed", err.Error())
		}
		state.Error = err.Error()
		state.IsComplete = true
		emit(models.ExecutionEvent{
			Kind: models.EventError, NodeID: nodeID, NodeLabel: nodeLabel, NodeType: nodeType,
			Iteration: state.Iteration, ElapsedMs: elapsed, EventNumber: next(),
			ErrorType: "node_execution_failed", ErrorMessage: err.Error(),
		})
		emit(models.ExecutionEvent{Kind: models.EventEnd, Iteration: state.Iteration, EventNumber: next(), StopReason: "error"})
		return nil, fmt.Errorf("%w: %s: %s", models.ErrNodeExecutionFailed, nodeID, err)
	}

	preview := previewOf(delta)
	if e.Ctx != nil && e.Ctx.SessionLogger != nil {
		e.Ctx.SessionLogger.NodeExit(nodeID, nodeLabel, state.Iteration, preview, elapsed)
	}
	emit(models.ExecutionEvent{
		Kind: models.EventExit, NodeID: nodeID, NodeLabel: nodeLabel, NodeType: nodeType,
		Iteration: state.Iteration, ElapsedMs: elapsed, EventNumber: next(),
		Preview: preview, Delta: map[string]any(delta),
	})
	return delta, nil
}

// emitEdge logs and publishes the post-execute routing decision. target
// is the endSentinel's empty string when the walk is about to terminate.
func (e *Executor) emitEdge(node *compiler.CompiledNode, target string, ended bool, state *models.State, emit func(models.ExecutionEvent), next func() int64) {
	decision := target
	if ended {
		decision = "<end>"
	}
	if e.Ctx != nil && e.Ctx.SessionLogger != nil {
		e.Ctx.SessionLogger.EdgeDecision(node.Instance.ID, decision, state.Iteration)
	}
	emit(models.ExecutionEvent{
		Kind: models.EventEdge, NodeID: node.Instance.ID, NodeLabel: node.Instance.Label, NodeType: node.Instance.NodeType,
		Iteration: state.Iteration, EventNumber: next(), Preview: decision,
	})
}

// cancel implements the Boundary behavior for mid-walk cancellation
// (§5 "Cancellation"): set error=canceled, isComplete, emit error+end,
// return.
func (e *Executor) cancel(state *models.State, emit func(models.ExecutionEvent), next func() int64, cause error) error {
	state.Error = "canceled"
	state.IsComplete = true
	emit(models.ExecutionEvent{
		Kind: models.EventError, Iteration: state.Iteration, EventNumber: next(),
		ErrorType: "canceled", ErrorMessage: cause.Error(),
	})
	emit(models.ExecutionEvent{Kind: models.EventEnd, Iteration: state.Iteration, EventNumber: next(), StopReason: "canceled"})
	return fmt.Errorf("%w: %s", models.ErrExecutionCancelled, cause)
}

// summarize builds the enter event's stateSummary: a small, stable set
// of fields cheap enough to copy on every node rather than the full
// state (which may carry a long message transcript).
func summarize(state *models.State) map[string]any {
	return map[string]any{
		"iteration":        state.Iteration,
		"difficulty":       string(state.Difficulty),
		"reviewResult":     string(state.ReviewResult),
		"currentTodoIndex": state.CurrentTodoIndex,
		"todoCount":        len(state.Todos),
		"completionSignal": string(state.CompletionSignal),
		"contextBudget":    string(state.ContextBudget.Status),
		"isComplete":       state.IsComplete,
	}
}

// previewOf renders a short, human-scannable preview of a node's delta
// for the exit event: the first of finalAnswer/answer/lastOutput it
// carries, truncated to keep events small.
func previewOf(delta models.StateDelta) string {
	for _, key := range []string{"finalAnswer", "answer", "lastOutput"} {
		if v, ok := delta[key]; ok {
			if s, ok := v.(string); ok && s != "" {
				return truncatePreview(s, 200)
			}
		}
	}
	return ""
}

func truncatePreview(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
