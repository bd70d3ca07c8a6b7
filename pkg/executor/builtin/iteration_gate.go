package builtin

import (
	"context"

	"github.com/flowglyph/agentflow/pkg/executor"
	"github.com/flowglyph/agentflow/pkg/models"
)

const (
	IterationContinue = "continue"
	IterationStop      = "stop"
)

// IterationGateNode advances state.iteration and routes to "stop" once
// MaxIterations is reached, bounding any loop the graph forms (review
// retries, TODO execution, continue-signal re-prompting) without relying
// on the compiler to detect cycles itself. Grounded on the teacher's
// LoopIterations/EventTypeLoopExhausted bookkeeping in
// pkg/engine/dag_executor.go.
type IterationGateNode struct {
	executor.BaseExecutor
}

func NewIterationGateNode() *IterationGateNode {
	return &IterationGateNode{BaseExecutor: executor.NewBaseExecutor("iteration_gate")}
}

func (n *IterationGateNode) Execute(ctx context.Context, ectx *executor.ExecutionContext, config map[string]any, state *models.State) (models.StateDelta, error) {
	next := state.Iteration + 1
	delta := models.StateDelta{"iteration": next}

	maxIterations := n.effectiveMaxIterations(config, state)
	if shouldStop(next, maxIterations, state) {
		delta["isComplete"] = true
	}
	return delta, nil
}

func (n *IterationGateNode) effectiveMaxIterations(config map[string]any, state *models.State) int {
	if state.MaxIterations > 0 {
		return state.MaxIterations
	}
	return n.GetIntDefault(config, "maxIterations", 10)
}

// shouldStop implements the gate's stop condition (§4.3 "Iteration Gate"):
// iteration at/past the cap, a context budget that has entered block or
// overflow, or a completion signal of complete, blocked or error.
func shouldStop(iteration, maxIterations int, state *models.State) bool {
	if iteration >= maxIterations {
		return true
	}
	switch state.ContextBudget.Status {
	case models.BudgetBlock, models.BudgetOverflow:
		return true
	}
	switch state.CompletionSignal {
	case models.SignalComplete, models.SignalBlocked, models.SignalError:
		return true
	}
	return false
}

func (n *IterationGateNode) Validate(config map[string]any) error { return nil }

func (n *IterationGateNode) RoutingFunction(config map[string]any) executor.RoutingFunction {
	return func(state *models.State) string {
		maxIterations := n.effectiveMaxIterations(config, state)
		if shouldStop(state.Iteration, maxIterations, state) {
			return IterationStop
		}
		return IterationContinue
	}
}
