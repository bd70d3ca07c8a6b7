package builtin

import (
	"context"

	"github.com/flowglyph/agentflow/pkg/executor"
	"github.com/flowglyph/agentflow/pkg/models"
)

const (
	ProgressComplete = "complete"
	ProgressContinue = "continue"
)

// CheckProgressNode is a pure routing node: it makes no model call, just
// counts completed/failed/total TODOs and decides whether execution
// should loop back to ExecuteTodoNode or fall through to synthesis (§4.3
// "Check Progress"). Supplemental node, grounded on the teacher's
// loop-exhaustion event (EventTypeLoopExhausted in pkg/engine) generalized
// from a wave counter to a todo-list cursor.
type CheckProgressNode struct {
	executor.BaseExecutor
}

func NewCheckProgressNode() *CheckProgressNode {
	return &CheckProgressNode{BaseExecutor: executor.NewBaseExecutor("check_progress")}
}

func (n *CheckProgressNode) Execute(ctx context.Context, ectx *executor.ExecutionContext, config map[string]any, state *models.State) (models.StateDelta, error) {
	completed, failed := 0, 0
	for _, t := range state.Todos {
		switch t.Status {
		case models.TodoCompleted:
			completed++
		case models.TodoFailed:
			failed++
		}
	}
	return models.StateDelta{
		"metadata": map[string]any{
			"checkProgress": map[string]any{
				"completed": completed,
				"failed":    failed,
				"total":     len(state.Todos),
			},
		},
	}, nil
}

func (n *CheckProgressNode) Validate(config map[string]any) error { return nil }

func (n *CheckProgressNode) RoutingFunction(config map[string]any) executor.RoutingFunction {
	return func(state *models.State) string {
		if state.IsComplete || state.Error != "" ||
			state.CompletionSignal == models.SignalComplete || state.CompletionSignal == models.SignalBlocked ||
			state.CurrentTodoIndex >= len(state.Todos) {
			return ProgressComplete
		}
		return ProgressContinue
	}
}
