package builtin

import (
	"context"

	"github.com/flowglyph/agentflow/pkg/executor"
	"github.com/flowglyph/agentflow/pkg/models"
)

const executeTodoDefaultSystemPrompt = "Carry out exactly one step of the plan. Report only the result of this step."

// ExecuteTodoNode runs the model against the TODO at CurrentTodoIndex and
// marks that item completed (the reply as its result) or, when the model
// call fails, failed (the error text as its result), advancing the index
// by one either way. Whether the plan is exhausted is left to
// CheckProgressNode so that a single model call per step stays the unit
// of work the Iteration Gate bounds.
type ExecuteTodoNode struct {
	executor.BaseExecutor
}

func NewExecuteTodoNode() *ExecuteTodoNode {
	return &ExecuteTodoNode{BaseExecutor: executor.NewBaseExecutor("execute_todo")}
}

func (n *ExecuteTodoNode) Execute(ctx context.Context, ectx *executor.ExecutionContext, config map[string]any, state *models.State) (models.StateDelta, error) {
	todo := currentTodo(state)
	if todo == nil {
		return models.StateDelta{}, nil
	}

	systemPrompt := n.GetStringDefault(config, "systemPrompt", executeTodoDefaultSystemPrompt)
	promptTemplate := n.GetStringDefault(config, "promptTemplate", "Step: {currentTodo}\nDetail: {currentTodoDescription}\nPrior results:\n{priorResults}")

	content, fallback, err := invokeModel(ctx, ectx, state, systemPrompt, promptTemplate, "execute_todo")
	if err != nil {
		failed := *todo
		failed.Status = models.TodoFailed
		failed.Result = err.Error()
		return withFallback(models.StateDelta{
			"todos":            []models.TodoItem{failed},
			"currentTodoIndex": state.CurrentTodoIndex + 1,
		}, fallback), nil
	}

	done := *todo
	done.Status = models.TodoCompleted
	done.Result = content
	return withFallback(models.StateDelta{
		"todos":            []models.TodoItem{done},
		"currentTodoIndex": state.CurrentTodoIndex + 1,
		"lastOutput":       content,
	}, fallback), nil
}

func (n *ExecuteTodoNode) Validate(config map[string]any) error { return nil }
