package builtin

import (
	"context"
	"fmt"
	"strings"

	"github.com/flowglyph/agentflow/pkg/executor"
	"github.com/flowglyph/agentflow/pkg/models"
	"github.com/flowglyph/agentflow/pkg/structuredoutput"
)

const createTodosDefaultSystemPrompt = "Break the user's request into a short plan. Respond with a JSON array of steps, each an object with \"title\" and \"description\"."

// createTodosSchema describes the JSON array Create TODOs expects: a
// bare list, wrapped into {"steps": [...]} by structuredoutput.Validate's
// list-wrapping rule (§4.4 step 3) so a single required-field check can
// cover it.
var createTodosSchema = structuredoutput.Schema{ListField: "steps"}

// CreateTodosNode asks the model for a hard-path plan as a JSON list
// (§4.3 "Create TODOs"), parsing it via the layered extraction in
// pkg/structuredoutput (whole-JSON parse, fenced block, bracket scan,
// jsonrepair). On parse failure it falls back to a single TODO containing
// the raw response, rather than failing the node. Supplemental node: the
// teacher has no planning step; this generalizes its loop-edge
// bookkeeping in pkg/engine/dag_executor.go from "re-run a wave" to
// "advance a todo list index".
type CreateTodosNode struct {
	executor.BaseExecutor
}

func NewCreateTodosNode() *CreateTodosNode {
	return &CreateTodosNode{BaseExecutor: executor.NewBaseExecutor("create_todos")}
}

func (n *CreateTodosNode) Execute(ctx context.Context, ectx *executor.ExecutionContext, config map[string]any, state *models.State) (models.StateDelta, error) {
	systemPrompt := n.GetStringDefault(config, "systemPrompt", createTodosDefaultSystemPrompt)
	promptTemplate := n.GetStringDefault(config, "promptTemplate", "{input}")
	maxTodos := n.GetIntDefault(config, "maxTodos", 20)

	content, fallback, err := invokeModel(ctx, ectx, state, systemPrompt, promptTemplate, "create_todos")
	if err != nil {
		return nil, err
	}

	todos := parseTodoPlan(content, maxTodos)
	return withFallback(models.StateDelta{
		"todos":            todos,
		"currentTodoIndex": 0,
		"lastOutput":       content,
	}, fallback), nil
}

// parseTodoPlan extracts a JSON steps array from content; each element may
// be a string (used as the title) or an object with title/description
// keys. A response that can't be extracted/validated at all becomes a
// single fallback TODO carrying the raw text (§4.3 "On parse failure").
func parseTodoPlan(content string, maxTodos int) []models.TodoItem {
	value, err := structuredoutput.Extract(content)
	if err != nil {
		return fallbackTodo(content)
	}

	obj, errs := structuredoutput.Validate(value, createTodosSchema)
	if len(errs) > 0 {
		return fallbackTodo(content)
	}

	rawSteps, _ := obj["steps"].([]any)
	todos := make([]models.TodoItem, 0, len(rawSteps))
	for i, item := range rawSteps {
		title, desc := "", ""
		switch v := item.(type) {
		case string:
			title = v
		case map[string]any:
			if t, ok := v["title"].(string); ok {
				title = t
			}
			if d, ok := v["description"].(string); ok {
				desc = d
			}
		}
		title = strings.TrimSpace(title)
		if title == "" {
			continue
		}
		todos = append(todos, models.TodoItem{
			ID:          fmt.Sprintf("todo-%d", i+1),
			Title:       title,
			Description: desc,
			Status:      models.TodoPending,
		})
		if len(todos) >= maxTodos {
			break
		}
	}

	if len(todos) == 0 {
		return fallbackTodo(content)
	}
	return todos
}

func fallbackTodo(content string) []models.TodoItem {
	return []models.TodoItem{{
		ID:     "todo-1",
		Title:  strings.TrimSpace(content),
		Status: models.TodoPending,
	}}
}

func (n *CreateTodosNode) Validate(config map[string]any) error { return nil }
