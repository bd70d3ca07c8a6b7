package builtin

import (
	"context"

	"github.com/flowglyph/agentflow/pkg/executor"
	"github.com/flowglyph/agentflow/pkg/models"
)

// DirectAnswerNode answers an easy-path request in a single model call,
// skipping the TODO planner entirely. Grounded on the same invokeModel
// path as LLMCallNode; kept as a distinct node type (rather than config
// on LLMCallNode) because the visual editor needs a distinct icon/label
// and the compiler needs a distinct type to route the easy port onto.
type DirectAnswerNode struct {
	executor.BaseExecutor
}

func NewDirectAnswerNode() *DirectAnswerNode {
	return &DirectAnswerNode{BaseExecutor: executor.NewBaseExecutor("direct_answer")}
}

func (n *DirectAnswerNode) Execute(ctx context.Context, ectx *executor.ExecutionContext, config map[string]any, state *models.State) (models.StateDelta, error) {
	systemPrompt := n.GetStringDefault(config, "systemPrompt", "Answer the user's request directly and concisely.")
	promptTemplate := n.GetStringDefault(config, "promptTemplate", "{input}")

	content, fallback, err := invokeModel(ctx, ectx, state, systemPrompt, promptTemplate, "direct_answer")
	if err != nil {
		return nil, err
	}

	return withFallback(models.StateDelta{
		"answer":     content,
		"lastOutput": content,
		"messages":   []models.ChatMessage{{Role: models.RoleAssistant, Content: content}},
	}, fallback), nil
}

func (n *DirectAnswerNode) Validate(config map[string]any) error { return nil }
