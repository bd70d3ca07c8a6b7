package builtin

import (
	"context"

	"github.com/flowglyph/agentflow/pkg/executor"
	"github.com/flowglyph/agentflow/pkg/models"
)

// LLMCallNode is the general-purpose model invocation node (§4.3). It
// renders promptTemplate/systemPrompt against state, calls the session's
// ModelAdapter, writes the response into config's outputField (default
// "lastOutput"), appends the exchange to the message transcript, and,
// when config's setComplete is true, sets isComplete. Grounded on the
// teacher's LLMExecutor (pkg/executor/builtin/llm.go): same
// config-driven-request shape, but provider dispatch is replaced by the
// single ModelAdapter capability the session already carries.
type LLMCallNode struct {
	executor.BaseExecutor
}

func NewLLMCallNode() *LLMCallNode {
	return &LLMCallNode{BaseExecutor: executor.NewBaseExecutor("llm_call")}
}

func (n *LLMCallNode) Execute(ctx context.Context, ectx *executor.ExecutionContext, config map[string]any, state *models.State) (models.StateDelta, error) {
	promptTemplate := n.GetStringDefault(config, "promptTemplate", "{input}")
	systemPrompt := n.GetStringDefault(config, "systemPrompt", "")
	outputField := n.GetStringDefault(config, "outputField", "lastOutput")
	setComplete := n.GetBoolDefault(config, "setComplete", false)

	content, fallback, err := invokeModel(ctx, ectx, state, systemPrompt, promptTemplate, "llm_call")
	if err != nil {
		return nil, err
	}

	delta := models.StateDelta{
		outputField: content,
		"messages":  []models.ChatMessage{{Role: models.RoleAssistant, Content: content}},
	}
	if setComplete {
		delta["isComplete"] = true
	}
	return withFallback(delta, fallback), nil
}

func (n *LLMCallNode) Validate(config map[string]any) error {
	return n.ValidateRequired(config, "promptTemplate")
}
