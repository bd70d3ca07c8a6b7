package builtin

import (
	"context"

	"github.com/flowglyph/agentflow/pkg/executor"
	"github.com/flowglyph/agentflow/pkg/models"
)

const (
	answerDefaultSystemPrompt      = "Answer the user's request."
	answerDefaultPromptTemplate    = "{input}"
	answerDefaultRetryPromptSuffix = "\n\nA reviewer rejected your previous answer with this feedback:\n{reviewFeedback}\nRevise your answer to address it."
)

// AnswerNode is the medium-path drafter (§4.3 "Answer"): a single model
// call that writes `answer`. On a retry pass (reviewCount > 0 and
// feedback present) it appends the retry template carrying the reviewer's
// feedback, truncated to 500 chars once the context budget is block or
// worse, matching Execute TODO's budget-aware truncation convention.
type AnswerNode struct {
	executor.BaseExecutor
}

func NewAnswerNode() *AnswerNode {
	return &AnswerNode{BaseExecutor: executor.NewBaseExecutor("answer")}
}

func (n *AnswerNode) Execute(ctx context.Context, ectx *executor.ExecutionContext, config map[string]any, state *models.State) (models.StateDelta, error) {
	systemPrompt := n.GetStringDefault(config, "systemPrompt", answerDefaultSystemPrompt)
	promptTemplate := n.GetStringDefault(config, "promptTemplate", answerDefaultPromptTemplate)

	if state.ReviewCount > 0 && state.ReviewFeedback != "" {
		retryTemplate := n.GetStringDefault(config, "retryPromptSuffix", answerDefaultRetryPromptSuffix)
		promptTemplate += retryTemplate
	}

	fields := stateFields(state)
	if state.ContextBudget.Status == models.BudgetBlock || state.ContextBudget.Status == models.BudgetOverflow {
		fields["reviewFeedback"] = truncate(state.ReviewFeedback, 500)
	}

	content, fallback, err := invokeModelWithFields(ctx, ectx, state, fields, systemPrompt, promptTemplate, "answer")
	if err != nil {
		return nil, err
	}

	return withFallback(models.StateDelta{
		"answer":     content,
		"lastOutput": content,
		"messages":   []models.ChatMessage{{Role: models.RoleAssistant, Content: content}},
	}, fallback), nil
}

func (n *AnswerNode) Validate(config map[string]any) error { return nil }
