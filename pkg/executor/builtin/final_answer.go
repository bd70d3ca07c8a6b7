package builtin

import (
	"context"

	"github.com/flowglyph/agentflow/pkg/executor"
	"github.com/flowglyph/agentflow/pkg/models"
)

const finalAnswerDefaultSystemPrompt = "Synthesize the final reply to the user from the completed plan and its review."

// FinalAnswerNode closes out an invocation (§4.3 "Final Answer"): on the
// hard path it synthesizes the final reply from all TODO results plus the
// Final Review verdict/feedback via a model call; on the easy/medium path
// (no todos) it falls back to promoting `answer` directly, since there is
// nothing to synthesize from. Either way it sets isComplete, the only
// field Merge treats as monotonic (§3.1 invariant ii).
type FinalAnswerNode struct {
	executor.BaseExecutor
}

func NewFinalAnswerNode() *FinalAnswerNode {
	return &FinalAnswerNode{BaseExecutor: executor.NewBaseExecutor("final_answer")}
}

func (n *FinalAnswerNode) Execute(ctx context.Context, ectx *executor.ExecutionContext, config map[string]any, state *models.State) (models.StateDelta, error) {
	if len(state.Todos) == 0 || ectx == nil || ectx.Model == nil {
		template := n.GetStringDefault(config, "template", "{answer}")
		finalAnswer := Substitute(template, stateFields(state))
		return models.StateDelta{
			"finalAnswer": finalAnswer,
			"isComplete":  true,
		}, nil
	}

	systemPrompt := n.GetStringDefault(config, "systemPrompt", finalAnswerDefaultSystemPrompt)
	promptTemplate := n.GetStringDefault(config, "promptTemplate", "Request: {input}\nResults:\n{todoResults}\nReview feedback: {reviewFeedback}")

	fields := stateFields(state)
	fields["todoResults"] = todoResultsText(state, 2000)

	content, fallback, err := invokeModelWithFields(ctx, ectx, state, fields, systemPrompt, promptTemplate, "final_answer")
	if err != nil {
		return nil, err
	}

	return withFallback(models.StateDelta{
		"finalAnswer": content,
		"isComplete":  true,
	}, fallback), nil
}

func (n *FinalAnswerNode) Validate(config map[string]any) error { return nil }
