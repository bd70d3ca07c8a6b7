package builtin

import (
	"context"
	"fmt"
	"strings"

	"github.com/flowglyph/agentflow/pkg/executor"
	"github.com/flowglyph/agentflow/pkg/models"
)

const finalReviewDefaultSystemPrompt = "Check whether the completed TODO results fully satisfy the original request. Reply with two lines: 'VERDICT: approved' or 'VERDICT: rejected', then 'FEEDBACK: <your feedback>'."

// FinalReviewNode is the hard-path counterpart to ReviewNode: it judges
// the synthesized result of the TODO plan rather than a single answer,
// reusing the same approved/rejected port contract so the compiler's
// fallback router logic (§4.6) needs no special case for it.
type FinalReviewNode struct {
	executor.BaseExecutor
}

func NewFinalReviewNode() *FinalReviewNode {
	return &FinalReviewNode{BaseExecutor: executor.NewBaseExecutor("final_review")}
}

func (n *FinalReviewNode) Execute(ctx context.Context, ectx *executor.ExecutionContext, config map[string]any, state *models.State) (models.StateDelta, error) {
	systemPrompt := n.GetStringDefault(config, "systemPrompt", finalReviewDefaultSystemPrompt)
	promptTemplate := n.GetStringDefault(config, "promptTemplate", "Request: {input}\nResults:\n{todoResults}")

	limit := 2000
	if state.ContextBudget.Status == models.BudgetBlock || state.ContextBudget.Status == models.BudgetOverflow {
		limit = 500
	}

	fields := stateFields(state)
	fields["todoResults"] = todoResultsText(state, limit)

	content, fallback, err := invokeModelWithFields(ctx, ectx, state, fields, systemPrompt, promptTemplate, "final_review")
	if err != nil {
		return nil, err
	}

	verdict, feedback := parseReview(content)
	return withFallback(models.StateDelta{
		"reviewResult":   verdict,
		"reviewFeedback": feedback,
		"lastOutput":     content,
	}, fallback), nil
}

// todoResultsText renders every TODO's result (§4.3 "Final Review"),
// truncated to limit chars per item.
func todoResultsText(state *models.State, limit int) string {
	var b strings.Builder
	for i, t := range state.Todos {
		if t.Result == "" {
			continue
		}
		fmt.Fprintf(&b, "%d. %s: %s\n", i+1, t.Title, truncate(t.Result, limit))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func (n *FinalReviewNode) Validate(config map[string]any) error { return nil }

func (n *FinalReviewNode) RoutingFunction(config map[string]any) executor.RoutingFunction {
	return func(state *models.State) string {
		if state.ReviewResult == "" {
			return string(models.ReviewRejected)
		}
		return string(state.ReviewResult)
	}
}
