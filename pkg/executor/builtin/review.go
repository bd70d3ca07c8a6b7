package builtin

import (
	"context"
	"strings"

	"github.com/flowglyph/agentflow/pkg/executor"
	"github.com/flowglyph/agentflow/pkg/models"
)

const reviewDefaultSystemPrompt = "Review the answer against the original request. Reply with two lines: 'VERDICT: approved' or 'VERDICT: rejected', then 'FEEDBACK: <your feedback>'."

// ReviewNode asks the model to judge the current answer and routes on
// the verdict. reviewCount increments on every pass so an Iteration Gate
// downstream can bound the approve/reject loop. Once reviewCount reaches
// maxRetries a rejected verdict is forced to approved and logged through
// SessionLogger.NodeError with errorType "forced_approval" (SessionLogger
// has no warning-level method), matching the teacher's loop-exhaustion event
// (EventTypeLoopExhausted in pkg/engine/dag_executor.go) generalized from
// a wave re-run cap to the review retry cap.
type ReviewNode struct {
	executor.BaseExecutor
}

func NewReviewNode() *ReviewNode {
	return &ReviewNode{BaseExecutor: executor.NewBaseExecutor("review")}
}

func (n *ReviewNode) Execute(ctx context.Context, ectx *executor.ExecutionContext, config map[string]any, state *models.State) (models.StateDelta, error) {
	systemPrompt := n.GetStringDefault(config, "systemPrompt", reviewDefaultSystemPrompt)
	promptTemplate := n.GetStringDefault(config, "promptTemplate", "Request: {input}\nAnswer: {answer}")

	content, fallback, err := invokeModel(ctx, ectx, state, systemPrompt, promptTemplate, "review")
	if err != nil {
		return nil, err
	}

	verdict, feedback := parseReview(content)
	reviewCount := state.ReviewCount + 1

	maxRetries := ectx.MaxRetries
	if verdict == models.ReviewRejected && maxRetries > 0 && reviewCount >= maxRetries {
		verdict = models.ReviewApproved
		feedback = "forced approval: max review retries exhausted (" + feedback + ")"
		if ectx.SessionLogger != nil {
			ectx.SessionLogger.NodeError(n.NodeType, reviewCount, "forced_approval", "review max retries exhausted, forcing approval")
		}
	}

	return withFallback(models.StateDelta{
		"reviewResult":   verdict,
		"reviewFeedback": feedback,
		"reviewCount":    reviewCount,
		"lastOutput":     content,
	}, fallback), nil
}

// parseReview reads the VERDICT:/FEEDBACK: marker lines (§4.3); content
// that doesn't follow the format is treated as rejected so a malformed
// review never silently passes.
func parseReview(content string) (models.ReviewVerdict, string) {
	verdict := models.ReviewRejected
	feedback := ""
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(strings.ToUpper(trimmed), "VERDICT:"):
			value := models.NormalizeRoutingValue(trimmed[len("VERDICT:"):])
			if strings.Contains(value, "approve") {
				verdict = models.ReviewApproved
			} else {
				verdict = models.ReviewRejected
			}
		case strings.HasPrefix(strings.ToUpper(trimmed), "FEEDBACK:"):
			feedback = strings.TrimSpace(trimmed[len("FEEDBACK:"):])
		}
	}
	return verdict, feedback
}

func (n *ReviewNode) Validate(config map[string]any) error { return nil }

func (n *ReviewNode) RoutingFunction(config map[string]any) executor.RoutingFunction {
	return func(state *models.State) string {
		if state.ReviewResult == "" {
			return string(models.ReviewRejected)
		}
		return string(state.ReviewResult)
	}
}
