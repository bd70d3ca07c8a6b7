package builtin

import (
	"context"

	"github.com/flowglyph/agentflow/pkg/executor"
	"github.com/flowglyph/agentflow/pkg/models"
)

// charsPerToken is a conservative estimator constant (roughly GPT-style
// tokenization for English prose); it trades precision for not needing a
// tokenizer dependency on every node invocation.
const charsPerToken = 4

const (
	contextLimitDefault = 128000
	warnRatioDefault    = 0.75
	blockRatioDefault   = 0.92
)

// ContextGuardNode estimates the transcript's token usage against the
// model's context window and routes on the result (ok/warn/block/overflow
// ports), matching ContextBudgetStatus. Grounded on the teacher's
// RetryPolicy backoff math (pkg/engine/retry_policy.go) in spirit —
// a threshold ladder rather than a fixed pass/fail check — reused
// directly by the resilience layer's model fallback (§4.6).
type ContextGuardNode struct {
	executor.BaseExecutor
}

func NewContextGuardNode() *ContextGuardNode {
	return &ContextGuardNode{BaseExecutor: executor.NewBaseExecutor("context_guard")}
}

func (n *ContextGuardNode) Execute(ctx context.Context, ectx *executor.ExecutionContext, config map[string]any, state *models.State) (models.StateDelta, error) {
	limit := n.GetIntDefault(config, "contextLimit", contextLimitDefault)
	warnRatio := warnRatioDefault
	blockRatio := blockRatioDefault
	if ectx != nil && ectx.ContextGuard != nil {
		if ectx.ContextGuard.ContextLimit > 0 {
			limit = ectx.ContextGuard.ContextLimit
		}
		if ectx.ContextGuard.WarnRatio > 0 {
			warnRatio = ectx.ContextGuard.WarnRatio
		}
		if ectx.ContextGuard.BlockRatio > 0 {
			blockRatio = ectx.ContextGuard.BlockRatio
		}
	}

	estimated := estimateTokens(state)
	ratio := float64(estimated) / float64(limit)

	status := models.BudgetOK
	switch {
	case ratio >= 1:
		status = models.BudgetOverflow
	case ratio >= blockRatio:
		status = models.BudgetBlock
	case ratio >= warnRatio:
		status = models.BudgetWarn
	}

	budget := models.ContextBudget{
		EstimatedTokens: estimated,
		ContextLimit:    limit,
		UsageRatio:      ratio,
		Status:          status,
		CompactionCount: state.ContextBudget.CompactionCount,
	}
	return models.StateDelta{"contextBudget": budget}, nil
}

func estimateTokens(state *models.State) int {
	total := len(state.Input) + len(state.LastOutput)
	for _, m := range state.Messages {
		total += len(m.Content)
	}
	return total / charsPerToken
}

func (n *ContextGuardNode) Validate(config map[string]any) error { return nil }

func (n *ContextGuardNode) RoutingFunction(config map[string]any) executor.RoutingFunction {
	return func(state *models.State) string {
		if state.ContextBudget.Status == "" {
			return string(models.BudgetOK)
		}
		return string(state.ContextBudget.Status)
	}
}
