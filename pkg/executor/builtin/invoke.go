package builtin

import (
	"context"
	"fmt"

	"github.com/flowglyph/agentflow/pkg/executor"
	"github.com/flowglyph/agentflow/pkg/models"
)

// invokeModel renders systemPrompt/promptTemplate against state, calls the
// session's ModelAdapter, and returns the raw completion text. Every node
// that talks to the model (LLM Call, Classify, Review, Create TODOs,
// Execute TODO, Final Review, Final Answer) shares this path so that the
// resilience layer (§4.6, wrapping ModelAdapter.Invoke) sees one call site.
func invokeModel(ctx context.Context, ectx *executor.ExecutionContext, state *models.State, systemPrompt, promptTemplate, nodeName string) (string, models.FallbackTrace, error) {
	return invokeModelWithFields(ctx, ectx, state, stateFields(state), systemPrompt, promptTemplate, nodeName)
}

// invokeModelWithFields is invokeModel with a caller-supplied field
// projection, for nodes that need to override a single field (Answer's
// budget-truncated reviewFeedback) without losing the rest of
// stateFields's projection.
func invokeModelWithFields(ctx context.Context, ectx *executor.ExecutionContext, state *models.State, fields map[string]string, systemPrompt, promptTemplate, nodeName string) (string, models.FallbackTrace, error) {
	if ectx == nil || ectx.Model == nil {
		return "", models.FallbackTrace{}, fmt.Errorf("node requires a model adapter, none is configured on the session")
	}

	prompt := Substitute(promptTemplate, fields)

	messages := make([]executor.ChatMessage, 0, len(state.Messages)+1)
	for _, m := range state.Messages {
		messages = append(messages, executor.ChatMessage{Role: m.Role, Content: m.Content})
	}
	messages = append(messages, executor.ChatMessage{Role: models.RoleUser, Content: prompt})

	result, fallback, err := ectx.ResilientInvoke(ctx, messages, nodeName, executor.InvokeOptions{
		SystemPrompt: Substitute(systemPrompt, fields),
	})
	if err != nil {
		return "", models.FallbackTrace{}, fmt.Errorf("model invoke: %w", err)
	}
	return result.Content, fallback, nil
}

// withFallback merges a non-empty FallbackTrace into delta, matching the
// spec's last-wins fallback field (§3.1); a zero-value trace (no demotion
// occurred) leaves the delta untouched so state.fallback only changes when
// the resilience layer actually demoted the model.
func withFallback(delta models.StateDelta, fallback models.FallbackTrace) models.StateDelta {
	if fallback.CurrentModel != "" {
		delta["fallback"] = fallback
	}
	return delta
}
