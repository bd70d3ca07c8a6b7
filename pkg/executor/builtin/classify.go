package builtin

import (
	"context"
	"strings"

	"github.com/flowglyph/agentflow/pkg/executor"
	"github.com/flowglyph/agentflow/pkg/models"
)

// ClassifyNode asks the model to rate the task's difficulty and routes on
// the verdict (easy/medium/hard ports). Grounded on the teacher's
// LLMExecutor request/response shape, narrowed to a single classification
// call; the routing itself mirrors shouldExecuteNode's source-handle
// dispatch in pkg/engine/dag_executor.go, generalized from boolean
// true/false ports to a three-way port set.
type ClassifyNode struct {
	executor.BaseExecutor
}

func NewClassifyNode() *ClassifyNode {
	return &ClassifyNode{BaseExecutor: executor.NewBaseExecutor("classify")}
}

const classifyDefaultSystemPrompt = "Classify the difficulty of the user's request as exactly one word: easy, medium, or hard."

func (n *ClassifyNode) Execute(ctx context.Context, ectx *executor.ExecutionContext, config map[string]any, state *models.State) (models.StateDelta, error) {
	systemPrompt := n.GetStringDefault(config, "systemPrompt", classifyDefaultSystemPrompt)
	promptTemplate := n.GetStringDefault(config, "promptTemplate", "{input}")

	content, fallback, err := invokeModel(ctx, ectx, state, systemPrompt, promptTemplate, "classify")
	if err != nil {
		return nil, err
	}

	difficulty := parseDifficulty(content)
	return withFallback(models.StateDelta{
		"difficulty": difficulty,
		"lastOutput": content,
	}, fallback), nil
}

// parseDifficulty case-insensitively matches the response against
// {easy, medium, hard}, defaulting to medium for anything else (§4.3
// "Classify") — an ambiguous or malformed verdict gets the cautious
// middle path rather than the cheapest or most expensive one.
func parseDifficulty(content string) models.Difficulty {
	normalized := models.NormalizeRoutingValue(content)
	switch {
	case strings.Contains(normalized, "easy"):
		return models.DifficultyEasy
	case strings.Contains(normalized, "hard"):
		return models.DifficultyHard
	default:
		return models.DifficultyMedium
	}
}

func (n *ClassifyNode) Validate(config map[string]any) error { return nil }

func (n *ClassifyNode) RoutingFunction(config map[string]any) executor.RoutingFunction {
	return func(state *models.State) string {
		if state.Difficulty == "" {
			return string(models.DifficultyMedium)
		}
		return string(state.Difficulty)
	}
}
