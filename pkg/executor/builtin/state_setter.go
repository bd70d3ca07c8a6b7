package builtin

import (
	"context"
	"encoding/json"

	"github.com/flowglyph/agentflow/pkg/executor"
	"github.com/flowglyph/agentflow/pkg/models"
)

// stateSetterFields lists the scalar state fields a graph author may
// assign a literal value to. Deliberately not every field
// on State — structural fields (messages, todos, memoryRefs) go through
// their owning node, not a generic setter.
var stateSetterFields = map[string]bool{
	"currentStep":      true,
	"lastOutput":       true,
	"answer":           true,
	"difficulty":       true,
	"reviewResult":     true,
	"reviewFeedback":   true,
	"finalAnswer":      true,
	"completionDetail": true,
	"error":            true,
}

// StateSetterNode merges a JSON object from config's stateUpdates into
// the state (§4.3 "State Setter"), for graphs that need to seed or
// override a field without a model call. Grounded on pkg/builder's
// config-merging helpers (functional-options construction generalized to
// runtime field assignment).
type StateSetterNode struct {
	executor.BaseExecutor
}

func NewStateSetterNode() *StateSetterNode {
	return &StateSetterNode{BaseExecutor: executor.NewBaseExecutor("state_setter")}
}

func (n *StateSetterNode) Execute(ctx context.Context, ectx *executor.ExecutionContext, config map[string]any, state *models.State) (models.StateDelta, error) {
	updates := stateUpdatesFrom(config["stateUpdates"])

	delta := models.StateDelta{}
	for key, value := range updates {
		if !stateSetterFields[key] {
			continue
		}
		str, ok := value.(string)
		if !ok {
			continue
		}
		switch key {
		case "difficulty":
			delta[key] = models.Difficulty(str)
		case "reviewResult":
			delta[key] = models.ReviewVerdict(str)
		default:
			delta[key] = str
		}
	}
	return delta, nil
}

func (n *StateSetterNode) Validate(config map[string]any) error {
	return n.ValidateRequired(config, "stateUpdates")
}

// stateUpdatesFrom resolves config's stateUpdates value into a plain
// map: the common shape is already a decoded map[string]any (the
// surrounding WorkflowDefinition was one JSON document), but a raw JSON
// object string is also accepted and parsed here — an invalid one is a
// no-op (spec.md §4.3 "State Setter": "Invalid JSON is a no-op"), never
// a node execution error.
func stateUpdatesFrom(raw any) map[string]any {
	switch v := raw.(type) {
	case map[string]any:
		return v
	case string:
		var updates map[string]any
		if err := json.Unmarshal([]byte(v), &updates); err != nil {
			return nil
		}
		return updates
	default:
		return nil
	}
}
