package builtin

import (
	"context"

	"github.com/flowglyph/agentflow/pkg/executor"
	"github.com/flowglyph/agentflow/pkg/models"
)

const conditionalRouterDefaultPort = "default"

// ConditionalRouterNode routes on the state field named by config's
// routingField, looked up in a static routeMap after normalization (trim
// + lowercase, models.NormalizeRoutingValue). Unmatched values fall
// through to config's defaultPort (the "default" port when unset).
// Grounded directly on
// pkg/executor/builtin/conditional.go's ConditionalExecutor, with the
// expr-lang expression evaluator replaced by a routeMap lookup — the
// spec's non-goals rule out a custom expression language in node
// configs, where the teacher used expr.Compile/expr.Run.
type ConditionalRouterNode struct {
	executor.BaseExecutor
}

func NewConditionalRouterNode() *ConditionalRouterNode {
	return &ConditionalRouterNode{BaseExecutor: executor.NewBaseExecutor("conditional_router")}
}

func (n *ConditionalRouterNode) Execute(ctx context.Context, ectx *executor.ExecutionContext, config map[string]any, state *models.State) (models.StateDelta, error) {
	return models.StateDelta{}, nil
}

func (n *ConditionalRouterNode) Validate(config map[string]any) error {
	return n.ValidateRequired(config, "routingField", "routeMap")
}

func (n *ConditionalRouterNode) RoutingFunction(config map[string]any) executor.RoutingFunction {
	field := n.GetStringDefault(config, "routingField", "lastOutput")
	routeMap := n.GetStringMapDefault(config, "routeMap")
	defaultPort := n.GetStringDefault(config, "defaultPort", conditionalRouterDefaultPort)

	return func(state *models.State) string {
		value := models.NormalizeRoutingValue(stateFields(state)[field])
		if target, ok := routeMap[value]; ok {
			return target
		}
		return defaultPort
	}
}

func (n *ConditionalRouterNode) DynamicOutputPorts(config map[string]any) []string {
	routeMap := n.GetStringMapDefault(config, "routeMap")
	defaultPort := n.GetStringDefault(config, "defaultPort", conditionalRouterDefaultPort)
	ports := make([]string, 0, len(routeMap)+1)
	seen := map[string]bool{}
	for _, target := range routeMap {
		if !seen[target] {
			seen[target] = true
			ports = append(ports, target)
		}
	}
	if !seen[defaultPort] {
		ports = append(ports, defaultPort)
	}
	return ports
}
