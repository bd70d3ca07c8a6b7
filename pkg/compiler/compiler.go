// Package compiler turns a declarative WorkflowDefinition into an
// executable Graph (§4.6). It is grounded on two sources: the teacher's
// pkg/engine/dag_utils.go (BuildDAG's indexed-lookup construction,
// generalized from wave-parallel topology to a port-routed adjacency
// map) and original_source/backend/service/workflow/workflow_executor.py's
// WorkflowExecutor.compile(), which resolves the same node-instance →
// executable-graph problem for a LangGraph StateGraph: multi-target
// detection (_has_multiple_targets), port→target edge maps
// (_build_edge_map), a synthesized fallback router
// (_make_fallback_router), and end-pseudo-node resolution
// (_resolve_target). The redesign collapses LangGraph's StateGraph (and
// the teacher's execution waves) into one flat, sequentially-walked
// adjacency map (§5's explicit concurrency deviation).
package compiler

import (
	"fmt"

	"github.com/flowglyph/agentflow/pkg/executor"
	"github.com/flowglyph/agentflow/pkg/models"
)

// CompiledNode binds one node instance to its registry spec and the
// resolved port→target adjacency the executor walks.
type CompiledNode struct {
	Instance    *models.NodeInstance
	Spec        *executor.NodeSpec
	Router      executor.RoutingFunction // nil for straight-through nodes
	PortTargets map[string]string        // port -> target node ID (or models.NodeTypeEnd sentinel)
}

// Graph is the executable form of a WorkflowDefinition: an entry node ID
// and an indexed map of every non-pseudo node, ready for sequential
// walking by the executor.
type Graph struct {
	Definition *models.WorkflowDefinition
	Entry      string
	Nodes      map[string]*CompiledNode
}

// endSentinel marks an edge target that terminates the walk — either an
// explicit End node, or a port with no matching edge at all (a dangling
// port is treated as "stop here" rather than a compile error, since a
// node may legitimately leave a rare port unwired).
const endSentinel = ""

// Compile validates def, resolves every node instance against registry,
// and produces a Graph the executor can walk without touching the
// registry or the definition again (§4.6 steps 1-4).
func Compile(def *models.WorkflowDefinition, registry *executor.Registry) (*Graph, error) {
	if errs := def.Validate(); len(errs) > 0 {
		return nil, errs
	}

	start := def.StartNode()
	if start == nil {
		return nil, fmt.Errorf("%w: no start node", models.ErrInvalidWorkflow)
	}
	startEdges := def.EdgesFrom(start.ID)
	if len(startEdges) != 1 {
		return nil, fmt.Errorf("%w: start node must have exactly one outgoing edge, found %d", models.ErrInvalidWorkflow, len(startEdges))
	}

	nodes := make(map[string]*CompiledNode, len(def.Nodes))
	for i := range def.Nodes {
		inst := &def.Nodes[i]
		if inst.NodeType == models.NodeTypeStart || inst.NodeType == models.NodeTypeEnd {
			continue
		}

		spec, err := registry.Get(inst.NodeType)
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", inst.ID, err)
		}
		if err := spec.Node.Validate(inst.Config); err != nil {
			return nil, fmt.Errorf("%w: node %s: %s", models.ErrInvalidConfig, inst.ID, err)
		}

		compiled, err := compileNode(def, inst, spec)
		if err != nil {
			return nil, err
		}
		nodes[inst.ID] = compiled
	}

	return &Graph{Definition: def, Entry: startEdges[0].Target, Nodes: nodes}, nil
}

// compileNode resolves one node's outgoing edges into a port→target map.
// A node with more than one distinct target uses its own Router
// implementation when it has one; otherwise it gets a synthesized
// fallback router that always takes the first edge's port (matching
// _has_multiple_targets/_make_fallback_router in the original: a node
// that can reach more than one place always has *some* way to say
// which one, even if its type never implements routing itself).
func compileNode(def *models.WorkflowDefinition, inst *models.NodeInstance, spec *executor.NodeSpec) (*CompiledNode, error) {
	edges := def.EdgesFrom(inst.ID)

	portTargets := make(map[string]string, len(edges))
	targets := make(map[string]bool, len(edges))
	for _, e := range edges {
		target := e.Target
		if t := def.GetNode(e.Target); t != nil && t.NodeType == models.NodeTypeEnd {
			target = endSentinel
		}
		portTargets[e.Port()] = target
		targets[target] = true
	}

	var router executor.RoutingFunction
	if len(targets) == 1 {
		// §4.6 step 3: a single distinct target collapses to a direct
		// edge, whichever ports its edges were drawn from.
		for target := range targets {
			portTargets[models.DefaultSourcePort] = target
		}
	} else if r, ok := spec.Node.(executor.Router); ok {
		router = r.RoutingFunction(inst.Config)
	} else if len(targets) > 1 {
		// §4.6 step 3: a node with more than one distinct target but no
		// routing capability of its own gets a fallback router that
		// ignores state and always takes the first edge's port,
		// mirroring _make_fallback_router in the original.
		firstPort := edges[0].Port()
		router = func(*models.State) string { return firstPort }
	}

	return &CompiledNode{Instance: inst, Spec: spec, Router: router, PortTargets: portTargets}, nil
}

// Resolve picks the next node ID for a compiled node given the
// post-execute state: the router's chosen port if the node has one,
// otherwise the default port, which compileNode points at the single
// target of a collapsed node. An unresolved port falls back to the
// default port, and finally to ending the walk — reaching no match here
// means the node has no outgoing edge or a router returned a port the
// graph didn't wire, which ends the walk rather than panicking.
func (c *CompiledNode) Resolve(state *models.State) (target string, ended bool) {
	port := models.DefaultSourcePort
	if c.Router != nil {
		port = c.Router(state)
	}

	if target, ok := c.PortTargets[port]; ok {
		return target, target == endSentinel
	}
	if target, ok := c.PortTargets[models.DefaultSourcePort]; ok {
		return target, target == endSentinel
	}
	return endSentinel, true
}
