package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func linearWorkflow() *WorkflowDefinition {
	return &WorkflowDefinition{
		ID:   "wf-1",
		Name: "Linear",
		Nodes: []NodeInstance{
			{ID: "start", NodeType: NodeTypeStart},
			{ID: "llm", NodeType: "llm_call"},
			{ID: "end", NodeType: NodeTypeEnd},
		},
		Edges: []Edge{
			{ID: "e1", Source: "start", Target: "llm"},
			{ID: "e2", Source: "llm", Target: "end"},
		},
	}
}

func TestWorkflowDefinition_Validate_Valid(t *testing.T) {
	errs := linearWorkflow().Validate()
	assert.Empty(t, errs)
}

func TestWorkflowDefinition_Validate_MissingStart(t *testing.T) {
	wf := linearWorkflow()
	wf.Nodes = wf.Nodes[1:] // drop start
	errs := wf.Validate()
	require.NotEmpty(t, errs)
	assert.Contains(t, errs.Error(), "start node")
}

func TestWorkflowDefinition_Validate_MultipleStart(t *testing.T) {
	wf := linearWorkflow()
	wf.Nodes = append(wf.Nodes, NodeInstance{ID: "start2", NodeType: NodeTypeStart})
	errs := wf.Validate()
	require.NotEmpty(t, errs)
	assert.Contains(t, errs.Error(), "multiple")
}

func TestWorkflowDefinition_Validate_MissingEnd(t *testing.T) {
	wf := linearWorkflow()
	wf.Nodes = wf.Nodes[:2] // drop end
	wf.Edges = wf.Edges[:1]
	errs := wf.Validate()
	found := false
	for _, e := range errs {
		if e.Message == "workflow must have at least one end node" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestWorkflowDefinition_Validate_DanglingEdge(t *testing.T) {
	wf := linearWorkflow()
	wf.Edges = append(wf.Edges, Edge{ID: "e3", Source: "llm", Target: "ghost"})
	errs := wf.Validate()
	require.NotEmpty(t, errs)
	assert.Contains(t, errs.Error(), "unknown")
}

func TestWorkflowDefinition_Validate_OrphanNode(t *testing.T) {
	wf := linearWorkflow()
	wf.Nodes = append(wf.Nodes, NodeInstance{ID: "orphan", NodeType: "review"})
	errs := wf.Validate()
	require.NotEmpty(t, errs)
	assert.Contains(t, errs.Error(), "disconnected")
}

func TestWorkflowDefinition_Validate_StartNoOutgoing(t *testing.T) {
	wf := linearWorkflow()
	wf.Edges = wf.Edges[1:] // start has no outgoing edge
	wf.Nodes = append(wf.Nodes, NodeInstance{ID: "orphan2", NodeType: "review"})
	errs := wf.Validate()
	found := false
	for _, e := range errs {
		if e.Message == "start node must have at least one outgoing edge" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestWorkflowDefinition_Validate_DuplicateNodeID(t *testing.T) {
	wf := linearWorkflow()
	wf.Nodes = append(wf.Nodes, NodeInstance{ID: "llm", NodeType: "llm_call"})
	errs := wf.Validate()
	require.NotEmpty(t, errs)
	assert.Contains(t, errs.Error(), "duplicate node ID")
}

func TestWorkflowDefinition_EdgePort_DefaultsToDefault(t *testing.T) {
	e := Edge{ID: "e1", Source: "a", Target: "b"}
	assert.Equal(t, DefaultSourcePort, e.Port())
}

func TestWorkflowDefinition_Clone_IsDeep(t *testing.T) {
	wf := linearWorkflow()
	clone, err := wf.Clone()
	require.NoError(t, err)
	clone.Nodes[0].Label = "mutated"
	assert.NotEqual(t, wf.Nodes[0].Label, clone.Nodes[0].Label)
}
