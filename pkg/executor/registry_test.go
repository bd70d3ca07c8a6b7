package executor

import (
	"context"
	"testing"

	"github.com/flowglyph/agentflow/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubNode struct{}

func (stubNode) Execute(ctx context.Context, ectx *ExecutionContext, config map[string]any, state *models.State) (models.StateDelta, error) {
	return models.StateDelta{}, nil
}

func (stubNode) Validate(config map[string]any) error { return nil }

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := NewRegistry()
	spec := &NodeSpec{NodeType: "llm_call", Label: "LLM Call", Node: stubNode{}}

	require.NoError(t, r.Register(spec))
	assert.True(t, r.Has("llm_call"))

	got, err := r.Get("llm_call")
	require.NoError(t, err)
	assert.Equal(t, spec, got)
}

func TestRegistry_Get_Unknown(t *testing.T) {
	r := NewRegistry()
	_, err := r.Get("does_not_exist")
	assert.ErrorIs(t, err, models.ErrNodeSpecNotFound)
}

func TestRegistry_Register_AppendOnly_RejectsDuplicate(t *testing.T) {
	r := NewRegistry()
	spec := &NodeSpec{NodeType: "review", Node: stubNode{}}
	require.NoError(t, r.Register(spec))

	err := r.Register(&NodeSpec{NodeType: "review", Node: stubNode{}})
	assert.ErrorIs(t, err, models.ErrNodeSpecExists)
}

func TestRegistry_Register_RequiresNodeAndType(t *testing.T) {
	r := NewRegistry()
	assert.Error(t, r.Register(&NodeSpec{NodeType: "x"}))
	assert.Error(t, r.Register(&NodeSpec{Node: stubNode{}}))
}

func TestRegistry_List(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&NodeSpec{NodeType: "a", Node: stubNode{}}))
	require.NoError(t, r.Register(&NodeSpec{NodeType: "b", Node: stubNode{}}))
	assert.ElementsMatch(t, []string{"a", "b"}, r.List())
}

func TestNodeSpec_Ports_StaticByDefault(t *testing.T) {
	spec := &NodeSpec{NodeType: "llm_call", OutputPorts: []string{"default"}, Node: stubNode{}}
	assert.Equal(t, []string{"default"}, spec.Ports(nil))
}
