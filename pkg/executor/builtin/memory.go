package builtin

import (
	"context"

	"github.com/flowglyph/agentflow/pkg/executor"
	"github.com/flowglyph/agentflow/pkg/models"
)

// MemoryInjectNode searches the session's MemoryManager for entries
// relevant to the current input and appends them to state.memoryRefs,
// deduplicated by filename (§3.1 reducer). Grounded on the teacher's
// ParentNodeOutput/Resources plumbing in pkg/engine/node_executor.go,
// adapted from a template-variable source to the MemoryManager capability.
type MemoryInjectNode struct {
	executor.BaseExecutor
}

func NewMemoryInjectNode() *MemoryInjectNode {
	return &MemoryInjectNode{BaseExecutor: executor.NewBaseExecutor("memory_inject")}
}

func (n *MemoryInjectNode) Execute(ctx context.Context, ectx *executor.ExecutionContext, config map[string]any, state *models.State) (models.StateDelta, error) {
	if ectx == nil || ectx.MemoryManager == nil {
		return models.StateDelta{}, nil
	}

	query := n.GetStringDefault(config, "query", state.Input)
	maxResults := n.GetIntDefault(config, "maxResults", 3)

	hits, err := ectx.MemoryManager.Search(ctx, query, maxResults)
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return models.StateDelta{}, nil
	}

	refs := make([]models.MemoryRef, len(hits))
	for i, h := range hits {
		ref := h.Entry
		ref.InjectedAtTurn = state.Iteration
		refs[i] = ref
	}
	return models.StateDelta{"memoryRefs": refs}, nil
}

func (n *MemoryInjectNode) Validate(config map[string]any) error { return nil }

// TranscriptRecordNode persists lastOutput, truncated to config's
// maxLength (default 5000 chars), as an assistant message through the
// session's MemoryManager so future turns (or future sessions, if the
// adapter backs a durable store) can retrieve it.
type TranscriptRecordNode struct {
	executor.BaseExecutor
}

func NewTranscriptRecordNode() *TranscriptRecordNode {
	return &TranscriptRecordNode{BaseExecutor: executor.NewBaseExecutor("transcript_record")}
}

func (n *TranscriptRecordNode) Execute(ctx context.Context, ectx *executor.ExecutionContext, config map[string]any, state *models.State) (models.StateDelta, error) {
	if ectx == nil || ectx.MemoryManager == nil || state.LastOutput == "" {
		return models.StateDelta{}, nil
	}
	content := truncate(state.LastOutput, n.GetIntDefault(config, "maxLength", 5000))
	if err := ectx.MemoryManager.RecordMessage(ctx, models.RoleAssistant, content); err != nil {
		return nil, err
	}
	return models.StateDelta{}, nil
}

func (n *TranscriptRecordNode) Validate(config map[string]any) error { return nil }
