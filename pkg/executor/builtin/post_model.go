package builtin

import (
	"context"
	"strings"

	"github.com/flowglyph/agentflow/pkg/executor"
	"github.com/flowglyph/agentflow/pkg/models"
)

// PostModelNode scans the last model output for one of the four
// completion tags the prompt contract asks models to emit:
// [TASK_COMPLETE], [CONTINUE: hint], [BLOCKED: reason], [ERROR: msg]. It
// is a plain scan over "[" ... "]" rather than a regexp — the tag set is
// closed and the detail text has no escaping rules worth a pattern
// engine. Routes on the resulting CompletionSignalKind.
type PostModelNode struct {
	executor.BaseExecutor
}

func NewPostModelNode() *PostModelNode {
	return &PostModelNode{BaseExecutor: executor.NewBaseExecutor("post_model")}
}

func (n *PostModelNode) Execute(ctx context.Context, ectx *executor.ExecutionContext, config map[string]any, state *models.State) (models.StateDelta, error) {
	kind, detail := detectCompletionSignal(state.LastOutput)
	delta := models.StateDelta{
		"completionSignal": kind,
		"completionDetail": detail,
	}
	if kind == models.SignalComplete {
		delta["isComplete"] = true
	}
	if kind == models.SignalError {
		delta["error"] = detail
	}
	return delta, nil
}

// detectCompletionSignal finds the first recognized tag in text and
// returns its kind and payload. A tag with no recognized name is
// ignored; no tag at all yields SignalNone with an empty detail.
func detectCompletionSignal(text string) (models.CompletionSignalKind, string) {
	for i := 0; i < len(text); i++ {
		if text[i] != '[' {
			continue
		}
		end := strings.IndexByte(text[i:], ']')
		if end < 0 {
			break
		}
		tag := text[i+1 : i+end]

		name, detail, _ := strings.Cut(tag, ":")
		name = strings.TrimSpace(name)
		detail = strings.TrimSpace(detail)

		switch name {
		case "TASK_COMPLETE":
			return models.SignalComplete, detail
		case "CONTINUE":
			return models.SignalContinue, detail
		case "BLOCKED":
			return models.SignalBlocked, detail
		case "ERROR":
			return models.SignalError, detail
		}
		i += end
	}
	return models.SignalNone, ""
}

func (n *PostModelNode) Validate(config map[string]any) error { return nil }

func (n *PostModelNode) RoutingFunction(config map[string]any) executor.RoutingFunction {
	return func(state *models.State) string {
		if state.CompletionSignal == "" {
			return string(models.SignalNone)
		}
		return string(state.CompletionSignal)
	}
}
