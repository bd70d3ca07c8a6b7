package builtin

import (
	"github.com/flowglyph/agentflow/pkg/executor"
	"github.com/flowglyph/agentflow/pkg/models"
)

// RegisterAll publishes every built-in node type into r. Grounded on the
// teacher's pkg/executor/builtin/register.go wiring pattern: one
// Register call per type, run once at process startup before the
// registry is handed to the compiler.
func RegisterAll(r *executor.Registry) error {
	specs := []*executor.NodeSpec{
		{
			NodeType:    "llm_call",
			Label:       "LLM Call",
			Category:    "model",
			OutputPorts: []string{"default"},
			Parameters: []executor.ParameterDescriptor{
				{Name: "promptTemplate", Type: executor.ParamPromptTemplate, Required: true},
				{Name: "systemPrompt", Type: executor.ParamPromptTemplate},
				{Name: "outputField", Type: executor.ParamString, Default: "lastOutput"},
				{Name: "setComplete", Type: executor.ParamBoolean, Default: false},
			},
			Node: NewLLMCallNode(),
		},
		{
			NodeType:    "classify",
			Label:       "Classify",
			Category:    "model",
			OutputPorts: []string{"easy", "medium", "hard"},
			Parameters: []executor.ParameterDescriptor{
				{Name: "systemPrompt", Type: executor.ParamPromptTemplate},
				{Name: "promptTemplate", Type: executor.ParamPromptTemplate},
			},
			Node: NewClassifyNode(),
		},
		{
			NodeType:    "direct_answer",
			Label:       "Direct Answer",
			Category:    "model",
			OutputPorts: []string{"default"},
			Node:        NewDirectAnswerNode(),
		},
		{
			NodeType:    "answer",
			Label:       "Answer",
			Category:    "state",
			OutputPorts: []string{"default"},
			Parameters:  []executor.ParameterDescriptor{{Name: "promptTemplate", Type: executor.ParamPromptTemplate}},
			Node:        NewAnswerNode(),
		},
		{
			NodeType:    "review",
			Label:       "Review",
			Category:    "model",
			OutputPorts: []string{string(models.ReviewApproved), string(models.ReviewRejected)},
			Node:        NewReviewNode(),
		},
		{
			NodeType:    "create_todos",
			Label:       "Create TODOs",
			Category:    "planning",
			OutputPorts: []string{"default"},
			Parameters:  []executor.ParameterDescriptor{{Name: "maxTodos", Type: executor.ParamNumber, Default: 20}},
			Node:        NewCreateTodosNode(),
		},
		{
			NodeType:    "execute_todo",
			Label:       "Execute TODO",
			Category:    "planning",
			OutputPorts: []string{"default"},
			Node:        NewExecuteTodoNode(),
		},
		{
			NodeType:    "check_progress",
			Label:       "Check Progress",
			Category:    "planning",
			OutputPorts: []string{ProgressContinue, ProgressComplete},
			Node:        NewCheckProgressNode(),
		},
		{
			NodeType:    "final_review",
			Label:       "Final Review",
			Category:    "model",
			OutputPorts: []string{string(models.ReviewApproved), string(models.ReviewRejected)},
			Node:        NewFinalReviewNode(),
		},
		{
			NodeType:    "final_answer",
			Label:       "Final Answer",
			Category:    "state",
			OutputPorts: []string{"default"},
			Parameters:  []executor.ParameterDescriptor{{Name: "template", Type: executor.ParamPromptTemplate}},
			Node:        NewFinalAnswerNode(),
		},
		{
			NodeType:    "memory_inject",
			Label:       "Memory Inject",
			Category:    "memory",
			OutputPorts: []string{"default"},
			Parameters: []executor.ParameterDescriptor{
				{Name: "query", Type: executor.ParamPromptTemplate},
				{Name: "maxResults", Type: executor.ParamNumber, Default: 3},
			},
			Node: NewMemoryInjectNode(),
		},
		{
			NodeType:    "transcript_record",
			Label:       "Transcript Record",
			Category:    "memory",
			OutputPorts: []string{"default"},
			Node:        NewTranscriptRecordNode(),
		},
		{
			NodeType:    "context_guard",
			Label:       "Context Guard",
			Category:    "resilience",
			OutputPorts: []string{"ok", "warn", "block", "overflow"},
			Parameters:  []executor.ParameterDescriptor{{Name: "contextLimit", Type: executor.ParamNumber, Default: contextLimitDefault}},
			Node:        NewContextGuardNode(),
		},
		{
			NodeType:    "post_model",
			Label:       "Post Model",
			Category:    "resilience",
			OutputPorts: []string{"none", "continue", "complete", "blocked", "error"},
			Node:        NewPostModelNode(),
		},
		{
			NodeType:    "iteration_gate",
			Label:       "Iteration Gate",
			Category:    "resilience",
			OutputPorts: []string{IterationContinue, IterationStop},
			Parameters:  []executor.ParameterDescriptor{{Name: "maxIterations", Type: executor.ParamNumber, Default: 10}},
			Node:        NewIterationGateNode(),
		},
		{
			NodeType: "state_setter",
			Label:    "State Setter",
			Category: "state",
			Parameters: []executor.ParameterDescriptor{
				{Name: "stateUpdates", Type: executor.ParamJSON, Required: true},
			},
			OutputPorts: []string{"default"},
			Node:        NewStateSetterNode(),
		},
		{
			NodeType: "conditional_router",
			Label:    "Conditional Router",
			Category: "logic",
			Parameters: []executor.ParameterDescriptor{
				{Name: "routingField", Type: executor.ParamString, Required: true},
				{Name: "routeMap", Type: executor.ParamJSON, Required: true},
				{Name: "defaultPort", Type: executor.ParamString, Default: "default"},
			},
			Node: NewConditionalRouterNode(),
		},
	}

	for _, spec := range specs {
		if err := r.Register(spec); err != nil {
			return err
		}
	}
	return nil
}
