package store

import (
	"github.com/flowglyph/agentflow/pkg/models"
)

// Built-in template names (§6.3's "fallback template simple" plus the
// harder scenarios from the end-to-end suite). The Session Façade falls
// back to "simple" when neither a workflowId nor a graphName resolves to
// a stored workflow.
const (
	TemplateSimple     = "simple"
	TemplateAutonomous = "autonomous"
	TemplateHardPath   = "hard_path"
)

// BuiltinTemplates returns fresh WorkflowDefinition values for every
// built-in topology, each flagged IsTemplate so the store's
// ListTemplates/FindByTemplateName calls can find them. Grounded on
// original_source/backend/service/workflow/templates.py's role as a
// template factory, reshaped around this module's actual node registry
// rather than the LangGraph node set the Python file referenced.
func BuiltinTemplates() []*models.WorkflowDefinition {
	return []*models.WorkflowDefinition{
		simpleTemplate(),
		autonomousTemplate(),
		hardPathTemplate(),
	}
}

func newTemplate(id, name, description, templateName string) *models.WorkflowDefinition {
	return &models.WorkflowDefinition{
		ID:           id,
		Name:         name,
		Description:  description,
		IsTemplate:   true,
		TemplateName: templateName,
	}
}

func node(id, nodeType, label string, config map[string]any) models.NodeInstance {
	return models.NodeInstance{ID: id, NodeType: nodeType, Label: label, Config: config}
}

func edge(id, source, target, port string) models.Edge {
	return models.Edge{ID: id, Source: source, Target: target, SourcePort: port}
}

// simpleTemplate matches §8 scenario 1: a single-shot invocation with a
// memory lookup, a context check and a completion scan, no branching.
func simpleTemplate() *models.WorkflowDefinition {
	def := newTemplate("tpl-simple", "Simple", "Single LLM call with memory and context guarding.", TemplateSimple)
	def.Nodes = []models.NodeInstance{
		node("start", models.NodeTypeStart, "Start", nil),
		node("memory_inject", "memory_inject", "Memory Inject", map[string]any{"maxResults": 3}),
		node("context_guard", "context_guard", "Context Guard", nil),
		node("llm_call", "llm_call", "LLM Call", map[string]any{"promptTemplate": "{input}", "setComplete": true}),
		node("post_model", "post_model", "Post Model", nil),
		node("end", models.NodeTypeEnd, "End", nil),
	}
	def.Edges = []models.Edge{
		edge("e-start", "start", "memory_inject", ""),
		edge("e-memory", "memory_inject", "context_guard", ""),
		edge("e-guard-ok", "context_guard", "llm_call", "ok"),
		edge("e-guard-warn", "context_guard", "llm_call", "warn"),
		edge("e-guard-block", "context_guard", "end", "block"),
		edge("e-guard-overflow", "context_guard", "end", "overflow"),
		edge("e-llm", "llm_call", "post_model", ""),
		edge("e-post", "post_model", "end", ""),
	}
	return def
}

// autonomousTemplate matches §8 scenarios 2-3: classify into an easy
// direct-answer shortcut or a medium/hard review loop bounded by an
// iteration gate, ending in a final answer.
func autonomousTemplate() *models.WorkflowDefinition {
	def := newTemplate("tpl-autonomous", "Autonomous", "Classifies the request and routes between a direct answer and a reviewed answer loop.", TemplateAutonomous)
	def.Nodes = []models.NodeInstance{
		node("start", models.NodeTypeStart, "Start", nil),
		node("memory_inject", "memory_inject", "Memory Inject", nil),
		node("classify", "classify", "Classify", nil),
		node("direct_answer", "direct_answer", "Direct Answer", nil),
		node("llm_call", "llm_call", "LLM Call", map[string]any{"promptTemplate": "{input}"}),
		node("review", "review", "Review", nil),
		node("iteration_gate", "iteration_gate", "Iteration Gate", map[string]any{"maxIterations": 5}),
		node("final_answer", "final_answer", "Final Answer", nil),
		node("transcript_record", "transcript_record", "Transcript Record", nil),
		node("end", models.NodeTypeEnd, "End", nil),
	}
	def.Edges = []models.Edge{
		edge("e-start", "start", "memory_inject", ""),
		edge("e-memory", "memory_inject", "classify", ""),
		edge("e-easy", "classify", "direct_answer", "easy"),
		edge("e-medium", "classify", "llm_call", "medium"),
		edge("e-hard", "classify", "llm_call", "hard"),
		edge("e-direct", "direct_answer", "transcript_record", ""),
		edge("e-llm", "llm_call", "review", ""),
		edge("e-approved", "review", "final_answer", string(models.ReviewApproved)),
		edge("e-rejected", "review", "iteration_gate", string(models.ReviewRejected)),
		edge("e-gate-continue", "iteration_gate", "llm_call", "continue"),
		edge("e-gate-stop", "iteration_gate", "final_answer", "stop"),
		edge("e-final", "final_answer", "transcript_record", ""),
		edge("e-record", "transcript_record", "end", ""),
	}
	return def
}

// hardPathTemplate matches §8 scenario 4: a planning loop that creates a
// TODO list, executes TODOs one at a time (tolerating per-TODO failure),
// checks progress, and synthesizes a final review/answer once the list
// is exhausted or blocked.
func hardPathTemplate() *models.WorkflowDefinition {
	def := newTemplate("tpl-hard-path", "Hard Path", "Plans a TODO list, executes it to exhaustion, then reviews the synthesized answer.", TemplateHardPath)
	def.Nodes = []models.NodeInstance{
		node("start", models.NodeTypeStart, "Start", nil),
		node("memory_inject", "memory_inject", "Memory Inject", nil),
		node("create_todos", "create_todos", "Create TODOs", map[string]any{"maxTodos": 10}),
		node("execute_todo", "execute_todo", "Execute TODO", nil),
		node("check_progress", "check_progress", "Check Progress", nil),
		node("iteration_gate", "iteration_gate", "Iteration Gate", map[string]any{"maxIterations": 15}),
		node("answer", "answer", "Answer", map[string]any{"template": "{lastOutput}"}),
		node("final_review", "final_review", "Final Review", nil),
		node("final_answer", "final_answer", "Final Answer", nil),
		node("transcript_record", "transcript_record", "Transcript Record", nil),
		node("end", models.NodeTypeEnd, "End", nil),
	}
	def.Edges = []models.Edge{
		edge("e-start", "start", "memory_inject", ""),
		edge("e-memory", "memory_inject", "create_todos", ""),
		edge("e-plan", "create_todos", "execute_todo", ""),
		edge("e-exec", "execute_todo", "check_progress", ""),
		edge("e-continue", "check_progress", "iteration_gate", "continue"),
		edge("e-complete", "check_progress", "answer", "complete"),
		edge("e-gate-continue", "iteration_gate", "execute_todo", "continue"),
		edge("e-gate-stop", "iteration_gate", "answer", "stop"),
		edge("e-answer", "answer", "final_review", ""),
		edge("e-approved", "final_review", "final_answer", string(models.ReviewApproved)),
		edge("e-rejected", "final_review", "execute_todo", string(models.ReviewRejected)),
		edge("e-final", "final_answer", "transcript_record", ""),
		edge("e-record", "transcript_record", "end", ""),
	}
	return def
}
