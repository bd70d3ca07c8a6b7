package builtin

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/flowglyph/agentflow/pkg/models"
)

// stateFields projects the State onto the flat string map that
// Substitute consumes. Only the fields a prompt template would plausibly
// reference are exposed; anything else falls back to the literal
// placeholder text rather than panicking or silently stringifying an
// entire struct.
func stateFields(state *models.State) map[string]string {
	fields := map[string]string{
		"input":            state.Input,
		"lastOutput":       state.LastOutput,
		"currentStep":      state.CurrentStep,
		"answer":           state.Answer,
		"difficulty":       string(state.Difficulty),
		"reviewResult":     string(state.ReviewResult),
		"reviewFeedback":   state.ReviewFeedback,
		"finalAnswer":      state.FinalAnswer,
		"completionDetail": state.CompletionDetail,
		"iteration":        strconv.Itoa(state.Iteration),
		"maxIterations":    strconv.Itoa(state.MaxIterations),
		"transcript":       transcriptText(state.Messages),
	}

	if t := currentTodo(state); t != nil {
		fields["currentTodo"] = t.Title
		fields["currentTodoDescription"] = t.Description
	}
	fields["priorResults"] = priorResultsText(state)
	if len(state.MemoryRefs) > 0 {
		names := make([]string, len(state.MemoryRefs))
		for i, m := range state.MemoryRefs {
			names[i] = m.Filename
		}
		fields["memoryFiles"] = strings.Join(names, ", ")
	}
	return fields
}

// truncate cuts s to at most n runes, appending an ellipsis marker when it
// actually shortened the string (the budget-aware truncation conventions
// in §4.3: Answer's feedback, Execute TODO's prior results, Final
// Review's per-result summaries, Transcript Record's lastOutput).
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// priorResultsText renders every completed-or-failed TODO before idx as
// "N. title: result" lines, truncating each result according to the
// context budget (§4.3 "Execute TODO": 200 chars once budget is block or
// worse, 500 chars otherwise).
func priorResultsText(state *models.State) string {
	limit := 500
	if state.ContextBudget.Status == models.BudgetBlock || state.ContextBudget.Status == models.BudgetOverflow {
		limit = 200
	}

	var b strings.Builder
	for i, t := range state.Todos {
		if i >= state.CurrentTodoIndex {
			break
		}
		if t.Result == "" {
			continue
		}
		fmt.Fprintf(&b, "%d. %s: %s\n", i+1, t.Title, truncate(t.Result, limit))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// currentTodo returns the TODO at state.CurrentTodoIndex, or nil if the
// index is out of range (empty plan, or the plan is exhausted).
func currentTodo(state *models.State) *models.TodoItem {
	if state.CurrentTodoIndex < 0 || state.CurrentTodoIndex >= len(state.Todos) {
		return nil
	}
	return &state.Todos[state.CurrentTodoIndex]
}

// transcriptText renders the message history as a plain transcript, for
// nodes that want the whole conversation inlined into a prompt.
func transcriptText(messages []models.ChatMessage) string {
	var b strings.Builder
	for _, m := range messages {
		fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
	}
	return strings.TrimSuffix(b.String(), "\n")
}
