package models

import "strings"

// Role is a chat message role. Every appended message must carry one of
// these four values (state invariant v).
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

// ChatMessage is one entry in the append-only message transcript.
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Difficulty is the Classify node's verdict. The empty string represents
// "not yet classified" (the spec's null).
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// ReviewVerdict is the Review node's verdict. Per the design notes, the
// verdict space is treated as the closed set {approved, rejected}; the
// empty string means "not yet reviewed".
type ReviewVerdict string

const (
	ReviewApproved ReviewVerdict = "approved"
	ReviewRejected ReviewVerdict = "rejected"
)

// TodoStatus tracks a single TODO item through its lifecycle. Status
// progresses monotonically (pending → in_progress → completed|failed)
// except on an explicit retry.
type TodoStatus string

const (
	TodoPending    TodoStatus = "pending"
	TodoInProgress TodoStatus = "in_progress"
	TodoCompleted  TodoStatus = "completed"
	TodoFailed     TodoStatus = "failed"
)

// TodoItem is one entry of the hard-path plan.
type TodoItem struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      TodoStatus `json:"status"`
	Result      string     `json:"result,omitempty"`
}

// CompletionSignalKind is the structured token a model can embed in its
// output to drive termination (Post Model node, §4.3).
type CompletionSignalKind string

const (
	SignalNone     CompletionSignalKind = "none"
	SignalContinue CompletionSignalKind = "continue"
	SignalComplete CompletionSignalKind = "complete"
	SignalBlocked  CompletionSignalKind = "blocked"
	SignalError    CompletionSignalKind = "error"
)

// ContextBudgetStatus classifies token usage against the model's context
// window.
type ContextBudgetStatus string

const (
	BudgetOK       ContextBudgetStatus = "ok"
	BudgetWarn     ContextBudgetStatus = "warn"
	BudgetBlock    ContextBudgetStatus = "block"
	BudgetOverflow ContextBudgetStatus = "overflow"
)

// ContextBudget is the Context Guard node's token accounting output.
type ContextBudget struct {
	EstimatedTokens int                 `json:"estimatedTokens"`
	ContextLimit    int                 `json:"contextLimit"`
	UsageRatio      float64             `json:"usageRatio"`
	Status          ContextBudgetStatus `json:"status"`
	CompactionCount int                 `json:"compactionCount"`
}

// FallbackTrace records a resilientInvoke model demotion.
type FallbackTrace struct {
	OriginalModel string `json:"originalModel"`
	CurrentModel  string `json:"currentModel"`
	Attempts      int    `json:"attempts"`
}

// MemoryRef indexes one piece of memory injected into the conversation.
type MemoryRef struct {
	Filename       string `json:"filename"`
	Source         string `json:"source"`
	CharCount      int    `json:"charCount"`
	InjectedAtTurn int    `json:"injectedAtTurn"`
}

// State is the shared, typed record threaded through every node in one
// invocation. Fields are plain and nullable-by-zero-value rather than
// behind reflection: every reducer in Merge is an explicit, named case,
// matching the design note to avoid reflective struct walking.
type State struct {
	Input         string
	Messages      []ChatMessage
	CurrentStep   string
	LastOutput    string
	Iteration     int
	MaxIterations int

	Difficulty     Difficulty
	Answer         string
	ReviewResult   ReviewVerdict
	ReviewFeedback string
	ReviewCount    int

	Todos            []TodoItem
	CurrentTodoIndex int

	FinalAnswer string

	CompletionSignal CompletionSignalKind
	CompletionDetail string

	Error      string
	IsComplete bool

	ContextBudget ContextBudget
	Fallback      FallbackTrace
	MemoryRefs    []MemoryRef

	Metadata map[string]any
}

// NewState is the initial-state factory, seeded from the invocation input
// (§4.7 step 1).
func NewState(input string, maxIterations int) *State {
	return &State{
		Input:            input,
		Messages:         []ChatMessage{{Role: RoleUser, Content: input}},
		MaxIterations:    maxIterations,
		CompletionSignal: SignalNone,
		Metadata:         map[string]any{},
	}
}

// StateDelta is the value a node's execute returns: a sparse map of
// field name → new value. Fields absent from the map are left unchanged.
// This is the exact shape the node contract describes in §4.2; Merge
// interprets it through a fixed per-field switch rather than reflection.
type StateDelta map[string]any

// Snapshot returns a shallow, read-only-by-convention copy of the state
// suitable for passing to a node's execute function.
func (s *State) Snapshot() State {
	return *s
}

// Merge applies delta to s under each field's reducer, as defined in
// §3.1. Unknown keys are ignored (forward compatible with node authors
// who over-report). Type-mismatched values are ignored rather than
// panicking — a malformed node should not crash the executor. A skipped
// value is not reported anywhere.
func (s *State) Merge(delta StateDelta) {
	for key, value := range delta {
		switch key {
		case "input":
			if v, ok := value.(string); ok {
				s.Input = v
			}
		case "messages":
			if v, ok := value.([]ChatMessage); ok {
				s.Messages = append(s.Messages, v...)
			}
		case "currentStep":
			if v, ok := value.(string); ok {
				s.CurrentStep = v
			}
		case "lastOutput":
			if v, ok := value.(string); ok {
				s.LastOutput = v
			}
		case "iteration":
			if v, ok := value.(int); ok {
				s.Iteration = v
			}
		case "maxIterations":
			if v, ok := value.(int); ok {
				s.MaxIterations = v
			}
		case "difficulty":
			if v, ok := value.(Difficulty); ok {
				s.Difficulty = v
			}
		case "answer":
			if v, ok := value.(string); ok {
				s.Answer = v
			}
		case "reviewResult":
			if v, ok := value.(ReviewVerdict); ok {
				s.ReviewResult = v
			}
		case "reviewFeedback":
			if v, ok := value.(string); ok {
				s.ReviewFeedback = v
			}
		case "reviewCount":
			if v, ok := value.(int); ok {
				s.ReviewCount = v
			}
		case "todos":
			if v, ok := value.([]TodoItem); ok {
				s.Todos = mergeTodosByID(s.Todos, v)
			}
		case "currentTodoIndex":
			if v, ok := value.(int); ok {
				s.CurrentTodoIndex = v
			}
		case "finalAnswer":
			if v, ok := value.(string); ok {
				s.FinalAnswer = v
			}
		case "completionSignal":
			if v, ok := value.(CompletionSignalKind); ok {
				s.CompletionSignal = v
			}
		case "completionDetail":
			if v, ok := value.(string); ok {
				s.CompletionDetail = v
			}
		case "error":
			if v, ok := value.(string); ok {
				s.Error = v
			}
		case "isComplete":
			if v, ok := value.(bool); ok {
				// Monotonic: once true, never cleared (invariant ii).
				s.IsComplete = s.IsComplete || v
			}
		case "contextBudget":
			if v, ok := value.(ContextBudget); ok {
				s.ContextBudget = v
			}
		case "fallback":
			if v, ok := value.(FallbackTrace); ok {
				s.Fallback = v
			}
		case "memoryRefs":
			if v, ok := value.([]MemoryRef); ok {
				s.MemoryRefs = dedupeMemoryRefsByFilename(s.MemoryRefs, v)
			}
		case "metadata":
			if v, ok := value.(map[string]any); ok {
				s.Metadata = v
			}
		}
	}
}

// mergeTodosByID implements the merge-by-id reducer: entries in delta
// replace same-id entries in prior, new ids are appended, and the
// relative order of prior entries is preserved (property test 5: never
// loses an id).
func mergeTodosByID(prior, delta []TodoItem) []TodoItem {
	byID := make(map[string]int, len(prior))
	out := make([]TodoItem, len(prior))
	copy(out, prior)
	for i, t := range out {
		byID[t.ID] = i
	}
	for _, t := range delta {
		if idx, ok := byID[t.ID]; ok {
			out[idx] = t
		} else {
			byID[t.ID] = len(out)
			out = append(out, t)
		}
	}
	return out
}

// dedupeMemoryRefsByFilename implements the deduplicate-by-filename
// reducer: a delta entry for a filename already present replaces it
// in place; new filenames are appended. The result never contains two
// entries with the same filename (property test 6).
func dedupeMemoryRefsByFilename(prior, delta []MemoryRef) []MemoryRef {
	byName := make(map[string]int, len(prior))
	out := make([]MemoryRef, len(prior))
	copy(out, prior)
	for i, r := range out {
		byName[r.Filename] = i
	}
	for _, r := range delta {
		if idx, ok := byName[r.Filename]; ok {
			out[idx] = r
		} else {
			byName[r.Filename] = len(out)
			out = append(out, r)
		}
	}
	return out
}

// NormalizeRoutingValue applies the Conditional Router's normalization
// rule: trim and lowercase strings before a routeMap lookup.
func NormalizeRoutingValue(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
