// Package openai provides a reference ModelAdapter (§6.1, §9 "Default
// ModelAdapter") backed by the OpenAI chat-completions API. The core
// engine only depends on the executor.ModelAdapter interface; this
// package is a concrete implementation callers may wire in, not a
// dependency of pkg/engine or pkg/executor itself.
//
// Grounded on internal/application/executor/node_executors.go's
// OpenAICompletionExecutor: the same API-key resolution order minus the
// explicit per-call tier (environment variable, then constructor default), the same
// "gpt-4o" model default, and the same debug-level zerolog logging of
// the prompt sent and the response received.
package openai

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"

	"github.com/flowglyph/agentflow/pkg/executor"
	"github.com/flowglyph/agentflow/pkg/models"
)

const defaultModel = "gpt-4o"

// Adapter implements executor.ModelAdapter against the OpenAI API. It is
// owned by exactly one session (§5 "ModelAdapter is single-owner per
// session") and must not be shared across concurrent sessions.
type Adapter struct {
	mu          sync.Mutex
	client      *openai.Client
	sessionID   string
	apiKey      string
	model       string
	baseURL     string
	initialized bool
	pid         int
}

// Option configures an Adapter at construction.
type Option func(*Adapter)

// WithAPIKey sets the adapter's fallback API key, used only when neither
// the OPENAI_API_KEY nor the openai_api_key environment variable is set
// (lowest resolution priority).
func WithAPIKey(key string) Option {
	return func(a *Adapter) { a.apiKey = key }
}

// WithModel overrides the default model ("gpt-4o") for every Invoke call
// that doesn't specify its own via InvokeOptions.Model.
func WithModel(model string) Option {
	return func(a *Adapter) { a.model = model }
}

// WithBaseURL points the adapter at an alternate endpoint (an
// OpenAI-compatible gateway, or a test server) instead of the public
// OpenAI API.
func WithBaseURL(url string) Option {
	return func(a *Adapter) { a.baseURL = url }
}

// New constructs an Adapter for sessionID. The underlying openai.Client
// isn't created until the resolved API key is known, which happens on
// the first Invoke call — New itself never fails on a missing key, so a
// session can be built before any secret is available (e.g. during
// dry-run compilation).
func New(sessionID string, opts ...Option) *Adapter {
	a := &Adapter{sessionID: sessionID, model: defaultModel, pid: os.Getpid()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

var _ executor.ModelAdapter = (*Adapter)(nil)

// resolveAPIKey mirrors OpenAICompletionExecutor.resolveAPIKey's priority
// order without its per-call tier: the environment (OPENAI_API_KEY, then
// openai_api_key), then the adapter's constructor default (WithAPIKey).
func (a *Adapter) resolveAPIKey() (string, error) {
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		return key, nil
	}
	if key := os.Getenv("openai_api_key"); key != "" {
		return key, nil
	}
	if a.apiKey != "" {
		return a.apiKey, nil
	}
	return "", fmt.Errorf("openai adapter: no API key resolved from constructor option or environment")
}

func (a *Adapter) ensureClient() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.client != nil {
		return nil
	}
	key, err := a.resolveAPIKey()
	if err != nil {
		return err
	}
	if a.baseURL != "" {
		cfg := openai.DefaultConfig(key)
		cfg.BaseURL = a.baseURL
		a.client = openai.NewClientWithConfig(cfg)
	} else {
		a.client = openai.NewClient(key)
	}
	a.initialized = true
	return nil
}

// Invoke sends messages to the OpenAI chat-completions endpoint and
// returns the first choice's content, trimmed of surrounding whitespace.
func (a *Adapter) Invoke(ctx context.Context, messages []executor.ChatMessage, opts executor.InvokeOptions) (executor.InvokeResult, error) {
	if err := a.ensureClient(); err != nil {
		return executor.InvokeResult{}, err
	}

	model := a.model
	if opts.Model != "" {
		model = opts.Model
	}

	req := openai.ChatCompletionRequest{
		Model:    model,
		Messages: toOpenAIMessages(messages, opts.SystemPrompt),
	}

	preview := previewContent(messages)
	log.Debug().
		Str("session_id", a.sessionID).
		Str("model", model).
		Str("prompt_preview", preview).
		Msg("openai adapter: invoking chat completion")

	start := time.Now()
	resp, err := a.client.CreateChatCompletion(ctx, req)
	elapsed := time.Since(start)
	if err != nil {
		return executor.InvokeResult{}, fmt.Errorf("openai adapter: %w", err)
	}
	if len(resp.Choices) == 0 {
		return executor.InvokeResult{}, fmt.Errorf("openai adapter: response had no choices")
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	log.Debug().Str("session_id", a.sessionID).Msgf("openai adapter: response %s", previewText(content, 500))

	return executor.InvokeResult{
		Content:    content,
		StopReason: string(resp.Choices[0].FinishReason),
		DurationMs: elapsed.Milliseconds(),
		Model:      resp.Model,
		NumTurns:   1,
	}, nil
}

// Cleanup releases the adapter's client reference; the go-openai client
// holds no resources that need an explicit close.
func (a *Adapter) Cleanup() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.client = nil
	a.initialized = false
	return nil
}

func (a *Adapter) IsInitialized() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.initialized
}

func (a *Adapter) Metadata() executor.AdapterMetadata {
	return executor.AdapterMetadata{
		SessionID: a.sessionID,
		ModelName: a.model,
		PID:       a.pid,
	}
}

func toOpenAIMessages(messages []executor.ChatMessage, systemPrompt string) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages)+1)
	if systemPrompt != "" {
		out = append(out, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: systemPrompt})
	}
	for _, m := range messages {
		out = append(out, openai.ChatCompletionMessage{Role: toOpenAIRole(m.Role), Content: m.Content})
	}
	return out
}

func toOpenAIRole(role models.Role) string {
	switch role {
	case models.RoleAssistant:
		return openai.ChatMessageRoleAssistant
	case models.RoleSystem:
		return openai.ChatMessageRoleSystem
	case models.RoleTool:
		return openai.ChatMessageRoleTool
	default:
		return openai.ChatMessageRoleUser
	}
}

func previewContent(messages []executor.ChatMessage) string {
	if len(messages) == 0 {
		return ""
	}
	return previewText(messages[len(messages)-1].Content, 500)
}

func previewText(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
