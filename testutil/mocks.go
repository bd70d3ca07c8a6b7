// Package testutil provides shared test helpers for agentflow's packages.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

// SetupOpenAIMock creates a mock OpenAI chat-completions server, used by
// the reference ModelAdapter's tests in place of a live API key.
func SetupOpenAIMock(t *testing.T) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		response := map[string]interface{}{
			"id":      "chatcmpl-test-123",
			"object":  "chat.completion",
			"created": 1234567890,
			"model":   "gpt-4",
			"choices": []map[string]interface{}{
				{
					"index": 0,
					"message": map[string]interface{}{
						"role":    "assistant",
						"content": "Mocked LLM response",
					},
					"finish_reason": "stop",
				},
			},
			"usage": map[string]interface{}{
				"prompt_tokens":     10,
				"completion_tokens": 20,
				"total_tokens":      30,
			},
		}

		json.NewEncoder(w).Encode(response)
	}))
}

// SetupOpenAIToolCallMock creates a mock OpenAI server that returns tool calls.
func SetupOpenAIToolCallMock(t *testing.T, toolCalls []map[string]interface{}) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		response := map[string]interface{}{
			"id":      "chatcmpl-test-123",
			"object":  "chat.completion",
			"created": 1234567890,
			"model":   "gpt-4",
			"choices": []map[string]interface{}{
				{
					"index": 0,
					"message": map[string]interface{}{
						"role":       "assistant",
						"content":    nil,
						"tool_calls": toolCalls,
					},
					"finish_reason": "tool_calls",
				},
			},
			"usage": map[string]interface{}{
				"prompt_tokens":     10,
				"completion_tokens": 20,
				"total_tokens":      30,
			},
		}

		json.NewEncoder(w).Encode(response)
	}))
}

// SetupOpenAIErrorMock creates a mock OpenAI server that always returns an
// HTTP error, for exercising the resilience layer's fallback ladder.
func SetupOpenAIErrorMock(t *testing.T, status int, message string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": map[string]interface{}{
				"message": message,
				"type":    "server_error",
			},
		})
	}))
}

// SetupCustomMock creates a custom mock server with a provided handler.
func SetupCustomMock(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	return httptest.NewServer(handler)
}
