package chat

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minhyannv/ai-chat-go/pkg/tools"
)

func completionServer(t *testing.T, status int, body string, seen *map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		raw, err := io.ReadAll(r.Body)
		if err == nil && seen != nil {
			_ = json.Unmarshal(raw, seen)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testOpenAIModel(srv *httptest.Server) *OpenAIModel {
	return NewOpenAIModel(OpenAIConfig{
		APIKey:         "test-key",
		BaseURL:        srv.URL + "/v1/",
		HTTPClient:     srv.Client(),
		DisableRetries: true,
	})
}

func TestOpenAIModelDirectReply(t *testing.T) {
	var seen map[string]any
	srv := completionServer(t, http.StatusOK, `{
		"id": "cmpl-1", "object": "chat.completion", "created": 1, "model": "gpt-4o-mini",
		"choices": [{"index": 0, "finish_reason": "stop",
			"message": {"role": "assistant", "content": "Hello!"}}],
		"usage": {"prompt_tokens": 12, "completion_tokens": 3, "total_tokens": 15}
	}`, &seen)

	resp, err := testOpenAIModel(srv).Complete(context.Background(), Request{
		Model:    "gpt-4o-mini",
		System:   "be brief",
		Messages: []Message{{Role: RoleUser, Content: "hi"}},
	})
	require.NoError(t, err)

	reply, ok := resp.(DirectReply)
	require.True(t, ok)
	assert.Equal(t, "Hello!", reply.Content)
	assert.Equal(t, "stop", reply.FinishReason)
	assert.Equal(t, Usage{InputTokens: 12, OutputTokens: 3}, reply.Usage)

	assert.Equal(t, "gpt-4o-mini", seen["model"])
	msgs, ok := seen["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
	_, hasTools := seen["tools"]
	assert.False(t, hasTools)
}

func TestOpenAIModelToolCalls(t *testing.T) {
	var seen map[string]any
	srv := completionServer(t, http.StatusOK, `{
		"id": "cmpl-2", "object": "chat.completion", "created": 1, "model": "gpt-4o-mini",
		"choices": [{"index": 0, "finish_reason": "tool_calls",
			"message": {"role": "assistant", "content": null, "tool_calls": [
				{"id": "call_1", "type": "function", "function": {"name": "calculator", "arguments": "{\"expression\":\"2+2\"}"}}
			]}}],
		"usage": {"prompt_tokens": 20, "completion_tokens": 8, "total_tokens": 28}
	}`, &seen)

	temp := 0.3
	resp, err := testOpenAIModel(srv).Complete(context.Background(), Request{
		Model:       "gpt-4o-mini",
		Messages:    []Message{{Role: RoleUser, Content: "what is 2+2"}},
		Tools:       []tools.Spec{tools.CalculatorSpec()},
		Temperature: &temp,
	})
	require.NoError(t, err)

	req, ok := resp.(ToolCallRequest)
	require.True(t, ok)
	require.Len(t, req.Calls, 1)
	assert.Equal(t, ToolCall{ID: "call_1", Name: "calculator", Arguments: `{"expression":"2+2"}`}, req.Calls[0])
	assert.Equal(t, "tool_calls", req.FinishReason)

	defs, ok := seen["tools"].([]any)
	require.True(t, ok)
	require.Len(t, defs, 1)
	fn := defs[0].(map[string]any)["function"].(map[string]any)
	assert.Equal(t, "calculator", fn["name"])
	assert.InDelta(t, 0.3, seen["temperature"], 1e-9)
}

func TestOpenAIModelErrorStatus(t *testing.T) {
	srv := completionServer(t, http.StatusInternalServerError, `{"error": {"message": "overloaded", "type": "server_error"}}`, nil)

	_, err := testOpenAIModel(srv).Complete(context.Background(), Request{
		Model:    "gpt-4o-mini",
		Messages: []Message{{Role: RoleUser, Content: "hi"}},
	})
	require.Error(t, err)
}

func TestToOpenAIMessagesKeepsToolPairs(t *testing.T) {
	out := toOpenAIMessages("system prompt", []Message{
		{Role: RoleUser, Content: "hi"},
		{Role: RoleAssistant, ToolCalls: []ToolCall{{ID: "c1", Name: "echo", Arguments: "{}"}}},
		{Role: RoleTool, ToolCallID: "c1", Content: "ok"},
		{Role: RoleAssistant, Content: "done"},
	})
	require.Len(t, out, 5)
	require.NotNil(t, out[0].OfSystem)
	require.NotNil(t, out[2].OfAssistant)
	require.Len(t, out[2].OfAssistant.ToolCalls, 1)
	assert.Equal(t, "c1", out[2].OfAssistant.ToolCalls[0].ID)
	require.NotNil(t, out[3].OfTool)
	assert.Equal(t, "c1", out[3].OfTool.ToolCallID)
}

func TestToOpenAIMessagesWithoutSystem(t *testing.T) {
	out := toOpenAIMessages("", []Message{{Role: RoleUser, Content: "hi"}})
	require.Len(t, out, 1)
	assert.NotNil(t, out[0].OfUser)
}
