package chat

import (
	"context"
	"fmt"

	"github.com/minhyannv/ai-chat-go/pkg/tools"
)

// Request is one model call.
type Request struct {
	Model       string
	System      string
	Messages    []Message
	Tools       []tools.Spec
	Temperature *float64
	MaxTokens   *int64
}

// Usage counts tokens reported by the model API.
type Usage struct {
	InputTokens  int64
	OutputTokens int64
}

func (u Usage) add(o Usage) Usage {
	return Usage{InputTokens: u.InputTokens + o.InputTokens, OutputTokens: u.OutputTokens + o.OutputTokens}
}

// Response is either a DirectReply or a ToolCallRequest.
type Response interface {
	response()
}

// DirectReply is a final natural-language answer.
type DirectReply struct {
	Content      string
	FinishReason string
	Usage        Usage
}

// ToolCallRequest asks the caller to run tools and send back their results.
type ToolCallRequest struct {
	Content      string
	Calls        []ToolCall
	FinishReason string
	Usage        Usage
}

func (DirectReply) response()     {}
func (ToolCallRequest) response() {}

// Model produces a completion for a request.
type Model interface {
	Complete(ctx context.Context, req Request) (Response, error)
}

// ModelCallError reports a failed model call. The turn that caused it has
// been discarded from the conversation.
type ModelCallError struct {
	Model string
	Err   error
}

func (e *ModelCallError) Error() string {
	if e.Model == "" {
		return fmt.Sprintf("model call failed: %v", e.Err)
	}
	return fmt.Sprintf("model call to %s failed: %v", e.Model, e.Err)
}

func (e *ModelCallError) Unwrap() error {
	return e.Err
}
