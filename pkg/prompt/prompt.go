// Package prompt assembles system prompts for each toolset.
package prompt

import (
	"fmt"
	"strings"

	"github.com/minhyannv/ai-chat-go/pkg/config"
	"github.com/minhyannv/ai-chat-go/pkg/tools"
)

const (
	chatPrompt = "You are a helpful assistant. Provide clear, concise responses."

	assistantPrompt = "You are a helpful assistant with access to tools. " +
		"Use web_search for current events or facts you are unsure about, and calculator for any arithmetic. " +
		"Answer from the tool results and say so when a tool fails."

	supportPrompt = `You are a helpful customer support assistant.
You have access to tools to help customers with their inquiries:
- Create support tickets for general issues
- Look up order status and shipping information
- Initiate password resets for login problems

Always be friendly, helpful, and provide clear next steps to customers.`

	// EnhancedInstructions is appended when enhanced responses are enabled.
	EnhancedInstructions = "Provide detailed, comprehensive responses with helpful context."
)

// Options adjust the base prompt per request.
type Options struct {
	Enhanced bool
	// Override replaces the base prompt, e.g. with AI Config system messages.
	Override string
}

// BuildSystemPrompt constructs the system prompt for toolset, including tool metadata.
func BuildSystemPrompt(toolset string, specs []tools.Spec, opts Options) string {
	var sb strings.Builder
	if base := strings.TrimSpace(opts.Override); base != "" {
		sb.WriteString(base)
	} else {
		sb.WriteString(basePrompt(toolset))
	}

	if md := ToolsMarkdown(specs); md != "" {
		sb.WriteString("\n\n")
		sb.WriteString(md)
	}
	if opts.Enhanced {
		sb.WriteString("\n\n")
		sb.WriteString(EnhancedInstructions)
	}
	return strings.TrimSpace(sb.String())
}

func basePrompt(toolset string) string {
	switch toolset {
	case config.ToolsetNone:
		return chatPrompt
	case config.ToolsetAssistant:
		return assistantPrompt
	case config.ToolsetSupport:
		return supportPrompt
	default:
		return assistantPrompt + "\n\n" + supportPrompt
	}
}

// ToolsMarkdown renders a markdown listing of available tools.
func ToolsMarkdown(specs []tools.Spec) string {
	if len(specs) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("## Available Tools\n")
	for _, spec := range specs {
		desc := sanitizeMarkdown(spec.Description)
		if desc == "" {
			desc = "No description provided."
		}
		sb.WriteString(fmt.Sprintf("- **%s**: %s\n", sanitizeMarkdown(spec.Name), desc))
	}
	return strings.TrimSpace(sb.String())
}

// sanitizeMarkdown keeps markdown fields single-line and trimmed.
func sanitizeMarkdown(value string) string {
	value = strings.ReplaceAll(value, "\n", " ")
	value = strings.ReplaceAll(value, "\r", " ")
	return strings.TrimSpace(value)
}
