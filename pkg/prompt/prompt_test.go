package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/minhyannv/ai-chat-go/pkg/config"
	"github.com/minhyannv/ai-chat-go/pkg/tools"
)

func TestBuildSystemPromptPlainChat(t *testing.T) {
	got := BuildSystemPrompt(config.ToolsetNone, nil, Options{})
	assert.Equal(t, "You are a helpful assistant. Provide clear, concise responses.", got)
}

func TestBuildSystemPromptListsTools(t *testing.T) {
	specs := []tools.Spec{
		{Name: "fetch_order_status", Description: "Get the current status\nof a customer order"},
		{Name: "reset_password"},
	}
	got := BuildSystemPrompt(config.ToolsetSupport, specs, Options{})

	assert.True(t, strings.HasPrefix(got, "You are a helpful customer support assistant."))
	assert.Contains(t, got, "## Available Tools\n- **fetch_order_status**: Get the current status of a customer order\n- **reset_password**: No description provided.")
	assert.NotContains(t, got, EnhancedInstructions)
}

func TestBuildSystemPromptEnhanced(t *testing.T) {
	got := BuildSystemPrompt(config.ToolsetSupport, nil, Options{Enhanced: true})
	assert.True(t, strings.HasSuffix(got, "\n\n"+EnhancedInstructions))
}

func TestBuildSystemPromptOverride(t *testing.T) {
	got := BuildSystemPrompt(config.ToolsetAll, nil, Options{Override: " Talk like a pirate. "})
	assert.Equal(t, "Talk like a pirate.", got)
}

func TestBuildSystemPromptAllCombinesRoles(t *testing.T) {
	got := BuildSystemPrompt(config.ToolsetAll, nil, Options{})
	assert.Contains(t, got, "calculator")
	assert.Contains(t, got, "customer support assistant")
}

func TestToolsMarkdownEmpty(t *testing.T) {
	assert.Empty(t, ToolsMarkdown(nil))
}
