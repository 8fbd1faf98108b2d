package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConversationTruncate(t *testing.T) {
	c := NewConversation(0)
	c.Append(Message{Role: RoleUser, Content: "a"}, Message{Role: RoleAssistant, Content: "b"})
	c.Append(Message{Role: RoleUser, Content: "c"})

	c.Truncate(2)
	assert.Equal(t, 2, c.Len())
	c.Truncate(5)
	assert.Equal(t, 2, c.Len())
	c.Truncate(-1)
	assert.Zero(t, c.Len())
}

func TestConversationMessagesIsCopy(t *testing.T) {
	c := NewConversation(0)
	c.Append(Message{Role: RoleUser, Content: "a"})

	msgs := c.Messages()
	msgs[0].Content = "changed"
	assert.Equal(t, "a", c.Messages()[0].Content)
}

func TestWindowNeverStartsWithToolMessage(t *testing.T) {
	c := NewConversation(0)
	c.Append(
		Message{Role: RoleTool, ToolCallID: "stale"},
		Message{Role: RoleUser, Content: "q"},
	)

	assert.Equal(t, []Role{RoleUser}, roles(c.Window()))
}

func TestWindowKeepsCurrentTurnLongerThanLimit(t *testing.T) {
	c := NewConversation(4)
	c.Append(
		Message{Role: RoleUser, Content: "old"},
		Message{Role: RoleAssistant, Content: "old answer"},
		Message{Role: RoleUser, Content: "q"},
		Message{Role: RoleAssistant, ToolCalls: []ToolCall{{ID: "1"}, {ID: "2"}, {ID: "3"}, {ID: "4"}}},
		Message{Role: RoleTool, ToolCallID: "1"},
		Message{Role: RoleTool, ToolCallID: "2"},
		Message{Role: RoleTool, ToolCallID: "3"},
		Message{Role: RoleTool, ToolCallID: "4"},
	)

	w := c.Window()
	assert.Len(t, w, 6)
	assert.Equal(t, RoleUser, w[0].Role)
	assert.Equal(t, "q", w[0].Content)
	assert.Equal(t, 8, c.Len())
}

func TestWindowDropsWholeTurns(t *testing.T) {
	c := NewConversation(3)
	c.Append(
		Message{Role: RoleUser, Content: "a"},
		Message{Role: RoleAssistant, ToolCalls: []ToolCall{{ID: "1"}}},
		Message{Role: RoleTool, ToolCallID: "1"},
		Message{Role: RoleAssistant, Content: "A"},
		Message{Role: RoleUser, Content: "b"},
		Message{Role: RoleAssistant, Content: "B"},
	)

	w := c.Window()
	assert.Equal(t, []Role{RoleUser, RoleAssistant}, roles(w))
	assert.Equal(t, "b", w[0].Content)
}

func TestWindowUnbounded(t *testing.T) {
	c := NewConversation(0)
	for i := 0; i < 50; i++ {
		c.Append(Message{Role: RoleUser})
	}
	assert.Len(t, c.Window(), 50)
}
