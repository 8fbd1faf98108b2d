package chat

// Role identifies the author of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"

	// roleDeveloper is accepted in AI Config messages and folded into the
	// system prompt.
	roleDeveloper Role = "developer"
)

// ToolCall is a function call requested by the model.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

// Message is one conversation entry. Assistant messages may carry ToolCalls;
// tool messages answer one of them via ToolCallID.
type Message struct {
	Role       Role
	Content    string
	ToolCalls  []ToolCall
	ToolCallID string
	ToolName   string
	IsError    bool
}

// Conversation is the ordered message history of one session. Every tool
// message follows the assistant message that requested it.
type Conversation struct {
	messages   []Message
	maxHistory int
}

// NewConversation returns an empty conversation whose request window holds
// at most maxHistory messages (unbounded when maxHistory <= 0).
func NewConversation(maxHistory int) *Conversation {
	return &Conversation{maxHistory: maxHistory}
}

func (c *Conversation) Len() int {
	return len(c.messages)
}

func (c *Conversation) Append(msgs ...Message) {
	c.messages = append(c.messages, msgs...)
}

// Messages returns a copy of the full history.
func (c *Conversation) Messages() []Message {
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Truncate drops every message after the first n.
func (c *Conversation) Truncate(n int) {
	if n < 0 {
		n = 0
	}
	if n < len(c.messages) {
		clear(c.messages[n:])
		c.messages = c.messages[:n]
	}
}

func (c *Conversation) Clear() {
	c.Truncate(0)
}

// Window returns the most recent messages sent to the model. It starts at a
// user message and keeps whole turns: older turns are dropped to fit
// maxHistory, but the current turn is always kept even when it alone is
// longer.
func (c *Conversation) Window() []Message {
	start := 0
	if c.maxHistory > 0 && len(c.messages) > c.maxHistory {
		start = c.turnStart(len(c.messages) - c.maxHistory)
	}
	for start < len(c.messages) && c.messages[start].Role == RoleTool {
		start++
	}
	out := make([]Message, len(c.messages)-start)
	copy(out, c.messages[start:])
	return out
}

// turnStart returns the first user message at or after min, or the last
// user message when the newest turn begins before min.
func (c *Conversation) turnStart(min int) int {
	last := -1
	for i, msg := range c.messages {
		if msg.Role != RoleUser {
			continue
		}
		if i >= min {
			return i
		}
		last = i
	}
	if last >= 0 {
		return last
	}
	return min
}
