package tools

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minhyannv/ai-chat-go/pkg/config"
	"github.com/minhyannv/ai-chat-go/pkg/support"
)

func newSupportRegistry(t *testing.T) (*Registry, *support.MemoryTickets, *support.Resets) {
	t.Helper()
	tickets := support.NewMemoryTickets()
	resets := support.NewResets()
	r := New()
	require.NoError(t, RegisterToolset(r, config.ToolsetSupport, Builtins{Support: SupportTools{
		Orders:  support.DefaultOrders(),
		Tickets: tickets,
		Resets:  resets,
		Now:     func() time.Time { return time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC) },
	}}))
	return r, tickets, resets
}

func TestFetchOrderStatus(t *testing.T) {
	r, _, _ := newSupportRegistry(t)

	for id, status := range map[string]string{"A1234": "shipped", "B5678": "processing", "C9012": "delivered"} {
		out, err := r.Invoke(context.Background(), "fetch_order_status", map[string]any{"order_id": id})
		require.NoError(t, err, id)

		var got map[string]any
		require.NoError(t, json.Unmarshal([]byte(out), &got))
		assert.Equal(t, true, got["found"])
		assert.Equal(t, id, got["order_id"])
		assert.Equal(t, status, got["status"])
	}

	_, err := r.Invoke(context.Background(), "fetch_order_status", map[string]any{"order_id": "Z9999"})
	require.ErrorIs(t, err, ErrToolExecution)
	assert.ErrorIs(t, err, support.ErrOrderNotFound)
	assert.Contains(t, err.Error(), "order not found")
}

func TestCreateTicket(t *testing.T) {
	r, tickets, _ := newSupportRegistry(t)

	out, err := r.Invoke(context.Background(), "create_ticket", map[string]any{
		"summary":    "Cannot log in",
		"user_email": "pat@example.com",
		"priority":   "urgent",
	})
	require.NoError(t, err)

	var got map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Regexp(t, `^TIC-[0-9A-F]{8}$`, got["ticket_id"])
	assert.Equal(t, "open", got["status"])
	assert.Equal(t, "urgent", got["priority"])
	assert.Equal(t, 1, tickets.Len())

	stored, err := tickets.Get(context.Background(), got["ticket_id"])
	require.NoError(t, err)
	assert.Equal(t, "pat@example.com", stored.Email)

	_, err = r.Invoke(context.Background(), "create_ticket", map[string]any{"summary": "x", "user_email": "y", "priority": "asap"})
	assert.ErrorIs(t, err, ErrInvalidParameters)
	assert.Equal(t, 1, tickets.Len())
}

func TestResetPassword(t *testing.T) {
	r, _, resets := newSupportRegistry(t)

	out, err := r.Invoke(context.Background(), "reset_password", map[string]any{"email": "pat@example.com"})
	require.NoError(t, err)

	var got map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Regexp(t, `^[0-9a-f]{12}$`, got["reset_token"])
	assert.Equal(t, "Password reset link emailed if account exists.", got["instructions"])

	pending, ok := resets.Pending("pat@example.com")
	require.True(t, ok)
	assert.Equal(t, got["reset_token"], pending.Token)
}

func TestBuiltinSpecsPerToolset(t *testing.T) {
	search, err := NewWebSearch(SearchOptions{})
	require.NoError(t, err)
	b := Builtins{Search: search}

	names := func(toolset string) []string {
		specs, err := BuiltinSpecs(toolset, b)
		require.NoError(t, err)
		var out []string
		for _, s := range specs {
			out = append(out, s.Name)
		}
		return out
	}
	assert.Empty(t, names(config.ToolsetNone))
	assert.Equal(t, []string{"web_search", "calculator"}, names(config.ToolsetAssistant))
	assert.Equal(t, []string{"create_ticket", "fetch_order_status", "reset_password"}, names(config.ToolsetSupport))
	assert.Equal(t, []string{"web_search", "calculator", "create_ticket", "fetch_order_status", "reset_password"}, names(config.ToolsetAll))

	_, err = BuiltinSpecs("everything", b)
	assert.Error(t, err)
	_, err = BuiltinSpecs(config.ToolsetAssistant, Builtins{})
	assert.Error(t, err)
}
