package support

import (
	"context"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultOrders(t *testing.T) {
	orders := DefaultOrders()

	cases := map[string]string{
		"A1234":  "shipped",
		"B5678":  "processing",
		"C9012":  "delivered",
		"#a1234": "shipped",
	}
	for id, status := range cases {
		order, err := orders.Lookup(id)
		require.NoError(t, err, id)
		assert.Equal(t, status, order.Status, id)
	}

	a, _ := orders.Lookup("A1234")
	assert.Equal(t, Order{ID: "A1234", Status: "shipped", ETADays: 2, Items: 3, Carrier: "AcmeExpress"}, a)
	assert.Equal(t, []string{"A1234", "B5678", "C9012"}, orders.IDs())
}

func TestLookupUnknownOrder(t *testing.T) {
	_, err := DefaultOrders().Lookup("Z0000")
	require.ErrorIs(t, err, ErrOrderNotFound)
	assert.Equal(t, "order not found: Z0000", err.Error())
}

func TestLoadOrdersRejectsDuplicates(t *testing.T) {
	_, err := LoadOrders(strings.NewReader("orders:\n  - id: a1\n  - id: A1\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate order A1")

	_, err = LoadOrders(strings.NewReader("orders:\n  - status: shipped\n"))
	require.Error(t, err)
}

func TestNewTicketID(t *testing.T) {
	pattern := regexp.MustCompile(`^TIC-[0-9A-F]{8}$`)
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		id := NewTicketID()
		require.Regexp(t, pattern, id)
		seen[id] = true
	}
	assert.Len(t, seen, 50)
}

func TestNewTicketDefaultsPriority(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	ticket := NewTicket(" login broken ", "a@example.com", "", now)

	assert.Equal(t, "normal", ticket.Priority)
	assert.Equal(t, "open", ticket.Status)
	assert.Equal(t, "login broken", ticket.Summary)
	assert.Equal(t, now, ticket.CreatedAt)
}

func testTicketStore(t *testing.T, store TicketStore) {
	t.Helper()
	ctx := context.Background()
	ticket := NewTicket("refund", "b@example.com", "high", time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))

	require.NoError(t, store.Create(ctx, ticket))
	require.Error(t, store.Create(ctx, ticket))

	got, err := store.Get(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, ticket, got)

	_, err = store.Get(ctx, "TIC-MISSING")
	assert.ErrorIs(t, err, ErrTicketNotFound)
	require.NoError(t, store.Close())
}

func TestMemoryTickets(t *testing.T) {
	store, err := OpenTicketStore("")
	require.NoError(t, err)
	_, ok := store.(*MemoryTickets)
	require.True(t, ok)
	testTicketStore(t, store)
}

func TestSQLiteTickets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "tickets.db")
	store, err := OpenTicketStore(path)
	require.NoError(t, err)
	_, ok := store.(*SQLiteTickets)
	require.True(t, ok)
	testTicketStore(t, store)

	reopened, err := OpenSQLiteTickets(path)
	require.NoError(t, err)
	defer reopened.Close()
	_, err = reopened.Get(context.Background(), "TIC-MISSING")
	assert.ErrorIs(t, err, ErrTicketNotFound)
}

func TestResets(t *testing.T) {
	resets := NewResets()
	resets.now = func() time.Time { return time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC) }

	first := resets.Request(" User@Example.com ")
	assert.Regexp(t, `^[0-9a-f]{12}$`, first.Token)
	assert.Equal(t, "user@example.com", first.Email)
	assert.Equal(t, "pending", first.Status)

	second := resets.Request("user@example.com")
	assert.NotEqual(t, first.Token, second.Token)

	got, ok := resets.Pending("USER@example.com")
	require.True(t, ok)
	assert.Equal(t, second, got)

	_, ok = resets.Pending("other@example.com")
	assert.False(t, ok)
}
