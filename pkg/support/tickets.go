package support

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ErrTicketNotFound is returned by TicketStore.Get for unknown ids.
var ErrTicketNotFound = errors.New("ticket not found")

type Ticket struct {
	ID        string    `json:"ticket_id"`
	Summary   string    `json:"summary"`
	Email     string    `json:"user_email"`
	Priority  string    `json:"priority"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// TicketStore persists support tickets.
type TicketStore interface {
	Create(ctx context.Context, t Ticket) error
	Get(ctx context.Context, id string) (Ticket, error)
	Close() error
}

// NewTicketID returns an id of the form TIC-XXXXXXXX.
func NewTicketID() string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "TIC-" + strings.ToUpper(hex[:8])
}

// NewTicket fills in id, status and creation time for a new open ticket.
func NewTicket(summary, email, priority string, now time.Time) Ticket {
	if strings.TrimSpace(priority) == "" {
		priority = "normal"
	}
	return Ticket{
		ID:        NewTicketID(),
		Summary:   strings.TrimSpace(summary),
		Email:     strings.TrimSpace(email),
		Priority:  priority,
		Status:    "open",
		CreatedAt: now.UTC(),
	}
}

// OpenTicketStore returns a SQLite-backed store when path is set and an
// in-memory store otherwise.
func OpenTicketStore(path string) (TicketStore, error) {
	if strings.TrimSpace(path) == "" {
		return NewMemoryTickets(), nil
	}
	return OpenSQLiteTickets(path)
}

// MemoryTickets keeps tickets for the lifetime of the process.
type MemoryTickets struct {
	mu      sync.Mutex
	tickets map[string]Ticket
}

func NewMemoryTickets() *MemoryTickets {
	return &MemoryTickets{tickets: make(map[string]Ticket)}
}

func (m *MemoryTickets) Create(_ context.Context, t Ticket) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tickets[t.ID]; ok {
		return fmt.Errorf("ticket %s already exists", t.ID)
	}
	m.tickets[t.ID] = t
	return nil
}

func (m *MemoryTickets) Get(_ context.Context, id string) (Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tickets[id]
	if !ok {
		return Ticket{}, fmt.Errorf("%w: %s", ErrTicketNotFound, id)
	}
	return t, nil
}

// Len reports how many tickets are stored.
func (m *MemoryTickets) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tickets)
}

func (m *MemoryTickets) Close() error { return nil }

const ticketSchema = `
CREATE TABLE IF NOT EXISTS tickets (
	id         TEXT PRIMARY KEY,
	summary    TEXT NOT NULL,
	email      TEXT NOT NULL,
	priority   TEXT NOT NULL,
	status     TEXT NOT NULL,
	created_at INTEGER NOT NULL
);`

// SQLiteTickets stores tickets in a SQLite database file.
type SQLiteTickets struct {
	db *sql.DB
}

// OpenSQLiteTickets opens (and creates if needed) the database at path.
func OpenSQLiteTickets(path string) (*SQLiteTickets, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create ticket db directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open ticket db: %w", err)
	}
	// single writer
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set pragma: %w", err)
	}
	if _, err := db.Exec(ticketSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init ticket schema: %w", err)
	}
	return &SQLiteTickets{db: db}, nil
}

func (s *SQLiteTickets) Create(ctx context.Context, t Ticket) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tickets (id, summary, email, priority, status, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		t.ID, t.Summary, t.Email, t.Priority, t.Status, t.CreatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("insert ticket %s: %w", t.ID, err)
	}
	return nil
}

func (s *SQLiteTickets) Get(ctx context.Context, id string) (Ticket, error) {
	var (
		t       Ticket
		created int64
	)
	row := s.db.QueryRowContext(ctx,
		`SELECT id, summary, email, priority, status, created_at FROM tickets WHERE id = ?`, id)
	if err := row.Scan(&t.ID, &t.Summary, &t.Email, &t.Priority, &t.Status, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Ticket{}, fmt.Errorf("%w: %s", ErrTicketNotFound, id)
		}
		return Ticket{}, fmt.Errorf("query ticket %s: %w", id, err)
	}
	t.CreatedAt = time.Unix(0, created).UTC()
	return t, nil
}

func (s *SQLiteTickets) Close() error {
	return s.db.Close()
}
