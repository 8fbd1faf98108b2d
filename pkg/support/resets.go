package support

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Reset is a pending password reset.
type Reset struct {
	Email     string    `json:"email"`
	Token     string    `json:"reset_token"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// Resets records the latest pending reset per email.
type Resets struct {
	mu      sync.Mutex
	pending map[string]Reset
	now     func() time.Time
}

func NewResets() *Resets {
	return &Resets{pending: make(map[string]Reset), now: time.Now}
}

// Request issues a new 12 hex digit token for email, replacing any earlier one.
func (r *Resets) Request(email string) Reset {
	email = strings.ToLower(strings.TrimSpace(email))
	token := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	reset := Reset{Email: email, Token: token, Status: "pending", CreatedAt: r.now().UTC()}

	r.mu.Lock()
	r.pending[email] = reset
	r.mu.Unlock()
	return reset
}

// Pending returns the outstanding reset for email, if any.
func (r *Resets) Pending(email string) (Reset, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	reset, ok := r.pending[strings.ToLower(strings.TrimSpace(email))]
	return reset, ok
}
