package ledger

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// UserAccount is the running spend aggregate for one bot user.
// Totals only ever grow; entries are never deleted by this subsystem.
type UserAccount struct {
	UserID        int64           `db:"user_id"`
	Username      string          `db:"username"`
	FirstName     string          `db:"first_name"`
	LastName      string          `db:"last_name"`
	TotalSpent    decimal.Decimal `db:"total_spent"`
	TotalRequests int64           `db:"total_requests"`
	LastRequestAt time.Time       `db:"last_request_date"`
	CreatedAt     time.Time       `db:"created_at"`
}

// DisplayName prefers the username, falling back to real name parts
func (a UserAccount) DisplayName() string {
	if a.Username != "" {
		return "@" + a.Username
	}
	name := strings.TrimSpace(a.FirstName + " " + a.LastName)
	if name != "" {
		return name
	}
	return "unknown"
}

// Entry is one billed provider exchange
type Entry struct {
	ID               uuid.UUID       `db:"id"`
	UserID           int64           `db:"user_id"`
	GenerationID     string          `db:"generation_id"`
	Command          string          `db:"command"`
	Cost             decimal.Decimal `db:"cost"`
	Model            string          `db:"model"`
	TokensPrompt     int             `db:"tokens_prompt"`
	TokensCompletion int             `db:"tokens_completion"`
	RequestedAt      time.Time       `db:"request_date"`
}
