package ledger

import "context"

// User identifies the user behind a cost-bearing call with the
// display fields seen at call time
type User struct {
	UserID    int64
	Username  string
	FirstName string
	LastName  string
}

// Usage is the billed outcome of one exchange as reported by the provider
type Usage struct {
	GenerationID     string
	Command          string
	Cost             float64
	Model            string
	TokensPrompt     int
	TokensCompletion int
}

// Repository persists spend aggregates and their entries
type Repository interface {
	// RecordUsage upserts the user's account and appends one entry
	// atomically. Concurrent calls for the same user must not lose
	// updates.
	RecordUsage(ctx context.Context, user User, usage Usage) error

	// ListAccounts returns all accounts ordered by total spend, highest
	// first
	ListAccounts(ctx context.Context) ([]UserAccount, error)

	// GetAccount returns the account for a user, errors.ErrNotFound when
	// the user has no cost-bearing calls yet
	GetAccount(ctx context.Context, userID int64) (*UserAccount, error)

	// UserHistory returns the user's most recent entries, newest first
	UserHistory(ctx context.Context, userID int64, limit int) ([]Entry, error)
}
