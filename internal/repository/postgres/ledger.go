package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"hermes/internal/domain/ledger"
	"hermes/pkg/errors"
	"hermes/pkg/logger"
)

// LedgerRepository implements ledger.Repository using PostgreSQL.
// Reads go through the DBTX interface; RecordUsage needs the concrete
// *sqlx.DB because it opens its own transaction.
type LedgerRepository struct {
	db  *sqlx.DB
	q   DBTX
	log *logger.Logger
}

// NewLedgerRepository creates a new PostgreSQL ledger repository
func NewLedgerRepository(db *sqlx.DB) *LedgerRepository {
	return &LedgerRepository{
		db:  db,
		q:   db,
		log: logger.Get().With("component", "ledger_repository"),
	}
}

// RecordUsage upserts the user's running totals and appends one history
// entry in a single transaction. The upsert conflicts on user_id, so two
// concurrent calls for the same user serialize on the row lock and neither
// increment is lost.
func (r *LedgerRepository) RecordUsage(ctx context.Context, user ledger.User, usage ledger.Usage) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(errors.ErrLedgerWrite, "begin tx: "+err.Error())
	}
	defer tx.Rollback()

	cost := decimal.NewFromFloat(usage.Cost)
	now := time.Now().UTC()

	upsert := `
		INSERT INTO user_statistics (
			user_id, username, first_name, last_name,
			total_spent, total_requests, last_request_date, created_at
		) VALUES ($1, $2, $3, $4, $5, 1, $6, $6)
		ON CONFLICT (user_id) DO UPDATE SET
			username          = EXCLUDED.username,
			first_name        = EXCLUDED.first_name,
			last_name         = EXCLUDED.last_name,
			total_spent       = user_statistics.total_spent + EXCLUDED.total_spent,
			total_requests    = user_statistics.total_requests + 1,
			last_request_date = EXCLUDED.last_request_date
	`
	if _, err := tx.ExecContext(ctx, upsert,
		user.UserID, user.Username, user.FirstName, user.LastName, cost, now,
	); err != nil {
		return errors.Wrapf(errors.ErrLedgerWrite, "upsert account for user %d: %v", user.UserID, err)
	}

	insert := `
		INSERT INTO request_history (
			id, user_id, generation_id, command, cost,
			model, tokens_prompt, tokens_completion, request_date
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	if _, err := tx.ExecContext(ctx, insert,
		uuid.New(), user.UserID, usage.GenerationID, usage.Command, cost,
		usage.Model, usage.TokensPrompt, usage.TokensCompletion, now,
	); err != nil {
		return errors.Wrapf(errors.ErrLedgerWrite, "insert entry for user %d: %v", user.UserID, err)
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(errors.ErrLedgerWrite, "commit: "+err.Error())
	}

	r.log.Debugw("Usage recorded",
		"user_id", user.UserID, "command", usage.Command, "cost", cost.String())
	return nil
}

// ListAccounts returns all accounts ordered by total spend, highest first
func (r *LedgerRepository) ListAccounts(ctx context.Context) ([]ledger.UserAccount, error) {
	query := `
		SELECT user_id, username, first_name, last_name,
		       total_spent, total_requests, last_request_date, created_at
		FROM user_statistics
		ORDER BY total_spent DESC
	`

	var accounts []ledger.UserAccount
	if err := r.q.SelectContext(ctx, &accounts, query); err != nil {
		return nil, errors.Wrap(err, "list accounts")
	}
	return accounts, nil
}

// GetAccount returns the account for one user
func (r *LedgerRepository) GetAccount(ctx context.Context, userID int64) (*ledger.UserAccount, error) {
	query := `
		SELECT user_id, username, first_name, last_name,
		       total_spent, total_requests, last_request_date, created_at
		FROM user_statistics
		WHERE user_id = $1
	`

	account := &ledger.UserAccount{}
	err := r.q.GetContext(ctx, account, query, userID)
	if err == sql.ErrNoRows {
		return nil, errors.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get account %d", userID)
	}
	return account, nil
}

// UserHistory returns the user's most recent entries, newest first
func (r *LedgerRepository) UserHistory(ctx context.Context, userID int64, limit int) ([]ledger.Entry, error) {
	query := `
		SELECT id, user_id, generation_id, command, cost,
		       model, tokens_prompt, tokens_completion, request_date
		FROM request_history
		WHERE user_id = $1
		ORDER BY request_date DESC
		LIMIT $2
	`

	var entries []ledger.Entry
	if err := r.q.SelectContext(ctx, &entries, query, userID, limit); err != nil {
		return nil, errors.Wrapf(err, "history for user %d", userID)
	}
	return entries, nil
}

var _ ledger.Repository = (*LedgerRepository)(nil)
