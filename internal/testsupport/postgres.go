package testsupport

import (
	"context"
	"os"
	"strconv"
	"testing"

	"github.com/joho/godotenv"

	"hermes/internal/adapters/config"
	"hermes/internal/adapters/postgres"
)

// TestPostgres wraps a database connection for integration tests.
// Tests share one database; callers use random user IDs to stay isolated
// and CleanupUser to drop what they created.
type TestPostgres struct {
	client *postgres.Client
	t      *testing.T
}

// NewTestPostgres connects to the test database described by the
// environment (optionally via .env.test) and ensures the schema exists.
// The test is skipped when no test database is configured.
func NewTestPostgres(t *testing.T) *TestPostgres {
	t.Helper()

	_ = godotenv.Load(".env.test")

	host := os.Getenv("POSTGRES_HOST")
	if host == "" {
		t.Skip("POSTGRES_HOST not set, skipping integration test")
	}

	cfg := config.PostgresConfig{
		Host:     host,
		Port:     envInt("POSTGRES_PORT", 5432),
		User:     envOr("POSTGRES_USER", "postgres"),
		Password: envOr("POSTGRES_PASSWORD", "postgres"),
		Database: envOr("POSTGRES_DB", "hermes_test"),
		SSLMode:  envOr("POSTGRES_SSL_MODE", "disable"),
		MaxConns: 5,
	}

	client, err := postgres.NewClient(cfg)
	if err != nil {
		t.Fatalf("failed to connect to test postgres: %v", err)
	}

	if err := postgres.EnsureSchema(context.Background(), client.DB()); err != nil {
		_ = client.Close()
		t.Fatalf("failed to ensure schema: %v", err)
	}

	helper := &TestPostgres{client: client, t: t}
	t.Cleanup(func() { _ = client.Close() })
	return helper
}

// Client returns the underlying postgres client
func (p *TestPostgres) Client() *postgres.Client {
	return p.client
}

// CleanupUser removes the ledger rows created for one test user
func (p *TestPostgres) CleanupUser(userID int64) {
	p.t.Helper()

	db := p.client.DB()
	if _, err := db.Exec(`DELETE FROM request_history WHERE user_id = $1`, userID); err != nil {
		p.t.Errorf("cleanup request_history for %d: %v", userID, err)
	}
	if _, err := db.Exec(`DELETE FROM user_statistics WHERE user_id = $1`, userID); err != nil {
		p.t.Errorf("cleanup user_statistics for %d: %v", userID, err)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
