package postgres

import (
	"context"
	"math/rand"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hermes/internal/domain/ledger"
	"hermes/internal/testsupport"
	"hermes/pkg/errors"
)

func randomUserID() int64 {
	return 100000000 + rand.Int63n(900000000)
}

func testUser(id int64) ledger.User {
	return ledger.User{
		UserID:    id,
		Username:  "tester",
		FirstName: "Test",
		LastName:  "User",
	}
}

func TestLedgerRepository_RecordUsage(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := testsupport.NewTestPostgres(t)
	repo := NewLedgerRepository(testDB.Client().DB())
	ctx := context.Background()

	t.Run("creates account on first usage", func(t *testing.T) {
		userID := randomUserID()
		t.Cleanup(func() { testDB.CleanupUser(userID) })

		err := repo.RecordUsage(ctx, testUser(userID), ledger.Usage{
			GenerationID: "gen-first",
			Command:      "imagegen",
			Cost:         0.0123,
			Model:        "gemini-flash-image",
			TokensPrompt: 42,
		})
		require.NoError(t, err)

		account, err := repo.GetAccount(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, "tester", account.Username)
		assert.EqualValues(t, 1, account.TotalRequests)
		assert.True(t, account.TotalSpent.Equal(decimal.NewFromFloat(0.0123)),
			"total_spent = %s", account.TotalSpent)
		assert.False(t, account.LastRequestAt.IsZero())
	})

	t.Run("increments totals on subsequent usage", func(t *testing.T) {
		userID := randomUserID()
		t.Cleanup(func() { testDB.CleanupUser(userID) })

		for _, cost := range []float64{0.01, 0.02, 0.03} {
			err := repo.RecordUsage(ctx, testUser(userID), ledger.Usage{
				Command: "describe",
				Cost:    cost,
			})
			require.NoError(t, err)
		}

		account, err := repo.GetAccount(ctx, userID)
		require.NoError(t, err)
		assert.EqualValues(t, 3, account.TotalRequests)
		assert.True(t, account.TotalSpent.Equal(decimal.NewFromFloat(0.06)),
			"total_spent = %s", account.TotalSpent)
	})

	t.Run("updates display fields to last seen values", func(t *testing.T) {
		userID := randomUserID()
		t.Cleanup(func() { testDB.CleanupUser(userID) })

		require.NoError(t, repo.RecordUsage(ctx, testUser(userID), ledger.Usage{Command: "describe"}))

		renamed := testUser(userID)
		renamed.Username = "renamed"
		require.NoError(t, repo.RecordUsage(ctx, renamed, ledger.Usage{Command: "describe"}))

		account, err := repo.GetAccount(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, "renamed", account.Username)
	})

	t.Run("totals stay consistent with history", func(t *testing.T) {
		userID := randomUserID()
		t.Cleanup(func() { testDB.CleanupUser(userID) })

		require.NoError(t, repo.RecordUsage(ctx, testUser(userID), ledger.Usage{
			GenerationID: "gen-a", Command: "imagegen", Cost: 0.05, Model: "m1",
		}))
		require.NoError(t, repo.RecordUsage(ctx, testUser(userID), ledger.Usage{
			GenerationID: "gen-b", Command: "describe", Cost: 0.07, Model: "m2",
		}))

		entries, err := repo.UserHistory(ctx, userID, 10)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, "gen-b", entries[0].GenerationID)

		sum := decimal.Zero
		for _, e := range entries {
			sum = sum.Add(e.Cost)
		}
		account, err := repo.GetAccount(ctx, userID)
		require.NoError(t, err)
		assert.True(t, account.TotalSpent.Equal(sum))
		assert.EqualValues(t, len(entries), account.TotalRequests)
	})
}

func TestLedgerRepository_ConcurrentSameUser(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := testsupport.NewTestPostgres(t)
	repo := NewLedgerRepository(testDB.Client().DB())
	ctx := context.Background()

	userID := randomUserID()
	t.Cleanup(func() { testDB.CleanupUser(userID) })

	const writers = 10
	var wg sync.WaitGroup
	errs := make(chan error, writers)

	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- repo.RecordUsage(ctx, testUser(userID), ledger.Usage{
				Command: "imagegen",
				Cost:    0.001,
			})
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	account, err := repo.GetAccount(ctx, userID)
	require.NoError(t, err)
	assert.EqualValues(t, writers, account.TotalRequests)
	assert.True(t, account.TotalSpent.Equal(decimal.NewFromFloat(0.001).Mul(decimal.NewFromInt(writers))),
		"total_spent = %s", account.TotalSpent)
}

func TestLedgerRepository_GetAccountNotFound(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := testsupport.NewTestPostgres(t)
	repo := NewLedgerRepository(testDB.Client().DB())

	_, err := repo.GetAccount(context.Background(), randomUserID())
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}
