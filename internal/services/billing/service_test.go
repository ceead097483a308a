package billing

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hermes/internal/domain/ledger"
	"hermes/internal/providers"
	"hermes/pkg/errors"
	"hermes/pkg/logger"
)

type fakeRepo struct {
	mu       sync.Mutex
	recorded []ledger.Usage
	users    []ledger.User
	fail     bool
}

func (f *fakeRepo) RecordUsage(ctx context.Context, user ledger.User, usage ledger.Usage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.ErrLedgerWrite
	}
	f.recorded = append(f.recorded, usage)
	f.users = append(f.users, user)
	return nil
}

func (f *fakeRepo) ListAccounts(ctx context.Context) ([]ledger.UserAccount, error) {
	return nil, nil
}

func (f *fakeRepo) GetAccount(ctx context.Context, userID int64) (*ledger.UserAccount, error) {
	return nil, errors.ErrNotFound
}

func (f *fakeRepo) UserHistory(ctx context.Context, userID int64, limit int) ([]ledger.Entry, error) {
	return nil, nil
}

func newTestRegistry(t *testing.T, balanceURL string) *providers.Registry {
	t.Helper()

	doc := fmt.Sprintf(`describe:
  provider: openrouter
  providers:
    openrouter:
      url: https://openrouter.ai/api/v1/chat/completions
      key: or-key
      model: gpt-4o
balance:
  provider: openrouter
  providers:
    openrouter:
      url: %s
      key: or-key
      model: none
`, balanceURL)

	path := filepath.Join(t.TempDir(), "providers.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	registry, err := providers.NewRegistry(path, logger.Get())
	require.NoError(t, err)
	return registry
}

func TestService_RecordCost(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "gen-42", r.URL.Query().Get("id"))
		assert.Equal(t, "Bearer or-key", r.Header.Get("Authorization"))
		fmt.Fprint(w, `{"data":{"total_cost":0.0042,"model":"gemini-flash","tokens_prompt":100,"tokens_completion":20}}`)
	}))
	defer srv.Close()

	repo := &fakeRepo{}
	svc := NewService(newTestRegistry(t, srv.URL), repo, srv.URL, nil)

	user := ledger.User{UserID: 7, Username: "alice"}
	svc.RecordCost(context.Background(), "gen-42", user, "imagegen")

	require.Len(t, repo.recorded, 1)
	usage := repo.recorded[0]
	assert.Equal(t, "gen-42", usage.GenerationID)
	assert.Equal(t, "imagegen", usage.Command)
	assert.InDelta(t, 0.0042, usage.Cost, 1e-9)
	assert.Equal(t, "gemini-flash", usage.Model)
	assert.Equal(t, 100, usage.TokensPrompt)
	assert.Equal(t, 20, usage.TokensCompletion)
	assert.Equal(t, user, repo.users[0])
}

func TestService_RecordCost_EmptyGenerationID(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(newTestRegistry(t, "http://unused"), repo, "http://unused", nil)

	svc.RecordCost(context.Background(), "", ledger.User{UserID: 7}, "describe")

	assert.Empty(t, repo.recorded)
}

func TestService_RecordCost_LookupFailureIsSwallowed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	repo := &fakeRepo{}
	svc := NewService(newTestRegistry(t, srv.URL), repo, srv.URL, nil)

	svc.RecordCost(context.Background(), "gen-1", ledger.User{UserID: 7}, "describe")

	assert.Empty(t, repo.recorded)
}

func TestService_RecordCost_RepoFailureIsSwallowed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":{"total_cost":0.01,"model":"m"}}`)
	}))
	defer srv.Close()

	repo := &fakeRepo{fail: true}
	svc := NewService(newTestRegistry(t, srv.URL), repo, srv.URL, nil)

	// Must not panic or propagate the write failure
	svc.RecordCost(context.Background(), "gen-1", ledger.User{UserID: 7}, "describe")

	assert.Empty(t, repo.recorded)
}

func TestService_Balance(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":{"total_credits":25.0,"total_usage":7.5}}`)
	}))
	defer srv.Close()

	svc := NewService(newTestRegistry(t, srv.URL), &fakeRepo{}, srv.URL, nil)

	balance, err := svc.Balance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "25", balance.TotalCredits.String())
	assert.Equal(t, "7.5", balance.TotalUsage.String())
	assert.Equal(t, "17.5", balance.Remaining().String())
}

func TestService_Balance_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer srv.Close()

	svc := NewService(newTestRegistry(t, srv.URL), &fakeRepo{}, srv.URL, nil)

	_, err := svc.Balance(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrTransport))
}
