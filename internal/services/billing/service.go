package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"hermes/internal/adapters/ai"
	"hermes/internal/domain/ledger"
	"hermes/internal/metrics"
	"hermes/internal/providers"
	"hermes/pkg/errors"
	"hermes/pkg/logger"
)

const lookupTimeout = 30 * time.Second

// Service records provider-billed costs against users and answers the
// balance and statistics queries. Cost recording is best-effort: a missed
// update is logged and dropped, never retried, and never blocks the caller.
type Service struct {
	registry   *providers.Registry
	repo       ledger.Repository
	httpClient *http.Client
	metrics    *metrics.Metrics
	log        *logger.Logger

	billingURL string
}

func NewService(registry *providers.Registry, repo ledger.Repository, billingURL string, m *metrics.Metrics) *Service {
	return &Service{
		registry:   registry,
		repo:       repo,
		httpClient: &http.Client{Timeout: lookupTimeout},
		metrics:    m,
		log:        logger.Get().With("component", "billing"),
		billingURL: billingURL,
	}
}

// generationMeta is the billing endpoint's authoritative usage record
type generationMeta struct {
	Data struct {
		TotalCost        float64 `json:"total_cost"`
		Model            string  `json:"model"`
		TokensPrompt     int     `json:"tokens_prompt"`
		TokensCompletion int     `json:"tokens_completion"`
	} `json:"data"`
}

// RecordCost looks up the billed cost for a settled generation and writes
// it to the ledger. All failures are swallowed after logging; billing must
// never break the command that triggered it.
func (s *Service) RecordCost(ctx context.Context, generationID string, user ledger.User, command string) {
	if generationID == "" {
		return
	}

	log := s.log.With("generation_id", generationID, "user_id", user.UserID, "command", command)

	meta, err := s.lookupGeneration(ctx, generationID)
	if err != nil {
		s.metrics.IncLedgerWrite("lookup_failed")
		log.Warnw("Cost lookup failed, usage not recorded", "error", err)
		return
	}

	usage := ledger.Usage{
		GenerationID:     generationID,
		Command:          command,
		Cost:             meta.Data.TotalCost,
		Model:            meta.Data.Model,
		TokensPrompt:     meta.Data.TokensPrompt,
		TokensCompletion: meta.Data.TokensCompletion,
	}

	if err := s.repo.RecordUsage(ctx, user, usage); err != nil {
		s.metrics.IncLedgerWrite("failed")
		log.ErrorWithContext(ctx, err, map[string]string{
			"component": "billing",
			"command":   command,
		})
		return
	}

	s.metrics.IncLedgerWrite("ok")
	log.Infow("Usage recorded",
		"cost", decimal.NewFromFloat(meta.Data.TotalCost).String(), "model", meta.Data.Model)
}

// lookupGeneration fetches authoritative cost metadata by generation ID.
// The billing endpoint shares credentials with the describe capability.
func (s *Service) lookupGeneration(ctx context.Context, generationID string) (*generationMeta, error) {
	provider, err := s.registry.Resolve(ai.CapDescribe)
	if err != nil {
		return nil, err
	}

	lookupURL := fmt.Sprintf("%s?id=%s", s.billingURL, url.QueryEscape(generationID))
	raw, err := s.get(ctx, lookupURL, provider.Key)
	if err != nil {
		return nil, err
	}

	meta := &generationMeta{}
	if err := json.Unmarshal(raw, meta); err != nil {
		return nil, errors.Wrapf(errors.ErrShape, "decode generation metadata: %v", err)
	}
	return meta, nil
}

// Balance is the provider account's credit state
type Balance struct {
	TotalCredits decimal.Decimal
	TotalUsage   decimal.Decimal
}

// Remaining is what is left to spend
func (b Balance) Remaining() decimal.Decimal {
	return b.TotalCredits.Sub(b.TotalUsage)
}

// Balance queries the provider for the account's credits and usage
func (s *Service) Balance(ctx context.Context) (*Balance, error) {
	provider, err := s.registry.Resolve(ai.CapBalance)
	if err != nil {
		return nil, err
	}

	raw, err := s.get(ctx, provider.URL, provider.Key)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Data struct {
			TotalCredits float64 `json:"total_credits"`
			TotalUsage   float64 `json:"total_usage"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, errors.Wrapf(errors.ErrShape, "decode balance: %v", err)
	}

	return &Balance{
		TotalCredits: decimal.NewFromFloat(resp.Data.TotalCredits),
		TotalUsage:   decimal.NewFromFloat(resp.Data.TotalUsage),
	}, nil
}

// Statistics returns all user accounts ordered by spend
func (s *Service) Statistics(ctx context.Context) ([]ledger.UserAccount, error) {
	return s.repo.ListAccounts(ctx)
}

// History returns the user's most recent billed entries
func (s *Service) History(ctx context.Context, userID int64, limit int) ([]ledger.Entry, error) {
	return s.repo.UserHistory(ctx, userID, limit)
}

func (s *Service) get(ctx context.Context, rawURL, key string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrInternal, "new request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+key)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrTransport, "get %s: %v", rawURL, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrTransport, "read body: %v", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Wrapf(errors.ErrTransport, "unexpected status %d", resp.StatusCode)
	}
	return raw, nil
}
