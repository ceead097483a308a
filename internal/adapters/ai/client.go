package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"hermes/internal/adapters/config"
	"hermes/internal/metrics"
	"hermes/internal/providers"
	"hermes/pkg/errors"
	"hermes/pkg/logger"
)

// Capability names routed through the provider registry
const (
	CapDescribe    = "describe"
	CapImageGen    = "imagegen"
	CapABCGen      = "abcgen"
	CapImageChange = "imagechange"
	CapMergeImage  = "mergeimage"
	CapSummary     = "summary"
	CapBalance     = "balance"
)

// Client orchestrates provider calls: it resolves the capability, builds
// the wire body for the provider's kind, bounds retries on retryable soft
// failures and always settles with exactly one Outcome. It never touches
// the usage ledger; billing is the caller's concern.
type Client struct {
	registry   *providers.Registry
	httpClient *http.Client
	log        *logger.Logger
	metrics    *metrics.Metrics

	maxRetries int
	retryDelay time.Duration
}

func NewClient(registry *providers.Registry, cfg config.AIConfig, m *metrics.Metrics, log *logger.Logger) *Client {
	return &Client{
		registry:   registry,
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		log:        log.With("component", "ai_client"),
		metrics:    m,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
	}
}

// Do runs one logical provider exchange and always returns a settled
// Outcome. Configuration errors are fatal to this call only.
func (c *Client) Do(ctx context.Context, req Request) Outcome {
	started := time.Now()
	out := c.do(ctx, req)
	c.metrics.ObserveProviderCall(req.Capability, string(out.Kind), time.Since(started))
	return out
}

func (c *Client) do(ctx context.Context, req Request) Outcome {
	provider, err := c.registry.Resolve(req.Capability)
	if err != nil {
		c.log.Errorw("Capability resolution failed", "capability", req.Capability, "error", err)
		return Outcome{
			Kind:    OutcomeFailure,
			Message: "capability is not configured",
			Err:     err,
		}
	}

	if provider.Kind == providers.KindGemini {
		return c.doGemini(ctx, req, provider)
	}
	return c.doChat(ctx, req, provider)
}

// doChat drives the chat-completions exchange with a bounded retry loop.
// Only soft failures the classifier marks retryable re-enter the loop;
// transport errors, shape mismatches and terminal provider reasons settle
// immediately.
func (c *Client) doChat(ctx context.Context, req Request, provider providers.ProviderConfig) Outcome {
	body, err := json.Marshal(buildChatBody(req, provider.Model))
	if err != nil {
		return Outcome{
			Kind:    OutcomeFailure,
			Message: "failed to build provider request",
			Err:     errors.Wrapf(errors.ErrInternal, "marshal request body: %v", err),
		}
	}

	log := c.log.With("capability", req.Capability, "model", provider.Model)

	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			log.Infow("Retrying provider call", "attempt", attempt+1, "max_attempts", c.maxRetries+1)
		}

		raw, failure := c.post(ctx, provider.URL, body, bearerHeaders(provider.Key))
		if failure != nil {
			return *failure
		}

		hasError, reason, retryable := Classify(raw)
		if !hasError {
			out := Extract(raw)
			if out.Failed() {
				log.Warnw("Provider response had no usable payload", "error", out.Err)
			}
			return out
		}

		genID := generationID(raw)
		if !retryable {
			log.Warnw("Provider signaled terminal failure", "reason", reason)
			return Outcome{
				Kind:         OutcomeFailure,
				Message:      fmt.Sprintf("provider reported %s", reason),
				Err:          errors.Wrapf(errors.ErrSoftFailure, "finish reason %s", reason),
				GenerationID: genID,
			}
		}

		if attempt >= c.maxRetries {
			log.Warnw("Retryable failure exhausted attempts", "reason", reason, "attempts", attempt+1)
			return Outcome{
				Kind:         OutcomeFailure,
				Message:      fmt.Sprintf("provider reported %s after %d attempts", reason, attempt+1),
				Err:          errors.Wrapf(errors.ErrAttemptsExhausted, "finish reason %s", reason),
				Retryable:    true,
				GenerationID: genID,
			}
		}

		c.metrics.IncProviderRetry(req.Capability)
		log.Infow("Provider signaled retryable failure", "reason", reason)

		select {
		case <-time.After(c.retryDelay):
		case <-ctx.Done():
			return Outcome{
				Kind:         OutcomeFailure,
				Message:      "request cancelled while waiting to retry",
				Err:          errors.Wrapf(errors.ErrTimeout, "retry wait: %v", ctx.Err()),
				GenerationID: genID,
			}
		}
	}
}

func (c *Client) doGemini(ctx context.Context, req Request, provider providers.ProviderConfig) Outcome {
	body, err := json.Marshal(buildGeminiBody(req))
	if err != nil {
		return Outcome{
			Kind:    OutcomeFailure,
			Message: "failed to build provider request",
			Err:     errors.Wrapf(errors.ErrInternal, "marshal request body: %v", err),
		}
	}

	url := fmt.Sprintf("%s/models/%s:generateContent",
		strings.TrimSuffix(provider.URL, "/"), provider.Model)

	headers := map[string]string{
		"Content-Type":   "application/json",
		"x-goog-api-key": provider.Key,
	}

	raw, failure := c.post(ctx, url, body, headers)
	if failure != nil {
		return *failure
	}
	return ExtractGemini(raw)
}

// post issues one attempt. A nil failure means raw holds a 2xx body.
func (c *Client) post(ctx context.Context, url string, body []byte, headers map[string]string) ([]byte, *Outcome) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, &Outcome{
			Kind:    OutcomeFailure,
			Message: "failed to build provider request",
			Err:     errors.Wrapf(errors.ErrInternal, "new request: %v", err),
		}
	}
	for k, v := range headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.log.Errorw("Provider call failed", "url", url, "error", err)
		return nil, &Outcome{
			Kind:    OutcomeFailure,
			Message: "provider is unreachable",
			Err:     errors.Wrapf(errors.ErrTransport, "post %s: %v", url, err),
		}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Outcome{
			Kind:    OutcomeFailure,
			Message: "failed to read provider response",
			Err:     errors.Wrapf(errors.ErrTransport, "read body: %v", err),
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.log.Warnw("Provider returned non-success status",
			"url", url, "status", resp.StatusCode, "body", truncate(string(raw), 512))
		return nil, &Outcome{
			Kind:    OutcomeFailure,
			Message: fmt.Sprintf("provider returned HTTP %d", resp.StatusCode),
			Err:     errors.Wrapf(errors.ErrTransport, "unexpected status %d", resp.StatusCode),
		}
	}

	return raw, nil
}

type chatBody struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Modalities  []string      `json:"modalities,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type     string        `json:"type"`
	Text     string        `json:"text,omitempty"`
	ImageURL *imageURLPart `json:"image_url,omitempty"`
}

type imageURLPart struct {
	URL string `json:"url"`
}

func buildChatBody(req Request, model string) chatBody {
	body := chatBody{
		Model:       model,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}

	if req.System != "" {
		body.Messages = append(body.Messages, chatMessage{Role: "system", Content: req.System})
	}

	if len(req.Images) == 0 {
		body.Messages = append(body.Messages, chatMessage{Role: "user", Content: req.Prompt})
	} else {
		parts := make([]contentPart, 0, len(req.Images)+1)
		if req.Prompt != "" {
			parts = append(parts, contentPart{Type: "text", Text: req.Prompt})
		}
		for _, img := range req.Images {
			parts = append(parts, contentPart{
				Type: "image_url",
				ImageURL: &imageURLPart{
					URL: fmt.Sprintf("data:%s;base64,%s",
						DetectImageMIME(img), base64.StdEncoding.EncodeToString(img)),
				},
			})
		}
		body.Messages = append(body.Messages, chatMessage{Role: "user", Content: parts})
	}

	if req.WantImage {
		body.Modalities = []string{"image"}
	}
	return body
}

func bearerHeaders(key string) map[string]string {
	return map[string]string{
		"Content-Type":  "application/json",
		"Authorization": "Bearer " + key,
	}
}

// generationID pulls the billing handle out of a raw body without caring
// about the rest of its shape
func generationID(raw []byte) string {
	var resp struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return ""
	}
	return resp.ID
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
