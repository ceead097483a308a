package telegram

import (
	"context"
	"io"
	"net/http"
	"time"

	"hermes/internal/adapters/ai"
	"hermes/internal/adapters/speech"
	"hermes/internal/adapters/storage"
	"hermes/internal/domain/ledger"
	"hermes/internal/metrics"
	"hermes/internal/providers"
	"hermes/internal/services/billing"
	"hermes/internal/sessionstate"
	"hermes/pkg/errors"
	"hermes/pkg/logger"
	"hermes/pkg/telegram"
)

// recordCostTimeout bounds the fire-and-forget billing lookup that
// outlives the triggering command
const recordCostTimeout = 90 * time.Second

// Handler wires bot commands to the AI client, billing and session state
type Handler struct {
	bot       telegram.Bot
	registry  *telegram.CommandRegistry
	ai        *ai.Client
	billing   *billing.Service
	providers *providers.Registry
	sessions  *sessionstate.Store
	images    *storage.ImageStore
	speech    speech.Pipeline
	metrics   *metrics.Metrics
	log       *logger.Logger

	allowedChats []int64
	httpClient   *http.Client
}

// HandlerDeps lists the collaborators a Handler needs
type HandlerDeps struct {
	Bot          telegram.Bot
	AI           *ai.Client
	Billing      *billing.Service
	Providers    *providers.Registry
	Sessions     *sessionstate.Store
	Images       *storage.ImageStore
	Speech       speech.Pipeline
	Metrics      *metrics.Metrics
	AllowedChats []int64
	Log          *logger.Logger
}

// NewHandler creates the handler and registers all commands
func NewHandler(deps HandlerDeps) *Handler {
	h := &Handler{
		bot:          deps.Bot,
		ai:           deps.AI,
		billing:      deps.Billing,
		providers:    deps.Providers,
		sessions:     deps.Sessions,
		images:       deps.Images,
		speech:       deps.Speech,
		metrics:      deps.Metrics,
		log:          deps.Log.With("component", "telegram_handler"),
		allowedChats: deps.AllowedChats,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
	}

	h.registry = telegram.NewCommandRegistry(deps.Bot, deps.Log)
	h.registry.Use(telegram.RecoveryMiddleware(deps.Log))
	h.registry.Use(telegram.AllowedChatsMiddleware(deps.AllowedChats, deps.Log))
	h.registry.Use(telegram.LoggingMiddleware(deps.Log))
	h.registry.Use(telegram.MetricsMiddleware(func(command string) {
		h.metrics.IncCommand(command)
	}))

	h.registerCommands()
	return h
}

// Register sets the handler as the bot's update handler
func (h *Handler) Register() {
	h.bot.SetHandler(h.HandleUpdate)
}

// HandleUpdate routes one incoming update. Commands go through the
// registry; plain photo messages feed the per-chat image caches.
func (h *Handler) HandleUpdate(update telegram.Update) {
	if !update.HasMessage() {
		return
	}
	msg := update.Message

	ctx := context.Background()

	if msg.IsCommand {
		if err := h.registry.Handle(ctx, msg); err != nil {
			h.log.Errorw("Failed to handle command",
				"command", msg.Command, "chat_id", msg.Chat.ID, "error", err)
		}
		return
	}

	if msg.HasPhoto() {
		h.cachePhoto(ctx, msg)
	}
}

// cachePhoto remembers a user-sent photo for later describe and
// imagechange commands, accumulating media-group albums by group ID
func (h *Handler) cachePhoto(ctx context.Context, msg *telegram.Message) {
	data, err := h.bot.DownloadFile(ctx, msg.LargestPhoto().FileID)
	if err != nil {
		h.log.Warnw("Failed to download photo", "chat_id", msg.Chat.ID, "error", err)
		return
	}

	h.sessions.RememberImage(msg.Chat.ID, data)
	if msg.MediaGroupID != "" {
		h.sessions.AppendGroupImage(msg.Chat.ID, msg.MediaGroupID, data)
	}

	h.log.Debugw("Photo cached",
		"chat_id", msg.Chat.ID, "bytes", len(data), "media_group", msg.MediaGroupID != "")
}

// recordCost settles billing in the background so slow cost lookups
// never delay the reply. The lookup deliberately outlives the command.
func (h *Handler) recordCost(generationID string, user *telegram.User, command string) {
	if generationID == "" || user == nil {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), recordCostTimeout)
		defer cancel()

		h.billing.RecordCost(ctx, generationID, ledger.User{
			UserID:    user.ID,
			Username:  user.Username,
			FirstName: user.FirstName,
			LastName:  user.LastName,
		}, command)
	}()
}

// fetchImage downloads a provider-hosted image so it can be re-uploaded
// and cached
func (h *Handler) fetchImage(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Wrapf(errors.ErrTransport, "fetch image: status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
