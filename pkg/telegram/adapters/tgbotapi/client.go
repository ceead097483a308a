package tgbotapi

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"

	"hermes/pkg/errors"
	"hermes/pkg/logger"
	"hermes/pkg/telegram"
)

// Bot implements the telegram.Bot interface over long polling
type Bot struct {
	api         *tgbotapi.BotAPI
	log         *logger.Logger
	mu          sync.RWMutex
	running     bool
	msgHandler  func(telegram.Update)
	rateLimiter *rate.Limiter
	httpClient  *http.Client
}

// Config contains Telegram bot configuration
type Config struct {
	Token          string
	Debug          bool
	Timeout        int // Update timeout in seconds
	HTTPTimeout    time.Duration
	RateLimitBurst int
	RateLimitRate  int // Messages per second
}

// NewBot creates a new Telegram bot instance
func NewBot(cfg Config, log *logger.Logger) (*Bot, error) {
	if cfg.Token == "" {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "telegram bot token is required")
	}

	if cfg.Timeout == 0 {
		cfg.Timeout = 60
	}
	if cfg.HTTPTimeout == 0 {
		cfg.HTTPTimeout = 2 * time.Minute
	}
	if cfg.RateLimitBurst == 0 {
		cfg.RateLimitBurst = 30
	}
	if cfg.RateLimitRate == 0 {
		cfg.RateLimitRate = 20
	}

	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	api, err := tgbotapi.NewBotAPIWithClient(cfg.Token, tgbotapi.APIEndpoint, httpClient)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create telegram bot")
	}
	api.Debug = cfg.Debug

	log.Infof("Authorized on account %s", api.Self.UserName)

	return &Bot{
		api:         api,
		log:         log.With("component", "telegram_bot"),
		rateLimiter: rate.NewLimiter(rate.Limit(cfg.RateLimitRate), cfg.RateLimitBurst),
		httpClient:  httpClient,
	}, nil
}

// Start begins polling for updates until ctx is cancelled
func (b *Bot) Start(ctx context.Context) error {
	b.mu.Lock()
	if b.running {
		b.mu.Unlock()
		return errors.New("bot is already running")
	}
	b.running = true
	b.mu.Unlock()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)

	b.log.Infow("Starting to poll for updates")

	for {
		select {
		case <-ctx.Done():
			b.log.Infow("Stopping bot due to context cancellation")
			b.Stop()
			return ctx.Err()

		case tgUpdate := <-updates:
			b.mu.RLock()
			handler := b.msgHandler
			b.mu.RUnlock()
			if handler != nil {
				go handler(convertUpdate(tgUpdate))
			}
		}
	}
}

// Stop stops the bot
func (b *Bot) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.running {
		return
	}
	b.api.StopReceivingUpdates()
	b.running = false
	b.log.Infow("Bot stopped")
}

// SetHandler sets the update handler
func (b *Bot) SetHandler(handler func(telegram.Update)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.msgHandler = handler
}

// SendMessage sends plain text, splitting messages over the API limit
func (b *Bot) SendMessage(chatID int64, text string) error {
	for _, chunk := range telegram.SplitMessage(text) {
		if err := b.send(tgbotapi.NewMessage(chatID, chunk)); err != nil {
			return err
		}
	}
	return nil
}

// SendHTML sends an HTML-formatted message
func (b *Bot) SendHTML(chatID int64, text string) error {
	for _, chunk := range telegram.SplitMessage(text) {
		msg := tgbotapi.NewMessage(chatID, chunk)
		msg.ParseMode = tgbotapi.ModeHTML
		if err := b.send(msg); err != nil {
			return err
		}
	}
	return nil
}

// SendPhoto uploads raw image bytes with an optional caption
func (b *Bot) SendPhoto(chatID int64, data []byte, caption string) error {
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: "image", Bytes: data})
	photo.Caption = caption
	return b.send(photo)
}

// SendPhotoURL sends a photo hosted at a URL with an optional caption
func (b *Bot) SendPhotoURL(chatID int64, url string, caption string) error {
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileURL(url))
	photo.Caption = caption
	return b.send(photo)
}

// SendChatAction reports an in-progress action like "typing"
func (b *Bot) SendChatAction(chatID int64, action string) error {
	return b.send(tgbotapi.NewChatAction(chatID, action))
}

// DownloadFile fetches a file's bytes by its Telegram file ID
func (b *Bot) DownloadFile(ctx context.Context, fileID string) ([]byte, error) {
	url, err := b.api.GetFileDirectURL(fileID)
	if err != nil {
		return nil, errors.Wrapf(err, "get file url for %s", fileID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build file request")
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "download file %s", fileID)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Wrapf(errors.ErrTransport, "download file: status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// send applies rate limiting before calling the API
func (b *Bot) send(msg tgbotapi.Chattable) error {
	if err := b.rateLimiter.Wait(context.Background()); err != nil {
		return errors.Wrap(err, "rate limiter")
	}
	if _, err := b.api.Request(msg); err != nil {
		return errors.Wrap(err, "telegram api request")
	}
	return nil
}

func convertUpdate(tgUpdate tgbotapi.Update) telegram.Update {
	update := telegram.Update{UpdateID: tgUpdate.UpdateID}
	if tgUpdate.Message != nil {
		update.Message = convertMessage(tgUpdate.Message)
	}
	return update
}

func convertMessage(tgMsg *tgbotapi.Message) *telegram.Message {
	msg := &telegram.Message{
		MessageID:    tgMsg.MessageID,
		Text:         tgMsg.Text,
		Caption:      tgMsg.Caption,
		MediaGroupID: tgMsg.MediaGroupID,
		From:         convertUser(tgMsg.From),
		Chat:         convertChat(tgMsg.Chat),
	}

	for _, photo := range tgMsg.Photo {
		msg.Photo = append(msg.Photo, telegram.PhotoSize{
			FileID:   photo.FileID,
			Width:    photo.Width,
			Height:   photo.Height,
			FileSize: photo.FileSize,
		})
	}

	if tgMsg.Document != nil {
		msg.Document = &telegram.Document{
			FileID:   tgMsg.Document.FileID,
			FileName: tgMsg.Document.FileName,
			MimeType: tgMsg.Document.MimeType,
		}
	}

	if tgMsg.ReplyToMessage != nil {
		msg.ReplyTo = convertMessage(tgMsg.ReplyToMessage)
	}

	msg.ParseCommand()
	return msg
}

func convertUser(tgUser *tgbotapi.User) *telegram.User {
	if tgUser == nil {
		return nil
	}
	return &telegram.User{
		ID:        tgUser.ID,
		FirstName: tgUser.FirstName,
		LastName:  tgUser.LastName,
		Username:  tgUser.UserName,
		IsBot:     tgUser.IsBot,
	}
}

func convertChat(tgChat *tgbotapi.Chat) *telegram.Chat {
	if tgChat == nil {
		return nil
	}
	return &telegram.Chat{
		ID:       tgChat.ID,
		Type:     tgChat.Type,
		Title:    tgChat.Title,
		Username: tgChat.UserName,
	}
}

var _ telegram.Bot = (*Bot)(nil)
