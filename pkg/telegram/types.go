package telegram

import "context"

// Bot abstracts telegram bot operations (for dependency injection)
type Bot interface {
	// Start starts the update loop until ctx is cancelled
	Start(ctx context.Context) error

	// Stop stops the bot
	Stop()

	// SetHandler sets the update handler
	SetHandler(handler func(Update))

	// SendMessage sends a plain text message, splitting when over the
	// API length limit
	SendMessage(chatID int64, text string) error

	// SendHTML sends an HTML-formatted message
	SendHTML(chatID int64, text string) error

	// SendPhoto uploads raw image bytes with an optional caption
	SendPhoto(chatID int64, data []byte, caption string) error

	// SendPhotoURL sends a photo hosted at a URL with an optional caption
	SendPhotoURL(chatID int64, url string, caption string) error

	// SendChatAction reports an in-progress action, e.g. "typing" or
	// "upload_photo"
	SendChatAction(chatID int64, action string) error

	// DownloadFile fetches a file's bytes by its Telegram file ID
	DownloadFile(ctx context.Context, fileID string) ([]byte, error)
}

// Chat actions understood by SendChatAction
const (
	ActionTyping      = "typing"
	ActionUploadPhoto = "upload_photo"
)
