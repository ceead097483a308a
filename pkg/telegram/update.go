package telegram

import "strings"

// Update represents an incoming Telegram update (abstraction from tgbotapi)
type Update struct {
	UpdateID int      `json:"update_id"`
	Message  *Message `json:"message,omitempty"`
}

// Message represents a Telegram message
type Message struct {
	MessageID    int         `json:"message_id"`
	From         *User       `json:"from,omitempty"`
	Chat         *Chat       `json:"chat"`
	Text         string      `json:"text,omitempty"`
	Caption      string      `json:"caption,omitempty"`
	Photo        []PhotoSize `json:"photo,omitempty"`
	Document     *Document   `json:"document,omitempty"`
	MediaGroupID string      `json:"media_group_id,omitempty"`
	ReplyTo      *Message    `json:"reply_to_message,omitempty"`

	// Computed by ParseCommand, not from JSON
	IsCommand bool   `json:"-"`
	Command   string `json:"-"`
	Arguments string `json:"-"`
}

// PhotoSize is one resolution of a photo; Telegram sends several,
// ordered smallest first
type PhotoSize struct {
	FileID   string `json:"file_id"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	FileSize int    `json:"file_size,omitempty"`
}

// Document represents an attached file
type Document struct {
	FileID   string `json:"file_id"`
	FileName string `json:"file_name,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
}

// User represents a Telegram user
type User struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name,omitempty"`
	Username  string `json:"username,omitempty"`
	IsBot     bool   `json:"is_bot,omitempty"`
}

// Chat represents a Telegram chat
type Chat struct {
	ID       int64  `json:"id"`
	Type     string `json:"type"`
	Title    string `json:"title,omitempty"`
	Username string `json:"username,omitempty"`
}

// HasMessage checks if the update contains a message
func (u *Update) HasMessage() bool {
	return u.Message != nil
}

// HasPhoto checks if the message carries a photo
func (m *Message) HasPhoto() bool {
	return m != nil && len(m.Photo) > 0
}

// LargestPhoto returns the highest-resolution photo variant
func (m *Message) LargestPhoto() *PhotoSize {
	if !m.HasPhoto() {
		return nil
	}
	return &m.Photo[len(m.Photo)-1]
}

// CommandText is the text a command was parsed from: the caption for
// photo messages, the text otherwise
func (m *Message) CommandText() string {
	if m.Text != "" {
		return m.Text
	}
	return m.Caption
}

// ParseCommand parses a leading /command from the message text or photo
// caption. Call after unmarshaling to populate IsCommand, Command and
// Arguments.
func (m *Message) ParseCommand() {
	if m == nil {
		return
	}

	text := m.CommandText()
	if text == "" || text[0] != '/' {
		return
	}
	m.IsCommand = true

	rest := text[1:]
	command, args, _ := strings.Cut(rest, " ")

	// Strip @botname suffix used in groups
	if at := strings.IndexByte(command, '@'); at != -1 {
		command = command[:at]
	}

	m.Command = strings.ToLower(command)
	m.Arguments = strings.TrimSpace(args)
}
