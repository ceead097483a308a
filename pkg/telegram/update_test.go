package telegram

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		caption   string
		isCommand bool
		command   string
		arguments string
	}{
		{
			name:      "simple command",
			text:      "/start",
			isCommand: true,
			command:   "start",
		},
		{
			name:      "command with arguments",
			text:      "/imagegen a red fox in the snow",
			isCommand: true,
			command:   "imagegen",
			arguments: "a red fox in the snow",
		},
		{
			name:      "command with botname suffix",
			text:      "/balance@hermes_bot",
			isCommand: true,
			command:   "balance",
		},
		{
			name:      "uppercase command is normalized",
			text:      "/Statistics",
			isCommand: true,
			command:   "statistics",
		},
		{
			name:      "command in photo caption",
			caption:   "/describe what is this",
			isCommand: true,
			command:   "describe",
			arguments: "what is this",
		},
		{
			name: "plain text is not a command",
			text: "hello there",
		},
		{
			name: "empty message",
		},
		{
			name: "slash inside text",
			text: "see /start above",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := &Message{Text: tt.text, Caption: tt.caption}
			msg.ParseCommand()

			assert.Equal(t, tt.isCommand, msg.IsCommand)
			assert.Equal(t, tt.command, msg.Command)
			assert.Equal(t, tt.arguments, msg.Arguments)
		})
	}
}

func TestLargestPhoto(t *testing.T) {
	msg := &Message{Photo: []PhotoSize{
		{FileID: "small", Width: 90},
		{FileID: "medium", Width: 320},
		{FileID: "large", Width: 1280},
	}}

	photo := msg.LargestPhoto()
	assert.Equal(t, "large", photo.FileID)

	var empty *Message
	assert.Nil(t, empty.LargestPhoto())
	assert.False(t, empty.HasPhoto())
}
