package telegram

import "strings"

// MaxMessageLength is the Telegram API limit for one text message,
// kept slightly under the real 4096 to leave room for formatting
const MaxMessageLength = 4000

// SplitMessage splits long text into chunks that fit one message each.
// It prefers to break on newlines, falling back to a hard cut for
// single lines longer than the limit.
func SplitMessage(text string) []string {
	if len(text) <= MaxMessageLength {
		return []string{text}
	}

	var chunks []string
	var current strings.Builder

	for _, line := range strings.Split(text, "\n") {
		// Hard-cut oversized single lines
		for len(line) > MaxMessageLength {
			if current.Len() > 0 {
				chunks = append(chunks, current.String())
				current.Reset()
			}
			chunks = append(chunks, line[:MaxMessageLength])
			line = line[MaxMessageLength:]
		}

		if current.Len()+len(line)+1 > MaxMessageLength {
			chunks = append(chunks, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteByte('\n')
		}
		current.WriteString(line)
	}

	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}

// EscapeHTML escapes the characters Telegram's HTML parse mode treats
// specially
func EscapeHTML(s string) string {
	replacer := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
	)
	return replacer.Replace(s)
}
