package ai

import (
	"encoding/base64"
	"encoding/json"
	"regexp"
	"strings"

	"hermes/pkg/errors"
)

var (
	dataURIRe     = regexp.MustCompile(`^data:image/(\w+);base64,(.+)$`)
	embeddedURLRe = regexp.MustCompile(`https?://[^\s]+`)
)

// chatResponse mirrors the chat-completions wire shape. Content is raw
// because some providers send null or omit it entirely.
type chatResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		Message struct {
			Content json.RawMessage `json:"content"`
			Images  []struct {
				ImageURL struct {
					URL string `json:"url"`
				} `json:"image_url"`
			} `json:"images"`
		} `json:"message"`
	} `json:"choices"`
	Data []struct {
		URL string `json:"url"`
	} `json:"data"`
}

// Extract normalizes a 2xx chat-completions body into an Outcome.
// Payload locations are tried in a fixed priority order: inline multimodal
// images first, then message content, then the top-level data array.
// A body that parses but matches none of them settles as a terminal
// shape failure, never a panic or a retry.
func Extract(raw []byte) Outcome {
	var resp chatResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return Outcome{
			Kind:    OutcomeFailure,
			Message: "provider returned unparseable JSON",
			Err:     errors.Wrapf(errors.ErrShape, "decode response: %v", err),
		}
	}

	out := extractPayload(resp)
	out.GenerationID = resp.ID
	return out
}

func extractPayload(resp chatResponse) Outcome {
	if len(resp.Choices) > 0 {
		msg := resp.Choices[0].Message

		if len(msg.Images) > 0 {
			return imageOutcome(msg.Images[0].ImageURL.URL)
		}

		if content, ok := contentString(msg.Content); ok {
			if out, matched := contentOutcome(content); matched {
				return out
			}
		}
	}

	if len(resp.Data) > 0 && resp.Data[0].URL != "" {
		return imageOutcome(resp.Data[0].URL)
	}

	return Outcome{
		Kind:    OutcomeFailure,
		Message: "provider response carried no usable payload",
		Err:     errors.Wrap(errors.ErrShape, "no image, content or data field"),
	}
}

// imageOutcome interprets a single image reference: data URIs are decoded
// inline, anything else is kept as a hosted URL.
func imageOutcome(ref string) Outcome {
	m := dataURIRe.FindStringSubmatch(ref)
	if m == nil {
		return Outcome{Kind: OutcomeImageRef, URL: ref}
	}

	bytes, err := base64.StdEncoding.DecodeString(m[2])
	if err != nil {
		return Outcome{
			Kind:    OutcomeFailure,
			Message: "provider sent a data URI with invalid base64 payload",
			Err:     errors.Wrapf(errors.ErrShape, "decode data URI: %v", err),
		}
	}

	return Outcome{Kind: OutcomeImage, Bytes: bytes, Format: m[1]}
}

// contentOutcome maps a textual content field to an outcome. Returns
// matched=false for empty content so extraction can fall through to the
// data array.
func contentOutcome(content string) (Outcome, bool) {
	content = strings.TrimSpace(content)
	if content == "" {
		return Outcome{}, false
	}

	if dataURIRe.MatchString(content) {
		return imageOutcome(content), true
	}

	if isBareURL(content) {
		return Outcome{Kind: OutcomeImageRef, URL: content}, true
	}

	if url := embeddedURLRe.FindString(content); url != "" {
		return Outcome{Kind: OutcomeImageRef, URL: url}, true
	}

	return Outcome{Kind: OutcomeText, Text: content}, true
}

func isBareURL(s string) bool {
	if !strings.HasPrefix(s, "http://") && !strings.HasPrefix(s, "https://") {
		return false
	}
	return !strings.ContainsAny(s, " \t\n")
}

func contentString(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}
