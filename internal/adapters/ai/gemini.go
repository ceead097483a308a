package ai

import (
	"encoding/json"
	"strings"

	"hermes/pkg/errors"
)

// geminiRequest is the generateContent wire shape for file-reference calls
type geminiRequest struct {
	Contents         []geminiContent `json:"contents"`
	GenerationConfig *geminiGenCfg   `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	FileData *geminiFileData `json:"file_data,omitempty"`
	Text     string          `json:"text,omitempty"`
}

type geminiFileData struct {
	FileURI string `json:"file_uri"`
}

type geminiGenCfg struct {
	Temperature float64 `json:"temperature"`
}

func buildGeminiBody(req Request) geminiRequest {
	parts := make([]geminiPart, 0, 2)
	if req.FileURI != "" {
		parts = append(parts, geminiPart{FileData: &geminiFileData{FileURI: req.FileURI}})
	}
	if req.Prompt != "" {
		parts = append(parts, geminiPart{Text: req.Prompt})
	}

	body := geminiRequest{Contents: []geminiContent{{Parts: parts}}}
	if req.Temperature > 0 {
		body.GenerationConfig = &geminiGenCfg{Temperature: req.Temperature}
	}
	return body
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	PromptFeedback struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

// ExtractGemini normalizes a generateContent body: all text parts of the
// first candidate concatenated. A blocked prompt is surfaced with the
// provider's block reason; blocks are never retried.
func ExtractGemini(raw []byte) Outcome {
	var resp geminiResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return Outcome{
			Kind:    OutcomeFailure,
			Message: "provider returned unparseable JSON",
			Err:     errors.Wrapf(errors.ErrShape, "decode gemini response: %v", err),
		}
	}

	if len(resp.Candidates) == 0 {
		if reason := resp.PromptFeedback.BlockReason; reason != "" {
			return Outcome{
				Kind:    OutcomeFailure,
				Message: "request was blocked: " + reason,
				Err:     errors.Wrapf(errors.ErrSoftFailure, "prompt blocked: %s", reason),
			}
		}
		return Outcome{
			Kind:    OutcomeFailure,
			Message: "provider response carried no candidates",
			Err:     errors.Wrap(errors.ErrShape, "no candidates in gemini response"),
		}
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}

	text := strings.TrimSpace(sb.String())
	if text == "" {
		return Outcome{
			Kind:    OutcomeFailure,
			Message: "provider response carried no text parts",
			Err:     errors.Wrap(errors.ErrShape, "empty candidate content"),
		}
	}

	return Outcome{Kind: OutcomeText, Text: text}
}
