package ai

import "encoding/json"

// reasonNoImage is the only retryable completion reason: the model accepted
// the request but produced no image, and asking again usually works.
const reasonNoImage = "NO_IMAGE"

var (
	// nativeSuccessReasons are provider-native synonyms for a normal stop
	nativeSuccessReasons = map[string]bool{
		"":          true,
		"STOP":      true,
		"completed": true,
	}

	// genericSuccessReasons cover the generic finish_reason field
	genericSuccessReasons = map[string]bool{
		"":          true,
		"stop":      true,
		"completed": true,
	}
)

type finishResponse struct {
	Choices []struct {
		FinishReason       string `json:"finish_reason"`
		NativeFinishReason string `json:"native_finish_reason"`
	} `json:"choices"`
}

// Classify inspects a 2xx body for a provider-signaled failure.
// A failing provider-native reason wins; a succeeding one still lets the
// generic finish_reason flag the response, so a gateway-level
// content_filter is not masked by an upstream STOP. A missing or
// unreadable reason counts as success on purpose: providers that omit the
// field must not be penalized.
func Classify(raw []byte) (hasError bool, reason string, retryable bool) {
	var resp finishResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return false, "", false
	}
	if len(resp.Choices) == 0 {
		return false, "", false
	}

	if native := resp.Choices[0].NativeFinishReason; native != "" {
		if native == reasonNoImage {
			return true, native, true
		}
		if !nativeSuccessReasons[native] {
			return true, native, false
		}
	}

	if generic := resp.Choices[0].FinishReason; !genericSuccessReasons[generic] {
		return true, generic, false
	}
	return false, "", false
}
