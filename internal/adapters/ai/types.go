package ai

// OutcomeKind says what a settled provider exchange produced
type OutcomeKind string

const (
	// OutcomeText is plain assistant text
	OutcomeText OutcomeKind = "text"

	// OutcomeImage is decoded inline image bytes
	OutcomeImage OutcomeKind = "image"

	// OutcomeImageRef is an image hosted at a URL the provider returned
	OutcomeImageRef OutcomeKind = "image_ref"

	// OutcomeFailure is a terminal failure, transport, shape or provider-side
	OutcomeFailure OutcomeKind = "failure"
)

// Outcome is the settled result of one orchestrated provider exchange.
// Exactly the fields matching Kind are populated; GenerationID may be set
// on any kind, failures included, so cost can still be recorded.
type Outcome struct {
	Kind OutcomeKind

	// Text payload for OutcomeText
	Text string

	// Bytes and Format for OutcomeImage. Format is the data URI image
	// subtype, e.g. "png".
	Bytes  []byte
	Format string

	// URL for OutcomeImageRef
	URL string

	// Message is a human-readable failure description for OutcomeFailure
	Message string

	// Err carries the failure cause for errors.Is checks
	Err error

	// Retryable reports whether the failure was soft and retries were
	// attempted before settling
	Retryable bool

	// GenerationID is the provider's billing handle for this exchange
	GenerationID string
}

// Failed reports whether the outcome settled as a failure
func (o Outcome) Failed() bool {
	return o.Kind == OutcomeFailure
}

// IsImage reports whether the outcome carries an image, inline or by reference
func (o Outcome) IsImage() bool {
	return o.Kind == OutcomeImage || o.Kind == OutcomeImageRef
}

// Request describes one provider exchange to orchestrate
type Request struct {
	// Capability routes the request through the provider registry
	Capability string

	// Prompt is the user text
	Prompt string

	// System is an optional system message prepended to the conversation
	System string

	// Images are raw input images attached as data URIs
	Images [][]byte

	// WantImage asks the provider for image output
	WantImage bool

	// FileURI references an already-uploaded file, used by the gemini shape
	FileURI string

	// Temperature overrides the provider default when > 0
	Temperature float64

	// MaxTokens caps the completion length when > 0
	MaxTokens int
}
