package ai

import "bytes"

// DetectImageMIME sniffs magic bytes to pick a MIME type for uploads.
// Unknown formats fall back to JPEG, which every provider accepts.
func DetectImageMIME(data []byte) string {
	switch {
	case bytes.HasPrefix(data, []byte("\x89PNG")):
		return "image/png"
	case bytes.HasPrefix(data, []byte("GIF8")):
		return "image/gif"
	case len(data) >= 12 && bytes.HasPrefix(data, []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WEBP")):
		return "image/webp"
	default:
		return "image/jpeg"
	}
}
