package voice

import "errors"

// Validation failures are distinct sentinels so the HTTP layer can
// map each one onto its own client-facing error.
var (
	ErrNoAudio          = errors.New("no audio file provided")
	ErrUnsupportedMedia = errors.New("unsupported audio format")
	ErrPayloadTooLarge  = errors.New("audio payload too large")
	ErrEmptyText        = errors.New("text required")
)
