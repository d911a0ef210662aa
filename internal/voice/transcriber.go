package voice

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/interviewly/voicegate/internal/domain"
)

// mimeExt maps an allowed MIME type to the staged file extension the
// speech engine infers the container from.
var mimeExt = map[string]string{
	"audio/webm": ".webm",
	"audio/mp4":  ".mp4",
	"audio/mpeg": ".mp3",
	"audio/wav":  ".wav",
	"audio/ogg":  ".ogg",
}

// Transcript is the result of one ingestion run.
type Transcript struct {
	Text     string
	Duration float64
}

// Transcriber is the audio ingestion pipeline: validate, stage,
// transcribe, clean up. The staged artifact is removed on every exit
// path. Rate limiting happens at the transport boundary, before the
// request body is ever read.
type Transcriber struct {
	engine   Engine
	stageDir string
	maxBytes int64
	allowed  map[string]bool
}

func NewTranscriber(engine Engine, stageDir string, maxBytes int64, allowedMIME []string) *Transcriber {
	allowed := make(map[string]bool, len(allowedMIME))
	for _, m := range allowedMIME {
		allowed[m] = true
	}
	return &Transcriber{
		engine:   engine,
		stageDir: stageDir,
		maxBytes: maxBytes,
		allowed:  allowed,
	}
}

// Transcribe runs one audio job for ident. Validation happens before
// any disk I/O or engine call.
func (t *Transcriber) Transcribe(ctx context.Context, ident domain.Identity, audio []byte, mime string) (Transcript, error) {
	if len(audio) == 0 {
		return Transcript{}, ErrNoAudio
	}
	if int64(len(audio)) > t.maxBytes {
		return Transcript{}, fmt.Errorf("%w: %d bytes over limit %d", ErrPayloadTooLarge, len(audio), t.maxBytes)
	}
	if !t.allowed[mime] {
		return Transcript{}, fmt.Errorf("%w: %s", ErrUnsupportedMedia, mime)
	}

	staged, err := t.stage(ident.UserID, audio, mimeExt[mime])
	if err != nil {
		return Transcript{}, fmt.Errorf("stage audio: %w", err)
	}
	defer func() {
		if err := os.Remove(staged); err != nil {
			log.Error().Err(err).Str("module", "voice").Str("file", staged).Msg("remove staged audio")
		}
	}()

	text, err := t.engine.Transcribe(ctx, staged)
	if err != nil {
		return Transcript{}, fmt.Errorf("transcribe staged audio: %w", err)
	}

	log.Info().Str("module", "voice").Str("user", string(ident.UserID)).
		Int("bytes", len(audio)).Msg("transcription complete")

	return Transcript{
		Text:     text,
		Duration: float64(len(audio)) / 1000,
	}, nil
}

// stage writes the payload under a name unique per user and instant.
func (t *Transcriber) stage(uid domain.UserID, audio []byte, ext string) (string, error) {
	if err := os.MkdirAll(t.stageDir, 0o755); err != nil {
		return "", err
	}
	name := fmt.Sprintf("audio_%s_%d%s", uid, time.Now().UnixNano(), ext)
	path := filepath.Join(t.stageDir, name)
	if err := os.WriteFile(path, audio, 0o644); err != nil {
		return "", err
	}
	return path, nil
}
