package voice

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/interviewly/voicegate/internal/domain"
)

// speechWordsPerSecond is the rough speaking rate used to estimate the
// playback duration of synthesized audio.
const speechWordsPerSecond = 2.5

// SynthesisArtifact references one staged synthesis result.
type SynthesisArtifact struct {
	AudioURL string
	Duration int
}

// Synthesizer is the speech synthesis pipeline: validate, call the
// engine, stage the audio, hand back a fetchable reference.
type Synthesizer struct {
	engine   Engine
	stageDir string
	baseURL  string
}

func NewSynthesizer(engine Engine, stageDir, baseURL string) *Synthesizer {
	return &Synthesizer{
		engine:   engine,
		stageDir: stageDir,
		baseURL:  strings.TrimSuffix(baseURL, "/"),
	}
}

// Synthesize turns text into a staged audio artifact. Empty text is
// rejected before any engine call; a failed staging leaves no partial
// artifact behind.
func (s *Synthesizer) Synthesize(ctx context.Context, ident domain.Identity, text string) (SynthesisArtifact, error) {
	if strings.TrimSpace(text) == "" {
		return SynthesisArtifact{}, ErrEmptyText
	}

	audio, err := s.engine.Synthesize(ctx, text)
	if err != nil {
		return SynthesisArtifact{}, fmt.Errorf("synthesize speech: %w", err)
	}

	if err := os.MkdirAll(s.stageDir, 0o755); err != nil {
		return SynthesisArtifact{}, fmt.Errorf("stage synthesis: %w", err)
	}
	name := fmt.Sprintf("tts_%s.mp3", uuid.NewString())
	path := filepath.Join(s.stageDir, name)
	if err := os.WriteFile(path, audio, 0o644); err != nil {
		_ = os.Remove(path)
		return SynthesisArtifact{}, fmt.Errorf("stage synthesis: %w", err)
	}

	log.Info().Str("module", "voice").Str("user", string(ident.UserID)).
		Str("file", name).Msg("synthesis complete")

	words := len(strings.Fields(text))
	return SynthesisArtifact{
		AudioURL: s.baseURL + "/" + name,
		Duration: int(math.Ceil(float64(words) / speechWordsPerSecond)),
	}, nil
}
