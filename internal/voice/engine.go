package voice

import (
	"context"
	"fmt"
	"io"

	openai "github.com/sashabaranov/go-openai"
)

// transcriptionPrompt biases the speech model toward interview speech.
const transcriptionPrompt = "This is a spoken answer in a job interview."

// Engine abstracts the external speech services so the pipelines can
// be tested without network access.
type Engine interface {
	// Transcribe turns a staged audio file into text.
	Transcribe(ctx context.Context, path string) (string, error)
	// Synthesize turns text into an audio byte stream.
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// OpenAIEngine speaks to the OpenAI audio endpoints (Whisper for
// speech-to-text, the TTS models for synthesis).
type OpenAIEngine struct {
	client   *openai.Client
	sttModel string
	ttsModel openai.SpeechModel
	voice    openai.SpeechVoice
}

func NewOpenAIEngine(apiKey, sttModel, ttsModel, voice string) *OpenAIEngine {
	return &OpenAIEngine{
		client:   openai.NewClient(apiKey),
		sttModel: sttModel,
		ttsModel: openai.SpeechModel(ttsModel),
		voice:    openai.SpeechVoice(voice),
	}
}

func (e *OpenAIEngine) Transcribe(ctx context.Context, path string) (string, error) {
	resp, err := e.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    e.sttModel,
		FilePath: path,
		Prompt:   transcriptionPrompt,
		Format:   openai.AudioResponseFormatText,
	})
	if err != nil {
		return "", fmt.Errorf("transcription engine: %w", err)
	}
	return resp.Text, nil
}

func (e *OpenAIEngine) Synthesize(ctx context.Context, text string) ([]byte, error) {
	resp, err := e.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          e.ttsModel,
		Input:          text,
		Voice:          e.voice,
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		return nil, fmt.Errorf("synthesis engine: %w", err)
	}
	defer resp.Close()

	audio, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("synthesis engine read: %w", err)
	}
	return audio, nil
}
