package voice

import (
	"context"
	"io"

	"github.com/pkg/errors"
	"github.com/sashabaranov/go-openai"
)

// WhisperSTT transcribes audio through the OpenAI Whisper API.
type WhisperSTT struct {
	client *openai.Client
	model  string
}

// NewWhisperSTT creates a Whisper transcriber. An empty model defaults
// to whisper-1.
func NewWhisperSTT(apiKey, baseURL, model string) (*WhisperSTT, error) {
	if apiKey == "" {
		return nil, errors.New("whisper STT requires an API key, set PLUME_LLM_API_KEY")
	}
	if model == "" {
		model = openai.Whisper1
	}

	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &WhisperSTT{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}, nil
}

// Transcribe sends the audio stream to Whisper and returns the text.
// The filename matters, Whisper uses its extension to sniff the codec.
func (w *WhisperSTT) Transcribe(ctx context.Context, filename string, audio io.Reader) (string, error) {
	resp, err := w.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    w.model,
		FilePath: filename,
		Reader:   audio,
	})
	if err != nil {
		return "", errors.Wrap(err, "whisper transcription failed")
	}
	return resp.Text, nil
}
