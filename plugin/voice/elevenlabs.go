package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

const (
	elevenLabsEndpoint = "https://api.elevenlabs.io/v1/text-to-speech"

	// Rachel, the ElevenLabs default voice.
	defaultVoiceID = "21m00Tcm4TlvDq8ikWAM"

	defaultTTSModel = "eleven_monolingual_v1"
)

// ElevenLabsTTS synthesizes speech through the ElevenLabs API.
type ElevenLabsTTS struct {
	apiKey  string
	voiceID string
	model   string
	client  *http.Client
}

// NewElevenLabsTTS creates an ElevenLabs synthesizer. Empty voiceID
// selects the default voice.
func NewElevenLabsTTS(apiKey, voiceID string) (*ElevenLabsTTS, error) {
	if apiKey == "" {
		return nil, errors.New("elevenlabs TTS requires an API key, set PLUME_ELEVENLABS_API_KEY")
	}
	if voiceID == "" {
		voiceID = defaultVoiceID
	}
	return &ElevenLabsTTS{
		apiKey:  apiKey,
		voiceID: voiceID,
		model:   defaultTTSModel,
		client:  &http.Client{Timeout: 30 * time.Second},
	}, nil
}

type elevenLabsRequest struct {
	Text          string                 `json:"text"`
	ModelID       string                 `json:"model_id"`
	VoiceSettings elevenLabsVoiceSetting `json:"voice_settings"`
}

type elevenLabsVoiceSetting struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

// Synthesize converts text to MP3 audio.
func (e *ElevenLabsTTS) Synthesize(ctx context.Context, text, voiceID string) ([]byte, string, error) {
	if voiceID == "" {
		voiceID = e.voiceID
	}
	payload, err := json.Marshal(elevenLabsRequest{
		Text:    text,
		ModelID: e.model,
		VoiceSettings: elevenLabsVoiceSetting{
			Stability:       0.5,
			SimilarityBoost: 0.5,
		},
	})
	if err != nil {
		return nil, "", errors.Wrap(err, "failed to encode TTS request")
	}

	url := fmt.Sprintf("%s/%s", elevenLabsEndpoint, voiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, "", errors.Wrap(err, "failed to build TTS request")
	}
	req.Header.Set("Accept", "audio/mpeg")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, "", errors.Wrap(err, "TTS request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, "", errors.Errorf("TTS request returned %d: %s", resp.StatusCode, string(body))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", errors.Wrap(err, "failed to read TTS response")
	}
	return audio, "audio/mpeg", nil
}
