// Package voice provides speech-to-text and text-to-speech providers
// behind small interfaces so handlers never depend on a vendor SDK.
package voice

import (
	"context"
	"io"

	"github.com/pkg/errors"
)

// STTProvider identifies a supported speech-to-text backend.
type STTProvider string

// TTSProvider identifies a supported text-to-speech backend.
type TTSProvider string

const (
	STTProviderWhisper STTProvider = "whisper"

	TTSProviderElevenLabs TTSProvider = "elevenlabs"
)

// ParseSTTProvider resolves a configured provider name. Unknown names
// are a configuration error surfaced at startup, not at request time.
func ParseSTTProvider(name string) (STTProvider, error) {
	switch STTProvider(name) {
	case STTProviderWhisper:
		return STTProviderWhisper, nil
	default:
		return "", errors.Errorf("unsupported STT provider %q", name)
	}
}

// ParseTTSProvider resolves a configured provider name.
func ParseTTSProvider(name string) (TTSProvider, error) {
	switch TTSProvider(name) {
	case TTSProviderElevenLabs:
		return TTSProviderElevenLabs, nil
	default:
		return "", errors.Errorf("unsupported TTS provider %q", name)
	}
}

// Transcriber converts recorded audio into text.
type Transcriber interface {
	Transcribe(ctx context.Context, filename string, audio io.Reader) (string, error)
}

// Synthesizer converts text into spoken audio.
type Synthesizer interface {
	// Synthesize returns encoded audio bytes and their MIME type. An
	// empty voiceID selects the provider's default voice.
	Synthesize(ctx context.Context, text, voiceID string) ([]byte, string, error)
}
