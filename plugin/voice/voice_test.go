package voice

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSTTProvider(t *testing.T) {
	provider, err := ParseSTTProvider("whisper")
	require.NoError(t, err)
	assert.Equal(t, STTProviderWhisper, provider)

	_, err = ParseSTTProvider("google")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported STT provider")
}

func TestParseTTSProvider(t *testing.T) {
	provider, err := ParseTTSProvider("elevenlabs")
	require.NoError(t, err)
	assert.Equal(t, TTSProviderElevenLabs, provider)

	_, err = ParseTTSProvider("polly")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported TTS provider")
}

func TestProviderConstructorsRequireKeys(t *testing.T) {
	_, err := NewWhisperSTT("", "", "")
	assert.Error(t, err)

	_, err = NewElevenLabsTTS("", "")
	assert.Error(t, err)
}

func TestElevenLabsDefaults(t *testing.T) {
	tts, err := NewElevenLabsTTS("key", "")
	require.NoError(t, err)
	assert.Equal(t, defaultVoiceID, tts.voiceID)
	assert.Equal(t, defaultTTSModel, tts.model)

	tts, err = NewElevenLabsTTS("key", "custom")
	require.NoError(t, err)
	assert.Equal(t, "custom", tts.voiceID)
}
