package v1

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTranscriber struct {
	text string
	err  error
}

func (f *fakeTranscriber) Transcribe(_ context.Context, _ string, _ io.Reader) (string, error) {
	return f.text, f.err
}

type fakeSynthesizer struct {
	audio []byte
	err   error

	lastVoiceID string
}

func (f *fakeSynthesizer) Synthesize(_ context.Context, _, voiceID string) ([]byte, string, error) {
	f.lastVoiceID = voiceID
	if f.err != nil {
		return nil, "", f.err
	}
	return f.audio, "audio/mpeg", nil
}

func doMultipart(e *echo.Echo, token string, audio []byte) *httptest.ResponseRecorder {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, _ := writer.CreateFormFile("audio", "clip.mp3")
	_, _ = part.Write(audio)
	_ = writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/voice/stt", &body)
	req.Header.Set(echo.HeaderContentType, writer.FormDataContentType())
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestSpeechToTextEndpoint(t *testing.T) {
	e, _ := newTestServerWithVoice(t, &fakeTranscriber{text: "hello world"}, nil)
	token := registerAndLogin(t, e, "alice")

	rec := doMultipart(e, token, []byte("audio-bytes"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"text":"hello world"}`, rec.Body.String())

	// Missing file.
	rec = doJSON(e, http.MethodPost, "/api/v1/voice/stt", token, "{}")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSpeechToTextProviderFailure(t *testing.T) {
	e, _ := newTestServerWithVoice(t, &fakeTranscriber{err: errors.New("upstream refused")}, nil)
	token := registerAndLogin(t, e, "alice")

	rec := doMultipart(e, token, []byte("audio-bytes"))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "transcription failed")
}

func TestSpeechToTextNotConfigured(t *testing.T) {
	e, _ := newTestServer(t)
	token := registerAndLogin(t, e, "alice")

	rec := doMultipart(e, token, []byte("audio-bytes"))
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}

func TestTextToSpeechEndpoint(t *testing.T) {
	synthesizer := &fakeSynthesizer{audio: []byte("mp3-bytes")}
	e, _ := newTestServerWithVoice(t, nil, synthesizer)
	token := registerAndLogin(t, e, "alice")

	rec := doJSON(e, http.MethodPost, "/api/v1/voice/tts", token, `{"text":"say this","voice_id":"custom-voice"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "audio/mpeg", rec.Header().Get(echo.HeaderContentType))
	assert.Equal(t, "mp3-bytes", rec.Body.String())
	assert.Equal(t, "custom-voice", synthesizer.lastVoiceID)

	rec = doJSON(e, http.MethodPost, "/api/v1/voice/tts", token, `{"text":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTextToSpeechProviderFailure(t *testing.T) {
	e, _ := newTestServerWithVoice(t, nil, &fakeSynthesizer{err: errors.New("voice service down")})
	token := registerAndLogin(t, e, "alice")

	rec := doJSON(e, http.MethodPost, "/api/v1/voice/tts", token, `{"text":"say this"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}
