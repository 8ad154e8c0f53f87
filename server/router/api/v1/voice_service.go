package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	svcerrors "github.com/plume-chat/plume/server/internal/errors"
)

type sttResponse struct {
	Text string `json:"text"`
}

type ttsRequest struct {
	Text    string `json:"text"`
	VoiceID string `json:"voice_id"`
}

// SpeechToText handles POST /voice/stt with a multipart audio file.
func (s *APIV1Service) SpeechToText(c echo.Context) error {
	ctx := c.Request().Context()

	if s.Transcriber == nil {
		return echo.NewHTTPError(http.StatusNotImplemented, "speech-to-text is not configured")
	}

	fileHeader, err := c.FormFile("audio")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "audio file is required").SetInternal(err)
	}
	file, err := fileHeader.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "failed to read audio file").SetInternal(err)
	}
	defer file.Close()

	text, err := s.Transcriber.Transcribe(ctx, fileHeader.Filename, file)
	if err != nil {
		return httpError(svcerrors.ProviderFailed("transcription failed", err))
	}
	return c.JSON(http.StatusOK, &sttResponse{Text: text})
}

// TextToSpeech handles POST /voice/tts and streams back MP3 audio.
func (s *APIV1Service) TextToSpeech(c echo.Context) error {
	ctx := c.Request().Context()

	if s.Synthesizer == nil {
		return echo.NewHTTPError(http.StatusNotImplemented, "text-to-speech is not configured")
	}

	request := &ttsRequest{}
	if err := c.Bind(request); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body").SetInternal(err)
	}
	if request.Text == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "text is required")
	}

	if err := s.ttsSemaphore.Acquire(ctx, 1); err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "synthesis capacity exhausted").SetInternal(err)
	}
	defer s.ttsSemaphore.Release(1)

	audio, mimeType, err := s.Synthesizer.Synthesize(ctx, request.Text, request.VoiceID)
	if err != nil {
		return httpError(svcerrors.ProviderFailed("speech synthesis failed", err))
	}
	return c.Blob(http.StatusOK, mimeType, audio)
}
