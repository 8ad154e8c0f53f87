// Package v1 exposes the REST API under /api/v1.
package v1

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/sync/semaphore"

	"github.com/plume-chat/plume/internal/profile"
	"github.com/plume-chat/plume/plugin/voice"
	svcerrors "github.com/plume-chat/plume/server/internal/errors"
	"github.com/plume-chat/plume/server/middleware"
	"github.com/plume-chat/plume/server/service/chat"
	"github.com/plume-chat/plume/store"
)

// APIV1Service wires the HTTP handlers to the engine and store.
type APIV1Service struct {
	Secret  string
	Profile *profile.Profile
	Store   *store.Store

	Engine    *chat.Engine
	Proactive *chat.ProactiveEngine

	Transcriber voice.Transcriber
	Synthesizer voice.Synthesizer

	loginLimiter *middleware.RateLimiter
	// ttsSemaphore caps concurrent speech synthesis calls, audio
	// payloads are large and the upstream API is slow.
	ttsSemaphore *semaphore.Weighted
}

// NewAPIV1Service creates the API service. Transcriber and Synthesizer
// may be nil when the corresponding provider is not configured.
func NewAPIV1Service(secret string, profile *profile.Profile, store *store.Store, engine *chat.Engine, proactive *chat.ProactiveEngine, transcriber voice.Transcriber, synthesizer voice.Synthesizer) *APIV1Service {
	return &APIV1Service{
		Secret:       secret,
		Profile:      profile,
		Store:        store,
		Engine:       engine,
		Proactive:    proactive,
		Transcriber:  transcriber,
		Synthesizer:  synthesizer,
		loginLimiter: middleware.NewRateLimiter(time.Minute/10, 5),
		ttsSemaphore: semaphore.NewWeighted(3),
	}
}

// Register mounts all routes on the echo server.
func (s *APIV1Service) Register(echoServer *echo.Echo) {
	apiV1 := echoServer.Group("/api/v1")

	apiV1.POST("/auth/register", s.RegisterUser)
	apiV1.POST("/auth/login", s.Login)

	authed := apiV1.Group("", s.JWTMiddleware)
	authed.GET("/auth/me", s.GetCurrentUser)
	authed.PATCH("/auth/me/preferences", s.UpdatePreferences)
	authed.POST("/chat", s.Chat)
	authed.GET("/chat/history", s.GetChatHistory)
	authed.GET("/chat/recommendations", s.GetRecommendations)
	authed.POST("/voice/stt", s.SpeechToText)
	authed.POST("/voice/tts", s.TextToSpeech)
}

// httpError maps a service error to an echo HTTPError. Unknown errors
// become opaque 500s.
func httpError(err error) error {
	code := svcerrors.GetCodeFromError(err, svcerrors.ErrCodeInternal)
	status := http.StatusInternalServerError
	switch code {
	case svcerrors.ErrCodeInvalidArgument:
		status = http.StatusBadRequest
	case svcerrors.ErrCodeConflict:
		status = http.StatusConflict
	case svcerrors.ErrCodeUnauthorized:
		status = http.StatusUnauthorized
	case svcerrors.ErrCodeForbidden:
		status = http.StatusForbidden
	case svcerrors.ErrCodeNotFound:
		status = http.StatusNotFound
	case svcerrors.ErrCodeProviderFailed:
		status = http.StatusBadGateway
	}

	if status == http.StatusInternalServerError {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error").SetInternal(err)
	}

	message := err.Error()
	var serviceErr *svcerrors.ServiceError
	if errors.As(err, &serviceErr) {
		message = serviceErr.Message
	}
	return echo.NewHTTPError(status, message)
}
