package v1

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/plume-chat/plume/server/auth"
	"github.com/plume-chat/plume/server/internal/observability"
)

const userIDContextKey = "user-id"

// JWTMiddleware authenticates requests with a bearer access token and
// stores the user id on the request context.
func (s *APIV1Service) JWTMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
		token, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok || token == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "missing access token")
		}

		userID, _, err := auth.VerifyAccessToken(token, s.Secret)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid access token").SetInternal(err)
		}

		c.Set(userIDContextKey, userID)

		// Request-scoped logger so downstream services carry the
		// request id and user id in every record.
		reqCtx := observability.NewRequestContext(slog.Default(), userID)
		ctx := observability.WithRequestContext(c.Request().Context(), reqCtx)
		c.SetRequest(c.Request().WithContext(ctx))
		return next(c)
	}
}

func getUserID(c echo.Context) int32 {
	userID, _ := c.Get(userIDContextKey).(int32)
	return userID
}
