package v1

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/plume-chat/plume/server/auth"
	svcerrors "github.com/plume-chat/plume/server/internal/errors"
	"github.com/plume-chat/plume/store"
)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Nickname string `json:"nickname"`
}

type userResponse struct {
	ID       int32  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Nickname string `json:"nickname"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	UserID      int32  `json:"user_id"`
	Username    string `json:"username"`
}

// RegisterUser handles POST /auth/register.
func (s *APIV1Service) RegisterUser(c echo.Context) error {
	ctx := c.Request().Context()

	request := &registerRequest{}
	if err := c.Bind(request); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body").SetInternal(err)
	}
	if request.Username == "" || request.Email == "" || request.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "username, email and password are required")
	}

	existing, err := s.Store.GetUser(ctx, &store.FindUser{Username: &request.Username})
	if err != nil {
		return httpError(err)
	}
	if existing != nil {
		return httpError(svcerrors.Conflict("Username already registered"))
	}
	existing, err = s.Store.GetUser(ctx, &store.FindUser{Email: &request.Email})
	if err != nil {
		return httpError(err)
	}
	if existing != nil {
		return httpError(svcerrors.Conflict("Email already registered"))
	}

	passwordHash, err := auth.HashPassword(request.Password)
	if err != nil {
		return httpError(err)
	}

	user, err := s.Store.CreateUser(ctx, &store.User{
		Username:     request.Username,
		Email:        request.Email,
		PasswordHash: passwordHash,
		Nickname:     request.Nickname,
	})
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusCreated, &userResponse{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
		Nickname: user.Nickname,
	})
}

// Login handles POST /auth/login.
func (s *APIV1Service) Login(c echo.Context) error {
	ctx := c.Request().Context()

	if !s.loginLimiter.Allow(c.RealIP()) {
		return echo.NewHTTPError(http.StatusTooManyRequests, "too many login attempts, try again later")
	}

	request := &loginRequest{}
	if err := c.Bind(request); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body").SetInternal(err)
	}

	user, err := s.Store.GetUser(ctx, &store.FindUser{Username: &request.Username})
	if err != nil {
		return httpError(err)
	}
	if user == nil || !auth.VerifyPassword(request.Password, user.PasswordHash) {
		return httpError(svcerrors.Unauthorized("Incorrect username or password"))
	}
	if user.RowStatus == store.Archived {
		return httpError(svcerrors.Forbidden("Inactive user"))
	}

	ttl := time.Duration(s.Profile.TokenTTLMinutes) * time.Minute
	accessToken, err := auth.GenerateAccessToken(user.ID, user.Username, ttl, s.Secret)
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, &loginResponse{
		AccessToken: accessToken,
		TokenType:   "bearer",
		UserID:      user.ID,
		Username:    user.Username,
	})
}

// GetCurrentUser handles GET /auth/me.
func (s *APIV1Service) GetCurrentUser(c echo.Context) error {
	ctx := c.Request().Context()
	userID := getUserID(c)

	user, err := s.Store.GetUser(ctx, &store.FindUser{ID: &userID})
	if err != nil {
		return httpError(err)
	}
	if user == nil {
		return httpError(svcerrors.Unauthorized("Could not validate credentials"))
	}
	if user.RowStatus == store.Archived {
		return httpError(svcerrors.Forbidden("Inactive user"))
	}

	return c.JSON(http.StatusOK, &userResponse{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
		Nickname: user.Nickname,
	})
}

// UpdatePreferences handles PATCH /auth/me/preferences with a
// merge-patch body of preference keys.
func (s *APIV1Service) UpdatePreferences(c echo.Context) error {
	ctx := c.Request().Context()
	userID := getUserID(c)

	patch := map[string]any{}
	if err := c.Bind(&patch); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body").SetInternal(err)
	}

	prefs, err := s.Store.GetUserPreferences(ctx, userID)
	if err != nil {
		return httpError(err)
	}
	prefs.Merge(patch)
	if err := s.Store.UpsertUserPreferences(ctx, userID, prefs); err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, prefs.Items())
}
