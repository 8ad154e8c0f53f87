package v1

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plume-chat/plume/internal/profile"
	"github.com/plume-chat/plume/plugin/voice"
	"github.com/plume-chat/plume/server/service/chat"
	"github.com/plume-chat/plume/store"
	storetest "github.com/plume-chat/plume/store/test"
)

type staticResponder struct {
	reply string
}

func (r *staticResponder) Model() string { return "test-model" }

func (r *staticResponder) Respond(context.Context, string) (string, bool) {
	return r.reply, true
}

func newTestServer(t *testing.T) (*echo.Echo, *store.Store) {
	return newTestServerWithVoice(t, nil, nil)
}

func newTestServerWithVoice(t *testing.T, transcriber voice.Transcriber, synthesizer voice.Synthesizer) (*echo.Echo, *store.Store) {
	t.Helper()
	ts := storetest.NewTestingStore(t)
	testProfile := &profile.Profile{
		Mode:              "dev",
		Driver:            "sqlite",
		Secret:            "test-secret",
		TokenTTLMinutes:   30,
		ContextMaxHistory: 10,
		ContextMaxTokens:  4000,
	}

	analyzer := chat.NewAnalyzer(nil)
	builder := chat.NewContextBuilder(ts, testProfile.ContextMaxHistory, testProfile.ContextMaxTokens)
	proactive := chat.NewProactiveEngine(ts)
	engine := chat.NewEngine(ts, analyzer, builder, proactive, &staticResponder{reply: "model reply"})

	echoServer := echo.New()
	service := NewAPIV1Service(testProfile.Secret, testProfile, ts, engine, proactive, transcriber, synthesizer)
	service.Register(echoServer)
	return echoServer, ts
}

func doJSON(e *echo.Echo, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func registerAndLogin(t *testing.T, e *echo.Echo, username string) string {
	t.Helper()
	body := `{"username":"` + username + `","email":"` + username + `@example.com","password":"secret123","nickname":"Test"}`
	rec := doJSON(e, http.MethodPost, "/api/v1/auth/register", "", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = doJSON(e, http.MethodPost, "/api/v1/auth/login", "", `{"username":"`+username+`","password":"secret123"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var login map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &login))
	assert.Equal(t, "bearer", login["token_type"])
	return login["access_token"].(string)
}

func TestRegister(t *testing.T) {
	e, _ := newTestServer(t)

	rec := doJSON(e, http.MethodPost, "/api/v1/auth/register", "", `{"username":"alice","email":"alice@example.com","password":"secret123"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var response map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, "alice", response["username"])
	assert.NotContains(t, rec.Body.String(), "password")
	assert.NotContains(t, rec.Body.String(), "hash")

	// Duplicate username.
	rec = doJSON(e, http.MethodPost, "/api/v1/auth/register", "", `{"username":"alice","email":"other@example.com","password":"secret123"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "Username already registered")

	// Duplicate email.
	rec = doJSON(e, http.MethodPost, "/api/v1/auth/register", "", `{"username":"bob","email":"alice@example.com","password":"secret123"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "Email already registered")

	// Missing fields.
	rec = doJSON(e, http.MethodPost, "/api/v1/auth/register", "", `{"username":"carol"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogin(t *testing.T) {
	e, ts := newTestServer(t)
	token := registerAndLogin(t, e, "alice")
	assert.NotEmpty(t, token)

	rec := doJSON(e, http.MethodPost, "/api/v1/auth/login", "", `{"username":"alice","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Incorrect username or password")

	rec = doJSON(e, http.MethodPost, "/api/v1/auth/login", "", `{"username":"nobody","password":"secret123"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Archived accounts cannot sign in.
	username := "alice"
	user, err := ts.GetUser(context.Background(), &store.FindUser{Username: &username})
	require.NoError(t, err)
	archived := store.Archived
	_, err = ts.UpdateUser(context.Background(), &store.UpdateUser{ID: user.ID, RowStatus: &archived})
	require.NoError(t, err)

	rec = doJSON(e, http.MethodPost, "/api/v1/auth/login", "", `{"username":"alice","password":"secret123"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "Inactive user")
}

func TestGetCurrentUser(t *testing.T) {
	e, _ := newTestServer(t)
	token := registerAndLogin(t, e, "alice")

	rec := doJSON(e, http.MethodGet, "/api/v1/auth/me", token, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var response map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, "alice", response["username"])
	assert.Equal(t, "alice@example.com", response["email"])

	rec = doJSON(e, http.MethodGet, "/api/v1/auth/me", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(e, http.MethodGet, "/api/v1/auth/me", "bogus-token", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUpdatePreferences(t *testing.T) {
	e, ts := newTestServer(t)
	token := registerAndLogin(t, e, "alice")

	rec := doJSON(e, http.MethodPatch, "/api/v1/auth/me/preferences", token, `{"recommendation_frequency":"high","theme":"dark"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	// Patching another key keeps existing ones.
	rec = doJSON(e, http.MethodPatch, "/api/v1/auth/me/preferences", token, `{"disable_proactive":true}`)
	require.Equal(t, http.StatusOK, rec.Code)

	username := "alice"
	user, err := ts.GetUser(context.Background(), &store.FindUser{Username: &username})
	require.NoError(t, err)
	prefs, err := ts.GetUserPreferences(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, "high", prefs.RecommendationFrequency)
	assert.True(t, prefs.DisableProactive)
	assert.Equal(t, "dark", prefs.Extra["theme"])
}
