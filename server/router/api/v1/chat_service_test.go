package v1

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plume-chat/plume/store"
)

func TestChatEndpoint(t *testing.T) {
	e, _ := newTestServer(t)
	token := registerAndLogin(t, e, "alice")

	rec := doJSON(e, http.MethodPost, "/api/v1/chat", token, `{"message":"hello technology"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var response struct {
		Response        string `json:"response"`
		ConversationID  int32  `json:"conversation_id"`
		MessageMetadata struct {
			Topics []string `json:"topics"`
		} `json:"message_metadata"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, "model reply", response.Response)
	assert.NotZero(t, response.ConversationID)
	assert.Equal(t, []string{"technology"}, response.MessageMetadata.Topics)

	// Reusing the conversation keeps its id.
	body := fmt.Sprintf(`{"message":"more please","conversation_id":%d}`, response.ConversationID)
	rec = doJSON(e, http.MethodPost, "/api/v1/chat", token, body)
	require.Equal(t, http.StatusOK, rec.Code)

	// A foreign conversation id is rejected.
	otherToken := registerAndLogin(t, e, "bob")
	rec = doJSON(e, http.MethodPost, "/api/v1/chat", otherToken, body)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(e, http.MethodPost, "/api/v1/chat", token, `{"message":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(e, http.MethodPost, "/api/v1/chat", "", `{"message":"hi"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestChatHistoryEndpoint(t *testing.T) {
	e, _ := newTestServer(t)
	token := registerAndLogin(t, e, "alice")

	rec := doJSON(e, http.MethodPost, "/api/v1/chat", token, `{"message":"first"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(e, http.MethodGet, "/api/v1/chat/history", token, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var history []struct {
		ID       int32 `json:"id"`
		Messages []struct {
			Content  string         `json:"content"`
			IsUser   bool           `json:"is_user"`
			Metadata map[string]any `json:"metadata"`
		} `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	require.Len(t, history, 1)
	require.Len(t, history[0].Messages, 2)
	assert.Equal(t, "first", history[0].Messages[0].Content)
	assert.True(t, history[0].Messages[0].IsUser)
	assert.False(t, history[0].Messages[1].IsUser)

	// User turns keep their analysis fields, assistant turns keep the
	// generation fields stored with them.
	userMetadata := history[0].Messages[0].Metadata
	require.NotNil(t, userMetadata)
	assert.Contains(t, userMetadata, "sentiment")
	assistantMetadata := history[0].Messages[1].Metadata
	require.NotNil(t, assistantMetadata)
	assert.Equal(t, "test-model", assistantMetadata["model"])
	assert.Contains(t, assistantMetadata, "response_time_ms")

	rec = doJSON(e, http.MethodGet, "/api/v1/chat/history?limit=0", token, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Another user sees an empty history.
	otherToken := registerAndLogin(t, e, "bob")
	rec = doJSON(e, http.MethodGet, "/api/v1/chat/history", otherToken, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestRecommendationsEndpoint(t *testing.T) {
	e, ts := newTestServer(t)
	token := registerAndLogin(t, e, "alice")

	rec := doJSON(e, http.MethodGet, "/api/v1/chat/recommendations", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())

	// Three mentions of the same topic produce a frequent_topic entry.
	var conversationID int32
	for i := 0; i < 3; i++ {
		body := `{"message":"finance question"}`
		if conversationID != 0 {
			body = fmt.Sprintf(`{"message":"finance question","conversation_id":%d}`, conversationID)
		}
		postRec := doJSON(e, http.MethodPost, "/api/v1/chat", token, body)
		require.Equal(t, http.StatusOK, postRec.Code)
		var response struct {
			ConversationID int32 `json:"conversation_id"`
		}
		require.NoError(t, json.Unmarshal(postRec.Body.Bytes(), &response))
		conversationID = response.ConversationID
	}

	rec = doJSON(e, http.MethodGet, "/api/v1/chat/recommendations", token, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var recommendations []struct {
		Type  string `json:"type"`
		Topic string `json:"topic"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &recommendations))
	require.NotEmpty(t, recommendations)
	assert.Equal(t, "frequent_topic", recommendations[0].Type)
	assert.Equal(t, "finance", recommendations[0].Topic)

	// Listing never stamps the last send time.
	user, err := ts.GetUser(context.Background(), &store.FindUser{Username: strPtr("alice")})
	require.NoError(t, err)
	prefs, err := ts.GetUserPreferences(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Empty(t, prefs.LastRecommendationTime)
}

func strPtr(s string) *string { return &s }
