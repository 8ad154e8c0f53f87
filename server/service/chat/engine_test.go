package chat

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plume-chat/plume/server/ai"
	svcerrors "github.com/plume-chat/plume/server/internal/errors"
	"github.com/plume-chat/plume/store"
	storetest "github.com/plume-chat/plume/store/test"
)

type fakeResponder struct {
	reply string
	fail  bool

	lastPrompt string
}

func (f *fakeResponder) Model() string { return "test-model" }

func (f *fakeResponder) Respond(_ context.Context, prompt string) (string, bool) {
	f.lastPrompt = prompt
	if f.fail {
		return ai.FallbackReply, false
	}
	return f.reply, true
}

func newTestEngine(t *testing.T, responder Responder) (*Engine, *store.Store) {
	ts := storetest.NewTestingStore(t)
	analyzer := NewAnalyzer(nil)
	builder := NewContextBuilder(ts, 10, 4000)
	proactive := NewProactiveEngine(ts)
	return NewEngine(ts, analyzer, builder, proactive, responder), ts
}

func TestProcessMessageNewConversation(t *testing.T) {
	ctx := context.Background()
	responder := &fakeResponder{reply: "hello back"}
	engine, ts := newTestEngine(t, responder)
	user, err := ts.CreateUser(ctx, &store.User{Username: "alice", Email: "a@example.com", PasswordHash: "x"})
	require.NoError(t, err)
	// Opt out of recommendations to keep the pipeline assertions focused.
	require.NoError(t, ts.UpsertUserPreferences(ctx, user.ID, &store.Preferences{DisableProactive: true}))

	result, err := engine.ProcessMessage(ctx, user.ID, 0, "tell me about technology")
	require.NoError(t, err)

	assert.Equal(t, "hello back", result.Response)
	assert.Equal(t, []string{"technology"}, result.MessageMetadata.Topics)
	assert.NotZero(t, result.ConversationID)
	assert.Nil(t, result.ProactiveRecommendation)

	// Exactly one conversation with two stored messages.
	conversations, err := ts.ListConversations(ctx, &store.FindConversation{UserID: &user.ID})
	require.NoError(t, err)
	require.Len(t, conversations, 1)
	messages, err := ts.ListMessages(ctx, &store.FindMessage{ConversationID: &result.ConversationID})
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.True(t, messages[0].IsUser)
	assert.Equal(t, "tell me about technology", messages[0].Content)
	assert.False(t, messages[1].IsUser)
	assert.Equal(t, "hello back", messages[1].Content)
	assert.Contains(t, messages[1].Metadata, `"model":"test-model"`)
	assert.Contains(t, messages[1].Metadata, "response_time_ms")

	// Topic mention was recorded.
	topics, err := ts.ListUserTopics(ctx, &store.FindUserTopic{UserID: &user.ID})
	require.NoError(t, err)
	require.Len(t, topics, 1)
	assert.Equal(t, "technology", topics[0].Topic)
	assert.Equal(t, int32(1), topics[0].Weight)
}

func TestProcessMessageExistingConversationHistory(t *testing.T) {
	ctx := context.Background()
	responder := &fakeResponder{reply: "second reply"}
	engine, ts := newTestEngine(t, responder)
	user, err := ts.CreateUser(ctx, &store.User{Username: "alice", Email: "a@example.com", PasswordHash: "x"})
	require.NoError(t, err)
	require.NoError(t, ts.UpsertUserPreferences(ctx, user.ID, &store.Preferences{DisableProactive: true}))

	first, err := engine.ProcessMessage(ctx, user.ID, 0, "first question")
	require.NoError(t, err)

	second, err := engine.ProcessMessage(ctx, user.ID, first.ConversationID, "second question")
	require.NoError(t, err)
	assert.Equal(t, first.ConversationID, second.ConversationID)

	// The second prompt replays the first exchange.
	assert.Contains(t, responder.lastPrompt, "User: first question")
	assert.Contains(t, responder.lastPrompt, "second reply")

	messages, err := ts.ListMessages(ctx, &store.FindMessage{ConversationID: &first.ConversationID})
	require.NoError(t, err)
	assert.Len(t, messages, 4)
}

func TestProcessMessageConversationOwnership(t *testing.T) {
	ctx := context.Background()
	engine, ts := newTestEngine(t, &fakeResponder{reply: "ok"})
	alice, err := ts.CreateUser(ctx, &store.User{Username: "alice", Email: "a@example.com", PasswordHash: "x"})
	require.NoError(t, err)
	bob, err := ts.CreateUser(ctx, &store.User{Username: "bob", Email: "b@example.com", PasswordHash: "x"})
	require.NoError(t, err)

	conversation, err := ts.CreateConversation(ctx, alice.ID, "private")
	require.NoError(t, err)

	_, err = engine.ProcessMessage(ctx, bob.ID, conversation.ID, "hi")
	assert.True(t, svcerrors.IsCode(err, svcerrors.ErrCodeForbidden))

	_, err = engine.ProcessMessage(ctx, bob.ID, 999, "hi")
	assert.True(t, svcerrors.IsCode(err, svcerrors.ErrCodeNotFound))
}

func TestProcessMessageFallbackReply(t *testing.T) {
	ctx := context.Background()
	engine, ts := newTestEngine(t, &fakeResponder{fail: true})
	user, err := ts.CreateUser(ctx, &store.User{Username: "alice", Email: "a@example.com", PasswordHash: "x"})
	require.NoError(t, err)
	require.NoError(t, ts.UpsertUserPreferences(ctx, user.ID, &store.Preferences{DisableProactive: true}))

	result, err := engine.ProcessMessage(ctx, user.ID, 0, "hello")
	require.NoError(t, err)
	assert.Equal(t, ai.FallbackReply, result.Response)

	// The fallback is still persisted as the assistant turn.
	messages, err := ts.ListMessages(ctx, &store.FindMessage{ConversationID: &result.ConversationID})
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, ai.FallbackReply, messages[1].Content)
}

func TestProcessMessageAttachesRecommendationOnce(t *testing.T) {
	ctx := context.Background()
	engine, ts := newTestEngine(t, &fakeResponder{reply: "ok"})
	user, err := ts.CreateUser(ctx, &store.User{Username: "alice", Email: "a@example.com", PasswordHash: "x"})
	require.NoError(t, err)

	result, err := engine.ProcessMessage(ctx, user.ID, 0, "news please")
	require.NoError(t, err)
	// One mention is not enough history for any recommendation.
	assert.Nil(t, result.ProactiveRecommendation)

	// Recommendations consider only already persisted messages, so the
	// third mention is visible on the fourth call.
	for i := 0; i < 3; i++ {
		result, err = engine.ProcessMessage(ctx, user.ID, result.ConversationID, "more news please")
		require.NoError(t, err)
	}
	require.NotNil(t, result.ProactiveRecommendation)
	assert.Contains(t, *result.ProactiveRecommendation, "news")

	// The send was stamped, an immediate next call stays quiet.
	prefs, err := ts.GetUserPreferences(ctx, user.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, prefs.LastRecommendationTime)

	result, err = engine.ProcessMessage(ctx, user.ID, result.ConversationID, "even more news")
	require.NoError(t, err)
	assert.Nil(t, result.ProactiveRecommendation)
}

func TestResponderFallback(t *testing.T) {
	responder := ai.NewResponder(failingProvider{})
	reply, fromModel := responder.Respond(context.Background(), "prompt")
	assert.False(t, fromModel)
	assert.Equal(t, ai.FallbackReply, reply)
}

type failingProvider struct{}

func (failingProvider) Model() string { return "failing" }

func (failingProvider) Complete(context.Context, string) (string, error) {
	return "", errors.New("upstream down")
}
