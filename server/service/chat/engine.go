package chat

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/pkg/errors"

	svcerrors "github.com/plume-chat/plume/server/internal/errors"
	"github.com/plume-chat/plume/server/internal/observability"
	"github.com/plume-chat/plume/store"
)

// Responder generates a reply for an assembled prompt. The boolean is
// false when the reply is a degraded fallback.
type Responder interface {
	Model() string
	Respond(ctx context.Context, prompt string) (string, bool)
}

// Engine orchestrates the chat pipeline from raw user text to a stored
// assistant reply.
type Engine struct {
	store     *store.Store
	analyzer  *Analyzer
	builder   *ContextBuilder
	proactive *ProactiveEngine
	responder Responder

	now func() time.Time
}

// NewEngine wires the chat pipeline together.
func NewEngine(s *store.Store, analyzer *Analyzer, builder *ContextBuilder, proactive *ProactiveEngine, responder Responder) *Engine {
	return &Engine{
		store:     s,
		analyzer:  analyzer,
		builder:   builder,
		proactive: proactive,
		responder: responder,
		now:       time.Now,
	}
}

// ProcessResult is what the chat endpoint returns to the client.
type ProcessResult struct {
	Response                string           `json:"response"`
	MessageMetadata         *MessageMetadata `json:"message_metadata"`
	ConversationID          int32            `json:"conversation_id"`
	ProactiveRecommendation *string          `json:"proactive_recommendation"`
}

// assistantMetadata is stored with each generated reply.
type assistantMetadata struct {
	ResponseTimeMs int64  `json:"response_time_ms"`
	Model          string `json:"model"`
}

// ProcessMessage runs the full pipeline: analyze the message, track its
// topics, assemble context, generate a reply, consider a proactive
// recommendation, and persist both sides of the exchange. A zero
// conversationID starts a new conversation owned by the user.
func (e *Engine) ProcessMessage(ctx context.Context, userID int32, conversationID int32, text string) (*ProcessResult, error) {
	conversation, err := e.resolveConversation(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}

	metadata := e.analyzer.Analyze(text)
	if len(metadata.Topics) > 0 {
		if err := e.store.UpdateUserTopics(ctx, userID, metadata.Topics); err != nil {
			return nil, errors.Wrap(err, "failed to update user topics")
		}
	}

	prompt, err := e.builder.BuildContext(ctx, userID, conversation.ID, text)
	if err != nil {
		return nil, err
	}

	start := e.now()
	response, fromModel := e.responder.Respond(ctx, prompt)
	elapsed := e.now().Sub(start)
	if !fromModel {
		if rc, ok := observability.FromContext(ctx); ok {
			rc.Warn("serving fallback reply")
		}
	}

	recommendation, err := e.maybeRecommend(ctx, userID)
	if err != nil {
		return nil, err
	}

	rawMetadata, err := metadata.Encode()
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode message metadata")
	}
	if _, err := e.store.CreateMessage(ctx, &store.Message{
		ConversationID: conversation.ID,
		Content:        text,
		IsUser:         true,
		Metadata:       rawMetadata,
	}); err != nil {
		return nil, errors.Wrap(err, "failed to store user message")
	}

	rawReplyMetadata, err := json.Marshal(assistantMetadata{
		ResponseTimeMs: elapsed.Milliseconds(),
		Model:          e.responder.Model(),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode reply metadata")
	}
	if _, err := e.store.CreateMessage(ctx, &store.Message{
		ConversationID: conversation.ID,
		Content:        response,
		IsUser:         false,
		Metadata:       string(rawReplyMetadata),
	}); err != nil {
		return nil, errors.Wrap(err, "failed to store assistant message")
	}

	if rc, ok := observability.FromContext(ctx); ok {
		rc.Info("chat message processed",
			slog.Int64(observability.LogFieldDuration, rc.DurationMs()),
			slog.Int(observability.LogFieldMessageLen, len(text)),
		)
	}

	return &ProcessResult{
		Response:                response,
		MessageMetadata:         metadata,
		ConversationID:          conversation.ID,
		ProactiveRecommendation: recommendation,
	}, nil
}

// resolveConversation loads and ownership-checks an existing
// conversation, or creates a new one when id is zero.
func (e *Engine) resolveConversation(ctx context.Context, userID, id int32) (*store.Conversation, error) {
	if id == 0 {
		conversation, err := e.store.CreateConversation(ctx, userID, "")
		if err != nil {
			return nil, errors.Wrap(err, "failed to create conversation")
		}
		return conversation, nil
	}

	conversations, err := e.store.ListConversations(ctx, &store.FindConversation{ID: &id})
	if err != nil {
		return nil, errors.Wrap(err, "failed to load conversation")
	}
	if len(conversations) == 0 {
		return nil, svcerrors.NotFound("conversation not found")
	}
	conversation := conversations[0]
	if conversation.UserID != userID {
		return nil, svcerrors.Forbidden("conversation belongs to another user")
	}
	return conversation, nil
}

// maybeRecommend attaches the first generated recommendation when the
// frequency gate allows one; the send is stamped only when something is
// actually attached.
func (e *Engine) maybeRecommend(ctx context.Context, userID int32) (*string, error) {
	allowed, err := e.proactive.ShouldSendRecommendation(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, nil
	}

	recommendations, err := e.proactive.GenerateRecommendations(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(recommendations) == 0 {
		return nil, nil
	}

	if err := e.proactive.MarkRecommendationSent(ctx, userID); err != nil {
		return nil, err
	}
	message := recommendations[0].Message
	return &message, nil
}
