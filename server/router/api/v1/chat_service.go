package v1

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

type chatRequest struct {
	Message        string `json:"message"`
	ConversationID *int32 `json:"conversation_id"`
}

type historyMessage struct {
	Content   string `json:"content"`
	IsUser    bool   `json:"is_user"`
	Metadata  any    `json:"metadata,omitempty"`
	CreatedTs int64  `json:"created_ts"`
}

type historyConversation struct {
	ID        int32            `json:"id"`
	Title     string           `json:"title"`
	CreatedTs int64            `json:"created_ts"`
	UpdatedTs int64            `json:"updated_ts"`
	Messages  []historyMessage `json:"messages"`
}

// Chat handles POST /chat. A null conversation_id starts a new
// conversation.
func (s *APIV1Service) Chat(c echo.Context) error {
	ctx := c.Request().Context()
	userID := getUserID(c)

	request := &chatRequest{}
	if err := c.Bind(request); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body").SetInternal(err)
	}
	if request.Message == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "message is required")
	}

	var conversationID int32
	if request.ConversationID != nil {
		conversationID = *request.ConversationID
	}

	result, err := s.Engine.ProcessMessage(ctx, userID, conversationID, request.Message)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, result)
}

// GetChatHistory handles GET /chat/history?limit=.
func (s *APIV1Service) GetChatHistory(c echo.Context) error {
	ctx := c.Request().Context()
	userID := getUserID(c)

	limit := 10
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
		}
		limit = parsed
	}

	history, err := s.Store.GetUserHistory(ctx, userID, limit)
	if err != nil {
		return httpError(err)
	}

	response := make([]historyConversation, 0, len(history))
	for _, entry := range history {
		conversation := historyConversation{
			ID:        entry.Conversation.ID,
			Title:     entry.Conversation.Title,
			CreatedTs: entry.Conversation.CreatedTs,
			UpdatedTs: entry.Conversation.UpdatedTs,
			Messages:  make([]historyMessage, 0, len(entry.Messages)),
		}
		for _, message := range entry.Messages {
			item := historyMessage{
				Content:   message.Content,
				IsUser:    message.IsUser,
				CreatedTs: message.CreatedTs,
			}
			// User and assistant turns carry different metadata
			// shapes, so decode generically to keep every stored
			// field.
			if message.Metadata != "" && message.Metadata != "{}" {
				var metadata map[string]any
				if err := json.Unmarshal([]byte(message.Metadata), &metadata); err == nil {
					item.Metadata = metadata
				}
			}
			conversation.Messages = append(conversation.Messages, item)
		}
		response = append(response, conversation)
	}
	return c.JSON(http.StatusOK, response)
}

// GetRecommendations handles GET /chat/recommendations. Listing never
// stamps the send time, only an attached recommendation does.
func (s *APIV1Service) GetRecommendations(c echo.Context) error {
	ctx := c.Request().Context()
	userID := getUserID(c)

	recommendations, err := s.Proactive.GenerateRecommendations(ctx, userID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, recommendations)
}
