package chat

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/plume-chat/plume/store"
)

const contextPreamble = "You are a helpful assistant that learns from user interactions. " +
	"You should tailor your responses based on the user's history " +
	"and preferences. "

// ContextBuilder assembles the prompt sent to the model from the
// conversation history, stored interests and preferences.
type ContextBuilder struct {
	store *store.Store

	// MaxHistoryItems caps how many recent messages are replayed.
	MaxHistoryItems int
	// MaxTokens bounds the rendered prompt, estimated at roughly
	// four characters per token.
	MaxTokens int
}

// NewContextBuilder creates a context builder with the given limits.
// Non-positive limits fall back to 10 items and 4000 tokens.
func NewContextBuilder(s *store.Store, maxHistoryItems, maxTokens int) *ContextBuilder {
	if maxHistoryItems <= 0 {
		maxHistoryItems = 10
	}
	if maxTokens <= 0 {
		maxTokens = 4000
	}
	return &ContextBuilder{
		store:           s,
		MaxHistoryItems: maxHistoryItems,
		MaxTokens:       maxTokens,
	}
}

// BuildContext renders the full prompt for the user's current message.
func (b *ContextBuilder) BuildContext(ctx context.Context, userID, conversationID int32, message string) (string, error) {
	history, err := b.conversationHistory(ctx, conversationID)
	if err != nil {
		return "", errors.Wrap(err, "failed to load conversation history")
	}

	topics, err := b.store.ListUserTopics(ctx, &store.FindUserTopic{UserID: &userID})
	if err != nil {
		return "", errors.Wrap(err, "failed to load user topics")
	}

	prefs, err := b.store.GetUserPreferences(ctx, userID)
	if err != nil {
		return "", errors.Wrap(err, "failed to load user preferences")
	}

	return b.render(message, history, topics, prefs), nil
}

type historyLine struct {
	content string
	isUser  bool
}

// conversationHistory returns the most recent MaxHistoryItems messages
// of the conversation, oldest first. A zero conversation ID means a new
// conversation with no history.
func (b *ContextBuilder) conversationHistory(ctx context.Context, conversationID int32) ([]historyLine, error) {
	if conversationID == 0 {
		return nil, nil
	}

	messages, err := b.store.ListMessages(ctx, &store.FindMessage{ConversationID: &conversationID})
	if err != nil {
		return nil, err
	}

	if len(messages) > b.MaxHistoryItems {
		messages = messages[len(messages)-b.MaxHistoryItems:]
	}

	lines := make([]historyLine, 0, len(messages))
	for _, message := range messages {
		lines = append(lines, historyLine{content: message.Content, isUser: message.IsUser})
	}
	return lines, nil
}

func (b *ContextBuilder) render(message string, history []historyLine, topics []*store.UserTopic, prefs *store.Preferences) string {
	var sb strings.Builder
	sb.WriteString(contextPreamble)

	if items := prefs.Items(); len(items) > 0 {
		keys := make([]string, 0, len(items))
		for key := range items {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, key := range keys {
			parts = append(parts, fmt.Sprintf("%s: %v", key, items[key]))
		}
		sb.WriteString("The user has the following preferences: ")
		sb.WriteString(strings.Join(parts, ", "))
		sb.WriteString(". ")
	}

	if len(topics) > 0 {
		sorted := make([]*store.UserTopic, len(topics))
		copy(sorted, topics)
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].Weight > sorted[j].Weight
		})
		if len(sorted) > 5 {
			sorted = sorted[:5]
		}
		names := make([]string, 0, len(sorted))
		for _, topic := range sorted {
			names = append(names, topic.Topic)
		}
		sb.WriteString("The user has shown interest in the following topics: ")
		sb.WriteString(strings.Join(names, ", "))
		sb.WriteString(". ")
	}

	head := sb.String()
	tail := fmt.Sprintf("\nUser: %s\nAssistant: ", message)

	// Drop oldest history lines until the estimate fits. The preamble,
	// preference and topic clauses and the final cue always survive.
	budget := b.MaxTokens * 4
	for len(history) > 0 {
		if estimateSize(head, history, tail) <= budget {
			break
		}
		history = history[1:]
	}

	if len(history) > 0 {
		sb.WriteString("Here's the recent conversation history: ")
		for _, line := range history {
			role := "Assistant"
			if line.isUser {
				role = "User"
			}
			sb.WriteString(fmt.Sprintf("\n%s: %s", role, line.content))
		}
	}

	sb.WriteString(tail)
	return sb.String()
}

func estimateSize(head string, history []historyLine, tail string) int {
	size := len(head) + len(tail)
	if len(history) > 0 {
		size += len("Here's the recent conversation history: ")
		for _, line := range history {
			// role prefix, newline and separator
			size += len(line.content) + 12
		}
	}
	return size
}
