package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/plume-chat/plume/store"
)

// Recommendation is one proactive suggestion surfaced to the user.
type Recommendation struct {
	Type    string `json:"type"`
	Topic   string `json:"topic"`
	Message string `json:"message"`
}

const (
	recommendationFrequentTopic = "frequent_topic"
	recommendationReminder      = "reminder"
	recommendationFollowUp      = "follow_up"

	maxRecommendations = 3

	frequentTopicThreshold = 3
	reminderAfter          = 7 * 24 * time.Hour
	reminderMinWeight      = 5
)

// ProactiveEngine decides when to nudge the user and what to nudge
// about.
type ProactiveEngine struct {
	store *store.Store

	// now is swappable for tests.
	now func() time.Time
}

// NewProactiveEngine creates a proactive engine.
func NewProactiveEngine(s *store.Store) *ProactiveEngine {
	return &ProactiveEngine{
		store: s,
		now:   time.Now,
	}
}

// minimum gap between recommendations per frequency tier.
var frequencyGaps = map[string]time.Duration{
	store.FrequencyLow:    24 * time.Hour,
	store.FrequencyMedium: 6 * time.Hour,
	store.FrequencyHigh:   time.Hour,
}

// ShouldSendRecommendation reports whether a recommendation may be
// attached right now. It reads preferences but never writes them, the
// caller stamps the send with MarkRecommendationSent once a
// recommendation is actually attached.
func (e *ProactiveEngine) ShouldSendRecommendation(ctx context.Context, userID int32) (bool, error) {
	user, err := e.store.GetUser(ctx, &store.FindUser{ID: &userID})
	if err != nil {
		return false, errors.Wrap(err, "failed to get user")
	}
	if user == nil {
		return false, nil
	}

	prefs, err := e.store.GetUserPreferences(ctx, userID)
	if err != nil {
		return false, errors.Wrap(err, "failed to get user preferences")
	}
	if prefs.DisableProactive {
		return false, nil
	}

	if prefs.LastRecommendationTime == "" {
		return true, nil
	}
	lastTime, err := time.Parse(time.RFC3339, prefs.LastRecommendationTime)
	if err != nil {
		// A corrupt timestamp should not block recommendations forever.
		return true, nil
	}

	gap := frequencyGaps[prefs.Frequency()]
	return e.now().Sub(lastTime) >= gap, nil
}

// MarkRecommendationSent stamps the preference bag with the send time.
func (e *ProactiveEngine) MarkRecommendationSent(ctx context.Context, userID int32) error {
	prefs, err := e.store.GetUserPreferences(ctx, userID)
	if err != nil {
		return errors.Wrap(err, "failed to get user preferences")
	}
	prefs.LastRecommendationTime = e.now().UTC().Format(time.RFC3339)
	if err := e.store.UpsertUserPreferences(ctx, userID, prefs); err != nil {
		return errors.Wrap(err, "failed to store recommendation time")
	}
	return nil
}

// GenerateRecommendations builds up to three recommendations from the
// user's recent history and stored interests, in fixed priority order:
// frequently asked topics, stale important topics, then a follow-up on
// the latest assistant reply.
func (e *ProactiveEngine) GenerateRecommendations(ctx context.Context, userID int32) ([]*Recommendation, error) {
	topics, err := e.store.ListUserTopics(ctx, &store.FindUserTopic{UserID: &userID})
	if err != nil {
		return nil, errors.Wrap(err, "failed to list user topics")
	}

	history, err := e.store.GetUserHistory(ctx, userID, 10)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load user history")
	}

	recommendations := []*Recommendation{}
	recommendations = append(recommendations, e.frequentTopics(history)...)
	recommendations = append(recommendations, e.staleTopics(topics)...)
	if followUp := e.followUp(history); followUp != nil {
		recommendations = append(recommendations, followUp)
	}

	if len(recommendations) > maxRecommendations {
		recommendations = recommendations[:maxRecommendations]
	}
	return recommendations, nil
}

// frequentTopics tallies topic mentions across the user's own messages
// and recommends every topic asked about three or more times. Order
// follows first mention so the output is stable.
func (e *ProactiveEngine) frequentTopics(history []*store.ConversationHistory) []*Recommendation {
	counts := map[string]int{}
	order := []string{}
	for _, conversation := range history {
		for _, message := range conversation.Messages {
			if !message.IsUser {
				continue
			}
			metadata, err := DecodeMessageMetadata(message.Metadata)
			if err != nil {
				continue
			}
			for _, topic := range metadata.Topics {
				if _, seen := counts[topic]; !seen {
					order = append(order, topic)
				}
				counts[topic]++
			}
		}
	}

	recommendations := []*Recommendation{}
	for _, topic := range order {
		if counts[topic] >= frequentTopicThreshold {
			recommendations = append(recommendations, &Recommendation{
				Type:    recommendationFrequentTopic,
				Topic:   topic,
				Message: fmt.Sprintf("I notice you've asked about %s several times. Would you like more comprehensive information about it?", topic),
			})
		}
	}
	return recommendations
}

// staleTopics recommends revisiting important topics not mentioned for
// over a week.
func (e *ProactiveEngine) staleTopics(topics []*store.UserTopic) []*Recommendation {
	now := e.now()
	recommendations := []*Recommendation{}
	for _, topic := range topics {
		lastMentioned := time.Unix(topic.LastMentionedTs, 0)
		if now.Sub(lastMentioned) > reminderAfter && topic.Weight > reminderMinWeight {
			recommendations = append(recommendations, &Recommendation{
				Type:    recommendationReminder,
				Topic:   topic.Topic,
				Message: fmt.Sprintf("It's been a while since we discussed %s. Any updates or questions on that front?", topic.Topic),
			})
		}
	}
	return recommendations
}

// followUp offers to elaborate when the newest conversation ended with
// an assistant reply about technology.
func (e *ProactiveEngine) followUp(history []*store.ConversationHistory) *Recommendation {
	if len(history) == 0 || len(history[0].Messages) == 0 {
		return nil
	}
	last := history[0].Messages[len(history[0].Messages)-1]
	if last.IsUser {
		return nil
	}
	metadata, err := DecodeMessageMetadata(last.Metadata)
	if err != nil {
		return nil
	}
	for _, topic := range metadata.Topics {
		if topic == "technology" {
			return &Recommendation{
				Type:    recommendationFollowUp,
				Topic:   "technology",
				Message: "Would you like me to explain more about how this technology works?",
			}
		}
	}
	return nil
}
