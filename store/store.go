package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lithammer/shortuuid/v4"

	"github.com/plume-chat/plume/internal/profile"
	"github.com/plume-chat/plume/store/cache"
)

// Store provides database access to all raw objects.
type Store struct {
	profile *profile.Profile
	driver  Driver

	// Cache settings
	cacheConfig cache.Config

	// Caches
	userCache *cache.Cache // cache for users, keyed by id
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	cacheConfig := cache.Config{
		DefaultTTL:      10 * time.Minute,
		CleanupInterval: 5 * time.Minute,
		MaxItems:        1000,
	}

	return &Store{
		driver:      driver,
		profile:     profile,
		cacheConfig: cacheConfig,
		userCache:   cache.New(cacheConfig),
	}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

func (s *Store) Close() error {
	s.userCache.Close()
	return s.driver.Close()
}

func userCacheKey(id int32) string {
	return fmt.Sprintf("user-%d", id)
}

func (s *Store) CreateUser(ctx context.Context, create *User) (*User, error) {
	user, err := s.driver.CreateUser(ctx, create)
	if err != nil {
		return nil, err
	}
	s.userCache.Set(userCacheKey(user.ID), user)
	return user, nil
}

// GetUser returns the single user matching find, or nil when none does.
func (s *Store) GetUser(ctx context.Context, find *FindUser) (*User, error) {
	if find.ID != nil && find.Username == nil && find.Email == nil && find.RowStatus == nil {
		if cached, ok := s.userCache.Get(userCacheKey(*find.ID)); ok {
			return cached.(*User), nil
		}
	}

	list, err := s.driver.ListUsers(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}

	user := list[0]
	s.userCache.Set(userCacheKey(user.ID), user)
	return user, nil
}

func (s *Store) UpdateUser(ctx context.Context, update *UpdateUser) (*User, error) {
	user, err := s.driver.UpdateUser(ctx, update)
	if err != nil {
		return nil, err
	}
	s.userCache.Set(userCacheKey(user.ID), user)
	return user, nil
}

// GetUserPreferences returns the decoded preference bag for a user.
// A user without a stored row gets an empty bag.
func (s *Store) GetUserPreferences(ctx context.Context, userID int32) (*Preferences, error) {
	row, err := s.driver.GetUserPreferences(ctx, &FindUserPreferences{UserID: &userID})
	if err != nil {
		return nil, err
	}
	if row == nil {
		return &Preferences{}, nil
	}
	return DecodePreferences(row.Preferences)
}

// UpsertUserPreferences writes the full preference bag of a user.
func (s *Store) UpsertUserPreferences(ctx context.Context, userID int32, prefs *Preferences) error {
	raw, err := prefs.Encode()
	if err != nil {
		return err
	}
	_, err = s.driver.UpsertUserPreferences(ctx, &UpsertUserPreferences{
		UserID:      userID,
		Preferences: raw,
	})
	return err
}

// CreateConversation creates a conversation for a user. An empty title
// gets the default timestamped one.
func (s *Store) CreateConversation(ctx context.Context, userID int32, title string) (*Conversation, error) {
	now := time.Now()
	if title == "" {
		title = "Conversation " + now.Format("2006-01-02 15:04")
	}
	return s.driver.CreateConversation(ctx, &Conversation{
		UID:       shortuuid.New(),
		UserID:    userID,
		Title:     title,
		CreatedTs: now.Unix(),
		UpdatedTs: now.Unix(),
	})
}

func (s *Store) ListConversations(ctx context.Context, find *FindConversation) ([]*Conversation, error) {
	return s.driver.ListConversations(ctx, find)
}

// CreateMessage appends a message to a conversation and bumps the
// conversation's updated_ts so history ordering follows activity.
func (s *Store) CreateMessage(ctx context.Context, create *Message) (*Message, error) {
	now := time.Now().Unix()
	if create.UID == "" {
		create.UID = uuid.New().String()
	}
	if create.CreatedTs == 0 {
		create.CreatedTs = now
	}
	message, err := s.driver.CreateMessage(ctx, create)
	if err != nil {
		return nil, err
	}
	if _, err := s.driver.UpdateConversation(ctx, &UpdateConversation{
		ID:        create.ConversationID,
		UpdatedTs: &now,
	}); err != nil {
		return nil, err
	}
	return message, nil
}

func (s *Store) ListMessages(ctx context.Context, find *FindMessage) ([]*Message, error) {
	return s.driver.ListMessages(ctx, find)
}

// UpdateUserTopics records one mention per entry of detected. Duplicate
// names in one call increment the same topic multiple times.
func (s *Store) UpdateUserTopics(ctx context.Context, userID int32, detected []string) error {
	now := time.Now().Unix()
	for _, topic := range detected {
		if _, err := s.driver.UpsertUserTopicMention(ctx, &UpsertUserTopicMention{
			UserID:          userID,
			Topic:           topic,
			LastMentionedTs: now,
		}); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) ListUserTopics(ctx context.Context, find *FindUserTopic) ([]*UserTopic, error) {
	return s.driver.ListUserTopics(ctx, find)
}

// ConversationHistory bundles a conversation with its ordered messages.
type ConversationHistory struct {
	Conversation *Conversation
	Messages     []*Message
}

// GetUserHistory returns the user's most recently active conversations
// (updated_ts desc, capped by limit) with their messages in
// chronological order.
func (s *Store) GetUserHistory(ctx context.Context, userID int32, limit int) ([]*ConversationHistory, error) {
	if limit <= 0 {
		limit = 10
	}
	conversations, err := s.driver.ListConversations(ctx, &FindConversation{
		UserID: &userID,
		Limit:  &limit,
	})
	if err != nil {
		return nil, err
	}

	history := make([]*ConversationHistory, 0, len(conversations))
	for _, conversation := range conversations {
		messages, err := s.driver.ListMessages(ctx, &FindMessage{
			ConversationID: &conversation.ID,
		})
		if err != nil {
			return nil, err
		}
		history = append(history, &ConversationHistory{
			Conversation: conversation,
			Messages:     messages,
		})
	}
	return history, nil
}
