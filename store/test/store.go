// Package test provides an in-memory store driver for unit tests so
// service and router tests run without a database.
package test

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"testing"

	"github.com/plume-chat/plume/internal/profile"
	"github.com/plume-chat/plume/store"
)

// NewTestingStore returns a store backed by an in-memory fake driver.
func NewTestingStore(t *testing.T) *store.Store {
	s, _ := NewTestingStoreWithDriver(t)
	return s
}

// NewTestingStoreWithDriver also exposes the fake driver for seeding.
func NewTestingStoreWithDriver(t *testing.T) (*store.Store, *FakeDriver) {
	t.Helper()
	driver := NewFakeDriver()
	s := store.New(driver, &profile.Profile{Mode: "dev", Driver: "sqlite"})
	t.Cleanup(func() {
		_ = s.Close()
	})
	return s, driver
}

// FakeDriver is an in-memory store.Driver.
type FakeDriver struct {
	mu sync.Mutex

	users         []*store.User
	preferences   map[int32]*store.UserPreferences
	conversations []*store.Conversation
	messages      []*store.Message
	topics        []*store.UserTopic

	nextUserID         int32
	nextConversationID int32
	nextMessageID      int32
	nextTopicID        int32
}

// NewFakeDriver creates an empty fake driver.
func NewFakeDriver() *FakeDriver {
	return &FakeDriver{
		preferences: make(map[int32]*store.UserPreferences),
	}
}

func (d *FakeDriver) GetDB() *sql.DB { return nil }

func (d *FakeDriver) Close() error { return nil }

func (d *FakeDriver) IsInitialized(context.Context) (bool, error) { return true, nil }

func (d *FakeDriver) CreateUser(_ context.Context, create *store.User) (*store.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.nextUserID++
	user := *create
	user.ID = d.nextUserID
	if user.RowStatus == "" {
		user.RowStatus = store.Normal
	}
	d.users = append(d.users, &user)
	copied := user
	return &copied, nil
}

func (d *FakeDriver) UpdateUser(_ context.Context, update *store.UpdateUser) (*store.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, user := range d.users {
		if user.ID != update.ID {
			continue
		}
		if update.Email != nil {
			user.Email = *update.Email
		}
		if update.Nickname != nil {
			user.Nickname = *update.Nickname
		}
		if update.PasswordHash != nil {
			user.PasswordHash = *update.PasswordHash
		}
		if update.RowStatus != nil {
			user.RowStatus = *update.RowStatus
		}
		copied := *user
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (d *FakeDriver) ListUsers(_ context.Context, find *store.FindUser) ([]*store.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	list := []*store.User{}
	for _, user := range d.users {
		if find.ID != nil && user.ID != *find.ID {
			continue
		}
		if find.Username != nil && user.Username != *find.Username {
			continue
		}
		if find.Email != nil && user.Email != *find.Email {
			continue
		}
		if find.RowStatus != nil && user.RowStatus != *find.RowStatus {
			continue
		}
		copied := *user
		list = append(list, &copied)
	}
	return list, nil
}

func (d *FakeDriver) UpsertUserPreferences(_ context.Context, upsert *store.UpsertUserPreferences) (*store.UserPreferences, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	row := &store.UserPreferences{
		UserID:      upsert.UserID,
		Preferences: upsert.Preferences,
	}
	d.preferences[upsert.UserID] = row
	copied := *row
	return &copied, nil
}

func (d *FakeDriver) GetUserPreferences(_ context.Context, find *store.FindUserPreferences) (*store.UserPreferences, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if find.UserID == nil {
		return nil, nil
	}
	row, ok := d.preferences[*find.UserID]
	if !ok {
		return nil, nil
	}
	copied := *row
	return &copied, nil
}

func (d *FakeDriver) CreateConversation(_ context.Context, create *store.Conversation) (*store.Conversation, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.nextConversationID++
	conversation := *create
	conversation.ID = d.nextConversationID
	d.conversations = append(d.conversations, &conversation)
	copied := conversation
	return &copied, nil
}

func (d *FakeDriver) ListConversations(_ context.Context, find *store.FindConversation) ([]*store.Conversation, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	list := []*store.Conversation{}
	for _, conversation := range d.conversations {
		if find.ID != nil && conversation.ID != *find.ID {
			continue
		}
		if find.UID != nil && conversation.UID != *find.UID {
			continue
		}
		if find.UserID != nil && conversation.UserID != *find.UserID {
			continue
		}
		copied := *conversation
		list = append(list, &copied)
	}
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].UpdatedTs != list[j].UpdatedTs {
			return list[i].UpdatedTs > list[j].UpdatedTs
		}
		return list[i].ID > list[j].ID
	})
	if find.Limit != nil && len(list) > *find.Limit {
		list = list[:*find.Limit]
	}
	return list, nil
}

func (d *FakeDriver) UpdateConversation(_ context.Context, update *store.UpdateConversation) (*store.Conversation, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, conversation := range d.conversations {
		if conversation.ID != update.ID {
			continue
		}
		if update.Title != nil {
			conversation.Title = *update.Title
		}
		if update.UpdatedTs != nil {
			conversation.UpdatedTs = *update.UpdatedTs
		}
		copied := *conversation
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (d *FakeDriver) CreateMessage(_ context.Context, create *store.Message) (*store.Message, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.nextMessageID++
	message := *create
	message.ID = d.nextMessageID
	d.messages = append(d.messages, &message)
	copied := message
	return &copied, nil
}

func (d *FakeDriver) ListMessages(_ context.Context, find *store.FindMessage) ([]*store.Message, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	list := []*store.Message{}
	for _, message := range d.messages {
		if find.ID != nil && message.ID != *find.ID {
			continue
		}
		if find.UID != nil && message.UID != *find.UID {
			continue
		}
		if find.ConversationID != nil && message.ConversationID != *find.ConversationID {
			continue
		}
		copied := *message
		list = append(list, &copied)
	}
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].CreatedTs != list[j].CreatedTs {
			return list[i].CreatedTs < list[j].CreatedTs
		}
		return list[i].ID < list[j].ID
	})
	return list, nil
}

func (d *FakeDriver) UpsertUserTopicMention(_ context.Context, upsert *store.UpsertUserTopicMention) (*store.UserTopic, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, topic := range d.topics {
		if topic.UserID == upsert.UserID && topic.Topic == upsert.Topic {
			topic.Weight++
			topic.LastMentionedTs = upsert.LastMentionedTs
			copied := *topic
			return &copied, nil
		}
	}

	d.nextTopicID++
	topic := &store.UserTopic{
		ID:              d.nextTopicID,
		UserID:          upsert.UserID,
		Topic:           upsert.Topic,
		Weight:          1,
		LastMentionedTs: upsert.LastMentionedTs,
	}
	d.topics = append(d.topics, topic)
	copied := *topic
	return &copied, nil
}

func (d *FakeDriver) ListUserTopics(_ context.Context, find *store.FindUserTopic) ([]*store.UserTopic, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	list := []*store.UserTopic{}
	for _, topic := range d.topics {
		if find.UserID != nil && topic.UserID != *find.UserID {
			continue
		}
		if find.Topic != nil && topic.Topic != *find.Topic {
			continue
		}
		copied := *topic
		list = append(list, &copied)
	}
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].Weight != list[j].Weight {
			return list[i].Weight > list[j].Weight
		}
		return list[i].ID < list[j].ID
	})
	if find.Limit != nil && len(list) > *find.Limit {
		list = list[:*find.Limit]
	}
	return list, nil
}

// SeedTopic inserts a topic row directly, bypassing the mention
// counter, so tests can shape weights and timestamps.
func (d *FakeDriver) SeedTopic(userID int32, name string, weight int32, lastMentionedTs int64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.nextTopicID++
	d.topics = append(d.topics, &store.UserTopic{
		ID:              d.nextTopicID,
		UserID:          userID,
		Topic:           name,
		Weight:          weight,
		LastMentionedTs: lastMentionedTs,
	})
}
