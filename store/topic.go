package store

type UserTopic struct {
	ID              int32
	UserID          int32
	Topic           string
	Weight          int32
	LastMentionedTs int64
}

type FindUserTopic struct {
	UserID *int32
	Topic  *string
	Limit  *int
}

// UpsertUserTopicMention records one mention of a topic: an existing
// (user_id, topic) row gets weight+1 and a fresh last_mentioned_ts,
// otherwise a weight=1 row is created.
type UpsertUserTopicMention struct {
	UserID          int32
	Topic           string
	LastMentionedTs int64
}
