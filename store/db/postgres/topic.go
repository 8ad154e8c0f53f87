package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/plume-chat/plume/store"
)

func (d *DB) UpsertUserTopicMention(ctx context.Context, upsert *store.UpsertUserTopicMention) (*store.UserTopic, error) {
	stmt := `INSERT INTO user_topic (user_id, topic, weight, last_mentioned_ts)
		VALUES (` + placeholders(4) + `)
		ON CONFLICT (user_id, topic) DO UPDATE SET
			weight = user_topic.weight + 1,
			last_mentioned_ts = EXCLUDED.last_mentioned_ts
		RETURNING id, user_id, topic, weight, last_mentioned_ts`

	result := &store.UserTopic{}
	if err := d.db.QueryRowContext(ctx, stmt, upsert.UserID, upsert.Topic, 1, upsert.LastMentionedTs).Scan(
		&result.ID, &result.UserID, &result.Topic, &result.Weight, &result.LastMentionedTs,
	); err != nil {
		return nil, fmt.Errorf("failed to upsert user_topic: %w", err)
	}

	return result, nil
}

func (d *DB) ListUserTopics(ctx context.Context, find *store.FindUserTopic) ([]*store.UserTopic, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.UserID != nil {
		where, args = append(where, "user_id = "+placeholder(len(args)+1)), append(args, *find.UserID)
	}
	if find.Topic != nil {
		where, args = append(where, "topic = "+placeholder(len(args)+1)), append(args, *find.Topic)
	}

	query := `SELECT id, user_id, topic, weight, last_mentioned_ts FROM user_topic
		WHERE ` + strings.Join(where, " AND ") + ` ORDER BY weight DESC, last_mentioned_ts DESC`
	if find.Limit != nil {
		query = fmt.Sprintf("%s LIMIT %d", query, *find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list user_topics: %w", err)
	}
	defer rows.Close()

	list := make([]*store.UserTopic, 0)
	for rows.Next() {
		t := &store.UserTopic{}
		if err := rows.Scan(&t.ID, &t.UserID, &t.Topic, &t.Weight, &t.LastMentionedTs); err != nil {
			return nil, fmt.Errorf("failed to scan user_topic: %w", err)
		}
		list = append(list, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate user_topics: %w", err)
	}

	return list, nil
}
