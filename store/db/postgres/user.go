package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/plume-chat/plume/store"
)

func (d *DB) CreateUser(ctx context.Context, create *store.User) (*store.User, error) {
	if create.RowStatus == "" {
		create.RowStatus = store.Normal
	}
	if create.CreatedTs == 0 {
		create.CreatedTs = time.Now().Unix()
	}

	fields := []string{"username", "email", "password_hash", "nickname", "row_status", "created_ts"}
	args := []any{create.Username, create.Email, create.PasswordHash, create.Nickname, create.RowStatus.String(), create.CreatedTs}

	stmt := `INSERT INTO "user" (` + strings.Join(fields, ", ") + `)
		VALUES (` + placeholders(len(args)) + `)
		RETURNING id`
	if err := d.db.QueryRowContext(ctx, stmt, args...).Scan(&create.ID); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return create, nil
}

func (d *DB) UpdateUser(ctx context.Context, update *store.UpdateUser) (*store.User, error) {
	set, args := []string{}, []any{}

	if update.Email != nil {
		set, args = append(set, "email = "+placeholder(len(args)+1)), append(args, *update.Email)
	}
	if update.Nickname != nil {
		set, args = append(set, "nickname = "+placeholder(len(args)+1)), append(args, *update.Nickname)
	}
	if update.PasswordHash != nil {
		set, args = append(set, "password_hash = "+placeholder(len(args)+1)), append(args, *update.PasswordHash)
	}
	if update.RowStatus != nil {
		set, args = append(set, "row_status = "+placeholder(len(args)+1)), append(args, update.RowStatus.String())
	}

	if len(set) == 0 {
		return nil, fmt.Errorf("no fields to update")
	}

	args = append(args, update.ID)
	stmt := `UPDATE "user" SET ` + strings.Join(set, ", ") + ` WHERE id = ` + placeholder(len(args)) + `
		RETURNING id, username, email, password_hash, nickname, row_status, created_ts`
	user := &store.User{}
	var rowStatus string
	if err := d.db.QueryRowContext(ctx, stmt, args...).Scan(
		&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.Nickname, &rowStatus, &user.CreatedTs,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("user not found")
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	user.RowStatus = store.RowStatus(rowStatus)

	return user, nil
}

func (d *DB) ListUsers(ctx context.Context, find *store.FindUser) ([]*store.User, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.ID != nil {
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *find.ID)
	}
	if find.Username != nil {
		where, args = append(where, "username = "+placeholder(len(args)+1)), append(args, *find.Username)
	}
	if find.Email != nil {
		where, args = append(where, "email = "+placeholder(len(args)+1)), append(args, *find.Email)
	}
	if find.RowStatus != nil {
		where, args = append(where, "row_status = "+placeholder(len(args)+1)), append(args, find.RowStatus.String())
	}

	query := `SELECT id, username, email, password_hash, nickname, row_status, created_ts FROM "user"
		WHERE ` + strings.Join(where, " AND ") + ` ORDER BY created_ts DESC, id DESC`
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	list := make([]*store.User, 0)
	for rows.Next() {
		user := &store.User{}
		var rowStatus string
		if err := rows.Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.Nickname, &rowStatus, &user.CreatedTs); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		user.RowStatus = store.RowStatus(rowStatus)
		list = append(list, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}

	return list, nil
}
