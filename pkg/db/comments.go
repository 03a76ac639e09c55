package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const commentColumns = `
	c.id, c.service_id, c.user_id, c.content, c.created_at, c.updated_at,
	p.id, p.full_name, p.avatar_url`

func scanComment(row rowScanner) (*Comment, error) {
	c := &Comment{}
	var profileID, fullName, avatarURL sql.NullString
	err := row.Scan(
		&c.ID,
		&c.ServiceID,
		&c.UserID,
		&c.Content,
		&c.CreatedAt,
		&c.UpdatedAt,
		&profileID,
		&fullName,
		&avatarURL,
	)
	if err != nil {
		return nil, err
	}
	if profileID.Valid {
		c.Author = &ProfileSummary{FullName: fullName.String, AvatarURL: avatarURL.String}
	}
	return c, nil
}

func queryComments(ctx context.Context, q querier, query string, args ...any) ([]*Comment, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	defer rows.Close()

	comments := []*Comment{}
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		comments = append(comments, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}

	return comments, nil
}

func (s *PostgresStore) ListComments(ctx context.Context, serviceID string) ([]*Comment, error) {
	query := `SELECT` + commentColumns + `
		FROM comments c
		LEFT JOIN profiles p ON p.id = c.user_id
		WHERE c.service_id = $1
		ORDER BY c.created_at ASC`

	return queryComments(ctx, s.db, query, serviceID)
}

func (s *PostgresStore) CreateComment(ctx context.Context, serviceID, userID, content string) (*Comment, error) {
	now := s.now()

	query := `
		WITH c AS (
			INSERT INTO comments (id, service_id, user_id, content, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING *
		)
		SELECT` + commentColumns + `
		FROM c
		LEFT JOIN profiles p ON p.id = c.user_id`

	c, err := scanComment(s.db.QueryRowContext(ctx, query, s.newID(), serviceID, userID, content, now, now))
	if err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", translate(err))
	}
	return c, nil
}

func (s *PostgresStore) UpdateComment(ctx context.Context, id, content string) (*Comment, error) {
	query := `
		WITH c AS (
			UPDATE comments
			SET content = $1, updated_at = $2
			WHERE id = $3
			RETURNING *
		)
		SELECT` + commentColumns + `
		FROM c
		LEFT JOIN profiles p ON p.id = c.user_id`

	c, err := scanComment(s.db.QueryRowContext(ctx, query, content, s.now(), id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update comment: %w", err)
	}
	return c, nil
}

func (s *PostgresStore) DeleteComment(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "comments", id)
}
