package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

const collaboratorColumns = `
	c.list_id, c.user_id, c.role, c.created_at, p.id, p.full_name, p.avatar_url`

func scanCollaborator(row rowScanner) (*Collaborator, error) {
	c := &Collaborator{}
	var profileID, fullName, avatarURL sql.NullString
	err := row.Scan(
		&c.ListID,
		&c.UserID,
		&c.Role,
		&c.CreatedAt,
		&profileID,
		&fullName,
		&avatarURL,
	)
	if err != nil {
		return nil, err
	}
	if profileID.Valid {
		c.User = &ProfileSummary{FullName: fullName.String, AvatarURL: avatarURL.String}
	}
	return c, nil
}

func queryCollaborators(ctx context.Context, q querier, listID string) ([]*Collaborator, error) {
	query := `SELECT` + collaboratorColumns + `
		FROM collaborators c
		LEFT JOIN profiles p ON p.id = c.user_id
		WHERE c.list_id = $1
		ORDER BY c.created_at ASC`

	rows, err := q.QueryContext(ctx, query, listID)
	if err != nil {
		return nil, fmt.Errorf("failed to list collaborators: %w", err)
	}
	defer rows.Close()

	collaborators := []*Collaborator{}
	for rows.Next() {
		c, err := scanCollaborator(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan collaborator: %w", err)
		}
		collaborators = append(collaborators, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}

	return collaborators, nil
}

func (s *PostgresStore) ListCollaborators(ctx context.Context, listID string) ([]*Collaborator, error) {
	return queryCollaborators(ctx, s.db, listID)
}

// InviteCollaborator resolves the email and inserts the collaborator row
// in one statement. No returned row means the email matched no profile.
func (s *PostgresStore) InviteCollaborator(ctx context.Context, listID, email string, role Role) (*Collaborator, error) {
	if err := ValidateInviteRole(role); err != nil {
		return nil, err
	}

	query := `
		WITH c AS (
			INSERT INTO collaborators (list_id, user_id, role, created_at)
			SELECT $1::varchar, p.id, $2::text, $3::timestamptz
			FROM profiles p
			WHERE lower(p.email) = lower($4)
			RETURNING *
		)
		SELECT` + collaboratorColumns + `
		FROM c
		LEFT JOIN profiles p ON p.id = c.user_id`

	c, err := scanCollaborator(s.db.QueryRowContext(ctx, query, listID, role, s.now(), strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to add collaborator: %w", translate(err))
	}
	return c, nil
}

func (s *PostgresStore) UpdateCollaboratorRole(ctx context.Context, listID, userID string, role Role) (*Collaborator, error) {
	if err := ValidateInviteRole(role); err != nil {
		return nil, err
	}

	query := `
		WITH c AS (
			UPDATE collaborators
			SET role = $1
			WHERE list_id = $2 AND user_id = $3 AND role <> 'owner'
			RETURNING *
		)
		SELECT` + collaboratorColumns + `
		FROM c
		LEFT JOIN profiles p ON p.id = c.user_id`

	c, err := scanCollaborator(s.db.QueryRowContext(ctx, query, role, listID, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, s.explainMissingCollaborator(ctx, listID, userID)
		}
		return nil, fmt.Errorf("failed to update collaborator role: %w", err)
	}
	return c, nil
}

func (s *PostgresStore) RemoveCollaborator(ctx context.Context, listID, userID string) error {
	query := `DELETE FROM collaborators WHERE list_id = $1 AND user_id = $2 AND role <> 'owner'`

	result, err := s.db.ExecContext(ctx, query, listID, userID)
	if err != nil {
		return fmt.Errorf("failed to remove collaborator: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return s.explainMissingCollaborator(ctx, listID, userID)
	}
	return nil
}

// explainMissingCollaborator tells apart an owner row, which the guarded
// statements skip, from a row that does not exist.
func (s *PostgresStore) explainMissingCollaborator(ctx context.Context, listID, userID string) error {
	var role Role
	err := s.db.QueryRowContext(ctx,
		`SELECT role FROM collaborators WHERE list_id = $1 AND user_id = $2`,
		listID, userID,
	).Scan(&role)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return ErrNotFound
	case err != nil:
		return fmt.Errorf("failed to get collaborator: %w", err)
	case role == RoleOwner:
		return ErrOwnerRole
	default:
		// changed between the two statements
		return ErrNotFound
	}
}
