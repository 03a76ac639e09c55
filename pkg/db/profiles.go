package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const profileColumns = `id, email, full_name, avatar_url`

func scanProfile(row rowScanner) (*Profile, error) {
	p := &Profile{}
	if err := row.Scan(&p.ID, &p.Email, &p.FullName, &p.AvatarURL); err != nil {
		return nil, err
	}
	return p, nil
}

// GetProfile returns the profile for a user id
func (s *PostgresStore) GetProfile(ctx context.Context, id string) (*Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE id = $1`

	p, err := scanProfile(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return p, nil
}

// UpsertProfile inserts the profile or replaces its fields when the id exists.
// An email already used by another profile yields ErrConflict.
func (s *PostgresStore) UpsertProfile(ctx context.Context, in *Profile) (*Profile, error) {
	query := `
		INSERT INTO profiles (id, email, full_name, avatar_url)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			email = EXCLUDED.email,
			full_name = EXCLUDED.full_name,
			avatar_url = EXCLUDED.avatar_url
		RETURNING ` + profileColumns

	p, err := scanProfile(s.db.QueryRowContext(ctx, query, in.ID, in.Email, in.FullName, in.AvatarURL))
	if err != nil {
		return nil, fmt.Errorf("failed to save profile: %w", translate(err))
	}
	return p, nil
}
