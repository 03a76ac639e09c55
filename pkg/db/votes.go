package db

import (
	"context"
	"fmt"
)

func scanVote(row rowScanner) (*Vote, error) {
	v := &Vote{}
	if err := row.Scan(&v.ID, &v.ServiceID, &v.UserID, &v.Value, &v.CreatedAt); err != nil {
		return nil, err
	}
	return v, nil
}

// UpsertVote writes the vote in a single statement keyed on
// (service_id, user_id), so concurrent votes by the same user cannot
// produce two rows.
func (s *PostgresStore) UpsertVote(ctx context.Context, serviceID, userID string, value int) (*Vote, error) {
	if err := ValidateVote(value); err != nil {
		return nil, err
	}

	query := `
		INSERT INTO votes (id, service_id, user_id, value, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (service_id, user_id) DO UPDATE SET value = EXCLUDED.value
		RETURNING id, service_id, user_id, value, created_at
	`

	v, err := scanVote(s.db.QueryRowContext(ctx, query, s.newID(), serviceID, userID, value, s.now()))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert vote: %w", translate(err))
	}
	return v, nil
}

func queryVotesForList(ctx context.Context, q querier, listID string) ([]*Vote, error) {
	query := `
		SELECT v.id, v.service_id, v.user_id, v.value, v.created_at
		FROM votes v
		JOIN services s ON s.id = v.service_id
		WHERE s.list_id = $1
		ORDER BY v.created_at ASC
	`

	rows, err := q.QueryContext(ctx, query, listID)
	if err != nil {
		return nil, fmt.Errorf("failed to list votes: %w", err)
	}
	defer rows.Close()

	votes := []*Vote{}
	for rows.Next() {
		v, err := scanVote(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan vote: %w", err)
		}
		votes = append(votes, v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}

	return votes, nil
}
