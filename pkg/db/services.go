package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

const serviceColumns = `
	s.id, s.list_id, s.name, s.description, s.features, s.pricing,
	s.logo_url, s.video_url, s.created_at, s.updated_at, s.created_by`

func scanService(row rowScanner, extra ...any) (*Service, error) {
	svc := &Service{}
	dest := []any{
		&svc.ID,
		&svc.ListID,
		&svc.Name,
		&svc.Description,
		pq.Array(&svc.Features),
		&svc.Pricing,
		&svc.LogoURL,
		&svc.VideoURL,
		&svc.CreatedAt,
		&svc.UpdatedAt,
		&svc.CreatedBy,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	if svc.Features == nil {
		svc.Features = []string{}
	}
	return svc, nil
}

// serviceSummaries returns the services of a list with vote and comment
// counts but without the nested rows.
func (s *PostgresStore) serviceSummaries(ctx context.Context, q querier, listID string) ([]*Service, error) {
	query := `SELECT` + serviceColumns + `,
		(SELECT COUNT(*) FROM votes v WHERE v.service_id = s.id),
		(SELECT COUNT(*) FROM comments c WHERE c.service_id = s.id)
		FROM services s
		WHERE s.list_id = $1
		ORDER BY s.created_at DESC`

	rows, err := q.QueryContext(ctx, query, listID)
	if err != nil {
		return nil, fmt.Errorf("failed to list services: %w", err)
	}
	defer rows.Close()

	services := []*Service{}
	for rows.Next() {
		counts := &ServiceCounts{}
		svc, err := scanService(rows, &counts.Votes, &counts.Comments)
		if err != nil {
			return nil, fmt.Errorf("failed to scan service: %w", err)
		}
		svc.Counts = counts
		services = append(services, svc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}

	return services, nil
}

func (s *PostgresStore) ListServices(ctx context.Context, listID string) ([]*Service, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	services, err := s.serviceSummaries(ctx, tx, listID)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*Service, len(services))
	for _, svc := range services {
		svc.Votes = []*Vote{}
		svc.Comments = []*Comment{}
		byID[svc.ID] = svc
	}

	votes, err := queryVotesForList(ctx, tx, listID)
	if err != nil {
		return nil, err
	}
	for _, v := range votes {
		if svc, ok := byID[v.ServiceID]; ok {
			svc.Votes = append(svc.Votes, v)
		}
	}

	query := `SELECT` + commentColumns + `
		FROM comments c
		JOIN services s ON s.id = c.service_id
		LEFT JOIN profiles p ON p.id = c.user_id
		WHERE s.list_id = $1
		ORDER BY c.created_at ASC`

	comments, err := queryComments(ctx, tx, query, listID)
	if err != nil {
		return nil, err
	}
	for _, c := range comments {
		if svc, ok := byID[c.ServiceID]; ok {
			svc.Comments = append(svc.Comments, c)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return services, nil
}

func (s *PostgresStore) CreateService(ctx context.Context, in *NewService) (*Service, error) {
	id := s.newID()
	now := s.now()
	features := in.Features
	if features == nil {
		features = []string{}
	}

	query := `
		INSERT INTO services (id, list_id, name, description, features, pricing, logo_url, video_url, created_at, updated_at, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, list_id, name, description, features, pricing, logo_url, video_url, created_at, updated_at, created_by
	`

	svc, err := scanService(s.db.QueryRowContext(ctx, query,
		id, in.ListID, in.Name, in.Description, pq.Array(features), in.Pricing,
		in.LogoURL, in.VideoURL, now, now, in.CreatedBy,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create service: %w", translate(err))
	}

	return svc, nil
}

func (s *PostgresStore) UpdateService(ctx context.Context, id string, updates *ServiceUpdate) (*Service, error) {
	b := &setBuilder{}
	if updates.Name != nil {
		b.add("name", *updates.Name)
	}
	if updates.Description != nil {
		b.add("description", *updates.Description)
	}
	if updates.Features != nil {
		b.add("features", pq.Array(*updates.Features))
	}
	if updates.Pricing != nil {
		b.add("pricing", *updates.Pricing)
	}
	if updates.LogoURL != nil {
		b.add("logo_url", *updates.LogoURL)
	}
	if updates.VideoURL != nil {
		b.add("video_url", *updates.VideoURL)
	}

	if b.empty() {
		return s.GetService(ctx, id)
	}

	b.add("updated_at", s.now())
	sets, idPos := b.finish(id)

	query := fmt.Sprintf(`
		UPDATE services s
		SET %s
		WHERE s.id = $%d
		RETURNING %s
	`, sets, idPos, serviceColumns)

	svc, err := scanService(s.db.QueryRowContext(ctx, query, b.args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update service: %w", err)
	}

	return svc, nil
}

// GetService returns a single service without nested rows.
func (s *PostgresStore) GetService(ctx context.Context, id string) (*Service, error) {
	query := `SELECT` + serviceColumns + `
		FROM services s
		WHERE s.id = $1`

	svc, err := scanService(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get service: %w", err)
	}
	return svc, nil
}

func (s *PostgresStore) DeleteService(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "services", id)
}
