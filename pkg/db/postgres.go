package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// PostgresStore implements IStore using PostgreSQL
type PostgresStore struct {
	db    *sql.DB
	now   func() time.Time
	newID func() string
}

// NewPostgresStore opens the database, checks the connection and creates
// the schema if it doesn't exist.
func NewPostgresStore(ctx context.Context, connStr string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test the connection
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := newPostgresStore(db)

	if err := store.createTables(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return store, nil
}

func newPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{
		db:    db,
		now:   func() time.Time { return time.Now().UTC() },
		newID: func() string { return uuid.New().String() },
	}
}

// Close closes the database connection
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// Ping checks that the database is reachable
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

type rowScanner interface {
	Scan(dest ...any) error
}

// querier is satisfied by both *sql.DB and *sql.Tx
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const listColumns = `
	l.id, l.title, l.description, l.created_at, l.updated_at, l.owner_id, l.categories, l.is_public,
	(SELECT COUNT(*) FROM services s WHERE s.list_id = l.id),
	(SELECT COUNT(*) FROM votes v JOIN services s ON s.id = v.service_id WHERE s.list_id = l.id),
	(SELECT COUNT(*) FROM collaborators c WHERE c.list_id = l.id)`

func scanList(row rowScanner) (*List, error) {
	list := &List{Counts: &ListCounts{}}
	err := row.Scan(
		&list.ID,
		&list.Title,
		&list.Description,
		&list.CreatedAt,
		&list.UpdatedAt,
		&list.OwnerID,
		pq.Array(&list.Categories),
		&list.IsPublic,
		&list.Counts.Services,
		&list.Counts.Votes,
		&list.Counts.Collaborators,
	)
	if err != nil {
		return nil, err
	}
	if list.Categories == nil {
		list.Categories = []string{}
	}
	return list, nil
}

func (s *PostgresStore) queryLists(ctx context.Context, query string, args ...any) ([]*List, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	lists := []*List{}
	for rows.Next() {
		list, err := scanList(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan list: %w", err)
		}
		lists = append(lists, list)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}

	return lists, nil
}

func (s *PostgresStore) ListLists(ctx context.Context) ([]*List, error) {
	query := `SELECT` + listColumns + `
		FROM lists l
		ORDER BY l.updated_at DESC`

	lists, err := s.queryLists(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list lists: %w", err)
	}
	return lists, nil
}

// likePattern builds an ILIKE substring pattern, escaping the wildcard
// characters in q.
func likePattern(q string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(q) + "%"
}

func (s *PostgresStore) SearchLists(ctx context.Context, query string) ([]*List, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []*List{}, nil
	}

	q := `SELECT` + listColumns + `
		FROM lists l
		WHERE l.title ILIKE $1 OR l.description ILIKE $1
		ORDER BY l.updated_at DESC`

	lists, err := s.queryLists(ctx, q, likePattern(query))
	if err != nil {
		return nil, fmt.Errorf("failed to search lists: %w", err)
	}
	return lists, nil
}

func (s *PostgresStore) getList(ctx context.Context, q querier, id string) (*List, error) {
	query := `SELECT` + listColumns + `
		FROM lists l
		WHERE l.id = $1`

	list, err := scanList(q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get list: %w", err)
	}
	return list, nil
}

func (s *PostgresStore) GetList(ctx context.Context, id string) (*ListDetail, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	list, err := s.getList(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	services, err := s.serviceSummaries(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	collaborators, err := queryCollaborators(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &ListDetail{
		List:          *list,
		Services:      services,
		Collaborators: collaborators,
	}, nil
}

func (s *PostgresStore) CreateList(ctx context.Context, in *NewList) (*List, error) {
	id := s.newID()
	now := s.now()
	categories := in.Categories
	if categories == nil {
		categories = []string{}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO lists (id, title, description, created_at, updated_at, owner_id, categories, is_public)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	if _, err := tx.ExecContext(ctx, query, id, in.Title, in.Description, now, now, in.OwnerID, pq.Array(categories), in.IsPublic); err != nil {
		err = translate(err)
		// the only reference on lists is owner_id
		if errors.Is(err, ErrNotFound) {
			return nil, ErrProfileRequired
		}
		return nil, fmt.Errorf("failed to create list: %w", err)
	}

	query = `
		INSERT INTO collaborators (list_id, user_id, role, created_at)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := tx.ExecContext(ctx, query, id, in.OwnerID, RoleOwner, now); err != nil {
		return nil, fmt.Errorf("failed to add list owner: %w", translate(err))
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &List{
		ID:          id,
		Title:       in.Title,
		Description: in.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
		OwnerID:     in.OwnerID,
		Categories:  categories,
		IsPublic:    in.IsPublic,
		Counts:      &ListCounts{Collaborators: 1},
	}, nil
}

// setBuilder accumulates "column = $n" clauses for partial updates
type setBuilder struct {
	sets []string
	args []any
}

func (b *setBuilder) add(column string, value any) {
	b.args = append(b.args, value)
	b.sets = append(b.sets, fmt.Sprintf("%s = $%d", column, len(b.args)))
}

func (b *setBuilder) empty() bool { return len(b.sets) == 0 }

// finish appends the trailing id argument and returns the SET clause and
// the placeholder number of the id.
func (b *setBuilder) finish(id string) (string, int) {
	b.args = append(b.args, id)
	return strings.Join(b.sets, ", "), len(b.args)
}

func (s *PostgresStore) UpdateList(ctx context.Context, id string, updates *ListUpdate) (*List, error) {
	b := &setBuilder{}
	if updates.Title != nil {
		b.add("title", *updates.Title)
	}
	if updates.Description != nil {
		b.add("description", *updates.Description)
	}
	if updates.Categories != nil {
		b.add("categories", pq.Array(*updates.Categories))
	}
	if updates.IsPublic != nil {
		b.add("is_public", *updates.IsPublic)
	}

	if b.empty() {
		// Nothing to update; return current list
		return s.getList(ctx, s.db, id)
	}

	// Always update updated_at
	b.add("updated_at", s.now())
	sets, idPos := b.finish(id)

	query := fmt.Sprintf(`
		UPDATE lists l
		SET %s
		WHERE l.id = $%d
		RETURNING %s
	`, sets, idPos, listColumns)

	list, err := scanList(s.db.QueryRowContext(ctx, query, b.args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update list: %w", err)
	}

	return list, nil
}

func (s *PostgresStore) DeleteList(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "lists", id)
}

// deleteByID removes one row by primary key and reports ErrNotFound when
// nothing matched.
func (s *PostgresStore) deleteByID(ctx context.Context, table, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, table)

	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete from %s: %w", table, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// Compile-time check to ensure PostgresStore implements IStore
var _ IStore = (*PostgresStore)(nil)
