// Package pgstore is a pgx-backed store.Store[T] implementation. It does
// not attempt to be an ORM: callers supply the table name and a small
// Mapper that knows how to bind columns onto a table row and scan them
// back, in the same raw-SQL style the rest of the corpus uses for
// Postgres access.
package pgstore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mrjvadi/busrpc/store"
)

// Mapper binds a generic entity to a specific table's columns.
type Mapper[T store.Entity] struct {
	// Table is the unqualified table name, e.g. "users".
	Table string
	// Columns lists the entity's own columns, excluding id/created_at/
	// updated_at which pgstore manages itself.
	Columns []string
	// Values returns, in Columns order, the values to bind on insert/update.
	Values func(entity T) []any
	// Scan reads one result row (id, created_at, updated_at, then Columns
	// order) into a new T.
	Scan func(row pgx.Row) (T, error)
}

// Store is a store.Store[T] backed by a pgxpool.Pool.
type Store[T store.Entity] struct {
	pool   *pgxpool.Pool
	mapper Mapper[T]
}

// New wires a pool and mapper into a store.Store[T].
func New[T store.Entity](pool *pgxpool.Pool, mapper Mapper[T]) *Store[T] {
	return &Store[T]{pool: pool, mapper: mapper}
}

func (s *Store[T]) Add(ctx context.Context, entity T) (T, error) {
	var zero T
	cols := s.mapper.Columns
	placeholders := make([]string, len(cols))
	for i := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	query := fmt.Sprintf(
		`INSERT INTO %s (%s, created_at, updated_at) VALUES (%s, now(), now())
		 RETURNING id, created_at, updated_at, %s`,
		s.mapper.Table, joinCols(cols), joinCols(placeholders), joinCols(cols),
	)
	row := s.pool.QueryRow(ctx, query, s.mapper.Values(entity)...)
	result, err := s.mapper.Scan(row)
	if err != nil {
		return zero, fmt.Errorf("pgstore: add: %w", err)
	}
	return result, nil
}

func (s *Store[T]) FindByID(ctx context.Context, id int64) (T, error) {
	var zero T
	query := fmt.Sprintf(
		`SELECT id, created_at, updated_at, %s FROM %s WHERE id = $1`,
		joinCols(s.mapper.Columns), s.mapper.Table,
	)
	row := s.pool.QueryRow(ctx, query, id)
	result, err := s.mapper.Scan(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return zero, store.ErrNotFound
		}
		return zero, fmt.Errorf("pgstore: find by id: %w", err)
	}
	return result, nil
}

func (s *Store[T]) Enumerate(ctx context.Context) ([]T, error) {
	query := fmt.Sprintf(
		`SELECT id, created_at, updated_at, %s FROM %s ORDER BY id`,
		joinCols(s.mapper.Columns), s.mapper.Table,
	)
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("pgstore: enumerate: %w", err)
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		entity, err := s.mapper.Scan(rows)
		if err != nil {
			return nil, fmt.Errorf("pgstore: enumerate scan: %w", err)
		}
		out = append(out, entity)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("pgstore: enumerate rows: %w", rows.Err())
	}
	return out, nil
}

func (s *Store[T]) Update(ctx context.Context, entity T) error {
	cols := s.mapper.Columns
	sets := make([]string, len(cols))
	for i, c := range cols {
		sets[i] = fmt.Sprintf("%s = $%d", c, i+2)
	}
	query := fmt.Sprintf(
		`UPDATE %s SET updated_at = now(), %s WHERE id = $1`,
		s.mapper.Table, joinCols(sets),
	)
	args := append([]any{entity.GetID()}, s.mapper.Values(entity)...)
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("pgstore: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store[T]) Remove(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, s.mapper.Table), id)
	if err != nil {
		return fmt.Errorf("pgstore: remove: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// Save is a no-op: every statement above commits on its own.
func (s *Store[T]) Save(_ context.Context) error { return nil }

// Ping probes the pool, the connectivity check the health handler relies on.
func (s *Store[T]) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func joinCols(cols []string) string {
	out := cols[0]
	for _, c := range cols[1:] {
		out += ", " + c
	}
	return out
}
