package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"tokobuku/backend/internal/docstore"
)

// Store keeps every collection in a single jsonb documents table. Collections
// are a naming convention rather than separate tables, which mirrors how the
// document-store contract treats them.
type Store struct {
	db *sql.DB
}

var identPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	store := &Store{db: db}
	if err := store.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS documents (
			collection TEXT NOT NULL,
			id         TEXT NOT NULL,
			data       JSONB NOT NULL DEFAULT '{}'::jsonb,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (collection, id)
		)
	`)
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ListCollection(ctx context.Context, name string, orderBy string, descending bool) ([]docstore.Record, error) {
	if !identPattern.MatchString(name) {
		return nil, docstore.ErrInvalidCollection
	}

	query := `SELECT id, data FROM documents WHERE collection = $1 ORDER BY id`
	if orderBy != "" {
		if !identPattern.MatchString(orderBy) {
			return nil, docstore.ErrInvalidField
		}
		direction := "ASC"
		if descending {
			direction = "DESC"
		}
		// orderBy passed the identifier whitelist above, so interpolation is safe.
		query = fmt.Sprintf(
			`SELECT id, data FROM documents WHERE collection = $1 ORDER BY data->>'%s' %s, id`,
			orderBy, direction,
		)
	}

	rows, err := s.db.QueryContext(ctx, query, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]docstore.Record, 0, 64)
	for rows.Next() {
		var id string
		var raw []byte
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, err
		}
		data := make(map[string]any)
		if err := json.Unmarshal(raw, &data); err != nil {
			return nil, fmt.Errorf("decode document %s/%s: %w", name, id, err)
		}
		records = append(records, docstore.Record{ID: id, Data: data})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

func (s *Store) GetOne(ctx context.Context, name string, id string) (*docstore.Record, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT data FROM documents WHERE collection = $1 AND id = $2
	`, name, id).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, docstore.ErrNotFound
		}
		return nil, err
	}

	data := make(map[string]any)
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("decode document %s/%s: %w", name, id, err)
	}
	return &docstore.Record{ID: id, Data: data}, nil
}

func (s *Store) Insert(ctx context.Context, name string, data map[string]any) (*docstore.Record, error) {
	if !identPattern.MatchString(name) {
		return nil, docstore.ErrInvalidCollection
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (collection, id, data, created_at, updated_at)
		VALUES ($1, $2, $3, now(), now())
	`, name, id, raw)
	if err != nil {
		return nil, err
	}

	return &docstore.Record{ID: id, Data: data}, nil
}

func (s *Store) Update(ctx context.Context, name string, id string, partial map[string]any) error {
	raw, err := json.Marshal(partial)
	if err != nil {
		return err
	}

	stamp := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx, `
		UPDATE documents
		SET data = data || $3::jsonb || jsonb_build_object('updated_at', $4::text),
		    updated_at = now()
		WHERE collection = $1 AND id = $2
	`, name, id, raw, stamp)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return docstore.ErrNotFound
	}
	return nil
}

func (s *Store) Remove(ctx context.Context, name string, id string) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM documents WHERE collection = $1 AND id = $2
	`, name, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return docstore.ErrNotFound
	}
	return nil
}

func (s *Store) BatchIncrement(ctx context.Context, name string, field string, deltas map[string]int64) error {
	if len(deltas) == 0 {
		return nil
	}
	if !identPattern.MatchString(field) {
		return docstore.ErrInvalidField
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	// Apply in a stable order so concurrent batches cannot deadlock on row locks.
	ids := make([]string, 0, len(deltas))
	for id := range deltas {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		res, err := tx.ExecContext(ctx, `
			UPDATE documents
			SET data = jsonb_set(data, ARRAY[$3], to_jsonb(COALESCE((data->>$3)::bigint, 0) + $4)),
			    updated_at = now()
			WHERE collection = $1 AND id = $2
		`, name, id, field, deltas[id])
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return fmt.Errorf("batch increment %s/%s: %w", name, id, docstore.ErrNotFound)
		}
	}

	return tx.Commit()
}
