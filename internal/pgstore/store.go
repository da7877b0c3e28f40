// Package pgstore is the optional Postgres mirror of internal/state's
// file-backed ProjectState store, keeping state in a shared database instead
// of one state.json per checkout. No dcp command opens it.
package pgstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/dcpsystems/dcp/internal/model"
	"github.com/dcpsystems/dcp/internal/state"
)

// Store is a state.Backend backed by a single `project_state` table, one row
// per project, the document stored as JSONB.
type Store struct {
	db          *sqlx.DB
	projectName string
}

// Open connects to dsn, applies pending migrations, and returns a Store
// scoped to one project's state row.
func Open(ctx context.Context, dsn, projectName string) (*Store, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if err := Migrate(db.DB); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, projectName: projectName}, nil
}

// New wraps an already-open sqlx.DB, e.g. for tests against go-sqlmock.
// Migrations are the caller's responsibility in this path.
func New(db *sqlx.DB, projectName string) *Store {
	return &Store{db: db, projectName: projectName}
}

// Close releases the underlying connection pool.
func (s *Store) Close() error { return s.db.Close() }

var _ state.Backend = (*Store)(nil)

// Load returns state.ErrNotFound when no row exists for the project yet
// (unlike FileBackend, which returns a fresh state on a first run).
func (s *Store) Load(ctx context.Context) (*model.ProjectState, error) {
	var document []byte
	err := s.db.QueryRowxContext(ctx,
		`SELECT document FROM project_state WHERE project_name = $1`,
		s.projectName,
	).Scan(&document)
	if err == sql.ErrNoRows {
		return nil, state.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load project state: %w", err)
	}

	var ps model.ProjectState
	if err := json.Unmarshal(document, &ps); err != nil {
		return nil, fmt.Errorf("decode project state: %w", err)
	}
	return &ps, nil
}

// Save upserts the project's state row.
func (s *Store) Save(ctx context.Context, ps *model.ProjectState) error {
	document, err := json.Marshal(ps)
	if err != nil {
		return fmt.Errorf("encode project state: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO project_state (project_name, document, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (project_name) DO UPDATE
		SET document = EXCLUDED.document, updated_at = EXCLUDED.updated_at
	`, s.projectName, document)
	if err != nil {
		return fmt.Errorf("save project state: %w", err)
	}
	return nil
}
