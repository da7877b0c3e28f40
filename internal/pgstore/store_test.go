package pgstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dcpsystems/dcp/internal/model"
	"github.com/dcpsystems/dcp/internal/state"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	sqlxDB := sqlx.NewDb(db, "postgres")
	return New(sqlxDB, "demo"), mock
}

func TestStoreLoadReturnsNotFoundOnEmptyResult(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT document FROM project_state WHERE project_name = \$1`).
		WithArgs("demo").
		WillReturnError(sql.ErrNoRows)

	_, err := store.Load(context.Background())
	assert.ErrorIs(t, err, state.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreLoadDecodesDocument(t *testing.T) {
	store, mock := newMockStore(t)

	ps := model.NewProjectState("demo")
	document, err := json.Marshal(ps)
	require.NoError(t, err)

	rows := sqlmock.NewRows([]string{"document"}).AddRow(document)
	mock.ExpectQuery(`SELECT document FROM project_state WHERE project_name = \$1`).
		WithArgs("demo").
		WillReturnRows(rows)

	loaded, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ps.ProjectName, loaded.ProjectName)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreSaveUpserts(t *testing.T) {
	store, mock := newMockStore(t)

	ps := model.NewProjectState("demo")
	ps.UpdatedAt = time.Now().UTC()

	mock.ExpectExec(`INSERT INTO project_state`).
		WithArgs("demo", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.Save(context.Background(), ps)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
