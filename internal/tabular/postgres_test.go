package tabular

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"materna-data/internal/domain"
)

func newTestPostgresTable(t *testing.T) (*PostgresTable, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresTable(db, zap.NewNop(), testSchema()), mock
}

func TestPostgresTableReadAll(t *testing.T) {
	ctx := context.Background()
	pt, mock := newTestPostgresTable(t)

	mock.ExpectQuery(`SELECT data FROM tabular_rows`).
		WithArgs("cases").
		WillReturnRows(sqlmock.NewRows([]string{"data"}).
			AddRow([]byte(`{"id":"C-1","territory":"norte","age":"24"}`)).
			AddRow([]byte(`{"id":"C-2"}`)))

	rows, err := pt.ReadAll(ctx, "cases")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "norte", rows[0]["territory"])
	// Cells absent from the stored document read as empty strings.
	assert.Equal(t, "", rows[1]["territory"])

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresTableAppend(t *testing.T) {
	ctx := context.Background()
	pt, mock := newTestPostgresTable(t)

	mock.ExpectExec(`INSERT INTO tabular_rows`).
		WithArgs("cases", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := pt.Append(ctx, "cases", Row{"id": "C-1", "territory": "norte"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresTableFindRowKey(t *testing.T) {
	ctx := context.Background()
	pt, mock := newTestPostgresTable(t)

	mock.ExpectQuery(`SELECT row_index FROM tabular_rows`).
		WithArgs("cases", "id", "C-1").
		WillReturnRows(sqlmock.NewRows([]string{"row_index"}).AddRow(2))

	pos, err := pt.FindRowKey(ctx, "cases", "id", "C-1")
	require.NoError(t, err)
	assert.Equal(t, 2, pos)

	mock.ExpectQuery(`SELECT row_index FROM tabular_rows`).
		WithArgs("cases", "id", "C-404").
		WillReturnError(sql.ErrNoRows)

	_, err = pt.FindRowKey(ctx, "cases", "id", "C-404")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresTableUpdateRow(t *testing.T) {
	ctx := context.Background()
	pt, mock := newTestPostgresTable(t)

	mock.ExpectExec(`UPDATE tabular_rows SET data`).
		WithArgs(sqlmock.AnyArg(), "cases", 2).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, pt.UpdateRow(ctx, "cases", 2, Row{"id": "C-1", "age": "25"}))

	// Updating a position that never existed is a not-found, not a success.
	mock.ExpectExec(`UPDATE tabular_rows SET data`).
		WithArgs(sqlmock.AnyArg(), "cases", 99).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := pt.UpdateRow(ctx, "cases", 99, Row{"id": "C-9"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresTableStoreUnavailable(t *testing.T) {
	ctx := context.Background()
	pt, mock := newTestPostgresTable(t)

	mock.ExpectQuery(`SELECT data FROM tabular_rows`).
		WithArgs("cases").
		WillReturnError(sql.ErrConnDone)

	_, err := pt.ReadAll(ctx, "cases")
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
}
