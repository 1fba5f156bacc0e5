package tabular

import (
	"context"
	"database/sql"
	"encoding/json"

	"go.uber.org/zap"
)

// PostgresTable keeps the tabular contract on a relational store so the
// reconciler and repositories work unchanged when a deployment outgrows the
// spreadsheet. Rows live in one relation as JSONB keyed by header name,
// with the sheet's 1-based positions preserved (data rows start at 2).
type PostgresTable struct {
	db      *sql.DB
	schemas map[string]Schema
	logger  *zap.Logger
}

// NewPostgresTable creates the backend on an open connection pool.
func NewPostgresTable(db *sql.DB, logger *zap.Logger, schemas ...Schema) *PostgresTable {
	return &PostgresTable{db: db, schemas: schemaIndex(schemas), logger: logger}
}

// EnsureSchema creates the backing relation. Called once at startup.
func (p *PostgresTable) EnsureSchema(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS tabular_rows (
			tab       TEXT NOT NULL,
			row_index INT  NOT NULL,
			data      JSONB NOT NULL,
			PRIMARY KEY (tab, row_index)
		)
	`)
	if err != nil {
		return storeUnavailable("ensure tabular_rows relation: %v", err)
	}
	return nil
}

func (p *PostgresTable) schema(table string) (Schema, error) {
	s, ok := p.schemas[table]
	if !ok {
		return Schema{}, storeUnavailable("unknown table %q", table)
	}
	return s, nil
}

func (p *PostgresTable) ReadAll(ctx context.Context, table string) ([]Row, error) {
	sc, err := p.schema(table)
	if err != nil {
		return nil, err
	}

	rows, err := p.db.QueryContext(ctx,
		`SELECT data FROM tabular_rows WHERE tab = $1 ORDER BY row_index`,
		table,
	)
	if err != nil {
		return nil, storeUnavailable("read table %s: %v", table, err)
	}
	defer rows.Close()

	out := []Row{}
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, storeUnavailable("scan table %s: %v", table, err)
		}
		var row Row
		if err := json.Unmarshal(raw, &row); err != nil {
			return nil, storeUnavailable("decode row in table %s: %v", table, err)
		}
		// Pad cells the writer did not know about, matching sheet reads.
		for _, h := range sc.Headers {
			if _, ok := row[h]; !ok {
				row[h] = ""
			}
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, storeUnavailable("iterate table %s: %v", table, err)
	}
	return out, nil
}

func (p *PostgresTable) Append(ctx context.Context, table string, row Row) error {
	sc, err := p.schema(table)
	if err != nil {
		return err
	}
	data, err := json.Marshal(valuesToRow(sc.Headers, rowToValues(sc.Headers, row)))
	if err != nil {
		return storeUnavailable("encode row for table %s: %v", table, err)
	}

	_, err = p.db.ExecContext(ctx, `
		INSERT INTO tabular_rows (tab, row_index, data)
		SELECT $1, COALESCE(MAX(row_index) + 1, 2), $2
		FROM tabular_rows WHERE tab = $1
	`, table, data)
	if err != nil {
		return storeUnavailable("append to table %s: %v", table, err)
	}
	return nil
}

func (p *PostgresTable) FindRowKey(ctx context.Context, table, keyColumn, keyValue string) (int, error) {
	if _, err := p.schema(table); err != nil {
		return 0, err
	}

	var rowIndex int
	err := p.db.QueryRowContext(ctx, `
		SELECT row_index FROM tabular_rows
		WHERE tab = $1 AND data->>$2 = $3
		ORDER BY row_index
		LIMIT 1
	`, table, keyColumn, keyValue).Scan(&rowIndex)
	if err == sql.ErrNoRows {
		return 0, domainNotFound(table, keyValue)
	}
	if err != nil {
		return 0, storeUnavailable("find key in table %s: %v", table, err)
	}
	return rowIndex, nil
}

func (p *PostgresTable) UpdateRow(ctx context.Context, table string, rowIndex int, row Row) error {
	sc, err := p.schema(table)
	if err != nil {
		return err
	}
	data, err := json.Marshal(valuesToRow(sc.Headers, rowToValues(sc.Headers, row)))
	if err != nil {
		return storeUnavailable("encode row for table %s: %v", table, err)
	}

	result, err := p.db.ExecContext(ctx,
		`UPDATE tabular_rows SET data = $1 WHERE tab = $2 AND row_index = $3`,
		data, table, rowIndex,
	)
	if err != nil {
		return storeUnavailable("update table %s row %d: %v", table, rowIndex, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return storeUnavailable("update table %s row %d: %v", table, rowIndex, err)
	}
	if affected == 0 {
		return domainNotFound(table, "row")
	}
	return nil
}
