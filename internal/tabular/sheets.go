package tabular

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// maxScanRows bounds every read range; the store has no row-count call.
const maxScanRows = 100000

// SheetsConfig describes the remote spreadsheet values endpoint.
type SheetsConfig struct {
	BaseURL       string // e.g. https://sheets.googleapis.com
	SpreadsheetID string
	Token         string // bearer token minted by the deployment's credential helper
	Timeout       time.Duration
}

// valueRange is the wire shape of the values API for both reads and writes.
type valueRange struct {
	Range  string     `json:"range,omitempty"`
	Values [][]string `json:"values"`
}

// SheetsTable talks to a remote spreadsheet values API. Cells are addressed
// with A1 ranges built from 1-based positions and base-26 column labels.
// The client does not retry: a reconciliation pass would rather fail fast
// and be re-run than double-append on an ambiguous timeout.
type SheetsTable struct {
	client        *resty.Client
	spreadsheetID string
	schemas       map[string]Schema
	logger        *zap.Logger

	mu      sync.Mutex
	ensured map[string]bool // tables whose header row was verified
}

// NewSheetsTable builds the remote backend for the given table schemas.
func NewSheetsTable(cfg SheetsConfig, logger *zap.Logger, schemas ...Schema) *SheetsTable {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(timeout).
		SetAuthToken(cfg.Token).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &SheetsTable{
		client:        client,
		spreadsheetID: cfg.SpreadsheetID,
		schemas:       schemaIndex(schemas),
		logger:        logger,
		ensured:       make(map[string]bool),
	}
}

func (s *SheetsTable) schema(table string) (Schema, error) {
	sc, ok := s.schemas[table]
	if !ok {
		return Schema{}, fmt.Errorf("unknown table %q", table)
	}
	return sc, nil
}

func (s *SheetsTable) valuesPath(rangeA1 string) string {
	return fmt.Sprintf("/v4/spreadsheets/%s/values/%s", s.spreadsheetID, rangeA1)
}

func a1Range(tab, cells string) string {
	return fmt.Sprintf("'%s'!%s", strings.ReplaceAll(tab, "'", "''"), cells)
}

func (s *SheetsTable) getValues(ctx context.Context, rangeA1 string) ([][]string, error) {
	var out valueRange
	resp, err := s.client.R().
		SetContext(ctx).
		SetResult(&out).
		Get(s.valuesPath(rangeA1))
	if err != nil {
		return nil, storeUnavailable("read %s: %v", rangeA1, err)
	}
	if resp.IsError() {
		return nil, storeUnavailable("read %s: status %d", rangeA1, resp.StatusCode())
	}
	return out.Values, nil
}

func (s *SheetsTable) putValues(ctx context.Context, rangeA1 string, values [][]string) error {
	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParam("valueInputOption", "USER_ENTERED").
		SetBody(valueRange{Values: values}).
		Put(s.valuesPath(rangeA1))
	if err != nil {
		return storeUnavailable("update %s: %v", rangeA1, err)
	}
	if resp.IsError() {
		return storeUnavailable("update %s: status %d", rangeA1, resp.StatusCode())
	}
	return nil
}

// ensureHeaders writes the canonical header row once per table if the first
// row is empty. Verified tables are remembered for the process lifetime.
func (s *SheetsTable) ensureHeaders(ctx context.Context, sc Schema) error {
	s.mu.Lock()
	done := s.ensured[sc.Name]
	s.mu.Unlock()
	if done {
		return nil
	}

	first, err := s.getValues(ctx, a1Range(sc.Name, "1:1"))
	if err != nil {
		return err
	}
	if len(first) == 0 || len(first[0]) == 0 {
		if err := s.putValues(ctx, a1Range(sc.Name, "A1"), [][]string{sc.Headers}); err != nil {
			return err
		}
		s.logger.Info("wrote header row", zap.String("table", sc.Name))
	}

	s.mu.Lock()
	s.ensured[sc.Name] = true
	s.mu.Unlock()
	return nil
}

func (s *SheetsTable) ReadAll(ctx context.Context, table string) ([]Row, error) {
	sc, err := s.schema(table)
	if err != nil {
		return nil, err
	}
	if err := s.ensureHeaders(ctx, sc); err != nil {
		return nil, err
	}

	cells := fmt.Sprintf("A1:%s%d", ColumnLabel(len(sc.Headers)), maxScanRows)
	values, err := s.getValues(ctx, a1Range(table, cells))
	if err != nil {
		return nil, err
	}
	if len(values) <= 1 {
		return []Row{}, nil
	}
	// Key rows by the live header row, not the compiled-in schema, so a
	// sheet with reordered columns still reads correctly.
	header := values[0]
	rows := make([]Row, 0, len(values)-1)
	for _, v := range values[1:] {
		rows = append(rows, valuesToRow(header, v))
	}
	return rows, nil
}

func (s *SheetsTable) Append(ctx context.Context, table string, row Row) error {
	sc, err := s.schema(table)
	if err != nil {
		return err
	}
	if err := s.ensureHeaders(ctx, sc); err != nil {
		return err
	}

	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParam("valueInputOption", "USER_ENTERED").
		SetQueryParam("insertDataOption", "INSERT_ROWS").
		SetBody(valueRange{Values: [][]string{rowToValues(sc.Headers, row)}}).
		Post(s.valuesPath(table) + ":append")
	if err != nil {
		return storeUnavailable("append to %s: %v", table, err)
	}
	if resp.IsError() {
		return storeUnavailable("append to %s: status %d", table, resp.StatusCode())
	}
	return nil
}

func (s *SheetsTable) FindRowKey(ctx context.Context, table, keyColumn, keyValue string) (int, error) {
	sc, err := s.schema(table)
	if err != nil {
		return 0, err
	}
	if err := s.ensureHeaders(ctx, sc); err != nil {
		return 0, err
	}

	cells := fmt.Sprintf("A1:%s%d", ColumnLabel(len(sc.Headers)), maxScanRows)
	values, err := s.getValues(ctx, a1Range(table, cells))
	if err != nil {
		return 0, err
	}
	if len(values) == 0 {
		return 0, domainNotFound(table, keyValue)
	}
	keyIdx := -1
	for i, h := range values[0] {
		if h == keyColumn {
			keyIdx = i
			break
		}
	}
	if keyIdx < 0 {
		return 0, domainNotFound(table, keyValue)
	}
	for i, rowValues := range values[1:] {
		if keyIdx < len(rowValues) && rowValues[keyIdx] == keyValue {
			return i + 2, nil
		}
	}
	return 0, domainNotFound(table, keyValue)
}

func (s *SheetsTable) UpdateRow(ctx context.Context, table string, rowIndex int, row Row) error {
	sc, err := s.schema(table)
	if err != nil {
		return err
	}
	if err := s.ensureHeaders(ctx, sc); err != nil {
		return err
	}

	cells := fmt.Sprintf("%s%d:%s%d",
		ColumnLabel(1), rowIndex,
		ColumnLabel(len(sc.Headers)), rowIndex,
	)
	return s.putValues(ctx, a1Range(table, cells), [][]string{rowToValues(sc.Headers, row)})
}
