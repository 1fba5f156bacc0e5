package tabular

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// WorkbookTable stores tables as sheets of a local .xlsx workbook. It exists
// for offline and single-site deployments that cannot reach the remote
// spreadsheet service; the file keeps the exact same tab and column layout,
// so a workbook can be uploaded to the remote store later.
//
// Every operation opens the file fresh and writes it back; the coarse mutex
// keeps concurrent handlers from interleaving saves.
type WorkbookTable struct {
	mu      sync.Mutex
	path    string
	schemas map[string]Schema
	logger  *zap.Logger
}

// NewWorkbookTable creates the backend. The file is created on first write.
func NewWorkbookTable(path string, logger *zap.Logger, schemas ...Schema) *WorkbookTable {
	return &WorkbookTable{
		path:    path,
		schemas: schemaIndex(schemas),
		logger:  logger,
	}
}

func (w *WorkbookTable) schema(table string) (Schema, error) {
	s, ok := w.schemas[table]
	if !ok {
		return Schema{}, fmt.Errorf("unknown table %q", table)
	}
	return s, nil
}

// open loads the workbook, creating file, sheet and header row as needed.
// Callers must hold w.mu and Close the returned file.
func (w *WorkbookTable) open(sc Schema) (*excelize.File, error) {
	var f *excelize.File
	if _, err := os.Stat(w.path); err == nil {
		f, err = excelize.OpenFile(w.path)
		if err != nil {
			return nil, storeUnavailable("open workbook %s: %v", w.path, err)
		}
	} else {
		f = excelize.NewFile()
	}

	idx, err := f.GetSheetIndex(sc.Name)
	if err != nil {
		f.Close()
		return nil, storeUnavailable("workbook sheet lookup %s: %v", sc.Name, err)
	}
	if idx < 0 {
		if _, err := f.NewSheet(sc.Name); err != nil {
			f.Close()
			return nil, storeUnavailable("create sheet %s: %v", sc.Name, err)
		}
		f.DeleteSheet("Sheet1")
		header := make([]interface{}, len(sc.Headers))
		for i, h := range sc.Headers {
			header[i] = h
		}
		if err := f.SetSheetRow(sc.Name, "A1", &header); err != nil {
			f.Close()
			return nil, storeUnavailable("write header row %s: %v", sc.Name, err)
		}
	}
	return f, nil
}

func (w *WorkbookTable) save(f *excelize.File) error {
	if err := f.SaveAs(w.path); err != nil {
		return storeUnavailable("save workbook %s: %v", w.path, err)
	}
	return nil
}

func (w *WorkbookTable) ReadAll(_ context.Context, table string) ([]Row, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	sc, err := w.schema(table)
	if err != nil {
		return nil, err
	}
	f, err := w.open(sc)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	values, err := f.GetRows(sc.Name)
	if err != nil {
		return nil, storeUnavailable("read sheet %s: %v", sc.Name, err)
	}
	if len(values) <= 1 {
		return []Row{}, nil
	}
	header := values[0]
	rows := make([]Row, 0, len(values)-1)
	for _, v := range values[1:] {
		rows = append(rows, valuesToRow(header, v))
	}
	return rows, nil
}

func (w *WorkbookTable) Append(_ context.Context, table string, row Row) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	sc, err := w.schema(table)
	if err != nil {
		return err
	}
	f, err := w.open(sc)
	if err != nil {
		return err
	}
	defer f.Close()

	values, err := f.GetRows(sc.Name)
	if err != nil {
		return storeUnavailable("read sheet %s: %v", sc.Name, err)
	}
	cells := rowToValues(sc.Headers, row)
	out := make([]interface{}, len(cells))
	for i, c := range cells {
		out[i] = c
	}
	anchor, err := excelize.CoordinatesToCellName(1, len(values)+1)
	if err != nil {
		return storeUnavailable("append coordinates %s: %v", sc.Name, err)
	}
	if err := f.SetSheetRow(sc.Name, anchor, &out); err != nil {
		return storeUnavailable("append to sheet %s: %v", sc.Name, err)
	}
	return w.save(f)
}

func (w *WorkbookTable) FindRowKey(ctx context.Context, table, keyColumn, keyValue string) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	sc, err := w.schema(table)
	if err != nil {
		return 0, err
	}
	f, err := w.open(sc)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	values, err := f.GetRows(sc.Name)
	if err != nil {
		return 0, storeUnavailable("read sheet %s: %v", sc.Name, err)
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

func (w *WorkbookTable) UpdateRow(_ context.Context, table string, rowIndex int, row Row) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	sc, err := w.schema(table)
	if err != nil {
		return err
	}
	f, err := w.open(sc)
	if err != nil {
		return err
	}
	defer f.Close()

	cells := rowToValues(sc.Headers, row)
	out := make([]interface{}, len(cells))
	for i, c := range cells {
		out[i] = c
	}
	anchor, err := excelize.CoordinatesToCellName(1, rowIndex)
	if err != nil {
		return storeUnavailable("update coordinates %s: %v", sc.Name, err)
	}
	if err := f.SetSheetRow(sc.Name, anchor, &out); err != nil {
		return storeUnavailable("update sheet %s row %d: %v", sc.Name, rowIndex, err)
	}
	return w.save(f)
}
