package repository

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"materna-data/internal/domain"
	"materna-data/internal/tabular"
)

// CasesRepository persists and queries case rows.
type CasesRepository interface {
	// ListAll returns every case in sheet order.
	ListAll(ctx context.Context) ([]domain.CaseRecord, error)

	// GetByID returns one case. domain.ErrNotFound when the id is unknown.
	GetByID(ctx context.Context, id string) (domain.CaseRecord, error)

	// Append persists a new case row.
	Append(ctx context.Context, record domain.CaseRecord) error

	// UpdateByID locates a case by id and overwrites its full row.
	UpdateByID(ctx context.Context, record domain.CaseRecord) error
}

type casesRepo struct {
	table  tabular.Table
	logger *zap.Logger
}

// NewCasesRepository creates the tabular-backed cases repository.
func NewCasesRepository(table tabular.Table, logger *zap.Logger) CasesRepository {
	return &casesRepo{table: table, logger: logger}
}

func (r *casesRepo) ListAll(ctx context.Context) ([]domain.CaseRecord, error) {
	rows, err := r.table.ReadAll(ctx, CasesTable)
	if err != nil {
		return nil, fmt.Errorf("list cases: %w", err)
	}
	records := make([]domain.CaseRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, domain.CaseFromRow(row))
	}
	return records, nil
}

func (r *casesRepo) GetByID(ctx context.Context, id string) (domain.CaseRecord, error) {
	if id == "" {
		return domain.CaseRecord{}, fmt.Errorf("case id is required")
	}
	records, err := r.ListAll(ctx)
	if err != nil {
		return domain.CaseRecord{}, err
	}
	for _, rec := range records {
		if rec.ID == id {
			return rec, nil
		}
	}
	return domain.CaseRecord{}, fmt.Errorf("case %s: %w", id, domain.ErrNotFound)
}

func (r *casesRepo) Append(ctx context.Context, record domain.CaseRecord) error {
	if record.ID == "" {
		return fmt.Errorf("case id is required")
	}
	if err := r.table.Append(ctx, CasesTable, record.Columns); err != nil {
		return fmt.Errorf("append case %s: %w", record.ID, err)
	}
	r.logger.Info("case persisted",
		zap.String("case_id", record.ID),
		zap.String("territory", record.Territory),
	)
	return nil
}

func (r *casesRepo) UpdateByID(ctx context.Context, record domain.CaseRecord) error {
	if record.ID == "" {
		return fmt.Errorf("case id is required")
	}
	pos, err := r.table.FindRowKey(ctx, CasesTable, domain.CaseKeyColumn, record.ID)
	if err != nil {
		return fmt.Errorf("locate case %s: %w", record.ID, err)
	}
	if err := r.table.UpdateRow(ctx, CasesTable, pos, record.Columns); err != nil {
		return fmt.Errorf("update case %s: %w", record.ID, err)
	}
	return nil
}
