// Package repository maps domain records onto the tabular store. It owns the
// table schemas and hides row/position mechanics from the services above it.
package repository

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"materna-data/internal/domain"
	"materna-data/internal/tabular"
)

// Table names inside the tabular store.
const (
	AlertsTable = "alerts"
	CasesTable  = "cases"
)

// AlertsSchema declares the alerts tab layout.
func AlertsSchema() tabular.Schema {
	return tabular.Schema{
		Name:    AlertsTable,
		Headers: domain.AlertHeaders,
		Key:     domain.AlertKeyColumn,
	}
}

// CasesSchema declares the cases tab layout.
func CasesSchema() tabular.Schema {
	return tabular.Schema{
		Name:    CasesTable,
		Headers: domain.CaseHeaders,
		Key:     domain.CaseKeyColumn,
	}
}

// AlertsRepository persists and queries alert rows.
type AlertsRepository interface {
	// ListAll returns every alert row in sheet order.
	ListAll(ctx context.Context) ([]domain.Alert, error)

	// ListByCase returns the alerts belonging to one case, in sheet order.
	ListByCase(ctx context.Context, caseID string) ([]domain.Alert, error)

	// Append persists a new alert row.
	Append(ctx context.Context, alert domain.Alert) error

	// UpdateByID locates an alert by id and overwrites its full row.
	// Returns domain.ErrNotFound when no row carries the id.
	UpdateByID(ctx context.Context, alert domain.Alert) error
}

type alertsRepo struct {
	table  tabular.Table
	logger *zap.Logger
}

// NewAlertsRepository creates the tabular-backed alerts repository.
func NewAlertsRepository(table tabular.Table, logger *zap.Logger) AlertsRepository {
	return &alertsRepo{table: table, logger: logger}
}

func (r *alertsRepo) ListAll(ctx context.Context) ([]domain.Alert, error) {
	rows, err := r.table.ReadAll(ctx, AlertsTable)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	alerts := make([]domain.Alert, 0, len(rows))
	for _, row := range rows {
		alerts = append(alerts, domain.AlertFromRow(row))
	}
	return alerts, nil
}

func (r *alertsRepo) ListByCase(ctx context.Context, caseID string) ([]domain.Alert, error) {
	if caseID == "" {
		return nil, fmt.Errorf("case id is required")
	}
	all, err := r.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	alerts := make([]domain.Alert, 0)
	for _, a := range all {
		if a.CaseID == caseID {
			alerts = append(alerts, a)
		}
	}
	return alerts, nil
}

func (r *alertsRepo) Append(ctx context.Context, alert domain.Alert) error {
	if alert.AlertID == "" {
		return fmt.Errorf("alert id is required")
	}
	if err := r.table.Append(ctx, AlertsTable, alert.Row()); err != nil {
		return fmt.Errorf("append alert %s: %w", alert.AlertID, err)
	}
	r.logger.Info("alert persisted",
		zap.String("alert_id", alert.AlertID),
		zap.String("case_id", alert.CaseID),
		zap.String("alert_type", string(alert.Type)),
	)
	return nil
}

func (r *alertsRepo) UpdateByID(ctx context.Context, alert domain.Alert) error {
	if alert.AlertID == "" {
		return fmt.Errorf("alert id is required")
	}
	pos, err := r.table.FindRowKey(ctx, AlertsTable, domain.AlertKeyColumn, alert.AlertID)
	if err != nil {
		return fmt.Errorf("locate alert %s: %w", alert.AlertID, err)
	}
	if err := r.table.UpdateRow(ctx, AlertsTable, pos, alert.Row()); err != nil {
		return fmt.Errorf("update alert %s: %w", alert.AlertID, err)
	}
	return nil
}
