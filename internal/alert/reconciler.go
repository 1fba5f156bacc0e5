package alert

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"materna-data/internal/domain"
	"materna-data/internal/repository"
)

// Reconciler brings the persisted alert table in line with the alert set the
// rules currently require for a case. It is the only writer of alert rows.
type Reconciler struct {
	alerts repository.AlertsRepository
	logger *zap.Logger
	now    func() time.Time
	perKey *keyedMutex
}

// NewReconciler creates a reconciler. A nil clock defaults to time.Now.
func NewReconciler(alerts repository.AlertsRepository, logger *zap.Logger, now func() time.Time) *Reconciler {
	if now == nil {
		now = time.Now
	}
	return &Reconciler{
		alerts: alerts,
		logger: logger,
		now:    now,
		perKey: newKeyedMutex(),
	}
}

// newAlertID builds an id that is unique per (instant, type) and sorts
// chronologically as a plain string.
func newAlertID(t time.Time, alertType domain.AlertType) string {
	return fmt.Sprintf("%d-%s", t.UnixMilli(), alertType)
}

func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// Reconcile runs one pass for a case snapshot: opens alerts the rules demand
// that have no open instance, and closes open alerts whose condition no
// longer holds. Passes for the same case are serialized; repeated calls with
// an unchanged snapshot write nothing.
//
// Failures are wrapped in *domain.ReconciliationError. Callers triggered by
// a case write treat that as a warning, not as a failure of the write.
func (r *Reconciler) Reconcile(ctx context.Context, c domain.CaseRecord, actor string) error {
	if c.ID == "" {
		return &domain.ReconciliationError{CaseID: c.ID, Err: fmt.Errorf("case id is required")}
	}

	r.perKey.Lock(c.ID)
	defer r.perKey.Unlock(c.ID)

	current, err := r.alerts.ListByCase(ctx, c.ID)
	if err != nil {
		return &domain.ReconciliationError{CaseID: c.ID, Err: err}
	}

	required := RequiredAlerts(c)
	requiredTypes := make(map[domain.AlertType]bool, len(required))
	for _, req := range required {
		requiredTypes[req.Type] = true
	}
	openTypes := make(map[domain.AlertType]bool)
	for _, a := range current {
		if a.State.IsOpen() {
			openTypes[a.Type] = true
		}
	}

	created, closed := 0, 0
	for _, req := range required {
		if openTypes[req.Type] {
			continue
		}
		now := r.now()
		a := domain.Alert{
			AlertID:        newAlertID(now, req.Type),
			CaseID:         c.ID,
			Territory:      c.Territory,
			Type:           req.Type,
			Priority:       req.Priority,
			GeneratedAt:    timestamp(now),
			TriggeringRule: req.TriggeringRule,
			State:          domain.StateOpen,
			// StateChangedAt stays empty until the first transition.
			Responsible: actor,
		}
		if err := r.alerts.Append(ctx, a); err != nil {
			return &domain.ReconciliationError{CaseID: c.ID, Err: err}
		}
		created++
	}

	// Terminal rows are never revisited; recurrence gets a fresh row above.
	// Anything non-terminal (including blank or unknown states left by
	// older writers) goes through the closing check.
	for _, a := range current {
		if a.State.IsTerminal() {
			continue
		}
		if requiredTypes[a.Type] && !conditionResolved(a.Type, c) {
			continue
		}
		a.State = domain.StateClosed
		a.StateChangedAt = timestamp(r.now())
		a.Resolved = domain.ResolvedFlag
		if err := r.alerts.UpdateByID(ctx, a); err != nil {
			return &domain.ReconciliationError{CaseID: c.ID, Err: err}
		}
		closed++
	}

	if created > 0 || closed > 0 {
		r.logger.Info("alerts reconciled",
			zap.String("case_id", c.ID),
			zap.String("actor", actor),
			zap.Int("created", created),
			zap.Int("closed", closed),
		)
	}
	return nil
}
