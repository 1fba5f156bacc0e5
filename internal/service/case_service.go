// Package service implements the application operations behind the HTTP
// handlers: case CRUD with territory scoping and the reconciliation hook
// that runs after every case write.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"materna-data/internal/alert"
	"materna-data/internal/domain"
	"materna-data/internal/repository"
)

// reconcileTimeout bounds one best-effort reconciliation pass. The pass runs
// on a detached context: once started it completes or fails on its own,
// regardless of the triggering request being cancelled.
const reconcileTimeout = 30 * time.Second

const (
	defaultPageSize = 20
	maxPageSize     = 100
	dateLayout      = "2006-01-02"
)

// Case form bounds, from the capture form's validation rules.
const (
	minAge              = 10
	maxAge              = 55
	minGestationalWeeks = 4
	maxGestationalWeeks = 42
)

// ListParams filters and paginates a case listing.
type ListParams struct {
	From     *time.Time // capture_date lower bound, inclusive
	To       *time.Time // capture_date upper bound, inclusive
	Query    string     // free text over identification and full name
	Page     int        // 1-based
	PageSize int
}

// CaseView is a case enriched with its computed risk tier and the number of
// currently open alerts.
type CaseView struct {
	Case       domain.CaseRecord
	Risk       domain.RiskTier
	OpenAlerts int
}

// CasePage is one page of a filtered listing.
type CasePage struct {
	Items    []CaseView
	Total    int
	Page     int
	PageSize int
}

// CaseService owns case reads and writes. Every successful write schedules
// one reconciliation pass; a reconciliation failure is logged and reported
// as a warning but never fails the write.
type CaseService struct {
	cases      repository.CasesRepository
	reconciler *alert.Reconciler
	query      *alert.Query
	logger     *zap.Logger
	now        func() time.Time
}

// NewCaseService creates the case service. A nil clock defaults to time.Now.
func NewCaseService(
	cases repository.CasesRepository,
	reconciler *alert.Reconciler,
	query *alert.Query,
	logger *zap.Logger,
	now func() time.Time,
) *CaseService {
	if now == nil {
		now = time.Now
	}
	return &CaseService{
		cases:      cases,
		reconciler: reconciler,
		query:      query,
		logger:     logger,
		now:        now,
	}
}

// List returns the caller-visible cases matching the filters, newest capture
// first, enriched with risk tier and open-alert counts for the page.
func (s *CaseService) List(ctx context.Context, scope domain.Scope, p ListParams) (CasePage, error) {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = defaultPageSize
	}
	if p.PageSize > maxPageSize {
		p.PageSize = maxPageSize
	}

	all, err := s.cases.ListAll(ctx)
	if err != nil {
		return CasePage{}, err
	}

	q := strings.ToLower(strings.TrimSpace(p.Query))
	matched := make([]domain.CaseRecord, 0, len(all))
	for _, rec := range all {
		if !scope.AllowsTerritory(rec.Territory) {
			continue
		}
		if !captureDateInRange(rec, p.From, p.To) {
			continue
		}
		if q != "" && !matchesQuery(rec, q) {
			continue
		}
		matched = append(matched, rec)
	}

	total := len(matched)
	start := (p.Page - 1) * p.PageSize
	if start > total {
		start = total
	}
	end := start + p.PageSize
	if end > total {
		end = total
	}
	page := matched[start:end]

	ids := make([]string, 0, len(page))
	for _, rec := range page {
		ids = append(ids, rec.ID)
	}
	counts, err := s.query.CountOpenByCaseIDs(ctx, ids)
	if err != nil {
		return CasePage{}, err
	}

	items := make([]CaseView, 0, len(page))
	for _, rec := range page {
		items = append(items, CaseView{
			Case:       rec,
			Risk:       alert.Classify(rec),
			OpenAlerts: counts[rec.ID],
		})
	}
	return CasePage{Items: items, Total: total, Page: p.Page, PageSize: p.PageSize}, nil
}

// GetByID returns one case with its risk tier and open-alert count.
func (s *CaseService) GetByID(ctx context.Context, scope domain.Scope, id string) (CaseView, error) {
	rec, err := s.cases.GetByID(ctx, id)
	if err != nil {
		return CaseView{}, err
	}
	if !scope.AllowsTerritory(rec.Territory) {
		return CaseView{}, fmt.Errorf("case %s is outside the caller's territories: %w", id, domain.ErrForbidden)
	}
	counts, err := s.query.CountOpenByCaseIDs(ctx, []string{rec.ID})
	if err != nil {
		return CaseView{}, err
	}
	return CaseView{Case: rec, Risk: alert.Classify(rec), OpenAlerts: counts[rec.ID]}, nil
}

// Create validates and persists a new case, then reconciles its alerts.
func (s *CaseService) Create(ctx context.Context, scope domain.Scope, columns map[string]string) (domain.CaseRecord, error) {
	cols := knownColumns(columns)
	if cols["id"] == "" {
		cols["id"] = uuid.NewString()
	}
	if cols["capture_date"] == "" {
		cols["capture_date"] = s.now().UTC().Format(dateLayout)
	}
	cols["registered_by"] = scope.Email
	cols["updated_at"] = s.now().UTC().Format(time.RFC3339)

	if err := validateCase(cols); err != nil {
		return domain.CaseRecord{}, err
	}
	if !scope.AllowsTerritory(cols["territory"]) {
		return domain.CaseRecord{}, fmt.Errorf("territory %q is outside the caller's scope: %w",
			cols["territory"], domain.ErrForbidden)
	}

	rec := domain.CaseFromRow(cols)
	if err := s.cases.Append(ctx, rec); err != nil {
		return domain.CaseRecord{}, err
	}
	s.reconcileAfterWrite(rec, scope.Email)
	return rec, nil
}

// Update merges known columns onto the stored case and reconciles alerts.
// Unknown keys in the payload are dropped; columns absent from the payload
// keep their stored values.
func (s *CaseService) Update(ctx context.Context, scope domain.Scope, id string, columns map[string]string) (domain.CaseRecord, error) {
	existing, err := s.cases.GetByID(ctx, id)
	if err != nil {
		return domain.CaseRecord{}, err
	}
	if !scope.AllowsTerritory(existing.Territory) {
		return domain.CaseRecord{}, fmt.Errorf("case %s is outside the caller's territories: %w", id, domain.ErrForbidden)
	}

	cols := make(map[string]string, len(domain.CaseHeaders))
	for k, v := range existing.Columns {
		cols[k] = v
	}
	for k, v := range knownColumns(columns) {
		cols[k] = v
	}
	cols["id"] = existing.ID // the key never changes
	cols["updated_at"] = s.now().UTC().Format(time.RFC3339)

	if err := validateCase(cols); err != nil {
		return domain.CaseRecord{}, err
	}
	if !scope.AllowsTerritory(cols["territory"]) {
		return domain.CaseRecord{}, fmt.Errorf("territory %q is outside the caller's scope: %w",
			cols["territory"], domain.ErrForbidden)
	}

	rec := domain.CaseFromRow(cols)
	if err := s.cases.UpdateByID(ctx, rec); err != nil {
		return domain.CaseRecord{}, err
	}
	s.reconcileAfterWrite(rec, scope.Email)
	return rec, nil
}

// reconcileAfterWrite runs one reconciliation pass on a detached context.
// The case write already committed; a failure here is a warning, not an
// error on the caller's operation.
func (s *CaseService) reconcileAfterWrite(rec domain.CaseRecord, actor string) {
	ctx, cancel := context.WithTimeout(context.Background(), reconcileTimeout)
	defer cancel()

	if err := s.reconciler.Reconcile(ctx, rec, actor); err != nil {
		s.logger.Warn("alert reconciliation failed after case write",
			zap.String("case_id", rec.ID),
			zap.Error(err),
		)
	}
}

// knownColumns keeps only keys belonging to the case table header.
func knownColumns(columns map[string]string) map[string]string {
	cols := make(map[string]string, len(columns))
	for _, h := range domain.CaseHeaders {
		if v, ok := columns[h]; ok {
			cols[h] = strings.TrimSpace(v)
		}
	}
	return cols
}

// validateCase enforces the capture form's rules. Listing and classification
// tolerate dirty stored data; new writes do not get to create it.
func validateCase(cols map[string]string) error {
	if cols["territory"] == "" {
		return fmt.Errorf("territory is required: %w", domain.ErrInvalid)
	}
	if cols["full_name"] == "" {
		return fmt.Errorf("full name is required: %w", domain.ErrInvalid)
	}
	if cols["identification"] == "" {
		return fmt.Errorf("identification is required: %w", domain.ErrInvalid)
	}
	if v := cols["age"]; v != "" {
		age := domain.CoerceInt(v)
		if age < minAge || age > maxAge {
			return fmt.Errorf("age %q out of range %d-%d: %w", v, minAge, maxAge, domain.ErrInvalid)
		}
	}
	if v := cols["gestational_weeks"]; v != "" {
		weeks := domain.CoerceInt(v)
		if weeks < minGestationalWeeks || weeks > maxGestationalWeeks {
			return fmt.Errorf("gestational weeks %q out of range %d-%d: %w",
				v, minGestationalWeeks, maxGestationalWeeks, domain.ErrInvalid)
		}
	}
	for _, dateCol := range []string{"capture_date", "last_menstrual_date", "last_visit_date", "referral_date"} {
		if v := cols[dateCol]; v != "" {
			if _, err := time.Parse(dateLayout, v); err != nil {
				return fmt.Errorf("%s %q is not a valid date (expected YYYY-MM-DD): %w",
					dateCol, v, domain.ErrInvalid)
			}
		}
	}
	return nil
}

func captureDateInRange(rec domain.CaseRecord, from, to *time.Time) bool {
	if from == nil && to == nil {
		return true
	}
	t, err := time.Parse(dateLayout, rec.Columns["capture_date"])
	if err != nil {
		return false
	}
	if from != nil && t.Before(*from) {
		return false
	}
	if to != nil && t.After(*to) {
		return false
	}
	return true
}

func matchesQuery(rec domain.CaseRecord, q string) bool {
	return strings.Contains(strings.ToLower(rec.Columns["identification"]), q) ||
		strings.Contains(strings.ToLower(rec.Columns["full_name"]), q)
}
