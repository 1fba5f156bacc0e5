package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"materna-data/internal/alert"
	"materna-data/internal/domain"
	"materna-data/internal/repository"
	"materna-data/internal/tabular"
)

func newTestCaseService(t *testing.T) (*CaseService, repository.AlertsRepository) {
	t.Helper()
	store := tabular.NewMemoryTable(repository.AlertsSchema(), repository.CasesSchema())
	casesRepo := repository.NewCasesRepository(store, zap.NewNop())
	alertsRepo := repository.NewAlertsRepository(store, zap.NewNop())
	reconciler := alert.NewReconciler(alertsRepo, zap.NewNop(), nil)
	query := alert.NewQuery(alertsRepo)
	svc := NewCaseService(casesRepo, reconciler, query, zap.NewNop(), nil)
	return svc, alertsRepo
}

func adminScope() domain.Scope {
	return domain.Scope{Role: domain.RoleAdmin, Email: "admin@example.org"}
}

func territoryScope(territories ...string) domain.Scope {
	return domain.Scope{
		Role:        domain.RoleProfessional,
		Territories: territories,
		Email:       "nurse@example.org",
	}
}

func validPayload(over map[string]string) map[string]string {
	cols := map[string]string{
		"territory":         "norte",
		"full_name":         "Ana María López",
		"identification":    "CC-1002003004",
		"age":               "24",
		"gestational_weeks": "30",
		"prenatal_visits":   "4",
	}
	for k, v := range over {
		cols[k] = v
	}
	return cols
}

func TestCreateValidations(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestCaseService(t)

	tests := []struct {
		name    string
		payload map[string]string
	}{
		{"missing territory", validPayload(map[string]string{"territory": ""})},
		{"missing name", validPayload(map[string]string{"full_name": ""})},
		{"missing identification", validPayload(map[string]string{"identification": ""})},
		{"age below range", validPayload(map[string]string{"age": "9"})},
		{"age above range", validPayload(map[string]string{"age": "60"})},
		{"weeks below range", validPayload(map[string]string{"gestational_weeks": "2"})},
		{"weeks above range", validPayload(map[string]string{"gestational_weeks": "45"})},
		{"bad capture date", validPayload(map[string]string{"capture_date": "01/05/2026"})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, adminScope(), tt.payload)
			assert.ErrorIs(t, err, domain.ErrInvalid)
		})
	}
}

func TestCreateAssignsIDAndAuditColumns(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestCaseService(t)

	rec, err := svc.Create(ctx, adminScope(), validPayload(nil))
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, "admin@example.org", rec.Columns["registered_by"])
	assert.NotEmpty(t, rec.Columns["capture_date"])
	assert.NotEmpty(t, rec.Columns["updated_at"])
}

func TestCreateTriggersReconciliation(t *testing.T) {
	ctx := context.Background()
	svc, alertsRepo := newTestCaseService(t)

	rec, err := svc.Create(ctx, adminScope(), validPayload(map[string]string{
		"alarm_signs": "bleeding",
	}))
	require.NoError(t, err)

	alerts, err := alertsRepo.ListByCase(ctx, rec.ID)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, domain.AlertAlarmSigns, alerts[0].Type)
	assert.Equal(t, domain.StateOpen, alerts[0].State)
}

func TestUpdateClosesResolvedAlerts(t *testing.T) {
	ctx := context.Background()
	svc, alertsRepo := newTestCaseService(t)

	rec, err := svc.Create(ctx, adminScope(), validPayload(map[string]string{
		"gestational_weeks": "14",
		"prenatal_visits":   "0",
	}))
	require.NoError(t, err)

	_, err = svc.Update(ctx, adminScope(), rec.ID, map[string]string{"prenatal_visits": "1"})
	require.NoError(t, err)

	alerts, err := alertsRepo.ListByCase(ctx, rec.ID)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, domain.StateClosed, alerts[0].State)
	assert.Equal(t, domain.ResolvedFlag, alerts[0].Resolved)
}

func TestUpdateMergesKnownColumnsOnly(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestCaseService(t)

	rec, err := svc.Create(ctx, adminScope(), validPayload(nil))
	require.NoError(t, err)

	updated, err := svc.Update(ctx, adminScope(), rec.ID, map[string]string{
		"prenatal_visits": "5",
		"bogus_column":    "ignored",
		"id":              "attempted-rekey",
	})
	require.NoError(t, err)
	assert.Equal(t, rec.ID, updated.ID, "the key column never changes")
	assert.Equal(t, 5, updated.PrenatalVisits)
	assert.Equal(t, "Ana María López", updated.Columns["full_name"])
	_, hasBogus := updated.Columns["bogus_column"]
	assert.False(t, hasBogus)
}

func TestTerritoryScoping(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestCaseService(t)

	norte, err := svc.Create(ctx, adminScope(), validPayload(map[string]string{"territory": "norte"}))
	require.NoError(t, err)
	_, err = svc.Create(ctx, adminScope(), validPayload(map[string]string{
		"territory":      "sur",
		"identification": "CC-2003004005",
	}))
	require.NoError(t, err)

	// Listing only shows the caller's territories.
	page, err := svc.List(ctx, territoryScope("norte"), ListParams{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "norte", page.Items[0].Case.Territory)

	// Reads outside the scope are forbidden.
	_, err = svc.GetByID(ctx, territoryScope("sur"), norte.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	// Writes into an unscoped territory are forbidden.
	_, err = svc.Create(ctx, territoryScope("sur"), validPayload(map[string]string{"territory": "norte"}))
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestListFiltersAndPagination(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestCaseService(t)

	for i, capture := range []string{"2026-08-01", "2026-08-10", "2026-08-20"} {
		_, err := svc.Create(ctx, adminScope(), validPayload(map[string]string{
			"capture_date":   capture,
			"identification": "CC-" + capture,
			"full_name":      []string{"Ana López", "Berta Díaz", "Carla Ruiz"}[i],
		}))
		require.NoError(t, err)
	}

	from := time.Date(2026, 8, 5, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)
	page, err := svc.List(ctx, adminScope(), ListParams{From: &from, To: &to})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "2026-08-10", page.Items[0].Case.Columns["capture_date"])

	// Free text search over name.
	page, err = svc.List(ctx, adminScope(), ListParams{Query: "berta"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)

	// Pagination.
	page, err = svc.List(ctx, adminScope(), ListParams{Page: 2, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	assert.Len(t, page.Items, 1)
}

func TestListEnrichesRiskAndOpenCounts(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestCaseService(t)

	_, err := svc.Create(ctx, adminScope(), validPayload(map[string]string{
		"alarm_signs": "bleeding",
	}))
	require.NoError(t, err)

	page, err := svc.List(ctx, adminScope(), ListParams{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, domain.RiskRed, page.Items[0].Risk)
	assert.Equal(t, 1, page.Items[0].OpenAlerts)
}
