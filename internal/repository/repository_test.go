package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"materna-data/internal/domain"
	"materna-data/internal/tabular"
)

func newTestStore() *tabular.MemoryTable {
	return tabular.NewMemoryTable(AlertsSchema(), CasesSchema())
}

func TestAlertsRepositoryAppendAndList(t *testing.T) {
	ctx := context.Background()
	repo := NewAlertsRepository(newTestStore(), zap.NewNop())

	alert := domain.Alert{
		AlertID:        "1700000000000-ALARM_SIGNS",
		CaseID:         "C-1",
		Territory:      "norte",
		Type:           domain.AlertAlarmSigns,
		Priority:       domain.PriorityRed,
		GeneratedAt:    "2026-08-01T10:00:00Z",
		TriggeringRule: "alarm sign present: bleeding",
		State:          domain.StateOpen,
		StateChangedAt: "2026-08-01T10:00:00Z",
	}
	require.NoError(t, repo.Append(ctx, alert))

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, alert.AlertID, all[0].AlertID)
	assert.Equal(t, domain.StateOpen, all[0].State)
}

func TestAlertsRepositoryListByCase(t *testing.T) {
	ctx := context.Background()
	repo := NewAlertsRepository(newTestStore(), zap.NewNop())

	require.NoError(t, repo.Append(ctx, domain.Alert{AlertID: "a1", CaseID: "C-1"}))
	require.NoError(t, repo.Append(ctx, domain.Alert{AlertID: "a2", CaseID: "C-2"}))
	require.NoError(t, repo.Append(ctx, domain.Alert{AlertID: "a3", CaseID: "C-1"}))

	alerts, err := repo.ListByCase(ctx, "C-1")
	require.NoError(t, err)
	require.Len(t, alerts, 2)
	assert.Equal(t, "a1", alerts[0].AlertID)
	assert.Equal(t, "a3", alerts[1].AlertID)
}

func TestAlertsRepositoryUpdateByID(t *testing.T) {
	ctx := context.Background()
	repo := NewAlertsRepository(newTestStore(), zap.NewNop())

	alert := domain.Alert{AlertID: "a1", CaseID: "C-1", State: domain.StateOpen}
	require.NoError(t, repo.Append(ctx, alert))

	alert.State = domain.StateClosed
	alert.Resolved = domain.ResolvedFlag
	require.NoError(t, repo.UpdateByID(ctx, alert))

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, domain.StateClosed, all[0].State)
	assert.Equal(t, domain.ResolvedFlag, all[0].Resolved)

	err = repo.UpdateByID(ctx, domain.Alert{AlertID: "missing"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func caseColumns(id, territory string, extra map[string]string) map[string]string {
	cols := map[string]string{"id": id, "territory": territory}
	for k, v := range extra {
		cols[k] = v
	}
	return cols
}

func TestCasesRepositoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewCasesRepository(newTestStore(), zap.NewNop())

	record := domain.CaseFromRow(caseColumns("C-1", "norte", map[string]string{
		"age":               "24",
		"gestational_weeks": "30",
		"prenatal_visits":   "2",
	}))
	require.NoError(t, repo.Append(ctx, record))

	got, err := repo.GetByID(ctx, "C-1")
	require.NoError(t, err)
	assert.Equal(t, 24, got.Age)
	assert.Equal(t, 30, got.GestationalWeeks)
	assert.Equal(t, "norte", got.Territory)

	_, err = repo.GetByID(ctx, "C-404")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCasesRepositoryUpdateByID(t *testing.T) {
	ctx := context.Background()
	repo := NewCasesRepository(newTestStore(), zap.NewNop())

	record := domain.CaseFromRow(caseColumns("C-1", "norte", map[string]string{"prenatal_visits": "1"}))
	require.NoError(t, repo.Append(ctx, record))

	record.Columns["prenatal_visits"] = "4"
	require.NoError(t, repo.UpdateByID(ctx, record))

	got, err := repo.GetByID(ctx, "C-1")
	require.NoError(t, err)
	assert.Equal(t, 4, got.PrenatalVisits)
}
