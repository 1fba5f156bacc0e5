package alert

import (
	"context"
	"sort"
	"time"

	"materna-data/internal/domain"
	"materna-data/internal/repository"
)

// Filters narrows an alert listing. Empty fields match everything.
type Filters struct {
	CaseID string
	Type   domain.AlertType
	State  domain.AlertState
}

// Query reads and aggregates the alert table. It shares the store with the
// reconciler but never writes.
type Query struct {
	alerts repository.AlertsRepository
}

// NewQuery creates the read side of the alert engine.
func NewQuery(alerts repository.AlertsRepository) *Query {
	return &Query{alerts: alerts}
}

// timestampFormats are tried in order when parsing stored cells; the store
// does not validate what a spreadsheet editor may have typed.
var timestampFormats = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTimestamp(s string) (time.Time, bool) {
	for _, layout := range timestampFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// List returns alerts matching the filters, newest first by generatedAt.
// Rows whose generatedAt does not parse sort last, in stored order.
func (q *Query) List(ctx context.Context, f Filters) ([]domain.Alert, error) {
	all, err := q.alerts.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	matched := make([]domain.Alert, 0, len(all))
	for _, a := range all {
		if f.CaseID != "" && a.CaseID != f.CaseID {
			continue
		}
		if f.Type != "" && a.Type != f.Type {
			continue
		}
		if f.State != "" && a.State != f.State {
			continue
		}
		matched = append(matched, a)
	}

	sort.SliceStable(matched, func(i, j int) bool {
		ti, oki := parseTimestamp(matched[i].GeneratedAt)
		tj, okj := parseTimestamp(matched[j].GeneratedAt)
		if oki != okj {
			return oki
		}
		if !oki {
			return false
		}
		return ti.After(tj)
	})
	return matched, nil
}

// CountOpenByCaseIDs counts non-terminal alerts per case. Every requested id
// appears in the result; ids with no alert rows map to zero.
func (q *Query) CountOpenByCaseIDs(ctx context.Context, ids []string) (map[string]int, error) {
	counts := make(map[string]int, len(ids))
	for _, id := range ids {
		counts[id] = 0
	}

	all, err := q.alerts.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	for _, a := range all {
		if _, wanted := counts[a.CaseID]; wanted && a.State.IsOpen() {
			counts[a.CaseID]++
		}
	}
	return counts, nil
}

// Summarize aggregates detected/resolved/pending counts per alert type.
// With a range filter active, rows whose generatedAt cannot be parsed are
// excluded entirely; without one every row counts.
func (q *Query) Summarize(ctx context.Context, from, to *time.Time) (map[domain.AlertType]domain.AlertSummary, error) {
	all, err := q.alerts.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	filtering := from != nil || to != nil
	summary := make(map[domain.AlertType]domain.AlertSummary)
	for _, a := range all {
		if filtering {
			t, ok := parseTimestamp(a.GeneratedAt)
			if !ok {
				continue
			}
			if from != nil && t.Before(*from) {
				continue
			}
			if to != nil && t.After(*to) {
				continue
			}
		}
		s := summary[a.Type]
		s.Detected++
		if a.State == domain.StateClosed && a.Resolved == domain.ResolvedFlag {
			s.Resolved++
		}
		if a.State.IsOpen() {
			s.Pending++
		}
		summary[a.Type] = s
	}
	return summary, nil
}
