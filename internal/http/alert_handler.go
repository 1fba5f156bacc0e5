package httpapi

import (
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"materna-data/internal/alert"
	"materna-data/internal/domain"
)

// AlertHandler serves the alert listing and aggregation endpoints. It reads
// through the same query component the services use; it never writes alert
// state (the reconciler is the only writer).
type AlertHandler struct {
	query  *alert.Query
	logger *zap.Logger
}

func NewAlertHandler(query *alert.Query, logger *zap.Logger) *AlertHandler {
	return &AlertHandler{query: query, logger: logger}
}

type alertItem struct {
	AlertID                string `json:"alert_id"`
	CaseID                 string `json:"case_id"`
	Territory              string `json:"territory"`
	AlertType              string `json:"alert_type"`
	Priority               string `json:"priority"`
	GeneratedAt            string `json:"generated_at"`
	TriggeringRule         string `json:"triggering_rule"`
	State                  string `json:"state"`
	StateChangedAt         string `json:"state_changed_at"`
	Responsible            string `json:"responsible"`
	ReferralType           string `json:"referral_type"`
	ReferralDate           string `json:"referral_date"`
	EffectiveAttentionDate string `json:"effective_attention_date"`
	ResolutionEvidence     string `json:"resolution_evidence"`
	ContactAttempts        string `json:"contact_attempts"`
	Observations           string `json:"observations"`
	Resolved               string `json:"resolved"`
}

func toAlertItem(a domain.Alert) alertItem {
	return alertItem{
		AlertID:                a.AlertID,
		CaseID:                 a.CaseID,
		Territory:              a.Territory,
		AlertType:              string(a.Type),
		Priority:               string(a.Priority),
		GeneratedAt:            a.GeneratedAt,
		TriggeringRule:         a.TriggeringRule,
		State:                  string(a.State),
		StateChangedAt:         a.StateChangedAt,
		Responsible:            a.Responsible,
		ReferralType:           a.ReferralType,
		ReferralDate:           a.ReferralDate,
		EffectiveAttentionDate: a.EffectiveAttentionDate,
		ResolutionEvidence:     a.ResolutionEvidence,
		ContactAttempts:        a.ContactAttempts,
		Observations:           a.Observations,
		Resolved:               a.Resolved,
	}
}

type alertListResponse struct {
	Items []alertItem `json:"items"`
	Total int         `json:"total"`
}

// territoryVisible filters listed alerts down to the caller's territories.
func territoryVisible(scope domain.Scope, alerts []domain.Alert) []domain.Alert {
	if scope.IsAdmin() {
		return alerts
	}
	visible := make([]domain.Alert, 0, len(alerts))
	for _, a := range alerts {
		if scope.AllowsTerritory(a.Territory) {
			visible = append(visible, a)
		}
	}
	return visible
}

func (h *AlertHandler) List(w http.ResponseWriter, r *http.Request) {
	scope, ok := ScopeFrom(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, Fail("missing caller scope"))
		return
	}

	q := r.URL.Query()
	filters := alert.Filters{
		CaseID: q.Get("case_id"),
		Type:   domain.AlertType(q.Get("type")),
		State:  domain.AlertState(q.Get("state")),
	}
	alerts, err := h.query.List(r.Context(), filters)
	if err != nil {
		writeError(w, err)
		return
	}
	alerts = territoryVisible(scope, alerts)

	resp := alertListResponse{Items: make([]alertItem, 0, len(alerts)), Total: len(alerts)}
	for _, a := range alerts {
		resp.Items = append(resp.Items, toAlertItem(a))
	}
	writeJSON(w, http.StatusOK, Ok(resp))
}

func (h *AlertHandler) Summary(w http.ResponseWriter, r *http.Request) {
	if _, ok := ScopeFrom(r.Context()); !ok {
		writeJSON(w, http.StatusUnauthorized, Fail("missing caller scope"))
		return
	}

	q := r.URL.Query()
	var from, to *time.Time
	if v := q.Get("from"); v != "" {
		t, err := time.Parse(dateLayout, v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, Fail("from must be YYYY-MM-DD"))
			return
		}
		from = &t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.Parse(dateLayout, v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, Fail("to must be YYYY-MM-DD"))
			return
		}
		// Inclusive upper bound: the whole day counts.
		end := t.Add(24*time.Hour - time.Second)
		to = &end
	}

	summary, err := h.query.Summarize(r.Context(), from, to)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make(map[string]domain.AlertSummary, len(summary))
	for alertType, s := range summary {
		out[string(alertType)] = s
	}
	writeJSON(w, http.StatusOK, Ok(out))
}

func (h *AlertHandler) OpenCounts(w http.ResponseWriter, r *http.Request) {
	if _, ok := ScopeFrom(r.Context()); !ok {
		writeJSON(w, http.StatusUnauthorized, Fail("missing caller scope"))
		return
	}

	raw := r.URL.Query().Get("ids")
	if strings.TrimSpace(raw) == "" {
		writeJSON(w, http.StatusBadRequest, Fail("ids query parameter is required"))
		return
	}
	ids := make([]string, 0)
	for _, id := range strings.Split(raw, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}

	counts, err := h.query.CountOpenByCaseIDs(r.Context(), ids)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(counts))
}
