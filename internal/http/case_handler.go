package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"materna-data/internal/domain"
	"materna-data/internal/service"
)

const dateLayout = "2006-01-02"

// CaseHandler serves the case CRUD endpoints.
type CaseHandler struct {
	cases  *service.CaseService
	logger *zap.Logger
}

func NewCaseHandler(cases *service.CaseService, logger *zap.Logger) *CaseHandler {
	return &CaseHandler{cases: cases, logger: logger}
}

type caseItem struct {
	Case       map[string]string `json:"case"`
	Risk       domain.RiskTier   `json:"risk"`
	OpenAlerts int               `json:"open_alerts"`
}

type casePageResponse struct {
	Items    []caseItem `json:"items"`
	Total    int        `json:"total"`
	Page     int        `json:"page"`
	PageSize int        `json:"page_size"`
}

func toCaseItem(v service.CaseView) caseItem {
	return caseItem{Case: v.Case.Columns, Risk: v.Risk, OpenAlerts: v.OpenAlerts}
}

func (h *CaseHandler) List(w http.ResponseWriter, r *http.Request) {
	scope, ok := ScopeFrom(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, Fail("missing caller scope"))
		return
	}

	q := r.URL.Query()
	params := service.ListParams{
		Query:    q.Get("q"),
		Page:     domain.CoerceInt(q.Get("page")),
		PageSize: domain.CoerceInt(q.Get("page_size")),
	}
	if v := q.Get("from"); v != "" {
		t, err := time.Parse(dateLayout, v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, Fail("from must be YYYY-MM-DD"))
			return
		}
		params.From = &t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.Parse(dateLayout, v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, Fail("to must be YYYY-MM-DD"))
			return
		}
		params.To = &t
	}

	page, err := h.cases.List(r.Context(), scope, params)
	if err != nil {
		writeError(w, err)
		return
	}
	resp := casePageResponse{
		Items:    make([]caseItem, 0, len(page.Items)),
		Total:    page.Total,
		Page:     page.Page,
		PageSize: page.PageSize,
	}
	for _, v := range page.Items {
		resp.Items = append(resp.Items, toCaseItem(v))
	}
	writeJSON(w, http.StatusOK, Ok(resp))
}

func (h *CaseHandler) Create(w http.ResponseWriter, r *http.Request) {
	scope, ok := ScopeFrom(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, Fail("missing caller scope"))
		return
	}
	var payload map[string]string
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("request body must be a JSON object of strings"))
		return
	}
	rec, err := h.cases.Create(r.Context(), scope, payload)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, Ok(rec.Columns))
}

func (h *CaseHandler) Get(w http.ResponseWriter, r *http.Request, id string) {
	scope, ok := ScopeFrom(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, Fail("missing caller scope"))
		return
	}
	view, err := h.cases.GetByID(r.Context(), scope, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(toCaseItem(view)))
}

func (h *CaseHandler) Update(w http.ResponseWriter, r *http.Request, id string) {
	scope, ok := ScopeFrom(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, Fail("missing caller scope"))
		return
	}
	var payload map[string]string
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("request body must be a JSON object of strings"))
		return
	}
	rec, err := h.cases.Update(r.Context(), scope, id, payload)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(rec.Columns))
}

// Risk classifies a case on read without touching alert state.
func (h *CaseHandler) Risk(w http.ResponseWriter, r *http.Request, id string) {
	scope, ok := ScopeFrom(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, Fail("missing caller scope"))
		return
	}
	view, err := h.cases.GetByID(r.Context(), scope, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]domain.RiskTier{"risk": view.Risk}))
}
