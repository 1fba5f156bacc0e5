package httpapi

import "net/http"

// Catalogs for the capture form's multi-select fields, plus the numeric
// validation bounds the frontend mirrors. Multi-value cells are stored
// semicolon-separated using exactly these entries.
type catalogResponse struct {
	AlarmSigns          []string       `json:"alarm_signs"`
	PsychosocialFactors []string       `json:"psychosocial_factors"`
	VaccinationEntries  []string       `json:"vaccination_entries"`
	AccessBarriers      []string       `json:"access_barriers"`
	Validation          map[string]int `json:"validation"`
}

// CatalogHandler serves the static form catalogs.
type CatalogHandler struct{}

func NewCatalogHandler() *CatalogHandler {
	return &CatalogHandler{}
}

func (h *CatalogHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Ok(catalogResponse{
		AlarmSigns: []string{
			"none",
			"vaginal bleeding",
			"severe headache",
			"blurred vision",
			"fever",
			"fluid loss",
			"reduced fetal movement",
			"abdominal pain",
			"face or hand swelling",
		},
		PsychosocialFactors: []string{
			"domestic violence",
			"substance use",
			"lack of family support",
			"depression or anxiety",
			"teenage pregnancy follow-up",
		},
		VaccinationEntries: []string{
			"tdap: administered",
			"tdap: not administered",
			"influenza: administered",
			"influenza: not administered",
			"covid-19: administered",
			"covid-19: not administered",
		},
		AccessBarriers: []string{
			"transport",
			"distance",
			"economic",
			"no insurance affiliation",
			"documentation",
			"childcare",
		},
		Validation: map[string]int{
			"age_min":               10,
			"age_max":               55,
			"gestational_weeks_min": 4,
			"gestational_weeks_max": 42,
		},
	}))
}
