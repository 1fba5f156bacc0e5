package domain

import (
	"strconv"
	"strings"
)

// Case table header, in canonical column order (mirrors the capture form).
var CaseHeaders = []string{
	"id",
	"capture_date",
	"professional_profile",
	"capture_place",
	"identification",
	"full_name",
	"age",
	"phone",
	"address",
	"municipality",
	"zone",
	"territory",
	"microterritory",
	"differential_focus",
	"gestational_weeks",
	"multiple_pregnancy",
	"last_menstrual_date",
	"prenatal_visits",
	"last_visit_date",
	"ebs_attention",
	"ips_attention",
	"ebs_attention_count",
	"vaccination_status",
	"counselling",
	"screenings",
	"alarm_signs",
	"psychosocial_factors",
	"access_barriers",
	"referral_type",
	"referral_date",
	"effective_attention_date",
	"referral_result",
	"observations",
	"registered_by",
	"updated_at",
}

// CaseKeyColumn is the column scanned for update-by-id lookups.
const CaseKeyColumn = "id"

// TerritoryColumn scopes authorization for non-admin callers.
const TerritoryColumn = "territory"

// CaseRecord is a typed snapshot of one case row. Numeric cells are coerced
// (malformed text reads as zero) and multi-valued cells are split, so the
// classifier and rule set never have to fail on dirty data. Columns keeps
// the full raw row so updates can round-trip fields this service does not
// interpret.
type CaseRecord struct {
	ID                  string
	Territory           string
	Age                 int
	GestationalWeeks    int
	PrenatalVisits      int
	MultiplePregnancy   bool
	AlarmSigns          []string
	PsychosocialFactors []string
	VaccinationStatus   []string
	AccessBarriers      []string

	Columns map[string]string
}

// CaseFromRow builds a CaseRecord from a header-keyed row.
func CaseFromRow(row map[string]string) CaseRecord {
	return CaseRecord{
		ID:                  strings.TrimSpace(row["id"]),
		Territory:           strings.TrimSpace(row["territory"]),
		Age:                 CoerceInt(row["age"]),
		GestationalWeeks:    CoerceInt(row["gestational_weeks"]),
		PrenatalVisits:      CoerceInt(row["prenatal_visits"]),
		MultiplePregnancy:   isYes(row["multiple_pregnancy"]),
		AlarmSigns:          SplitMulti(row["alarm_signs"]),
		PsychosocialFactors: SplitMulti(row["psychosocial_factors"]),
		VaccinationStatus:   SplitMulti(row["vaccination_status"]),
		AccessBarriers:      SplitMulti(row["access_barriers"]),
		Columns:             row,
	}
}

// CoerceInt parses a numeric cell. Malformed input is treated as zero,
// never surfaced as an error.
func CoerceInt(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}

// SplitMulti splits a semicolon-separated multi-value cell, dropping empty
// entries. A missing cell yields an empty set.
func SplitMulti(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func isYes(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "y", "true", "sí", "si":
		return true
	}
	return false
}
