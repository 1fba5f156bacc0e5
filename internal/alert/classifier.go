// Package alert holds the risk classifier, the alert rule set and the
// reconciler that keeps the persisted alert table in line with what the
// rules currently demand for each case.
package alert

import (
	"strings"

	"materna-data/internal/domain"
)

// noSignValue is the sentinel entry meaning "no alarm sign reported".
const noSignValue = "none"

// Classify maps a case snapshot to its risk tier. RED predicates are
// evaluated first and short-circuit; a case matching both RED and YELLOW
// conditions is RED. Never fails: malformed numeric cells were already
// coerced to zero and missing multi-value cells are empty sets.
func Classify(c domain.CaseRecord) domain.RiskTier {
	switch {
	case c.Age < 18,
		c.MultiplePregnancy,
		hasAlarmSign(c.AlarmSigns),
		missingPrenatalCare(c),
		len(c.PsychosocialFactors) > 0:
		return domain.RiskRed
	case (c.PrenatalVisits < 4 && c.GestationalWeeks >= 20),
		len(c.AccessBarriers) > 0,
		hasMissingVaccination(c.VaccinationStatus):
		return domain.RiskYellow
	default:
		return domain.RiskGreen
	}
}

// missingPrenatalCare reports a pregnancy past the first trimester with no
// recorded prenatal visit.
func missingPrenatalCare(c domain.CaseRecord) bool {
	return c.GestationalWeeks >= 12 && c.PrenatalVisits == 0
}

// hasAlarmSign reports whether any entry other than the "none" sentinel is
// present.
func hasAlarmSign(signs []string) bool {
	for _, s := range signs {
		if !strings.EqualFold(strings.TrimSpace(s), noSignValue) {
			return true
		}
	}
	return false
}

// hasMissingVaccination reports whether any vaccination entry reads as not
// administered. Entries are free text from the capture form, so both the
// bare refusal ("no") and the "<vaccine>: not administered" shape count.
func hasMissingVaccination(entries []string) bool {
	for _, e := range entries {
		v := strings.ToLower(strings.TrimSpace(e))
		if v == "no" || strings.Contains(v, "not administered") || strings.HasSuffix(v, ": no") {
			return true
		}
	}
	return false
}
