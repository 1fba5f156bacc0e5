package alert

import (
	"fmt"
	"strings"

	"materna-data/internal/domain"
)

// minAccessBarriers is how many distinct barriers it takes before access
// itself becomes an alert rather than a note on the case.
const minAccessBarriers = 2

// RequiredAlerts computes the set of alert types that must currently be open
// for a case. Pure: no store access, never fails. At most one entry per type.
func RequiredAlerts(c domain.CaseRecord) []domain.RequiredAlert {
	required := make([]domain.RequiredAlert, 0, 4)

	if missingPrenatalCare(c) {
		required = append(required, domain.RequiredAlert{
			Type:     domain.AlertMissingPrenatalCare,
			Priority: domain.PriorityRed,
			TriggeringRule: fmt.Sprintf("no prenatal visits at %d gestational weeks",
				c.GestationalWeeks),
		})
	}
	if hasAlarmSign(c.AlarmSigns) {
		required = append(required, domain.RequiredAlert{
			Type:           domain.AlertAlarmSigns,
			Priority:       domain.PriorityRed,
			TriggeringRule: "alarm sign reported: " + strings.Join(c.AlarmSigns, "; "),
		})
	}
	if hasMissingVaccination(c.VaccinationStatus) {
		required = append(required, domain.RequiredAlert{
			Type:           domain.AlertNotVaccinated,
			Priority:       domain.PriorityYellow,
			TriggeringRule: "vaccination scheme incomplete",
		})
	}
	if len(c.AccessBarriers) >= minAccessBarriers {
		required = append(required, domain.RequiredAlert{
			Type:     domain.AlertAccessBarriers,
			Priority: domain.PriorityYellow,
			TriggeringRule: fmt.Sprintf("%d access barriers reported: %s",
				len(c.AccessBarriers), strings.Join(c.AccessBarriers, "; ")),
		})
	}
	return required
}

// conditionResolved re-evaluates one alert type's closing predicate against
// the current case snapshot. True means the condition that raised the alert
// no longer holds.
func conditionResolved(alertType domain.AlertType, c domain.CaseRecord) bool {
	switch alertType {
	case domain.AlertMissingPrenatalCare:
		return c.PrenatalVisits >= 1
	case domain.AlertAlarmSigns:
		return !hasAlarmSign(c.AlarmSigns)
	case domain.AlertNotVaccinated:
		return !hasMissingVaccination(c.VaccinationStatus)
	case domain.AlertAccessBarriers:
		return len(c.AccessBarriers) < minAccessBarriers
	default:
		// Unknown types (rows written by an older schema) are left to the
		// required-set check alone.
		return false
	}
}
