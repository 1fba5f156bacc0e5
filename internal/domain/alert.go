package domain

// AlertType identifies the rule family that raised an alert.
type AlertType string

const (
	AlertMissingPrenatalCare AlertType = "MISSING_PRENATAL_CARE"
	AlertAlarmSigns          AlertType = "ALARM_SIGNS"
	AlertNotVaccinated       AlertType = "NOT_VACCINATED"
	AlertAccessBarriers      AlertType = "ACCESS_BARRIERS"
)

// Priority of an alert (also used as risk tier color for RED/YELLOW).
type Priority string

const (
	PriorityRed    Priority = "RED"
	PriorityYellow Priority = "YELLOW"
)

// RiskTier is derived from a case snapshot, never persisted.
type RiskTier string

const (
	RiskRed    RiskTier = "RED"
	RiskYellow RiskTier = "YELLOW"
	RiskGreen  RiskTier = "GREEN"
)

// AlertState tracks the lifecycle of one alert row.
// CLOSED and EXPIRED are terminal: rows never leave them.
type AlertState string

const (
	StateOpen     AlertState = "OPEN"
	StateReferred AlertState = "REFERRED"
	StateAttended AlertState = "ATTENDED"
	StateClosed   AlertState = "CLOSED"
	StateExpired  AlertState = "EXPIRED"
)

// IsTerminal reports whether no further transitions are permitted.
func (s AlertState) IsTerminal() bool {
	return s == StateClosed || s == StateExpired
}

// IsOpen reports whether the alert still demands attention
// (OPEN, REFERRED or ATTENDED).
func (s AlertState) IsOpen() bool {
	return s == StateOpen || s == StateReferred || s == StateAttended
}

// ResolvedFlag is the stored value of the resolved column when the
// reconciler closed an alert because its condition no longer holds.
const ResolvedFlag = "TRUE"

// Alert table header, in canonical column order. The remote store addresses
// cells positionally, so this order is a compatibility contract.
var AlertHeaders = []string{
	"alert_id",
	"case_id",
	"territory",
	"alert_type",
	"priority",
	"generated_at",
	"triggering_rule",
	"state",
	"state_changed_at",
	"responsible",
	"referral_type",
	"referral_date",
	"effective_attention_date",
	"resolution_evidence",
	"contact_attempts",
	"observations",
	"resolved",
}

// AlertKeyColumn is the column scanned for update-by-id lookups.
const AlertKeyColumn = "alert_id"

// Alert is one persisted alert row. Timestamps are carried as the stored
// text (ISO 8601); parsing happens at query time and tolerates bad data.
type Alert struct {
	AlertID                string
	CaseID                 string
	Territory              string
	Type                   AlertType
	Priority               Priority
	GeneratedAt            string
	TriggeringRule         string
	State                  AlertState
	StateChangedAt         string
	Responsible            string
	ReferralType           string
	ReferralDate           string
	EffectiveAttentionDate string
	ResolutionEvidence     string
	ContactAttempts        string
	Observations           string
	Resolved               string
}

// AlertFromRow maps a header-keyed row onto an Alert.
// Missing cells come back as empty strings from the store adapter.
func AlertFromRow(row map[string]string) Alert {
	return Alert{
		AlertID:                row["alert_id"],
		CaseID:                 row["case_id"],
		Territory:              row["territory"],
		Type:                   AlertType(row["alert_type"]),
		Priority:               Priority(row["priority"]),
		GeneratedAt:            row["generated_at"],
		TriggeringRule:         row["triggering_rule"],
		State:                  AlertState(row["state"]),
		StateChangedAt:         row["state_changed_at"],
		Responsible:            row["responsible"],
		ReferralType:           row["referral_type"],
		ReferralDate:           row["referral_date"],
		EffectiveAttentionDate: row["effective_attention_date"],
		ResolutionEvidence:     row["resolution_evidence"],
		ContactAttempts:        row["contact_attempts"],
		Observations:           row["observations"],
		Resolved:               row["resolved"],
	}
}

// Row maps the Alert back to a header-keyed row in canonical order.
func (a Alert) Row() map[string]string {
	return map[string]string{
		"alert_id":                 a.AlertID,
		"case_id":                  a.CaseID,
		"territory":                a.Territory,
		"alert_type":               string(a.Type),
		"priority":                 string(a.Priority),
		"generated_at":             a.GeneratedAt,
		"triggering_rule":          a.TriggeringRule,
		"state":                    string(a.State),
		"state_changed_at":         a.StateChangedAt,
		"responsible":              a.Responsible,
		"referral_type":            a.ReferralType,
		"referral_date":            a.ReferralDate,
		"effective_attention_date": a.EffectiveAttentionDate,
		"resolution_evidence":      a.ResolutionEvidence,
		"contact_attempts":         a.ContactAttempts,
		"observations":             a.Observations,
		"resolved":                 a.Resolved,
	}
}

// RequiredAlert describes one alert type that must currently be open for a
// case, as produced by the rule set.
type RequiredAlert struct {
	Type           AlertType
	Priority       Priority
	TriggeringRule string
}

// AlertSummary aggregates alert counts per type over a period.
type AlertSummary struct {
	Detected int `json:"detected"`
	Resolved int `json:"resolved"`
	Pending  int `json:"pending"`
}
