package analytics

import (
	"fmt"

	"github.com/orgpulse/orgpulse/pkg/orgtree"
)

// Issue severities.
const (
	SeverityCritical = "Critical"
	SeverityWarning  = "Warning"
)

// Issue types.
const (
	TypeStaffing    = "Staffing"
	TypePerformance = "Performance"
)

// VacancyWarnPct is the vacancy rate a unit must exceed to raise a Warning.
const VacancyWarnPct = 30

// Issue is one staffing or performance finding about a single unit.
type Issue struct {
	Unit     string `json:"unit"`
	Severity string `json:"severity"`
	Type     string `json:"type"`
	Message  string `json:"message"`
}

// staffing is the vacancy picture of a single unit's own role records.
type staffing struct {
	vacant  int // vacant role records, not seats
	records int
	total   int // authorized seats
}

func unitStaffing(u *orgtree.Unit) staffing {
	st := staffing{records: len(u.Roles)}
	for _, r := range u.Roles {
		st.total += r.Count
		if r.IsVacant() {
			st.vacant++
		}
	}
	return st
}

// complete reports whether the unit has seats and no occupied record.
func (st staffing) complete() bool {
	return st.total > 0 && st.vacant == st.records
}

// critical reports whether the unit counts as completely vacant: every
// record is vacant, or vacant records equal authorized seats.
func (st staffing) critical() bool {
	return st.complete() || (st.total > 0 && st.vacant*100 == 100*st.total)
}

// pct returns the vacancy rate as a percentage: 100 for a critical unit,
// otherwise vacant records over seats, which exceeds 100 when zero-count
// records are vacant. total must be positive.
func (st staffing) pct() float64 {
	if st.critical() {
		return 100
	}
	return float64(st.vacant) / float64(st.total) * 100
}

// AuditStaffing classifies the staffing of u alone (not its descendants).
// A unit without authorized seats raises nothing.
//
// A unit whose role records are all vacant is Critical whatever their seat
// counts, as is a unit whose vacant records equal its seats. Otherwise the
// rate is vacant records over seats, compared in integer arithmetic so a
// unit at exactly 30% is never flagged; the rate in the message is rounded
// and is not capped at 100.
func AuditStaffing(u *orgtree.Unit) []Issue {
	st := unitStaffing(u)
	if st.total <= 0 {
		return nil
	}
	switch {
	case st.critical():
		return []Issue{{
			Unit:     u.Name,
			Severity: SeverityCritical,
			Type:     TypeStaffing,
			Message:  "Unit is completely vacant (100%).",
		}}
	case st.vacant*100 > VacancyWarnPct*st.total:
		return []Issue{{
			Unit:     u.Name,
			Severity: SeverityWarning,
			Type:     TypeStaffing,
			Message:  fmt.Sprintf("High vacancy rate (%.0f%%).", st.pct()),
		}}
	default:
		return nil
	}
}

// AuditPerformance raises a Critical issue when u's own achievement score is
// below ThresholdCritical. No data and scores at or above the threshold raise
// nothing. There is no Warning tier for performance.
func AuditPerformance(u *orgtree.Unit) []Issue {
	score, ok := AchievementScore(u.Metrics)
	if !ok || score >= ThresholdCritical {
		return nil
	}
	return []Issue{{
		Unit:     u.Name,
		Severity: SeverityCritical,
		Type:     TypePerformance,
		Message:  fmt.Sprintf("Critical underperformance (%.0f%% achievement).", score),
	}}
}
