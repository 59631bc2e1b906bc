package analytics

import "github.com/orgpulse/orgpulse/pkg/orgtree"

// Overall states reported by Summarize.
const (
	OverallHealthy  = "Healthy"
	OverallWarning  = "Warning"
	OverallCritical = "Critical"
	OverallEmpty    = "Empty"
)

// UnitHealth is the per-unit row of the health table. Pointer fields are nil
// when the measure does not apply (no authorized seats, no scorable metric).
type UnitHealth struct {
	Unit       string   `json:"unit"`
	Depth      int      `json:"depth"`
	Filled     int      `json:"filled"`
	Total      int      `json:"total"`
	VacancyPct *float64 `json:"vacancy_pct"`
	Score      *float64 `json:"score"`
	Status     string   `json:"status"`
}

// Units returns one UnitHealth per unit in pre-order. Filled and Total cover
// the unit's own roles only; use CountHeadcount for subtree rollups.
func Units(root *orgtree.Unit) []UnitHealth {
	rows := make([]UnitHealth, 0)
	if root == nil {
		return rows
	}
	return appendUnits(root, 0, rows)
}

func appendUnits(u *orgtree.Unit, depth int, rows []UnitHealth) []UnitHealth {
	own := CountHeadcount(&orgtree.Unit{Roles: u.Roles})
	row := UnitHealth{
		Unit:   u.Name,
		Depth:  depth,
		Filled: own.Filled,
		Total:  own.Total,
	}
	if st := unitStaffing(u); st.total > 0 {
		pct := st.pct()
		row.VacancyPct = &pct
	}
	score, ok := AchievementScore(u.Metrics)
	if ok {
		row.Score = &score
	}
	row.Status = StatusFromScore(score, ok)
	rows = append(rows, row)

	for _, c := range u.Children {
		if c == nil {
			continue
		}
		rows = appendUnits(c, depth+1, rows)
	}
	return rows
}

// Summary is the whole-organization overview.
type Summary struct {
	Headcount     Headcount      `json:"headcount"`
	UnitCount     int            `json:"unit_count"`
	IssueCount    int            `json:"issue_count"`
	BySeverity    map[string]int `json:"by_severity"`
	ByType        map[string]int `json:"by_type"`
	OverallStatus string         `json:"overall_status"`
}

// Summarize rolls up headcount and diagnostics for the whole tree.
func Summarize(root *orgtree.Unit) Summary {
	return SummarizeIssues(root, Diagnostics(root))
}

// SummarizeIssues is Summarize for callers that already ran Diagnostics on root.
func SummarizeIssues(root *orgtree.Unit, issues []Issue) Summary {
	s := Summary{
		Headcount:  CountHeadcount(root),
		UnitCount:  countUnits(root),
		IssueCount: len(issues),
		BySeverity: map[string]int{SeverityCritical: 0, SeverityWarning: 0},
		ByType:     map[string]int{TypeStaffing: 0, TypePerformance: 0},
	}
	for _, is := range issues {
		s.BySeverity[is.Severity]++
		s.ByType[is.Type]++
	}
	switch {
	case root == nil:
		s.OverallStatus = OverallEmpty
	case s.BySeverity[SeverityCritical] > 0:
		s.OverallStatus = OverallCritical
	case s.BySeverity[SeverityWarning] > 0:
		s.OverallStatus = OverallWarning
	default:
		s.OverallStatus = OverallHealthy
	}
	return s
}

func countUnits(u *orgtree.Unit) int {
	if u == nil {
		return 0
	}
	n := 1
	for _, c := range u.Children {
		n += countUnits(c)
	}
	return n
}
