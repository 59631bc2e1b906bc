package analytics

import "github.com/orgpulse/orgpulse/pkg/orgtree"

// Diagnostics runs AuditStaffing then AuditPerformance on every unit of the
// tree in pre-order (unit before children, children in stored order) and
// returns the findings in that order. The result is never nil.
func Diagnostics(root *orgtree.Unit) []Issue {
	issues := make([]Issue, 0)
	if root == nil {
		return issues
	}
	return diagnose(root, issues)
}

func diagnose(u *orgtree.Unit, issues []Issue) []Issue {
	issues = append(issues, AuditStaffing(u)...)
	issues = append(issues, AuditPerformance(u)...)
	for _, c := range u.Children {
		if c == nil {
			continue
		}
		issues = diagnose(c, issues)
	}
	return issues
}
