package analytics

import "github.com/orgpulse/orgpulse/pkg/orgtree"

// Headcount is the staffing rollup of a subtree.
type Headcount struct {
	Filled int `json:"filled"`
	Total  int `json:"total"`
}

// CountHeadcount sums every role record in the subtree rooted at root: Total
// adds each record's seat count, Filled adds one per non-vacant record.
// A nil root yields a zero Headcount.
func CountHeadcount(root *orgtree.Unit) Headcount {
	var hc Headcount
	addHeadcount(root, &hc)
	return hc
}

func addHeadcount(u *orgtree.Unit, hc *Headcount) {
	if u == nil {
		return
	}
	for _, r := range u.Roles {
		hc.Total += r.Count
		if !r.IsVacant() {
			hc.Filled++
		}
	}
	for _, c := range u.Children {
		addHeadcount(c, hc)
	}
}
