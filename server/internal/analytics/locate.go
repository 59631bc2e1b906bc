package analytics

import (
	"encoding/json"
	"errors"
	"strconv"

	"github.com/orgpulse/orgpulse/pkg/orgtree"
)

// Lookup failures for single-unit queries. They are distinct so callers can
// tell an empty registry from a typo in the unit name.
var (
	ErrNoOrganization = errors.New("no organization defined")
	ErrUnitNotFound   = errors.New("unit not found")
)

// NoScore is how a missing score is rendered.
const NoScore = "N/A"

// Score is an achievement score that may be absent.
// It marshals to a JSON number, or to "N/A" when Valid is false.
type Score struct {
	Value float64
	Valid bool
}

// MarshalJSON implements json.Marshaler.
func (s Score) MarshalJSON() ([]byte, error) {
	if !s.Valid {
		return json.Marshal(NoScore)
	}
	return json.Marshal(s.Value)
}

// UnmarshalJSON implements json.Unmarshaler; any non-numeric value is absent.
func (s *Score) UnmarshalJSON(data []byte) error {
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		*s = Score{}
		return nil
	}
	*s = Score{Value: v, Valid: true}
	return nil
}

// String renders the score as it appears in JSON, or "N/A".
func (s Score) String() string {
	if !s.Valid {
		return NoScore
	}
	b, _ := json.Marshal(s.Value)
	return string(b)
}

// UnitReport is the performance view of a single unit.
type UnitReport struct {
	Unit          string           `json:"unit"`
	OverallScore  Score            `json:"overall_score"`
	OverallStatus string           `json:"overall_status"`
	Metrics       []orgtree.Metric `json:"metrics"`
}

// FindUnit returns the first unit named name in pre-order (self before
// children, children in stored order).
func FindUnit(root *orgtree.Unit, name string) (*orgtree.Unit, bool) {
	if root == nil {
		return nil, false
	}
	if root.Name == name {
		return root, true
	}
	for _, c := range root.Children {
		if u, ok := FindUnit(c, name); ok {
			return u, true
		}
	}
	return nil, false
}

// UnitPerformance scores the unit named name and classifies it.
// The score is rounded to one decimal place. A nil root returns
// ErrNoOrganization; an unknown name returns ErrUnitNotFound.
func UnitPerformance(root *orgtree.Unit, name string) (UnitReport, error) {
	if root == nil {
		return UnitReport{}, ErrNoOrganization
	}
	u, ok := FindUnit(root, name)
	if !ok {
		return UnitReport{}, ErrUnitNotFound
	}

	score, ok := AchievementScore(u.Metrics)
	rep := UnitReport{
		Unit:          name,
		OverallStatus: StatusFromScore(score, ok),
		Metrics:       u.Metrics,
	}
	if rep.Metrics == nil {
		rep.Metrics = []orgtree.Metric{}
	}
	if ok {
		rep.OverallScore = Score{Value: round1(score), Valid: true}
	}
	return rep, nil
}

// round1 rounds v to one decimal place. Ties on the binary value go to the
// even digit, so 72.25 becomes 72.2.
func round1(v float64) float64 {
	r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', 1, 64), 64)
	if err != nil {
		return v
	}
	return r
}
