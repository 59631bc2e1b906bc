package orgtree

// Vacant is the occupant value of a role record that nobody fills.
const Vacant = "Vacant"

// QuarterKeys is the ordered set of reporting periods a metric tracks.
var QuarterKeys = []string{"q1", "q2", "q3", "q4"}

// Quarters maps a quarter key (q1..q4) to a value. Absent keys read as 0.
type Quarters map[string]float64

// Get returns the value for quarter q, or 0 if it was never set.
func (q Quarters) Get(key string) float64 {
	if q == nil {
		return 0
	}
	return q[key]
}

// Unit is one node of the organization: a department, division or office.
// Name is unique across a tree and is the lookup key for single-unit queries.
type Unit struct {
	ID        int64    `json:"id,omitempty" yaml:"id,omitempty"`
	Name      string   `json:"name" yaml:"name"`
	Type      string   `json:"type,omitempty" yaml:"type,omitempty"`
	Purpose   string   `json:"purpose,omitempty" yaml:"purpose,omitempty"`
	Functions []string `json:"functions,omitempty" yaml:"functions,omitempty"`
	Roles     []Role   `json:"roles" yaml:"roles"`
	Metrics   []Metric `json:"metrics" yaml:"metrics"`
	Children  []*Unit  `json:"children" yaml:"children"`
}

// Role is an authorized position record within a unit.
//
// Count is the number of seats the record authorizes, but the record is filled
// or vacant as a whole: a non-vacant occupant fills exactly one slot no matter
// how large Count is.
type Role struct {
	ID       int64  `json:"id,omitempty" yaml:"id,omitempty"`
	Title    string `json:"title" yaml:"title"`
	Grade    string `json:"grade" yaml:"grade"`
	Count    int    `json:"count" yaml:"count"`
	Occupant string `json:"occupant" yaml:"occupant"`
}

// IsVacant reports whether nobody occupies the role record.
func (r Role) IsVacant() bool { return r.Occupant == Vacant }

// Metric is a quarterly performance measure with per-quarter targets and actuals.
type Metric struct {
	ID          int64    `json:"id,omitempty" yaml:"id,omitempty"`
	Name        string   `json:"name" yaml:"name"`
	MeasureType string   `json:"measure_type" yaml:"measure_type"`
	Frequency   string   `json:"frequency" yaml:"frequency"`
	Targets     Quarters `json:"targets" yaml:"targets"`
	Actuals     Quarters `json:"actuals" yaml:"actuals"`
}
