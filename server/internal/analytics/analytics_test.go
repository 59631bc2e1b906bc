package analytics

import (
	"encoding/json"
	"errors"
	"math"
	"math/rand"
	"reflect"
	"testing"

	"github.com/orgpulse/orgpulse/pkg/orgtree"
)

// almostEqual returns true if a and b are within epsilon of each other.
func almostEqual(a, b, epsilon float64) bool {
	return math.Abs(a-b) < epsilon
}

func vacantRole(count int) orgtree.Role {
	return orgtree.Role{Title: "Officer", Count: count, Occupant: orgtree.Vacant}
}

func filledRole(count int, who string) orgtree.Role {
	return orgtree.Role{Title: "Officer", Count: count, Occupant: who}
}

func metric(targets, actuals orgtree.Quarters) orgtree.Metric {
	return orgtree.Metric{Name: "m", Targets: targets, Actuals: actuals}
}

// ministry is the worked example: Ministry has one vacant two-seat role and
// one child, Division A, staffed by Alice and scoring 50%.
func ministry() *orgtree.Unit {
	return &orgtree.Unit{
		Name:  "Ministry",
		Roles: []orgtree.Role{vacantRole(2)},
		Children: []*orgtree.Unit{{
			Name:    "Division A",
			Roles:   []orgtree.Role{filledRole(1, "Alice")},
			Metrics: []orgtree.Metric{metric(orgtree.Quarters{"q1": 100}, orgtree.Quarters{"q1": 50})},
		}},
	}
}

// --- worked example ---------------------------------------------------------

func TestMinistry_Headcount(t *testing.T) {
	got := CountHeadcount(ministry())
	want := Headcount{Filled: 1, Total: 3}
	if got != want {
		t.Errorf("CountHeadcount = %+v, want %+v", got, want)
	}
}

func TestMinistry_Diagnostics(t *testing.T) {
	got := Diagnostics(ministry())
	want := []Issue{
		{Unit: "Ministry", Severity: SeverityCritical, Type: TypeStaffing, Message: "Unit is completely vacant (100%)."},
		{Unit: "Division A", Severity: SeverityCritical, Type: TypePerformance, Message: "Critical underperformance (50% achievement)."},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Diagnostics =\n%+v\nwant\n%+v", got, want)
	}
}

func TestMinistry_UnitPerformance(t *testing.T) {
	rep, err := UnitPerformance(ministry(), "Division A")
	if err != nil {
		t.Fatalf("UnitPerformance: %v", err)
	}
	if !rep.OverallScore.Valid || rep.OverallScore.Value != 50.0 {
		t.Errorf("OverallScore = %+v, want 50.0", rep.OverallScore)
	}
	if rep.OverallStatus != StatusCritical {
		t.Errorf("OverallStatus = %q, want %q", rep.OverallStatus, StatusCritical)
	}
	if len(rep.Metrics) != 1 {
		t.Errorf("Metrics len = %d, want 1 (raw records passed through)", len(rep.Metrics))
	}

	_, err = UnitPerformance(ministry(), "Nonexistent")
	if !errors.Is(err, ErrUnitNotFound) {
		t.Errorf("unknown unit error = %v, want ErrUnitNotFound", err)
	}
}

// --- headcount --------------------------------------------------------------

func TestCountHeadcount_Empty(t *testing.T) {
	if got := CountHeadcount(nil); got != (Headcount{}) {
		t.Errorf("nil root = %+v, want zero", got)
	}
	if got := CountHeadcount(&orgtree.Unit{Name: "Empty", Children: []*orgtree.Unit{{Name: "Child"}}}); got != (Headcount{}) {
		t.Errorf("roleless tree = %+v, want zero", got)
	}
}

func TestCountHeadcount_OneSlotPerRecord(t *testing.T) {
	u := &orgtree.Unit{Name: "Unit", Roles: []orgtree.Role{filledRole(5, "Bob")}}
	got := CountHeadcount(u)
	if got.Filled != 1 || got.Total != 5 {
		t.Errorf("CountHeadcount = %+v, want {Filled:1 Total:5}", got)
	}
}

// randomTree builds a tree with n units, each with up to 4 roles of count >= 1.
func randomTree(r *rand.Rand, n int) (*orgtree.Unit, int) {
	var total int
	units := make([]*orgtree.Unit, n)
	for i := range units {
		u := &orgtree.Unit{Name: string(rune('A' + i%26))}
		for j := r.Intn(5); j > 0; j-- {
			c := 1 + r.Intn(6)
			total += c
			if r.Intn(2) == 0 {
				u.Roles = append(u.Roles, vacantRole(c))
			} else {
				u.Roles = append(u.Roles, filledRole(c, "X"))
			}
		}
		units[i] = u
		if i > 0 {
			parent := units[r.Intn(i)]
			parent.Children = append(parent.Children, u)
		}
	}
	return units[0], total
}

func TestCountHeadcount_Properties(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for i := 0; i < 200; i++ {
		root, wantTotal := randomTree(r, 1+r.Intn(30))
		hc := CountHeadcount(root)
		if hc.Filled > hc.Total {
			t.Fatalf("iteration %d: Filled %d > Total %d", i, hc.Filled, hc.Total)
		}
		if hc.Total != wantTotal {
			t.Fatalf("iteration %d: Total %d, want sum of counts %d", i, hc.Total, wantTotal)
		}
	}
}

// --- achievement score ------------------------------------------------------

func TestAchievementScore(t *testing.T) {
	tests := []struct {
		name      string
		metrics   []orgtree.Metric
		wantScore float64
		wantOK    bool
	}{
		{
			name:   "no metrics",
			wantOK: false,
		},
		{
			name:    "all targets zero is no data, not 0",
			metrics: []orgtree.Metric{metric(orgtree.Quarters{}, orgtree.Quarters{"q1": 80})},
			wantOK:  false,
		},
		{
			name:      "triple target is capped at 120",
			metrics:   []orgtree.Metric{metric(orgtree.Quarters{"q1": 10}, orgtree.Quarters{"q1": 30})},
			wantScore: 120,
			wantOK:    true,
		},
		{
			name: "zero-target quarters are skipped",
			// q1 = 50, q2 skipped, q3 = 100 → 75
			metrics: []orgtree.Metric{metric(
				orgtree.Quarters{"q1": 100, "q2": 0, "q3": 40},
				orgtree.Quarters{"q1": 50, "q2": 999, "q3": 40},
			)},
			wantScore: 75,
			wantOK:    true,
		},
		{
			name: "metrics without data leave the denominator",
			// metric 1 = 80, metric 2 = no data, metric 3 = 40 → 60
			metrics: []orgtree.Metric{
				metric(orgtree.Quarters{"q4": 10}, orgtree.Quarters{"q4": 8}),
				metric(orgtree.Quarters{}, orgtree.Quarters{}),
				metric(orgtree.Quarters{"q2": 10}, orgtree.Quarters{"q2": 4}),
			},
			wantScore: 60,
			wantOK:    true,
		},
		{
			name: "metric mean then unit mean",
			// metric 1 = (120 + 0)/2 = 60, metric 2 = 90 → 75
			metrics: []orgtree.Metric{
				metric(orgtree.Quarters{"q1": 1, "q2": 1}, orgtree.Quarters{"q1": 5}),
				metric(orgtree.Quarters{"q1": 10}, orgtree.Quarters{"q1": 9}),
			},
			wantScore: 75,
			wantOK:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, ok := AchievementScore(tt.metrics)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && !almostEqual(score, tt.wantScore, 1e-9) {
				t.Errorf("score = %.4f, want %.4f", score, tt.wantScore)
			}
		})
	}
}

func TestStatusFromScore(t *testing.T) {
	tests := []struct {
		score float64
		ok    bool
		want  string
	}{
		{0, false, StatusNoData},
		{0, true, StatusCritical},
		{59.99, true, StatusCritical},
		{60, true, StatusAtRisk},
		{89.99, true, StatusAtRisk},
		{90, true, StatusHealthy},
		{120, true, StatusHealthy},
	}
	for _, tt := range tests {
		if got := StatusFromScore(tt.score, tt.ok); got != tt.want {
			t.Errorf("StatusFromScore(%v, %v) = %q, want %q", tt.score, tt.ok, got, tt.want)
		}
	}
}

// --- staffing ---------------------------------------------------------------

// staffedUnit returns a unit with vacant single-seat records and filled ones.
func staffedUnit(vacant, filled int) *orgtree.Unit {
	u := &orgtree.Unit{Name: "Unit"}
	for i := 0; i < vacant; i++ {
		u.Roles = append(u.Roles, vacantRole(1))
	}
	for i := 0; i < filled; i++ {
		u.Roles = append(u.Roles, filledRole(1, "X"))
	}
	return u
}

func TestAuditStaffing_Boundaries(t *testing.T) {
	tests := []struct {
		name         string
		unit         *orgtree.Unit
		wantSeverity string // "" means no issue
		wantMessage  string
	}{
		{name: "no roles", unit: &orgtree.Unit{Name: "Unit"}},
		{name: "fully staffed", unit: staffedUnit(0, 4)},
		{
			name:         "100% vacant is Critical, not Warning",
			unit:         staffedUnit(3, 0),
			wantSeverity: SeverityCritical,
			wantMessage:  "Unit is completely vacant (100%).",
		},
		{name: "exactly 30% is not flagged", unit: staffedUnit(3, 7)},
		{
			name:         "31% is a Warning",
			unit:         staffedUnit(31, 69),
			wantSeverity: SeverityWarning,
			wantMessage:  "High vacancy rate (31%).",
		},
		{
			name:         "rate is rounded for display",
			unit:         staffedUnit(2, 1),
			wantSeverity: SeverityWarning,
			wantMessage:  "High vacancy rate (67%).",
		},
		{
			name: "vacant records are counted, not seats",
			// one vacant record of 5 seats + 4 filled seats → 1/9 ≈ 11%
			unit: &orgtree.Unit{Name: "Unit", Roles: []orgtree.Role{vacantRole(5), filledRole(4, "X")}},
		},
		{
			name:         "single vacant seat is fully vacant",
			unit:         &orgtree.Unit{Name: "Unit", Roles: []orgtree.Role{vacantRole(1)}},
			wantSeverity: SeverityCritical,
			wantMessage:  "Unit is completely vacant (100%).",
		},
		{name: "zero-seat roles only", unit: &orgtree.Unit{Name: "Unit", Roles: []orgtree.Role{vacantRole(0)}}},
		{
			name: "vacant records equal to seats is Critical",
			// two zero-seat vacant records + one filled record of 2 seats → 2/2
			unit: &orgtree.Unit{Name: "Unit", Roles: []orgtree.Role{
				vacantRole(0), vacantRole(0), filledRole(2, "Bob"),
			}},
			wantSeverity: SeverityCritical,
			wantMessage:  "Unit is completely vacant (100%).",
		},
		{
			name: "rate above 100 is reported uncapped",
			// three zero-seat vacant records + one filled seat → 3/1
			unit: &orgtree.Unit{Name: "Unit", Roles: []orgtree.Role{
				vacantRole(0), vacantRole(0), vacantRole(0), filledRole(1, "Bob"),
			}},
			wantSeverity: SeverityWarning,
			wantMessage:  "High vacancy rate (300%).",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AuditStaffing(tt.unit)
			if tt.wantSeverity == "" {
				if len(got) != 0 {
					t.Fatalf("AuditStaffing = %+v, want no issue", got)
				}
				return
			}
			if len(got) != 1 {
				t.Fatalf("AuditStaffing returned %d issues, want 1", len(got))
			}
			is := got[0]
			if is.Severity != tt.wantSeverity || is.Type != TypeStaffing || is.Message != tt.wantMessage || is.Unit != "Unit" {
				t.Errorf("issue = %+v, want severity %q message %q", is, tt.wantSeverity, tt.wantMessage)
			}
		})
	}
}

// --- performance ------------------------------------------------------------

func TestAuditPerformance(t *testing.T) {
	tests := []struct {
		name    string
		metrics []orgtree.Metric
		want    string // "" means no issue
	}{
		{name: "no data", metrics: nil},
		{name: "all targets zero", metrics: []orgtree.Metric{metric(orgtree.Quarters{}, orgtree.Quarters{"q1": 1})}},
		{name: "exactly 60 is fine", metrics: []orgtree.Metric{metric(orgtree.Quarters{"q1": 10}, orgtree.Quarters{"q1": 6})}},
		{name: "at risk raises nothing", metrics: []orgtree.Metric{metric(orgtree.Quarters{"q1": 10}, orgtree.Quarters{"q1": 7})}},
		{
			name:    "below 60 is Critical",
			metrics: []orgtree.Metric{metric(orgtree.Quarters{"q1": 3}, orgtree.Quarters{"q1": 1})},
			want:    "Critical underperformance (33% achievement).",
		},
		{
			name:    "zero achievement",
			metrics: []orgtree.Metric{metric(orgtree.Quarters{"q1": 3}, orgtree.Quarters{})},
			want:    "Critical underperformance (0% achievement).",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AuditPerformance(&orgtree.Unit{Name: "Unit", Metrics: tt.metrics})
			if tt.want == "" {
				if len(got) != 0 {
					t.Fatalf("AuditPerformance = %+v, want none", got)
				}
				return
			}
			if len(got) != 1 {
				t.Fatalf("AuditPerformance returned %d issues, want 1", len(got))
			}
			if got[0].Severity != SeverityCritical || got[0].Type != TypePerformance || got[0].Message != tt.want {
				t.Errorf("issue = %+v, want Critical Performance %q", got[0], tt.want)
			}
		})
	}
}

// --- diagnostics ------------------------------------------------------------

func TestDiagnostics_EmptyIsNotNil(t *testing.T) {
	got := Diagnostics(nil)
	if got == nil || len(got) != 0 {
		t.Errorf("Diagnostics(nil) = %#v, want empty non-nil slice", got)
	}
	b, _ := json.Marshal(Diagnostics(&orgtree.Unit{Name: "Quiet"}))
	if string(b) != "[]" {
		t.Errorf("healthy tree marshals to %s, want []", b)
	}
}

func TestDiagnostics_PreOrderStaffingFirst(t *testing.T) {
	low := []orgtree.Metric{metric(orgtree.Quarters{"q1": 10}, orgtree.Quarters{"q1": 1})}
	root := &orgtree.Unit{
		Name: "Root",
		Children: []*orgtree.Unit{
			{
				Name:     "B",
				Roles:    []orgtree.Role{vacantRole(1)},
				Metrics:  low,
				Children: []*orgtree.Unit{{Name: "B1", Metrics: low}},
			},
			{Name: "A", Roles: []orgtree.Role{vacantRole(1), filledRole(1, "X")}},
		},
	}

	got := Diagnostics(root)
	wantOrder := []struct{ unit, typ string }{
		{"B", TypeStaffing},
		{"B", TypePerformance},
		{"B1", TypePerformance},
		{"A", TypeStaffing},
	}
	if len(got) != len(wantOrder) {
		t.Fatalf("Diagnostics returned %d issues, want %d: %+v", len(got), len(wantOrder), got)
	}
	for i, w := range wantOrder {
		if got[i].Unit != w.unit || got[i].Type != w.typ {
			t.Errorf("issue[%d] = %s/%s, want %s/%s", i, got[i].Unit, got[i].Type, w.unit, w.typ)
		}
	}
}

func TestDiagnostics_Idempotent(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	root, _ := randomTree(r, 25)
	first := Diagnostics(root)
	for i := 0; i < 5; i++ {
		if again := Diagnostics(root); !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d differs:\n%+v\nvs\n%+v", i, again, first)
		}
	}
}

// --- locator ----------------------------------------------------------------

func TestFindUnit_FirstPreOrderMatch(t *testing.T) {
	deep := &orgtree.Unit{Name: "Target", Purpose: "deep"}
	shallow := &orgtree.Unit{Name: "Target", Purpose: "shallow"}
	root := &orgtree.Unit{
		Name: "Root",
		Children: []*orgtree.Unit{
			{Name: "Left", Children: []*orgtree.Unit{deep}},
			shallow,
		},
	}
	u, ok := FindUnit(root, "Target")
	if !ok {
		t.Fatal("FindUnit: not found")
	}
	if u != deep {
		t.Errorf("FindUnit returned %q, want the pre-order first (deep)", u.Purpose)
	}
	if _, ok := FindUnit(root, "Missing"); ok {
		t.Error("FindUnit(Missing) reported found")
	}
	if _, ok := FindUnit(nil, "Root"); ok {
		t.Error("FindUnit(nil) reported found")
	}
}

func TestUnitPerformance_Statuses(t *testing.T) {
	root := &orgtree.Unit{
		Name: "Root",
		Children: []*orgtree.Unit{
			{Name: "Healthy", Metrics: []orgtree.Metric{metric(orgtree.Quarters{"q1": 10}, orgtree.Quarters{"q1": 9.5})}},
			{Name: "AtRisk", Metrics: []orgtree.Metric{metric(orgtree.Quarters{"q1": 3}, orgtree.Quarters{"q1": 2})}},
			{Name: "NoData", Metrics: []orgtree.Metric{metric(orgtree.Quarters{}, orgtree.Quarters{})}},
		},
	}

	tests := []struct {
		unit       string
		wantStatus string
		wantScore  string
	}{
		{"Healthy", StatusHealthy, "95"},
		{"AtRisk", StatusAtRisk, "66.7"},
		{"NoData", StatusNoData, `"N/A"`},
		{"Root", StatusNoData, `"N/A"`},
	}
	for _, tt := range tests {
		t.Run(tt.unit, func(t *testing.T) {
			rep, err := UnitPerformance(root, tt.unit)
			if err != nil {
				t.Fatalf("UnitPerformance: %v", err)
			}
			if rep.OverallStatus != tt.wantStatus {
				t.Errorf("status = %q, want %q", rep.OverallStatus, tt.wantStatus)
			}
			b, err := json.Marshal(rep.OverallScore)
			if err != nil {
				t.Fatalf("marshal score: %v", err)
			}
			if string(b) != tt.wantScore {
				t.Errorf("overall_score = %s, want %s", b, tt.wantScore)
			}
		})
	}
}

func TestRound1(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{95, 95},
		{66.66666666666667, 66.7},
		{72.25, 72.2}, // exact tie: even digit
		{72.75, 72.8}, // exact tie: even digit
		{0.125, 0.1},
		{119.96, 120},
	}
	for _, tt := range tests {
		if got := round1(tt.in); got != tt.want {
			t.Errorf("round1(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestUnitPerformance_NoOrganization(t *testing.T) {
	_, err := UnitPerformance(nil, "Anything")
	if !errors.Is(err, ErrNoOrganization) {
		t.Fatalf("error = %v, want ErrNoOrganization", err)
	}
	if errors.Is(err, ErrUnitNotFound) {
		t.Error("missing organization must be distinct from unit not found")
	}
}

func TestScore_JSONRoundTrip(t *testing.T) {
	var s Score
	if err := json.Unmarshal([]byte(`"N/A"`), &s); err != nil || s.Valid {
		t.Errorf(`Unmarshal "N/A" = %+v, %v; want invalid`, s, err)
	}
	if err := json.Unmarshal([]byte(`72.5`), &s); err != nil || !s.Valid || s.Value != 72.5 {
		t.Errorf("Unmarshal 72.5 = %+v, %v", s, err)
	}
}

// --- units & summary ----------------------------------------------------------

func TestUnits(t *testing.T) {
	rows := Units(ministry())
	if len(rows) != 2 {
		t.Fatalf("Units len = %d, want 2", len(rows))
	}
	m, d := rows[0], rows[1]
	if m.Unit != "Ministry" || m.Depth != 0 || m.Total != 2 || m.Filled != 0 {
		t.Errorf("Ministry row = %+v", m)
	}
	if m.VacancyPct == nil || *m.VacancyPct != 100 {
		t.Errorf("Ministry vacancy = %v, want 100", m.VacancyPct)
	}
	if m.Score != nil || m.Status != StatusNoData {
		t.Errorf("Ministry score = %v status %q, want nil / No Data", m.Score, m.Status)
	}
	if d.Unit != "Division A" || d.Depth != 1 || d.Score == nil || *d.Score != 50 || d.Status != StatusCritical {
		t.Errorf("Division A row = %+v", d)
	}
	if d.VacancyPct == nil || *d.VacancyPct != 0 {
		t.Errorf("Division A vacancy = %v, want 0", d.VacancyPct)
	}
}

func TestUnits_VacancyAboveSeats(t *testing.T) {
	u := &orgtree.Unit{Name: "Ops", Roles: []orgtree.Role{
		vacantRole(0), vacantRole(0), vacantRole(0), filledRole(1, "Bob"),
	}}
	rows := Units(u)
	if len(rows) != 1 || rows[0].VacancyPct == nil || *rows[0].VacancyPct != 300 {
		t.Fatalf("Units = %+v, want vacancy 300", rows)
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize(ministry())
	if s.Headcount != (Headcount{Filled: 1, Total: 3}) {
		t.Errorf("Headcount = %+v", s.Headcount)
	}
	if s.UnitCount != 2 || s.IssueCount != 2 {
		t.Errorf("UnitCount = %d IssueCount = %d, want 2 and 2", s.UnitCount, s.IssueCount)
	}
	if s.BySeverity[SeverityCritical] != 2 || s.ByType[TypeStaffing] != 1 || s.ByType[TypePerformance] != 1 {
		t.Errorf("counts = %v / %v", s.BySeverity, s.ByType)
	}
	if s.OverallStatus != OverallCritical {
		t.Errorf("OverallStatus = %q, want Critical", s.OverallStatus)
	}

	if got := Summarize(nil).OverallStatus; got != OverallEmpty {
		t.Errorf("empty OverallStatus = %q, want Empty", got)
	}
	if got := Summarize(staffedUnit(2, 3)).OverallStatus; got != OverallWarning {
		t.Errorf("40%% vacant OverallStatus = %q, want Warning", got)
	}
	if got := Summarize(staffedUnit(0, 3)).OverallStatus; got != OverallHealthy {
		t.Errorf("staffed OverallStatus = %q, want Healthy", got)
	}
}
