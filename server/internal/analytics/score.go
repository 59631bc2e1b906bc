package analytics

import (
	"github.com/orgpulse/orgpulse/pkg/orgtree"
)

// MaxQuarterScore caps a single quarter's achievement so over-delivery in one
// period cannot mask shortfalls elsewhere.
const MaxQuarterScore = 120.0

// Status values for a unit's performance report.
const (
	StatusHealthy  = "Healthy"
	StatusAtRisk   = "At Risk"
	StatusCritical = "Critical"
	StatusNoData   = "No Data"
)

// Thresholds that map an achievement score to a status.
const (
	ThresholdCritical = 60.0 // below: Critical
	ThresholdAtRisk   = 90.0 // below: At Risk
)

// AchievementScore returns the mean of the per-metric scores of metrics.
// Metrics without a usable quarter are left out of the denominator.
// ok is false when no metric produced a score.
func AchievementScore(metrics []orgtree.Metric) (score float64, ok bool) {
	var sum float64
	var n int
	for _, m := range metrics {
		s, ok := MetricScore(m)
		if !ok {
			continue
		}
		sum += s
		n++
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// MetricScore returns the mean achievement of m over quarters with a positive
// target. Quarters with a zero target are skipped, not scored as 0 or 100.
// ok is false when every quarter was skipped.
func MetricScore(m orgtree.Metric) (score float64, ok bool) {
	var sum float64
	var n int
	for _, q := range orgtree.QuarterKeys {
		target := m.Targets.Get(q)
		if target <= 0 {
			continue
		}
		sum += quarterScore(m.Actuals.Get(q), target)
		n++
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// quarterScore is actual/target as a percentage, capped at MaxQuarterScore.
// target must be positive.
func quarterScore(actual, target float64) float64 {
	raw := actual / target * 100
	if raw > MaxQuarterScore {
		return MaxQuarterScore
	}
	return raw
}

// StatusFromScore maps an achievement score to a status string.
func StatusFromScore(score float64, ok bool) string {
	switch {
	case !ok:
		return StatusNoData
	case score < ThresholdCritical:
		return StatusCritical
	case score < ThresholdAtRisk:
		return StatusAtRisk
	default:
		return StatusHealthy
	}
}
