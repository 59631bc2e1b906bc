package alerts

import (
	"strconv"
	"strings"

	"github.com/orgpulse/orgpulse/server/internal/analytics"
)

// evalCondition evaluates a rule condition string against one unit's health row.
//
// Supported expressions (field operator value):
//
//	vacancy_pct > 50
//	score < 75
//	filled == 0
//	total >= 20
//	depth > 6
//	status == critical
//	status != healthy
//	status == at_risk
//
// Returns (fires bool, triggering value float64).
// Returns (false, 0) if the expression cannot be parsed, the field is unknown,
// or the field has no value for this unit (no seats, no scorable metric).
func evalCondition(cond string, row analytics.UnitHealth) (bool, float64) {
	parts := strings.Fields(cond)
	if len(parts) != 3 {
		return false, 0
	}
	field, op, rhs := parts[0], parts[1], parts[2]

	if field == "status" {
		want := strings.ReplaceAll(rhs, "_", " ")
		switch op {
		case "==":
			return strings.EqualFold(row.Status, want), 0
		case "!=":
			return !strings.EqualFold(row.Status, want), 0
		default:
			return false, 0
		}
	}

	v, ok := numericField(field, row)
	if !ok {
		return false, 0
	}
	threshold, err := strconv.ParseFloat(rhs, 64)
	if err != nil {
		return false, 0
	}
	return compareFloat(v, op, threshold), v
}

// numericField maps a field name to its value in the row.
func numericField(field string, row analytics.UnitHealth) (float64, bool) {
	switch field {
	case "vacancy_pct":
		if row.VacancyPct == nil {
			return 0, false
		}
		return *row.VacancyPct, true
	case "score":
		if row.Score == nil {
			return 0, false
		}
		return *row.Score, true
	case "filled":
		return float64(row.Filled), true
	case "total":
		return float64(row.Total), true
	case "depth":
		return float64(row.Depth), true
	default:
		return 0, false
	}
}

// compareFloat applies a comparison operator to two float64 values.
func compareFloat(v float64, op string, threshold float64) bool {
	switch op {
	case ">":
		return v > threshold
	case ">=":
		return v >= threshold
	case "<":
		return v < threshold
	case "<=":
		return v <= threshold
	case "==":
		return v == threshold
	case "!=":
		return v != threshold
	default:
		return false
	}
}
