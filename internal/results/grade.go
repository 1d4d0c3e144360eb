package results

import "math"

// GradeFor maps a percentage to its letter grade. Computed once when marks
// are entered and stored alongside the result; the aggregator trusts the
// stored value and never recomputes.
func GradeFor(percentage float64) string {
	switch {
	case percentage >= 80:
		return "A+"
	case percentage >= 70:
		return "A"
	case percentage >= 60:
		return "A-"
	case percentage >= 50:
		return "B"
	case percentage >= 40:
		return "C"
	case percentage >= 33:
		return "D"
	}
	return "F"
}

// PercentageOf computes obtained/total*100 rounded to two decimals,
// 0 when total is not positive.
func PercentageOf(obtained, total float64) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(obtained/total*100*100) / 100
}
