package results

import (
	"sort"

	"schoolsync/internal/record"
)

// trendSize caps the recency series at the five most recent results.
const trendSize = 5

// SubjectStat is the per-subject slice of a performance summary.
type SubjectStat struct {
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

// Summary is the derived academic-performance view for a set of exam
// results. All values are unrounded; rounding is a display concern.
type Summary struct {
	AveragePercentage  float64                `json:"averagePercentage"`
	TotalExams         int                    `json:"totalExams"`
	TotalSubjects      int                    `json:"totalSubjects"`
	GradeDistribution  map[string]int         `json:"gradeDistribution"`
	SubjectPerformance map[string]SubjectStat `json:"subjectPerformance"`
	Trend              []float64              `json:"trend"`
}

// Aggregate computes the performance summary for a list of exam results.
// Entries marked absent count toward totals but are excluded from every
// percentage and grade computation. Malformed entries degrade to zero
// values instead of failing the aggregation; the upstream data is
// user-entered and not schema-validated.
func Aggregate(results []record.ExamResult) Summary {
	s := Summary{
		TotalExams:         len(results),
		GradeDistribution:  map[string]int{},
		SubjectPerformance: map[string]SubjectStat{},
		Trend:              []float64{},
	}

	subjects := map[string]bool{}
	completed := make([]record.ExamResult, 0, len(results))
	for _, r := range results {
		if r.Subject != "" {
			subjects[r.Subject] = true
		}
		if !r.IsAbsent {
			completed = append(completed, r)
		}
	}
	s.TotalSubjects = len(subjects)

	var sum float64
	subjectSums := map[string]float64{}
	for _, r := range completed {
		sum += r.Percentage

		grade := r.Grade
		if grade == "" {
			grade = "N/A"
		}
		s.GradeDistribution[grade]++

		if r.Subject != "" {
			subjectSums[r.Subject] += r.Percentage
			stat := s.SubjectPerformance[r.Subject]
			stat.Count++
			s.SubjectPerformance[r.Subject] = stat
		}
	}
	if len(completed) > 0 {
		s.AveragePercentage = sum / float64(len(completed))
	}
	for subject, stat := range s.SubjectPerformance {
		stat.Average = subjectSums[subject] / float64(stat.Count)
		s.SubjectPerformance[subject] = stat
	}

	// Most recent first; missing enteredAt is the zero time and sorts as
	// earliest. Stable so exact ties keep input order.
	sort.SliceStable(completed, func(i, j int) bool {
		return completed[i].EnteredAt.After(completed[j].EnteredAt)
	})
	for i := 0; i < len(completed) && i < trendSize; i++ {
		s.Trend = append(s.Trend, completed[i].Percentage)
	}
	return s
}
