package results

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"schoolsync/internal/attendance"
	"schoolsync/internal/record"
	"schoolsync/internal/roster"
)

func at(day int) time.Time {
	return time.Date(2024, 3, day, 10, 0, 0, 0, time.UTC)
}

func TestAggregateEmpty(t *testing.T) {
	s := Aggregate(nil)
	assert.Equal(t, 0.0, s.AveragePercentage)
	assert.Equal(t, 0, s.TotalExams)
	assert.Equal(t, 0, s.TotalSubjects)
	assert.Equal(t, map[string]int{}, s.GradeDistribution)
	assert.Equal(t, map[string]SubjectStat{}, s.SubjectPerformance)
	assert.Equal(t, []float64{}, s.Trend)
}

func TestAggregateAverageExcludesAbsent(t *testing.T) {
	s := Aggregate([]record.ExamResult{
		{Percentage: 80, Subject: "Math"},
		{Percentage: 60, Subject: "English"},
		{Percentage: 90, Subject: "Science", IsAbsent: true},
	})
	assert.Equal(t, 70.0, s.AveragePercentage)
	assert.Equal(t, 3, s.TotalExams)
	assert.Equal(t, 3, s.TotalSubjects)
}

func TestAggregateGradeDistribution(t *testing.T) {
	s := Aggregate([]record.ExamResult{
		{Percentage: 85, Grade: "A+"},
		{Percentage: 82, Grade: "A+"},
		{Percentage: 55, Grade: "B"},
		// missing grade buckets under N/A; absent results are excluded
		{Percentage: 48},
		{Percentage: 90, Grade: "A+", IsAbsent: true},
	})
	assert.Equal(t, map[string]int{"A+": 2, "B": 1, "N/A": 1}, s.GradeDistribution)
}

func TestAggregateSubjectPerformance(t *testing.T) {
	s := Aggregate([]record.ExamResult{
		{Subject: "Math", Percentage: 80},
		{Subject: "Math", Percentage: 60},
		{Subject: "English", Percentage: 90},
		// Science's only result is absent; the last row has no subject
		{Subject: "Science", Percentage: 70, IsAbsent: true},
		{Percentage: 40},
	})
	assert.Equal(t, SubjectStat{Average: 70, Count: 2}, s.SubjectPerformance["Math"])
	assert.Equal(t, SubjectStat{Average: 90, Count: 1}, s.SubjectPerformance["English"])
	// a subject with zero completed results is omitted, not zeroed
	_, ok := s.SubjectPerformance["Science"]
	assert.False(t, ok)
	// but it still counts toward the distinct-subject total
	assert.Equal(t, 3, s.TotalSubjects)
}

func TestAggregateTrend(t *testing.T) {
	var in []record.ExamResult
	for day := 1; day <= 8; day++ {
		in = append(in, record.ExamResult{Percentage: float64(day * 10), EnteredAt: at(day)})
	}
	s := Aggregate(in)
	assert.Equal(t, []float64{80, 70, 60, 50, 40}, s.Trend)
}

func TestAggregateTrendMissingTimestampSortsEarliest(t *testing.T) {
	s := Aggregate([]record.ExamResult{
		{Percentage: 10}, // no enteredAt: treated as epoch
		{Percentage: 20, EnteredAt: at(1)},
		{Percentage: 30, EnteredAt: at(2)},
	})
	assert.Equal(t, []float64{30, 20, 10}, s.Trend)
}

func TestAggregateTrendShorterThanCap(t *testing.T) {
	s := Aggregate([]record.ExamResult{
		{Percentage: 50, EnteredAt: at(1)},
		{Percentage: 70, EnteredAt: at(2), IsAbsent: true},
	})
	assert.Equal(t, []float64{50}, s.Trend)
}

func TestGradeFor(t *testing.T) {
	tests := []struct {
		pct  float64
		want string
	}{
		{95, "A+"}, {80, "A+"}, {79.9, "A"}, {70, "A"}, {65, "A-"},
		{55, "B"}, {45, "C"}, {33, "D"}, {32.9, "F"}, {0, "F"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, GradeFor(tt.pct), "GradeFor(%v)", tt.pct)
	}
}

func TestPercentageOf(t *testing.T) {
	assert.Equal(t, 90.0, PercentageOf(45, 50))
	assert.Equal(t, 66.67, PercentageOf(2, 3))
	assert.Equal(t, 0.0, PercentageOf(10, 0))
}

// TestParentDashboard walks the full read path a parent view takes: resolve
// children by guardian phone, reconcile the day's attendance, aggregate the
// exam history.
func TestParentDashboard(t *testing.T) {
	students := []record.Student{{ID: "A", GuardianPhone: "01711111111"}}
	children := roster.FindChildren("", "01711111111", students)
	assert.Len(t, children, 1)
	assert.Equal(t, "A", children[0].ID)

	marks := attendance.Dedupe([]record.AttendanceEntry{
		{StudentID: "A", Date: "2024-01-10", Status: "absent", Timestamp: 100},
		{StudentID: "A", Date: "2024-01-10", Status: "present", Timestamp: 200},
	})
	assert.Len(t, marks, 1)
	assert.Equal(t, "present", marks[0].Status)
	assert.Equal(t, int64(200), marks[0].Timestamp)

	summary := Aggregate([]record.ExamResult{
		{StudentID: "A", Percentage: 90, Grade: "A+", EnteredAt: at(1)},
		{StudentID: "A", Percentage: 70, Grade: "B", EnteredAt: at(2)},
		{StudentID: "A", IsAbsent: true, EnteredAt: at(3)},
	})
	assert.Equal(t, 80.0, summary.AveragePercentage)
	assert.Equal(t, map[string]int{"A+": 1, "B": 1}, summary.GradeDistribution)
	assert.Equal(t, 3, summary.TotalExams)
}
