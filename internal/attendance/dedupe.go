package attendance

import (
	"math"

	"schoolsync/internal/record"
)

// Attendance statuses. Teacher attendance additionally uses "leave".
const (
	StatusPresent = "present"
	StatusAbsent  = "absent"
	StatusLate    = "late"
	StatusLeave   = "leave"
)

// ValidStatus reports whether s is a supported marking status.
func ValidStatus(s string) bool {
	switch s {
	case StatusPresent, StatusAbsent, StatusLate, StatusLeave:
		return true
	}
	return false
}

// Dedupe reduces marking events to one canonical entry per (student, date)
// pair. Marking is append-only, so the read side reconciles duplicates: the
// entry with the strictly greatest timestamp wins, and an entry with a
// missing timestamp never supersedes a stored one. Output order follows
// first appearance of each pair; callers re-sort for display.
func Dedupe(entries []record.AttendanceEntry) []record.AttendanceEntry {
	latest := make(map[string]record.AttendanceEntry, len(entries))
	order := make([]string, 0, len(entries))
	for _, e := range entries {
		key := e.StudentID + "_" + e.Date
		cur, ok := latest[key]
		if !ok {
			latest[key] = e
			order = append(order, key)
			continue
		}
		if e.Timestamp > cur.Timestamp {
			latest[key] = e
		}
	}
	out := make([]record.AttendanceEntry, 0, len(order))
	for _, key := range order {
		out = append(out, latest[key])
	}
	return out
}

// Summary is the derived attendance view for a set of marking events.
type Summary struct {
	Total   int     `json:"total"`
	Present int     `json:"present"`
	Absent  int     `json:"absent"`
	Late    int     `json:"late"`
	Leave   int     `json:"leave"`
	Rate    float64 `json:"rate"`
}

// Summarize dedupes the entries and counts statuses over the canonical set.
// Rate is present/total*100 rounded to two decimals, 0 when there is
// nothing to count.
func Summarize(entries []record.AttendanceEntry) Summary {
	var s Summary
	for _, e := range Dedupe(entries) {
		s.Total++
		switch e.Status {
		case StatusPresent:
			s.Present++
		case StatusAbsent:
			s.Absent++
		case StatusLate:
			s.Late++
		case StatusLeave:
			s.Leave++
		}
	}
	if s.Total > 0 {
		s.Rate = math.Round(float64(s.Present)/float64(s.Total)*100*100) / 100
	}
	return s
}
