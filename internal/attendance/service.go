package attendance

import (
	"context"
	"errors"
	"time"

	"schoolsync/internal/metrics"
	"schoolsync/internal/queue"
	"schoolsync/internal/record"
	"schoolsync/internal/store"
)

// Collection holds attendance marking events in the document store.
const Collection = "attendance"

// Service records marking events and derives day summaries. Writes are
// append-only: a re-mark for the same (student, date) pair adds a new event
// with a fresher timestamp and the read path reconciles, preserving the
// full marking history as an audit trail.
type Service struct {
	store *store.Store
	q     queue.Queue
}

// NewService creates a service over the document store and job queue.
func NewService(st *store.Store, q queue.Queue) *Service {
	return &Service{store: st, q: q}
}

// Mark appends one marking event. An absent mark also enqueues a guardian
// alert job; queue failure does not fail the mark.
func (s *Service) Mark(ctx context.Context, studentID, date, status, markedBy string) (record.AttendanceEntry, error) {
	if studentID == "" || date == "" {
		return record.AttendanceEntry{}, errors.New("student and date required")
	}
	if !ValidStatus(status) {
		return record.AttendanceEntry{}, errors.New("unknown status: " + status)
	}

	entry := record.AttendanceEntry{
		StudentID: studentID,
		Date:      date,
		Status:    status,
		MarkedBy:  markedBy,
		Timestamp: time.Now().UTC().UnixMilli(),
	}
	doc := record.Record{
		"studentId": entry.StudentID,
		"date":      entry.Date,
		"status":    entry.Status,
		"markedBy":  entry.MarkedBy,
		"timestamp": entry.Timestamp,
	}
	if _, err := s.store.Insert(ctx, Collection, doc); err != nil {
		return record.AttendanceEntry{}, err
	}
	metrics.MarksRecorded.Inc()

	if status == StatusAbsent && s.q != nil {
		if err := s.q.Publish(ctx, queue.Job{Type: queue.JobAbsenceAlert, StudentID: studentID, Date: date}); err != nil {
			// alert delivery is best-effort; the mark itself stands
			return entry, nil
		}
	}
	return entry, nil
}

// DaySummary fetches the marking events for one date and reduces them to
// the canonical per-student entries plus counts.
func (s *Service) DaySummary(ctx context.Context, date string) (Summary, []record.AttendanceEntry, error) {
	recs, err := s.store.Query(ctx, store.Query{
		Collection: Collection,
		Predicates: []store.Predicate{{Field: "date", Op: "==", Value: date}},
	})
	if err != nil {
		return Summary{}, nil, err
	}
	entries := normalize(recs)
	return Summarize(entries), Dedupe(entries), nil
}

// StudentHistory returns the canonical entries for one student, all dates.
func (s *Service) StudentHistory(ctx context.Context, studentID string) ([]record.AttendanceEntry, error) {
	recs, err := s.store.Query(ctx, store.Query{
		Collection: Collection,
		Predicates: []store.Predicate{{Field: "studentId", Op: "==", Value: studentID}},
	})
	if err != nil {
		return nil, err
	}
	return Dedupe(normalize(recs)), nil
}

func normalize(recs []record.Record) []record.AttendanceEntry {
	entries := make([]record.AttendanceEntry, 0, len(recs))
	for _, r := range recs {
		entries = append(entries, record.AttendanceFrom(r))
	}
	return entries
}
