package results

import (
	"context"
	"errors"
	"time"

	"schoolsync/internal/metrics"
	"schoolsync/internal/record"
	"schoolsync/internal/store"
)

// Collection holds exam result documents in the store.
const Collection = "exam_results"

// Service writes marks entries and derives per-student performance.
type Service struct {
	store *store.Store
}

// NewService creates a service over the document store.
func NewService(st *store.Store) *Service {
	return &Service{store: st}
}

// EntryInput is one marks-entry form submission.
type EntryInput struct {
	StudentID string
	ExamID    string
	ExamName  string
	Subject   string
	Obtained  float64
	Total     float64
	IsAbsent  bool
}

// Enter stores one exam result. Percentage and grade are computed here,
// once, and trusted as authoritative on every subsequent read. Results are
// immutable after entry.
func (s *Service) Enter(ctx context.Context, in EntryInput) (record.ExamResult, error) {
	if in.StudentID == "" || in.Subject == "" {
		return record.ExamResult{}, errors.New("student and subject required")
	}
	if in.ExamID == "" && in.ExamName == "" {
		return record.ExamResult{}, errors.New("exam id or name required")
	}

	res := record.ExamResult{
		StudentID: in.StudentID,
		ExamID:    in.ExamID,
		ExamName:  in.ExamName,
		Subject:   in.Subject,
		Obtained:  in.Obtained,
		Total:     in.Total,
		IsAbsent:  in.IsAbsent,
		EnteredAt: time.Now().UTC(),
	}
	if !in.IsAbsent {
		res.Percentage = PercentageOf(in.Obtained, in.Total)
		res.Grade = GradeFor(res.Percentage)
	}

	doc := record.Record{
		"studentId":     res.StudentID,
		"examId":        res.ExamID,
		"examName":      res.ExamName,
		"subject":       res.Subject,
		"obtainedMarks": res.Obtained,
		"totalMarks":    res.Total,
		"percentage":    res.Percentage,
		"grade":         res.Grade,
		"isAbsent":      res.IsAbsent,
		"enteredAt":     res.EnteredAt.Format(time.RFC3339),
	}
	if _, err := s.store.Insert(ctx, Collection, doc); err != nil {
		return record.ExamResult{}, err
	}
	metrics.ResultsEntered.Inc()
	return res, nil
}

// StudentSummary aggregates every result on file for one student.
func (s *Service) StudentSummary(ctx context.Context, studentID string) (Summary, error) {
	recs, err := s.store.Query(ctx, store.Query{
		Collection: Collection,
		Predicates: []store.Predicate{{Field: "studentId", Op: "==", Value: studentID}},
	})
	if err != nil {
		return Summary{}, err
	}
	results := make([]record.ExamResult, 0, len(recs))
	for _, r := range recs {
		results = append(results, record.ExamResultFrom(r))
	}
	return Aggregate(results), nil
}
