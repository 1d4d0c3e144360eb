package record

import "time"

// Student is one enrolled student as normalized from a raw store document.
// A parent account has no stored foreign key to students; the link is
// inferred from the contact fields at query time.
type Student struct {
	ID            string
	UID           string
	Name          string
	GuardianName  string
	GuardianPhone string
	FatherName    string
	FatherPhone   string
	MotherName    string
	MotherPhone   string
	ParentEmail   string
	ClassName     string
	Section       string
}

// StudentFrom maps a raw document to a Student, defaulting missing fields.
func StudentFrom(r Record) Student {
	id := r.Str("studentId")
	if id == "" {
		id = r.Str("uid")
	}
	return Student{
		ID:            id,
		UID:           r.Str("uid"),
		Name:          r.Str("name"),
		GuardianName:  r.Str("guardianName"),
		GuardianPhone: r.Str("guardianPhone"),
		FatherName:    r.Str("fatherName"),
		FatherPhone:   r.Str("fatherPhone"),
		MotherName:    r.Str("motherName"),
		MotherPhone:   r.Str("motherPhone"),
		ParentEmail:   r.Str("parentEmail"),
		ClassName:     r.Str("class"),
		Section:       r.Str("section"),
	}
}

// AttendanceEntry is one attendance marking event. Writes are append-only,
// so several entries may exist for the same (student, date) pair; the one
// with the greatest Timestamp is canonical.
type AttendanceEntry struct {
	StudentID string
	Date      string
	Status    string
	MarkedBy  string
	Timestamp int64
}

// AttendanceFrom maps a raw document to an AttendanceEntry. A missing
// timestamp normalizes to 0 and is never treated as newer on dedup.
func AttendanceFrom(r Record) AttendanceEntry {
	return AttendanceEntry{
		StudentID: r.Str("studentId"),
		Date:      r.Str("date"),
		Status:    r.Str("status"),
		MarkedBy:  r.Str("markedBy"),
		Timestamp: r.Int64("timestamp"),
	}
}

// ExamResult is one subject-exam result for one student. Percentage and
// grade are computed once at entry time and trusted on read.
type ExamResult struct {
	StudentID  string
	ExamID     string
	ExamName   string
	Subject    string
	Obtained   float64
	Total      float64
	Percentage float64
	Grade      string
	IsAbsent   bool
	EnteredAt  time.Time
}

// ExamResultFrom maps a raw document to an ExamResult.
func ExamResultFrom(r Record) ExamResult {
	return ExamResult{
		StudentID:  r.Str("studentId"),
		ExamID:     r.Str("examId"),
		ExamName:   r.Str("examName"),
		Subject:    r.Str("subject"),
		Obtained:   r.Num("obtainedMarks"),
		Total:      r.Num("totalMarks"),
		Percentage: r.Num("percentage"),
		Grade:      r.Str("grade"),
		IsAbsent:   r.Bool("isAbsent"),
		EnteredAt:  r.Time("enteredAt"),
	}
}

// Transaction is one fee or donation bookkeeping row.
type Transaction struct {
	ID        string
	StudentID string
	Type      string
	Amount    float64
	PaidAt    time.Time
}

// TransactionFrom maps a raw document to a Transaction. A non-numeric
// amount normalizes to 0 rather than failing the whole aggregation.
func TransactionFrom(r Record) Transaction {
	return Transaction{
		ID:        r.Str("id"),
		StudentID: r.Str("studentId"),
		Type:      r.Str("type"),
		Amount:    r.Num("amount"),
		PaidAt:    r.Time("paidAt"),
	}
}
