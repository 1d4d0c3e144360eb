package roster

import (
	"testing"

	"schoolsync/internal/record"
)

func TestFindChildren(t *testing.T) {
	students := []record.Student{
		{ID: "A", GuardianPhone: "01711111111"},
		{ID: "B", FatherPhone: "01722222222"},
		{ID: "C", MotherPhone: "01733333333"},
		{ID: "D", ParentEmail: "parent@example.com"},
		{ID: "E", GuardianPhone: "01711111111"}, // sibling of A
		{ID: "F"},                               // no contact fields: unreachable
	}

	tests := []struct {
		name    string
		email   string
		phone   string
		wantIDs []string
	}{
		{name: "guardian phone match", phone: "01711111111", wantIDs: []string{"A", "E"}},
		{name: "father phone match", phone: "01722222222", wantIDs: []string{"B"}},
		{name: "mother phone match", phone: "01733333333", wantIDs: []string{"C"}},
		{name: "email match", email: "parent@example.com", wantIDs: []string{"D"}},
		{name: "email and phone together", email: "parent@example.com", phone: "01722222222", wantIDs: []string{"B", "D"}},
		{name: "both empty matches nothing", wantIDs: nil},
		{name: "reformatted phone does not match", phone: "+8801711111111", wantIDs: nil},
		{name: "whitespace is significant", phone: "01711111111 ", wantIDs: nil},
		{name: "email is case sensitive", email: "Parent@example.com", wantIDs: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FindChildren(tt.email, tt.phone, students)
			if len(got) != len(tt.wantIDs) {
				t.Fatalf("FindChildren() returned %d students, want %d", len(got), len(tt.wantIDs))
			}
			for i, s := range got {
				if s.ID != tt.wantIDs[i] {
					t.Errorf("match[%d] = %s, want %s", i, s.ID, tt.wantIDs[i])
				}
			}
		})
	}
}

func TestFindChildrenEmptyRoster(t *testing.T) {
	if got := FindChildren("x@y.z", "017", nil); len(got) != 0 {
		t.Errorf("FindChildren() on empty roster = %v, want empty", got)
	}
}

func TestContactPhone(t *testing.T) {
	tests := []struct {
		name string
		s    record.Student
		want string
	}{
		{name: "guardian first", s: record.Student{GuardianPhone: "g", FatherPhone: "f", MotherPhone: "m"}, want: "g"},
		{name: "father next", s: record.Student{FatherPhone: "f", MotherPhone: "m"}, want: "f"},
		{name: "mother last", s: record.Student{MotherPhone: "m"}, want: "m"},
		{name: "none", s: record.Student{ParentEmail: "e@x.y"}, want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ContactPhone(tt.s); got != tt.want {
				t.Errorf("ContactPhone() = %q, want %q", got, tt.want)
			}
		})
	}
}
