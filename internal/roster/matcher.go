package roster

import "schoolsync/internal/record"

// FindChildren returns every student whose guardian contact fields match the
// supplied parent identity. Matching is exact string equality, case- and
// whitespace-sensitive: no phone normalization is performed, so a number
// stored with a country code will not match the same number without one.
// Both identifiers empty means no match, silently.
func FindChildren(parentEmail, parentPhone string, students []record.Student) []record.Student {
	if parentEmail == "" && parentPhone == "" {
		return nil
	}
	var matched []record.Student
	for _, s := range students {
		if matches(parentEmail, parentPhone, s) {
			matched = append(matched, s)
		}
	}
	return matched
}

// matches checks the contact fields in the documented fallback order:
// guardianPhone, fatherPhone, motherPhone, then parentEmail.
func matches(email, phone string, s record.Student) bool {
	if phone != "" {
		if s.GuardianPhone == phone || s.FatherPhone == phone || s.MotherPhone == phone {
			return true
		}
	}
	return email != "" && s.ParentEmail == email
}

// ContactPhone returns the first populated guardian phone for a student,
// in the same fallback order the matcher uses. Empty when the student has
// no phone on file, in which case the student is unreachable by SMS.
func ContactPhone(s record.Student) string {
	switch {
	case s.GuardianPhone != "":
		return s.GuardianPhone
	case s.FatherPhone != "":
		return s.FatherPhone
	case s.MotherPhone != "":
		return s.MotherPhone
	}
	return ""
}
