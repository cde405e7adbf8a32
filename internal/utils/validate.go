package utils

import (
	"regexp"
	"strings"
)

var (
	studentIDPattern = regexp.MustCompile(`^\d{9}$`)
	// Bangladeshi mobile numbers, with or without the country prefix.
	contactPattern = regexp.MustCompile(`^(?:\+88|88)?(01[3-9]\d{8})$`)
	emailLocalPart = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+$`)
)

// ValidInstitutionalEmail reports whether the address belongs to the
// given institutional domain.
func ValidInstitutionalEmail(email, domain string) bool {
	at := strings.LastIndex(email, "@")
	if at <= 0 {
		return false
	}
	if !strings.EqualFold(email[at+1:], domain) {
		return false
	}
	return emailLocalPart.MatchString(email[:at])
}

// ValidStudentID reports whether the student ID is exactly nine digits.
func ValidStudentID(id string) bool {
	return studentIDPattern.MatchString(id)
}

// ValidContactNumber reports whether the number matches the regional
// mobile format.
func ValidContactNumber(number string) bool {
	return contactPattern.MatchString(number)
}
