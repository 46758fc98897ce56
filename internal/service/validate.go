package service

import (
	"regexp"
	"strings"

	"github.com/teacherportal/marks-portal-service/internal/domain"
)

var alphaSpaces = regexp.MustCompile(`^[A-Za-z ]+$`)

// ValidateName trims and checks a student name: at least two characters,
// letters and spaces only.
func ValidateName(name string) (string, error) {
	return validateLabel("name", name)
}

// ValidateSubject applies the same rules as ValidateName to a subject.
func ValidateSubject(subject string) (string, error) {
	return validateLabel("subject", subject)
}

func validateLabel(field, raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if len(trimmed) < 2 {
		return "", &ValidationError{Field: field, Reason: "must be at least 2 characters long"}
	}
	if !alphaSpaces.MatchString(trimmed) {
		return "", &ValidationError{Field: field, Reason: "can only contain letters and spaces"}
	}
	return trimmed, nil
}

func ValidateMarks(marks int) error {
	if marks < domain.MinMarks || marks > domain.MaxMarks {
		return &ValidationError{Field: "marks", Reason: "must be between 0 and 100"}
	}
	return nil
}

func ValidateUsername(username string) (string, error) {
	trimmed := strings.TrimSpace(username)
	if len(trimmed) < 3 {
		return "", &ValidationError{Field: "username", Reason: "must be at least 3 characters long"}
	}
	return trimmed, nil
}

func ValidatePassword(password string) error {
	if len(password) < 6 {
		return &ValidationError{Field: "password", Reason: "must be at least 6 characters long"}
	}
	return nil
}
