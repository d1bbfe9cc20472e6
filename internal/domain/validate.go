package domain

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	nameRe  = regexp.MustCompile(`^[a-zA-Z\s'-]{2,50}$`)
)

const (
	maxTitleLen   = 200
	maxContentLen = 10000
)

// NormalizeEmail is the canonical lookup key for users.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func ValidateEmail(email string) error {
	if email == "" {
		return invalid("email", "Email is required")
	}
	if !emailRe.MatchString(email) {
		return invalid("email", "Please enter a valid email address")
	}
	return nil
}

func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return invalid("name", "Name is required")
	}
	if !nameRe.MatchString(name) {
		return invalid("name", "Name must be 2-50 characters long and contain only letters, spaces, hyphens, and apostrophes")
	}
	return nil
}

// ValidateNote trims title and content and checks their bounds.
func ValidateNote(title, content string) (string, string, error) {
	title = strings.TrimSpace(title)
	content = strings.TrimSpace(content)
	if title == "" || content == "" {
		return "", "", invalid("note", "Title and content cannot be empty")
	}
	if utf8.RuneCountInString(title) > maxTitleLen {
		return "", "", invalid("title", "Title cannot exceed 200 characters")
	}
	if utf8.RuneCountInString(content) > maxContentLen {
		return "", "", invalid("content", "Content cannot exceed 10000 characters")
	}
	return title, content, nil
}
