// Package validation holds the input format checks used by registration,
// login and profile forms.
package validation

import (
	"regexp"
	"unicode"
	"unicode/utf8"
)

const minPasswordLen = 5

var emailPattern = regexp.MustCompile(`^[\w.-]+@([\w-]+\.)+[A-Za-z0-9]{2,4}$`)

// IsValidEmail reports whether s looks like local@label(.label)*.tld with a
// 2-4 character alphanumeric TLD.
func IsValidEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// IsValidPassword requires at least five characters, one ASCII digit and one
// character that is neither a letter, a digit nor whitespace.
func IsValidPassword(s string) bool {
	if utf8.RuneCountInString(s) < minPasswordLen {
		return false
	}
	var hasDigit, hasSpecial bool
	for _, r := range s {
		switch {
		case '0' <= r && r <= '9':
			hasDigit = true
		case unicode.IsLetter(r), unicode.IsSpace(r):
		default:
			hasSpecial = true
		}
	}
	return hasDigit && hasSpecial
}
