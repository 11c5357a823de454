package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidEmail(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"a@x.com", true},
		{"first.last@mail.example.org", true},
		{"under_score-dash@sub-domain.io", true},
		{"x@y.c0m", true},
		{"A@X.COM", true},
		{"", false},
		{"plain", false},
		{"@x.com", false},
		{"a@x", false},
		{"a@x.c", false},
		{"a@x.comma", false},
		{"a b@x.com", false},
		{"a@x..com", false},
		{"a@x.c_m", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsValidEmail(tt.in), "email %q", tt.in)
	}
}

func TestIsValidPassword(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"ab12!", true},
		{"1234#", true},
		{"pässwörd1$", true},
		{"a_b12", true},
		{"ab1!", false},
		{"abcde!", false},
		{"abcde1", false},
		{"abc 1 d", false},
		{"abc١!", false},
		{"abc١1", true},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsValidPassword(tt.in), "password %q", tt.in)
	}
}
