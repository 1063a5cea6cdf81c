package auth

import (
	"errors"
	"regexp"
	"strings"
)

var emailPattern = regexp.MustCompile(`^\w+([.-]?\w+)*@\w+([.-]?\w+)*(\.\w{2,3})+$`)

// NormalizeEmail trims surrounding whitespace and lowercases the address.
// Every lookup and every stored value goes through this first.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail checks the normalized address against the accepted pattern.
func ValidateEmail(email string) error {
	if !emailPattern.MatchString(email) {
		return errors.New("invalid email address")
	}
	return nil
}
