package tracker

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// MinPasswordLength is the shortest accepted password, counted in runes.
const MinPasswordLength = 6

// PasswordPolicyMessage is the single message shown to users for any policy
// failure.
const PasswordPolicyMessage = "Password must be at least 6 characters long and contain at least one uppercase letter, one lowercase letter, and one number"

// PasswordValidationError lists every rule a password broke.
type PasswordValidationError struct {
	Messages []string
}

func (e *PasswordValidationError) Error() string {
	return strings.Join(e.Messages, "; ")
}

type passwordRule struct {
	ok      func(string) bool
	message string
}

func containsRune(pred func(rune) bool) func(string) bool {
	return func(s string) bool { return strings.IndexFunc(s, pred) >= 0 }
}

var passwordRules = []passwordRule{
	{func(s string) bool { return utf8.RuneCountInString(s) >= MinPasswordLength }, "password must be at least 6 characters"},
	{containsRune(unicode.IsUpper), "password must contain at least 1 uppercase letter"},
	{containsRune(unicode.IsLower), "password must contain at least 1 lowercase letter"},
	{containsRune(unicode.IsDigit), "password must contain at least 1 digit"},
}

// ValidatePassword checks password against every rule and reports all
// failures at once.
func ValidatePassword(password string) error {
	var broken []string
	for _, rule := range passwordRules {
		if !rule.ok(password) {
			broken = append(broken, rule.message)
		}
	}
	if broken != nil {
		return &PasswordValidationError{Messages: broken}
	}
	return nil
}
