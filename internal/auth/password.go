package auth

import (
	"errors"
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var ErrWeakPassword = errors.New("weak password")

// PasswordError explains which rule a password broke.
type PasswordError struct {
	Reason string
}

func (e *PasswordError) Error() string { return e.Reason }

func (e *PasswordError) Unwrap() error { return ErrWeakPassword }

// ValidatePassword enforces the account password policy: at least eight
// characters with at least one letter and one digit.
func ValidatePassword(password string) error {
	if len([]rune(password)) < 8 {
		return &PasswordError{Reason: "La contraseña debe tener al menos 8 caracteres"}
	}
	// bcrypt only reads the first 72 bytes.
	if len(password) > 72 {
		return &PasswordError{Reason: "La contraseña es demasiado larga"}
	}
	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case r < unicode.MaxASCII && unicode.IsLetter(r):
			hasLetter = true
		case r >= '0' && r <= '9':
			hasDigit = true
		}
	}
	if !hasLetter {
		return &PasswordError{Reason: "La contraseña debe contener al menos una letra"}
	}
	if !hasDigit {
		return &PasswordError{Reason: "La contraseña debe contener al menos un número"}
	}
	return nil
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// NormalizeName folds a display name to the form used for uniqueness checks:
// lower case, accents stripped, only ASCII letters and digits kept.
func NormalizeName(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, strings.ToLower(name))
	if err != nil {
		folded = strings.ToLower(name)
	}
	var b strings.Builder
	for _, r := range folded {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
