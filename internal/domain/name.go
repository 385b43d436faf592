package domain

import "fmt"

// MaxNameLength bounds document ids, document types and tenant ids.
const MaxNameLength = 256

// ValidateName checks that s is a usable identifier: 1..256 characters of
// [a-zA-Z0-9_.-]. what names the value in the error.
func ValidateName(what, s string) error {
	if s == "" {
		return fmt.Errorf("%s is required: %w", what, ErrInvalidRequest)
	}
	if len(s) > MaxNameLength {
		return fmt.Errorf("%s too long (max %d chars): %w", what, MaxNameLength, ErrInvalidRequest)
	}
	for _, r := range s {
		isAlpha := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		isDigit := r >= '0' && r <= '9'
		isSpecial := r == '_' || r == '.' || r == '-'
		if !isAlpha && !isDigit && !isSpecial {
			return fmt.Errorf("%s %q contains invalid characters: %w", what, s, ErrInvalidRequest)
		}
	}
	return nil
}
