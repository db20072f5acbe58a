package variables

import "fmt"

// MaxKeyLength bounds variable keys so they stay usable as column and form names.
const MaxKeyLength = 64

// KeyValidation is the outcome of ValidateKey.
type KeyValidation struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

// ValidateKey checks that key is usable as a placeholder name: it must start
// with a letter and contain only letters, digits and underscores.
func ValidateKey(key string) KeyValidation {
	if key == "" {
		return KeyValidation{Reason: "key must not be empty"}
	}
	if len(key) > MaxKeyLength {
		return KeyValidation{Reason: fmt.Sprintf("key must be at most %d characters", MaxKeyLength)}
	}
	if !isLetter(key[0]) {
		return KeyValidation{Reason: "key must start with a letter"}
	}
	for i := 1; i < len(key); i++ {
		c := key[i]
		if !isLetter(c) && !isDigit(c) && c != '_' {
			return KeyValidation{Reason: fmt.Sprintf("invalid character %q at position %d: only letters, digits and underscores are allowed", c, i)}
		}
	}
	return KeyValidation{Valid: true}
}

func isLetter(c byte) bool { return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }
func isDigit(c byte) bool  { return c >= '0' && c <= '9' }
