package device

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Validation limits.
const (
	maxNameLength     = 100
	maxSequenceLength = 12
)

// sequenceRegex matches a tap pattern: 1 is a long tap, 0 a short one.
var sequenceRegex = regexp.MustCompile(`^[01]{1,12}$`)

// NormalizeName trims name and checks its length in characters.
// It returns the trimmed name.
func NormalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: cannot be empty", ErrInvalidName)
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return "", fmt.Errorf("%w: exceeds %d characters", ErrInvalidName, maxNameLength)
	}
	return name, nil
}

// ValidateSequence checks a tap sequence.
func ValidateSequence(seq string) error {
	if !sequenceRegex.MatchString(seq) {
		return fmt.Errorf("%w: must be 1-%d characters of 0 and 1", ErrInvalidSequence, maxSequenceLength)
	}
	return nil
}
