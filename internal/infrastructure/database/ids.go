package database

import (
	"time"

	"github.com/google/uuid"
)

// NewID returns a prefixed random identifier such as "dev-6f1c...".
func NewID(prefix string) string {
	return prefix + "-" + uuid.NewString()
}

// Now returns the current time in UTC, the form every timestamp column
// is written in.
func Now() time.Time {
	return time.Now().UTC()
}
