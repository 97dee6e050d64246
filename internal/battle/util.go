package battle

import (
	"time"

	"github.com/google/uuid"
)

// nowUTC returns the current time in UTC, matching spec.md §6's
// "timestamps are RFC-3339 in UTC" wire convention.
func nowUTC() time.Time {
	return time.Now().UTC()
}

// parseMatchID parses a matching-id that this process itself generated
// via uuid.New(); a parse failure here would indicate memory
// corruption, not bad input, so the zero UUID is an acceptable fallback.
func parseMatchID(s string) uuid.UUID {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.UUID{}
	}
	return id
}
