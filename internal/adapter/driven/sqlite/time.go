package sqlite

import (
	"fmt"
	"time"
)

// sqliteTimeFormat matches SQLite's CURRENT_TIMESTAMP output. All stored
// timestamps are UTC.
const sqliteTimeFormat = "2006-01-02 15:04:05"

// formatTime renders a timestamp for storage.
func formatTime(t time.Time) string {
	return t.UTC().Format(sqliteTimeFormat)
}

// parseTime reads a stored timestamp, accepting both the CURRENT_TIMESTAMP
// format and RFC3339 for robustness.
func parseTime(s string) (time.Time, error) {
	if t, err := time.ParseInLocation(sqliteTimeFormat, s, time.UTC); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
