// Package sqlutil holds small helpers shared by the SQL-backed stores.
package sqlutil

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// TimeLayout is the timestamp format persisted in reference rows.
const TimeLayout = "2006-01-02T15:04:05"

var tableNameRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// ValidTableName reports whether name is safe to interpolate into SQL.
func ValidTableName(name string) bool {
	return tableNameRe.MatchString(name)
}

// FormatTime renders t in the persisted layout, at second precision.
func FormatTime(t time.Time) string {
	return t.Format(TimeLayout)
}

// ParseTime parses a persisted timestamp, returning the zero time on
// malformed input rather than failing the whole row.
func ParseTime(s string) time.Time {
	t, err := time.ParseInLocation(TimeLayout, s, time.Local)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Placeholders returns "?, ?, ..." with n entries for IN clauses.
func Placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// ScoreOrNull converts free-text score input to an integer or NULL.
func ScoreOrNull(raw string) any {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return nil
	}
	return v
}

// IsUniqueViolation reports whether err is a unique-constraint failure.
// Matching on message text keeps this driver-agnostic for sqlite.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "constraint failed") && strings.Contains(msg, "2067")
}
