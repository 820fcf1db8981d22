package refs

import (
	"regexp"
	"strings"
)

var (
	nonAlnum  = regexp.MustCompile(`[^\p{L}\p{N}]+`)
	multiDash = regexp.MustCompile(`-{2,}`)
)

// Slug normalizes a user-supplied value into a filesystem/ID-safe token.
// Empty or fully non-alphanumeric input becomes "unknown".
func Slug(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	value = nonAlnum.ReplaceAllString(value, "-")
	value = strings.Trim(multiDash.ReplaceAllString(value, "-"), "-")
	if value == "" {
		return "unknown"
	}
	return value
}

// DedupeLines splits raw text into trimmed, de-duplicated non-empty lines,
// preserving first-seen order. Used for pasted URL lists.
func DedupeLines(raw string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, line := range strings.Split(raw, "\n") {
		v := strings.TrimSpace(line)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
