package core

import (
	"strings"
	"time"
)

// NowFunc returns the current time. Mockable in tests.
var NowFunc = time.Now

// Now returns NowFunc() in UTC.
func Now() time.Time {
	return NowFunc().UTC()
}

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// CleanUpper trims `s` and upper-cases it. Used for course codes and student/staff IDs.
func CleanUpper(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
