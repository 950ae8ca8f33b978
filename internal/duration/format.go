// Package duration converts elapsed seconds to display text and parses
// user-entered estimates. Stored values are always exact seconds; the
// human-readable forms are intentionally lossy.
package duration

import (
	"fmt"
	"strconv"
	"strings"
)

// Clock renders seconds as HH:MM:SS. Hours are not capped at 24.
func Clock(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	secs := seconds % 60
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, secs)
}

// Human renders seconds in the coarsest useful unit: hours and minutes from
// one hour up, whole minutes from one minute up, seconds below that.
func Human(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	switch {
	case hours > 0:
		return plural(hours, "hour") + " " + plural(minutes, "minute")
	case minutes > 0:
		return plural(minutes, "minute")
	default:
		return plural(seconds, "second")
	}
}

// Compact is the short form used in list rows: 2h5m, 5m30s, 45s.
func Compact(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	secs := seconds % 60
	switch {
	case hours > 0:
		return fmt.Sprintf("%dh%dm", hours, minutes)
	case minutes > 0:
		return fmt.Sprintf("%dm%ds", minutes, secs)
	default:
		return fmt.Sprintf("%ds", secs)
	}
}

// ParseMinutes converts a minutes estimate typed by the user into seconds.
// Empty input means no estimate.
func ParseMinutes(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	minutes, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid minutes %q", raw)
	}
	if minutes < 0 {
		return 0, fmt.Errorf("minutes must not be negative, got %d", minutes)
	}
	return minutes * 60, nil
}

func plural(n int64, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
