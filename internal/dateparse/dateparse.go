// Package dateparse parses the --since arguments of the report commands
// into a point in time.
package dateparse

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseSince parses a since input string relative to the current time.
//
// Supported formats:
//   - Exact dates: "2026-03-09", "09.03.2026" (start of that day)
//   - Relative days: "3d" (start of the day three days ago)
//   - Relative weeks: "2w"
//   - Durations: "90m", "2h"
//   - Day names: "monday", "montag", ... (most recent occurrence, today included)
//   - Keywords: "today"/"heute", "yesterday"/"gestern"
func ParseSince(input string) (time.Time, error) {
	return ParseSinceFrom(input, time.Now())
}

// ParseSinceFrom parses a since input string relative to the given reference time.
// This variant enables deterministic testing with a fixed "now".
func ParseSinceFrom(input string, now time.Time) (time.Time, error) {
	input = strings.TrimSpace(strings.ToLower(input))
	if input == "" {
		return time.Time{}, fmt.Errorf("empty date input")
	}

	for _, layout := range []string{"2006-01-02", "02.01.2006"} {
		if t, err := time.ParseInLocation(layout, input, now.Location()); err == nil {
			return t, nil
		}
	}

	switch input {
	case "today", "heute":
		return startOfDay(now), nil
	case "yesterday", "gestern":
		return startOfDay(now.AddDate(0, 0, -1)), nil
	}

	// Relative offsets: Nd, Nw
	if len(input) >= 2 {
		unit := input[len(input)-1]
		if n, err := strconv.Atoi(strings.TrimPrefix(input[:len(input)-1], "-")); err == nil && n >= 0 {
			switch unit {
			case 'd':
				return startOfDay(now.AddDate(0, 0, -n)), nil
			case 'w':
				return startOfDay(now.AddDate(0, 0, -n*7)), nil
			}
		}
	}

	if d, err := time.ParseDuration(input); err == nil && d >= 0 {
		return now.Add(-d), nil
	}

	if target, ok := dayMap[input]; ok {
		daysBack := (int(now.Weekday()) - int(target) + 7) % 7
		return startOfDay(now.AddDate(0, 0, -daysBack)), nil
	}

	return time.Time{}, fmt.Errorf("unrecognized date format: %q", input)
}

var dayMap = map[string]time.Weekday{
	"sunday":     time.Sunday,
	"monday":     time.Monday,
	"tuesday":    time.Tuesday,
	"wednesday":  time.Wednesday,
	"thursday":   time.Thursday,
	"friday":     time.Friday,
	"saturday":   time.Saturday,
	"sonntag":    time.Sunday,
	"montag":     time.Monday,
	"dienstag":   time.Tuesday,
	"mittwoch":   time.Wednesday,
	"donnerstag": time.Thursday,
	"freitag":    time.Friday,
	"samstag":    time.Saturday,
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
