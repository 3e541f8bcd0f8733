package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ActiveHours is a daily reply window in minutes since midnight
type ActiveHours struct {
	Start int
	End   int
}

// ParseClock parses "HH:MM" (hour may be a single digit) into minutes since midnight
func ParseClock(s string) (int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid clock %q: want HH:MM", s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	if len(parts[1]) != 2 {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	return hour*60 + minute, nil
}

// ParseActiveHours parses a start/end pair
func ParseActiveHours(start, end string) (ActiveHours, error) {
	s, err := ParseClock(start)
	if err != nil {
		return ActiveHours{}, err
	}
	e, err := ParseClock(end)
	if err != nil {
		return ActiveHours{}, err
	}
	return ActiveHours{Start: s, End: e}, nil
}

// Contains reports whether t falls inside the window, both ends inclusive.
// A window whose end is before its start wraps past midnight.
func (h ActiveHours) Contains(t time.Time) bool {
	current := t.Hour()*60 + t.Minute()
	if h.End < h.Start {
		return current >= h.Start || current <= h.End
	}
	return current >= h.Start && current <= h.End
}

// WithinActiveHours checks t against a configured window. Any parse failure
// leaves the window open.
func WithinActiveHours(start, end string, t time.Time) bool {
	h, err := ParseActiveHours(start, end)
	if err != nil {
		return true
	}
	return h.Contains(t)
}
