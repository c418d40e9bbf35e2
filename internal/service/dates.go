package service

import (
	"strings"
	"time"
)

// calendar day layouts accepted for FAD dates and search, day-first like the source sheets
var dayLayouts = []string{"2006-01-02", "2006/01/02", "02/01/2006", "02-01-2006", "2/1/2006", "2-1-2006"}

var monthLayouts = []string{"2006-01", "2006/01", "01/2006", "01-2006", "1/2006", "1-2006"}

// parseDay parses a calendar day in loc
func parseDay(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dayLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// searchRange interprets a search string as a day or a month and returns its inclusive bounds
func searchRange(s string, loc *time.Location) (time.Time, time.Time, bool) {
	if day, ok := parseDay(s, loc); ok {
		return day, day.AddDate(0, 0, 1).Add(-time.Nanosecond), true
	}
	s = strings.TrimSpace(s)
	for _, layout := range monthLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, t.AddDate(0, 1, 0).Add(-time.Nanosecond), true
		}
	}
	return time.Time{}, time.Time{}, false
}

// parseDateValue accepts RFC3339 timestamps or a calendar day. Empty input yields nil.
func parseDateValue(s string, loc *time.Location) (*time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, true
	}
	if t, ok := parseDay(s, loc); ok {
		return &t, true
	}
	return nil, false
}

// dayBounds returns the start of from's day and the last instant of to's day
func dayBounds(from, to string, loc *time.Location) (*time.Time, *time.Time, error) {
	var start, end *time.Time
	if from != "" {
		t, ok := parseDay(from, loc)
		if !ok {
			return nil, nil, validationf("from must be a date")
		}
		start = &t
	}
	if to != "" {
		t, ok := parseDay(to, loc)
		if !ok {
			return nil, nil, validationf("to must be a date")
		}
		t = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
		end = &t
	}
	return start, end, nil
}
