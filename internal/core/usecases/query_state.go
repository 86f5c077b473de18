package usecases

import (
	"strings"
	"time"

	"github.com/samirrijal/isoview/internal/core/domain"
)

// timeLayouts are the date-time forms accepted from user input, tried in order.
// Zone-less forms are read as UTC.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseTime parses a user-entered date-time.
func ParseTime(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseCutoffs splits raw cutoff text on commas and trims each token.
// Tokens are not validated; empty tokens are dropped.
func ParseCutoffs(raw string) []string {
	parts := strings.Split(raw, ",")
	cutoffs := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			cutoffs = append(cutoffs, p)
		}
	}
	return cutoffs
}

// QueryState holds the user-settable query fields. It is not safe for
// concurrent use; ViewController guards it.
type QueryState struct {
	location   domain.Coordinate
	time       time.Time
	cutoffText string
}

// NewQueryState returns a state with the given initial values.
func NewQueryState(location domain.Coordinate, t time.Time, cutoffText string) QueryState {
	return QueryState{location: location, time: t, cutoffText: cutoffText}
}

// SetLocation stores c and reports whether the value changed.
func (s *QueryState) SetLocation(c domain.Coordinate) bool {
	if s.location == c {
		return false
	}
	s.location = c
	return true
}

// SetTime applies raw only if it parses as a date-time. It reports whether
// the input was applied and whether the stored value changed.
func (s *QueryState) SetTime(raw string) (applied, changed bool) {
	t, ok := ParseTime(raw)
	if !ok {
		return false, false
	}
	return true, s.SetTimeValue(t)
}

// SetTimeValue stores t and reports whether the instant changed.
func (s *QueryState) SetTimeValue(t time.Time) bool {
	if s.time.Equal(t) {
		return false
	}
	s.time = t
	return true
}

// SetCutoffText stores raw verbatim and reports whether it changed.
func (s *QueryState) SetCutoffText(raw string) bool {
	if s.cutoffText == raw {
		return false
	}
	s.cutoffText = raw
	return true
}

func (s *QueryState) Location() domain.Coordinate { return s.location }
func (s *QueryState) Time() time.Time             { return s.time }
func (s *QueryState) CutoffText() string          { return s.cutoffText }

// Cutoffs returns the parsed cutoff list.
func (s *QueryState) Cutoffs() []string {
	return ParseCutoffs(s.cutoffText)
}

// Query builds the fetch key from the current values.
func (s *QueryState) Query() domain.IsochroneQuery {
	return domain.IsochroneQuery{
		Location: s.location,
		Time:     s.time,
		Cutoffs:  s.Cutoffs(),
	}
}
