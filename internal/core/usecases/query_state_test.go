package usecases_test

import (
	"testing"
	"time"

	"github.com/samirrijal/isoview/internal/core/domain"
	"github.com/samirrijal/isoview/internal/core/usecases"
)

func TestParseCutoffs(t *testing.T) {
	tests := []struct {
		raw  string
		want []string
	}{
		{" 15m , 30m", []string{"15m", "30m"}},
		{"15m,30m,45m", []string{"15m", "30m", "45m"}},
		{"1h", []string{"1h"}},
		{"15m,,30m, ", []string{"15m", "30m"}},
		{"", []string{}},
		{"banana", []string{"banana"}},
	}
	for _, tt := range tests {
		got := usecases.ParseCutoffs(tt.raw)
		if len(got) != len(tt.want) {
			t.Errorf("ParseCutoffs(%q) = %q, want %q", tt.raw, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("ParseCutoffs(%q)[%d] = %q, want %q", tt.raw, i, got[i], tt.want[i])
			}
		}
	}
}

func TestParseTime(t *testing.T) {
	tests := []struct {
		raw  string
		want time.Time
		ok   bool
	}{
		{"2024-05-06T08:30", time.Date(2024, 5, 6, 8, 30, 0, 0, time.UTC), true},
		{"2024-05-06T08:30:15", time.Date(2024, 5, 6, 8, 30, 15, 0, time.UTC), true},
		{"2024-05-06", time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC), true},
		{"2024-05-06T10:30:00+02:00", time.Date(2024, 5, 6, 8, 30, 0, 0, time.UTC), true},
		{" 2024-05-06T08:30 ", time.Date(2024, 5, 6, 8, 30, 0, 0, time.UTC), true},
		{"", time.Time{}, false},
		{"yesterday", time.Time{}, false},
		{"2024-02-30T10:00", time.Time{}, false},
	}
	for _, tt := range tests {
		got, ok := usecases.ParseTime(tt.raw)
		if ok != tt.ok {
			t.Errorf("ParseTime(%q) ok = %v, want %v", tt.raw, ok, tt.ok)
			continue
		}
		if ok && !got.Equal(tt.want) {
			t.Errorf("ParseTime(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func TestQueryState_SetTime(t *testing.T) {
	start := time.Date(2024, 5, 6, 8, 30, 0, 0, time.UTC)
	s := usecases.NewQueryState(bilbao, start, "15m")

	if applied, changed := s.SetTime("not a time"); applied || changed {
		t.Errorf("invalid input applied=%v changed=%v", applied, changed)
	}
	if !s.Time().Equal(start) {
		t.Errorf("time changed on invalid input: %v", s.Time())
	}

	if applied, changed := s.SetTime("2024-05-06T08:30"); !applied || changed {
		t.Errorf("same instant: applied=%v changed=%v", applied, changed)
	}
	if applied, changed := s.SetTime("2024-05-06T09:00"); !applied || !changed {
		t.Errorf("new instant: applied=%v changed=%v", applied, changed)
	}
}

func TestQueryState_Query(t *testing.T) {
	s := usecases.NewQueryState(bilbao, time.Date(2024, 5, 6, 8, 30, 0, 0, time.UTC), "15m, 30m")
	if s.SetCutoffText("15m, 30m") {
		t.Error("identical cutoff text reported as changed")
	}
	if !s.SetLocation(domain.Coordinate{Lng: -2.9, Lat: 43.2}) {
		t.Error("new location not reported as changed")
	}

	q := s.Query()
	if q.Location.LatLng() != "43.2,-2.9" {
		t.Errorf("unexpected location %s", q.Location.LatLng())
	}
	if q.FormattedTime() != "2024-05-06T08:30:00.000Z" {
		t.Errorf("unexpected time %s", q.FormattedTime())
	}
	if len(q.Cutoffs) != 2 || q.Cutoffs[1] != "30m" {
		t.Errorf("unexpected cutoffs %q", q.Cutoffs)
	}
	if s.CutoffText() != "15m, 30m" {
		t.Errorf("cutoff text must be stored verbatim, got %q", s.CutoffText())
	}
}
