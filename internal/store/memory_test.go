package store

import (
	"errors"
	"testing"
	"time"

	"github.com/rcastellanos/climawatch/internal/weather"
)

func obsAt(code string, at time.Time, temp float64) weather.Observation {
	return weather.Observation{
		CityCode:     code,
		At:           at,
		TemperatureC: temp,
	}
}

// TestLatestObservation verifies that the newest observation wins
// regardless of insertion order.
func TestLatestObservation(t *testing.T) {
	s := NewMemoryStore(10, 0)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	s.SaveObservation(obsAt("GUA", base.Add(time.Hour), 24))
	s.SaveObservation(obsAt("GUA", base, 21))

	got, err := s.LatestObservation("GUA")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.TemperatureC != 24 {
		t.Fatalf("expected latest observation (24C), got %.1f", got.TemperatureC)
	}
}

// TestLatestObservationNotFound verifies the not-found sentinel for
// unknown cities.
func TestLatestObservationNotFound(t *testing.T) {
	s := NewMemoryStore(10, 0)

	if _, err := s.LatestObservation("XXX"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// TestHistoryCountRetention verifies that only maxHistory observations
// survive per city, keeping the newest.
func TestHistoryCountRetention(t *testing.T) {
	s := NewMemoryStore(3, 0)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		s.SaveObservation(obsAt("GUA", base.Add(time.Duration(i)*time.Hour), float64(20+i)))
	}

	got, err := s.ObservationRange("GUA", base, base.Add(10*time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 retained observations, got %d", len(got))
	}
	if got[0].TemperatureC != 22 || got[2].TemperatureC != 24 {
		t.Fatalf("expected newest three in order, got %+v", got)
	}
}

// TestHistoryAgeRetention verifies that observations older than maxAge
// are dropped on the next save.
func TestHistoryAgeRetention(t *testing.T) {
	s := NewMemoryStore(0, 6*time.Hour)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.SetClock(func() time.Time { return base })

	s.SaveObservation(obsAt("GUA", base.Add(-8*time.Hour), 18))
	s.SaveObservation(obsAt("GUA", base.Add(-1*time.Hour), 23))

	got, err := s.ObservationRange("GUA", base.Add(-24*time.Hour), base)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].TemperatureC != 23 {
		t.Fatalf("expected only the recent observation, got %+v", got)
	}
}

// TestObservationRangeBounds verifies range filtering is inclusive of
// both endpoints.
func TestObservationRangeBounds(t *testing.T) {
	s := NewMemoryStore(10, 0)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 4; i++ {
		s.SaveObservation(obsAt("GUA", base.Add(time.Duration(i)*time.Hour), float64(i)))
	}

	got, err := s.ObservationRange("GUA", base.Add(time.Hour), base.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 observations in range, got %d", len(got))
	}
}

// TestForecastReplace verifies that saving a forecast replaces the
// previous one entirely.
func TestForecastReplace(t *testing.T) {
	s := NewMemoryStore(10, 0)

	s.SaveForecast("GUA", []weather.ForecastEntry{{CityCode: "GUA", Phrase: "old"}})
	s.SaveForecast("GUA", []weather.ForecastEntry{
		{CityCode: "GUA", Phrase: "sunny"},
		{CityCode: "GUA", Phrase: "cloudy"},
	})

	got, err := s.LatestForecast("GUA")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0].Phrase != "sunny" {
		t.Fatalf("expected replaced forecast, got %+v", got)
	}
}

// TestForecastNotFound verifies the not-found sentinel when no forecast
// was stored.
func TestForecastNotFound(t *testing.T) {
	s := NewMemoryStore(10, 0)

	if _, err := s.LatestForecast("GUA"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// TestAcquireRun verifies the window lock: the first claim wins, a
// duplicate claim for the same window loses, and a new window resets.
func TestAcquireRun(t *testing.T) {
	s := NewMemoryStore(10, 0)
	window := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	if !s.AcquireRun("forecast", window) {
		t.Fatal("expected first claim to succeed")
	}
	if s.AcquireRun("forecast", window) {
		t.Fatal("expected duplicate claim to fail")
	}
	if !s.AcquireRun("forecast", window.Add(time.Hour)) {
		t.Fatal("expected claim for a new window to succeed")
	}
	if !s.AcquireRun("weather", window) {
		t.Fatal("expected claim for a different job to succeed")
	}
}
