package weather_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/rcastellanos/climawatch/internal/cities"
	"github.com/rcastellanos/climawatch/internal/store"
	"github.com/rcastellanos/climawatch/internal/weather"
)

type fakeProvider struct {
	fn func(city cities.City) (weather.Observation, error)
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Current(_ context.Context, city cities.City) (weather.Observation, error) {
	return f.fn(city)
}

type fakeForecastProvider struct {
	calls int
	fn    func(city cities.City) ([]weather.ForecastEntry, error)
}

func (f *fakeForecastProvider) Name() string { return "fake-forecast" }

func (f *fakeForecastProvider) QuarterDay(_ context.Context, city cities.City) ([]weather.ForecastEntry, error) {
	f.calls++
	return f.fn(city)
}

func testCities() []cities.City {
	return []cities.City{
		{Code: "GUA", Name: "Guatemala City", Lat: 14.63, Lon: -90.51},
		{Code: "QEZ", Name: "Quetzaltenango", Lat: 14.84, Lon: -91.52},
	}
}

// TestIngestCurrentIsolation verifies that one city's provider failure
// does not prevent the other city's observation from being stored.
func TestIngestCurrentIsolation(t *testing.T) {
	memStore := store.NewMemoryStore(10, 0)
	provider := &fakeProvider{fn: func(city cities.City) (weather.Observation, error) {
		if city.Code == "QEZ" {
			return weather.Observation{}, errors.New("provider exploded")
		}
		return weather.Observation{CityCode: city.Code, At: time.Now(), TemperatureC: 25}, nil
	}}

	svc := weather.NewService(memStore, provider, nil, cities.NewStaticDirectory(testCities()), zerolog.Nop())

	summary := svc.IngestCurrent(context.Background())
	if summary.Total != 2 || summary.Succeeded != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if len(summary.Failed) != 1 || summary.Failed[0] != "QEZ" {
		t.Fatalf("expected QEZ to fail, got %v", summary.Failed)
	}

	if _, err := svc.Latest("GUA"); err != nil {
		t.Fatalf("expected stored observation for GUA: %v", err)
	}
	if _, err := svc.Latest("QEZ"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected no observation for QEZ, got %v", err)
	}
}

// TestIngestForecastsStores verifies a successful forecast run stores
// entries retrievable per city.
func TestIngestForecastsStores(t *testing.T) {
	memStore := store.NewMemoryStore(10, 0)
	provider := &fakeForecastProvider{fn: func(city cities.City) ([]weather.ForecastEntry, error) {
		return []weather.ForecastEntry{
			{CityCode: city.Code, Phrase: "sunny"},
			{CityCode: city.Code, Phrase: "cloudy"},
		}, nil
	}}

	svc := weather.NewService(memStore, nil, provider, cities.NewStaticDirectory(testCities()), zerolog.Nop())

	summary := svc.IngestForecasts(context.Background())
	if summary.Total != 2 || summary.Succeeded != 2 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	entries, err := svc.Forecast("GUA")
	if err != nil {
		t.Fatalf("expected stored forecast: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 forecast entries, got %d", len(entries))
	}
}

// TestIngestForecastsWindowDedup verifies that a duplicate trigger within
// the same hour window skips the provider entirely.
func TestIngestForecastsWindowDedup(t *testing.T) {
	memStore := store.NewMemoryStore(10, 0)
	provider := &fakeForecastProvider{fn: func(city cities.City) ([]weather.ForecastEntry, error) {
		return []weather.ForecastEntry{{CityCode: city.Code}}, nil
	}}

	svc := weather.NewService(memStore, nil, provider, cities.NewStaticDirectory(testCities()), zerolog.Nop())
	at := time.Date(2026, 3, 1, 12, 15, 0, 0, time.UTC)
	svc.SetClock(func() time.Time { return at })

	first := svc.IngestForecasts(context.Background())
	if first.Succeeded != 2 {
		t.Fatalf("unexpected first summary: %+v", first)
	}

	second := svc.IngestForecasts(context.Background())
	if second.Total != 0 || second.Succeeded != 0 {
		t.Fatalf("expected duplicate run to be a no-op, got %+v", second)
	}
	if provider.calls != 2 {
		t.Fatalf("expected 2 provider calls total, got %d", provider.calls)
	}

	// A later window runs again.
	svc.SetClock(func() time.Time { return at.Add(time.Hour) })
	third := svc.IngestForecasts(context.Background())
	if third.Succeeded != 2 {
		t.Fatalf("expected new window to run, got %+v", third)
	}
}

// TestIngestCurrentNoProvider verifies the service degrades to a no-op
// when no current-weather provider is configured.
func TestIngestCurrentNoProvider(t *testing.T) {
	memStore := store.NewMemoryStore(10, 0)
	svc := weather.NewService(memStore, nil, nil, cities.NewStaticDirectory(testCities()), zerolog.Nop())

	summary := svc.IngestCurrent(context.Background())
	if summary.Succeeded != 0 || len(summary.Failed) != 0 {
		t.Fatalf("expected a no-op summary, got %+v", summary)
	}
}
