package weather

import (
	"context"
	"time"

	"github.com/rcastellanos/climawatch/internal/cities"
)

// Provider abstracts a current-weather data source.
type Provider interface {
	Name() string
	Current(ctx context.Context, city cities.City) (Observation, error)
}

// ForecastProvider abstracts a quarter-day forecast source.
type ForecastProvider interface {
	Name() string
	QuarterDay(ctx context.Context, city cities.City) ([]ForecastEntry, error)
}

// Store is the contract the observation store must satisfy.
type Store interface {
	SaveObservation(obs Observation)
	LatestObservation(code string) (Observation, error)
	ObservationRange(code string, from, to time.Time) ([]Observation, error)

	SaveForecast(code string, entries []ForecastEntry)
	LatestForecast(code string) ([]ForecastEntry, error)

	// AcquireRun claims the given schedule window for a job. It returns
	// false when the window was already claimed, so duplicate triggers
	// become no-ops.
	AcquireRun(job string, window time.Time) bool
}
