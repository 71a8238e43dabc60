package weather

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/rcastellanos/climawatch/internal/cities"
	"github.com/rcastellanos/climawatch/internal/metrics"
)

// Summary reports an ingest run's outcome.
type Summary struct {
	Total     int
	Succeeded int
	Failed    []string // city codes
}

// Service runs the current-weather and forecast ingest jobs and answers
// read queries from the store.
type Service struct {
	store     Store
	current   Provider
	forecast  ForecastProvider
	directory cities.Directory
	log       zerolog.Logger

	now func() time.Time
}

// NewService creates a Service. current and forecast may be nil when the
// corresponding job is not configured.
func NewService(store Store, current Provider, forecast ForecastProvider, directory cities.Directory, log zerolog.Logger) *Service {
	return &Service{
		store:     store,
		current:   current,
		forecast:  forecast,
		directory: directory,
		log:       log,
		now:       time.Now,
	}
}

// IngestCurrent fetches and stores the current observation for every
// tracked city. A city's failure never aborts the others.
func (s *Service) IngestCurrent(ctx context.Context) Summary {
	start := s.now()
	defer func() {
		metrics.RunDuration.WithLabelValues("weather").Observe(s.now().Sub(start).Seconds())
	}()

	list, err := s.directory.Cities(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("reading city directory failed")
		return Summary{}
	}

	summary := Summary{Total: len(list)}
	if s.current == nil {
		s.log.Warn().Msg("no current-weather provider configured, skipping ingest")
		return summary
	}

	for _, city := range list {
		obs, err := s.current.Current(ctx, city)
		if err != nil {
			s.log.Error().Err(err).Str("city", city.Code).Str("provider", s.current.Name()).
				Msg("current-weather fetch failed")
			summary.Failed = append(summary.Failed, city.Code)
			metrics.CitiesProcessed.WithLabelValues("weather", "failure").Inc()
			metrics.StageErrors.WithLabelValues("weather").Inc()
			continue
		}

		s.store.SaveObservation(obs)
		summary.Succeeded++
		metrics.CitiesProcessed.WithLabelValues("weather", "success").Inc()
	}

	s.logSummary("weather ingest completed", summary)
	return summary
}

// IngestForecasts fetches and stores the quarter-day forecast for every
// tracked city. The schedule window is claimed first so a duplicate
// trigger within the same hour becomes a no-op.
func (s *Service) IngestForecasts(ctx context.Context) Summary {
	start := s.now()
	defer func() {
		metrics.RunDuration.WithLabelValues("forecast").Observe(s.now().Sub(start).Seconds())
	}()

	if s.forecast == nil {
		s.log.Warn().Msg("no forecast provider configured, skipping ingest")
		return Summary{}
	}

	window := s.now().UTC().Truncate(time.Hour)
	if !s.store.AcquireRun("forecast", window) {
		s.log.Warn().Time("window", window).Msg("forecast window already processed, skipping")
		return Summary{}
	}

	list, err := s.directory.Cities(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("reading city directory failed")
		return Summary{}
	}

	summary := Summary{Total: len(list)}
	for _, city := range list {
		entries, err := s.forecast.QuarterDay(ctx, city)
		if err != nil {
			s.log.Error().Err(err).Str("city", city.Code).Str("provider", s.forecast.Name()).
				Msg("forecast fetch failed")
			summary.Failed = append(summary.Failed, city.Code)
			metrics.CitiesProcessed.WithLabelValues("forecast", "failure").Inc()
			metrics.StageErrors.WithLabelValues("forecast").Inc()
			continue
		}

		s.store.SaveForecast(city.Code, entries)
		summary.Succeeded++
		metrics.CitiesProcessed.WithLabelValues("forecast", "success").Inc()
		s.log.Info().Str("city", city.Code).Int("entries", len(entries)).Msg("forecast stored")
	}

	s.logSummary("forecast ingest completed", summary)
	return summary
}

func (s *Service) logSummary(msg string, summary Summary) {
	event := s.log.Info()
	if len(summary.Failed) > 0 {
		event = s.log.Warn().Strs("failed", summary.Failed)
	}
	event.Int("succeeded", summary.Succeeded).Int("total", summary.Total).Msg(msg)
}

// Latest returns the most recent observation for a city code.
func (s *Service) Latest(code string) (Observation, error) {
	return s.store.LatestObservation(code)
}

// History returns stored observations for a city between from and to.
func (s *Service) History(code string, from, to time.Time) ([]Observation, error) {
	return s.store.ObservationRange(code, from, to)
}

// Forecast returns the latest stored forecast for a city code.
func (s *Service) Forecast(code string) ([]ForecastEntry, error) {
	return s.store.LatestForecast(code)
}

// Cities lists the tracked cities.
func (s *Service) Cities(ctx context.Context) ([]cities.City, error) {
	return s.directory.Cities(ctx)
}

// SetClock overrides the service's timestamp source. Intended for tests.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}
