package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog"

	"github.com/rcastellanos/climawatch/internal/pipeline"
	"github.com/rcastellanos/climawatch/internal/weather"
)

// Scheduler drives the periodic ingest jobs: the imagery pipeline plus
// current weather on one cadence, forecasts on another.
type Scheduler struct {
	cron       *gocron.Scheduler
	pipeline   *pipeline.Pipeline
	weather    *weather.Service
	runTimeout time.Duration
	log        zerolog.Logger
}

// New creates a Scheduler. runTimeout bounds each batch run.
func New(p *pipeline.Pipeline, w *weather.Service, runTimeout time.Duration, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:       gocron.NewScheduler(time.UTC),
		pipeline:   p,
		weather:    w,
		runTimeout: runTimeout,
		log:        log,
	}
}

// Start registers the jobs and launches them in the background. Both jobs
// run once immediately so a fresh deployment has data without waiting a
// full interval.
func (s *Scheduler) Start(fetchEvery, forecastEvery time.Duration) error {
	if _, err := s.cron.Every(fetchEvery).StartImmediately().Do(s.runBatch); err != nil {
		return err
	}
	if _, err := s.cron.Every(forecastEvery).StartImmediately().Do(s.runForecast); err != nil {
		return err
	}

	s.cron.StartAsync()
	s.log.Info().
		Dur("fetch_interval", fetchEvery).
		Dur("forecast_interval", forecastEvery).
		Msg("scheduler started")
	return nil
}

// Stop blocks until running jobs finish.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	s.log.Info().Msg("scheduler stopped")
}

func (s *Scheduler) runBatch() {
	ctx, cancel := context.WithTimeout(context.Background(), s.runTimeout)
	defer cancel()

	s.weather.IngestCurrent(ctx)
	s.pipeline.Run(ctx)
}

func (s *Scheduler) runForecast() {
	ctx, cancel := context.WithTimeout(context.Background(), s.runTimeout)
	defer cancel()

	s.weather.IngestForecasts(ctx)
}
