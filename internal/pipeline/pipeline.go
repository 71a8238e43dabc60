// Package pipeline orchestrates the per-city satellite imagery run:
// fetch, composite, publish frame, and conditionally rebuild the rolling
// animation.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/rcastellanos/climawatch/internal/animation"
	"github.com/rcastellanos/climawatch/internal/artifact"
	"github.com/rcastellanos/climawatch/internal/cities"
	"github.com/rcastellanos/climawatch/internal/imagery"
	"github.com/rcastellanos/climawatch/internal/metrics"
)

// frameTimestampLayout formats the capture timestamp baked into frame keys.
// Second precision; collisions within a second overwrite, which is fine at
// the scheduling cadences this runs on.
const frameTimestampLayout = "20060102150405"

// RebuildPolicy decides when the animation is regenerated.
type RebuildPolicy string

const (
	// RebuildAlways regenerates the animation on every run.
	RebuildAlways RebuildPolicy = "always"
	// RebuildHourly regenerates only when the run lands on minute zero,
	// bounding re-encode cost under load.
	RebuildHourly RebuildPolicy = "hourly"
)

// Config bounds a pipeline run.
type Config struct {
	Workers     int           // concurrent cities; min 1
	CityTimeout time.Duration // per-city deadline
	Policy      RebuildPolicy
}

// Summary reports a run's outcome.
type Summary struct {
	Total     int
	Succeeded int
	Failed    []string // city codes
}

// Pipeline drives the imagery run over the tracked cities. Cities only
// ever touch keys under their own prefix, so they are processed by a
// bounded worker pool with no cross-city coordination.
type Pipeline struct {
	directory  cities.Directory
	fetcher    *imagery.Fetcher
	compositor *imagery.Compositor
	store      artifact.Store
	builder    *animation.Builder
	cfg        Config
	log        zerolog.Logger

	now func() time.Time
}

// New creates a Pipeline.
func New(
	directory cities.Directory,
	fetcher *imagery.Fetcher,
	compositor *imagery.Compositor,
	store artifact.Store,
	builder *animation.Builder,
	cfg Config,
	log zerolog.Logger,
) *Pipeline {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.Policy == "" {
		cfg.Policy = RebuildAlways
	}
	return &Pipeline{
		directory:  directory,
		fetcher:    fetcher,
		compositor: compositor,
		store:      store,
		builder:    builder,
		cfg:        cfg,
		log:        log,
		now:        time.Now,
	}
}

// Run processes every tracked city once. A city's failure never aborts
// the others; the summary carries success/failure counts for logging.
func (p *Pipeline) Run(ctx context.Context) Summary {
	start := p.now()
	defer func() {
		metrics.RunDuration.WithLabelValues("imagery").Observe(p.now().Sub(start).Seconds())
	}()

	list, err := p.directory.Cities(ctx)
	if err != nil {
		p.log.Error().Err(err).Msg("reading city directory failed")
		return Summary{}
	}

	summary := Summary{Total: len(list)}
	if len(list) == 0 {
		return summary
	}

	workers := p.cfg.Workers
	if len(list) < workers {
		workers = len(list)
	}

	jobs := make(chan cities.City, len(list))
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for city := range jobs {
				err := p.runCity(ctx, city)

				mu.Lock()
				if err != nil {
					summary.Failed = append(summary.Failed, city.Code)
					metrics.CitiesProcessed.WithLabelValues("imagery", "failure").Inc()
				} else {
					summary.Succeeded++
					metrics.CitiesProcessed.WithLabelValues("imagery", "success").Inc()
				}
				mu.Unlock()
			}
		}()
	}

	for _, city := range list {
		jobs <- city
	}
	close(jobs)
	wg.Wait()

	event := p.log.Info()
	if len(summary.Failed) > 0 {
		event = p.log.Warn().Strs("failed", summary.Failed)
	}
	event.
		Int("succeeded", summary.Succeeded).
		Int("total", summary.Total).
		Msg("imagery run completed")

	return summary
}

// runCity guards processCity against panics so one city can never take
// down the whole scheduled run.
func (p *Pipeline) runCity(ctx context.Context, city cities.City) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic processing %s: %v", city.Code, r)
			p.log.Error().Str("city", city.Code).Any("panic", r).Msg("city processing panicked")
		}
	}()
	return p.processCity(ctx, city)
}

func (p *Pipeline) processCity(ctx context.Context, city cities.City) error {
	ctx, cancel := context.WithTimeout(ctx, p.cityTimeout())
	defer cancel()

	log := p.log.With().Str("city", city.Code).Logger()

	raw, err := p.fetcher.Snapshot(ctx, city.Lat, city.Lon)
	if err != nil {
		metrics.StageErrors.WithLabelValues("fetch").Inc()
		log.Error().Err(err).Msg("snapshot fetch failed")
		return err
	}

	frame, err := p.compositor.Compose(ctx, raw)
	if err != nil {
		metrics.StageErrors.WithLabelValues("composite").Inc()
		log.Error().Err(err).Msg("compositing failed")
		return err
	}

	captured := p.now().UTC()
	key := fmt.Sprintf("%s/%s.jpg", city.Code, captured.Format(frameTimestampLayout))
	if err := p.store.Put(ctx, key, frame, "image/jpeg"); err != nil {
		metrics.StageErrors.WithLabelValues("upload").Inc()
		log.Error().Err(err).Str("key", key).Msg("frame upload failed")
		return err
	}
	metrics.FramesUploaded.Inc()
	log.Info().Str("key", key).Int("bytes", len(frame)).Msg("frame uploaded")

	if p.shouldRebuild(captured) {
		// The rebuild result is reported by the builder itself; an
		// unbuildable animation does not fail the city, the frame is
		// already published.
		p.builder.Rebuild(ctx, city.Code)
	}

	return nil
}

func (p *Pipeline) shouldRebuild(at time.Time) bool {
	switch p.cfg.Policy {
	case RebuildHourly:
		return at.Minute() == 0
	default:
		return true
	}
}

func (p *Pipeline) cityTimeout() time.Duration {
	if p.cfg.CityTimeout > 0 {
		return p.cfg.CityTimeout
	}
	return 2 * time.Minute
}

// SetClock overrides the pipeline's timestamp source. Intended for tests.
func (p *Pipeline) SetClock(now func() time.Time) {
	p.now = now
}
