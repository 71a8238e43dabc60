package main

import (
	"context"
	"log"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpapi "github.com/rcastellanos/climawatch/internal/api/http"
	"github.com/rcastellanos/climawatch/internal/animation"
	"github.com/rcastellanos/climawatch/internal/artifact"
	"github.com/rcastellanos/climawatch/internal/cities"
	"github.com/rcastellanos/climawatch/internal/config"
	"github.com/rcastellanos/climawatch/internal/imagery"
	"github.com/rcastellanos/climawatch/internal/pipeline"
	"github.com/rcastellanos/climawatch/internal/scheduler"
	"github.com/rcastellanos/climawatch/internal/store"
	"github.com/rcastellanos/climawatch/internal/weather"
	"github.com/rcastellanos/climawatch/internal/weather/providers"
	"github.com/rcastellanos/climawatch/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logg := logger.Init(logger.Options{
		Level:  cfg.LogLevel,
		Pretty: cfg.LogPretty,
	})

	// Prometheus metrics on a dedicated listener so scrapes never mix
	// with the public API.
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(":"+cfg.MetricsPort, mux); err != nil {
			logg.Error().Err(err).Msg("metrics listener stopped")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Outbound clients. The imagery page is small but the upstream can be
	// slow to connect; full-size satellite downloads need a longer read
	// budget. Each pair sets a connect deadline plus a total deadline.
	pageClient := newHTTPClient(10*time.Second, 30*time.Second)
	imageClient := newHTTPClient(15*time.Second, 45*time.Second)

	artifacts, err := artifact.New(ctx, artifact.Config{
		Backend:   cfg.StoreBackend,
		Endpoint:  cfg.MinioEndpoint,
		Bucket:    cfg.MinioBucket,
		AccessKey: cfg.MinioAccessKey,
		SecretKey: cfg.MinioSecretKey,
		UseSSL:    cfg.MinioUseSSL,
	})
	if err != nil {
		logg.Fatal().Err(err).Msg("failed to initialize artifact store")
	}

	directory := cities.NewStaticDirectory(cfg.Cities)

	fetcher := imagery.NewFetcher(pageClient, imageClient, cfg.ImageryBaseURL, cfg.Satellite, cfg.Palette)
	compositor := imagery.NewCompositor(imageClient, cfg.IconURL, logg)
	builder := animation.NewBuilder(artifacts, cfg.AnimationFrames, cfg.FrameDelay, cfg.MaxFrameSide, logg)

	pipe := pipeline.New(directory, fetcher, compositor, artifacts, builder, pipeline.Config{
		Workers:     cfg.PipelineWorkers,
		CityTimeout: cfg.CityTimeout,
		Policy:      cfg.RebuildPolicy,
	}, logg)

	memStore := store.NewMemoryStore(cfg.StoreMaxHistory, cfg.StoreMaxAge)

	var current weather.Provider
	if cfg.OpenWeatherAPIKey != "" {
		current = providers.NewOpenWeatherProvider(pageClient, cfg.OpenWeatherAPIKey)
	}
	var forecast weather.ForecastProvider
	if cfg.MapsAPIKey != "" {
		forecast = providers.NewAtlasForecastProvider(pageClient, cfg.MapsAPIKey)
	}

	service := weather.NewService(memStore, current, forecast, directory, logg)

	sched := scheduler.New(pipe, service, cfg.RunTimeout, logg)
	if err := sched.Start(cfg.FetchInterval, cfg.ForecastInterval); err != nil {
		logg.Fatal().Err(err).Msg("failed to start scheduler")
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               "climawatch",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	app.Use(fiberlogger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "climawatch",
		})
	})

	httpapi.RegisterRoutes(app, service, artifacts)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			logg.Error().Err(err).Msg("fiber server stopped")
		}
	}()
	logg.Info().Str("port", cfg.Port).Msg("climawatch started")

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logg.Error().Err(err).Msg("error during shutdown")
	}
}

func newHTTPClient(connectTimeout, totalTimeout time.Duration) *http.Client {
	dialer := &net.Dialer{Timeout: connectTimeout}
	return &http.Client{
		Timeout: totalTimeout,
		Transport: &http.Transport{
			DialContext:         dialer.DialContext,
			TLSHandshakeTimeout: connectTimeout,
		},
	}
}
