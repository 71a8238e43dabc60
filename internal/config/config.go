package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/rcastellanos/climawatch/internal/cities"
	"github.com/rcastellanos/climawatch/internal/pipeline"
)

type AppConfig struct {
	Port        string
	MetricsPort string
	LogLevel    string
	LogPretty   bool

	OpenWeatherAPIKey string
	MapsAPIKey        string

	// FetchInterval controls how often the weather/imagery batch runs.
	FetchInterval time.Duration
	// ForecastInterval controls how often the quarter-day forecast job runs.
	ForecastInterval time.Duration

	// Cities to track.
	Cities []cities.City

	// Imagery source.
	ImageryBaseURL string
	Satellite      string
	Palette        string
	IconURL        string

	// Animation tuning.
	AnimationFrames int           // frame window size
	FrameDelay      time.Duration // inter-frame delay
	MaxFrameSide    int           // downscale ceiling in px
	RebuildPolicy   pipeline.RebuildPolicy

	// Pipeline bounds.
	PipelineWorkers int
	CityTimeout     time.Duration
	RunTimeout      time.Duration

	// Object store.
	StoreBackend   string // "minio" or "memory"
	MinioEndpoint  string
	MinioBucket    string
	MinioAccessKey string
	MinioSecretKey string
	MinioUseSSL    bool

	// In-memory weather store retention.
	StoreMaxHistory int
	StoreMaxAge     time.Duration
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	// A missing .env file is fine; deployments inject the environment directly.
	_ = godotenv.Load()

	cfg := &AppConfig{}

	cfg.Port = getenvDefault("PORT", "8080")
	cfg.MetricsPort = getenvDefault("METRICS_PORT", "9090")
	cfg.LogLevel = getenvDefault("LOG_LEVEL", "info")
	cfg.LogPretty = getenvBool("LOG_PRETTY", false)

	cfg.OpenWeatherAPIKey = os.Getenv("OPENWEATHER_API_KEY")
	cfg.MapsAPIKey = os.Getenv("MAPS_API_KEY")

	var err error
	if cfg.FetchInterval, err = getenvDuration("FETCH_INTERVAL", 15*time.Minute); err != nil {
		return nil, err
	}
	if cfg.ForecastInterval, err = getenvDuration("FORECAST_INTERVAL", 12*time.Hour); err != nil {
		return nil, err
	}

	cfg.ImageryBaseURL = getenvDefault("IMAGERY_BASE_URL", "https://weather.ndc.nasa.gov")
	cfg.Satellite = getenvDefault("IMAGERY_SATELLITE", "GOESEastfullDiskband13")
	cfg.Palette = getenvDefault("IMAGERY_PALETTE", "ir2.pal")
	cfg.IconURL = os.Getenv("MARKER_ICON_URL")

	cfg.AnimationFrames = getenvInt("ANIMATION_FRAMES", 10)
	if cfg.FrameDelay, err = getenvDuration("ANIMATION_FRAME_DELAY", 400*time.Millisecond); err != nil {
		return nil, err
	}
	cfg.MaxFrameSide = getenvInt("ANIMATION_MAX_FRAME_SIDE", 600)

	switch policy := getenvDefault("ANIMATION_REBUILD_POLICY", "always"); policy {
	case "always":
		cfg.RebuildPolicy = pipeline.RebuildAlways
	case "hourly":
		cfg.RebuildPolicy = pipeline.RebuildHourly
	default:
		return nil, fmt.Errorf("invalid ANIMATION_REBUILD_POLICY %q (want always or hourly)", policy)
	}

	cfg.PipelineWorkers = getenvInt("PIPELINE_WORKERS", 4)
	if cfg.CityTimeout, err = getenvDuration("CITY_TIMEOUT", 2*time.Minute); err != nil {
		return nil, err
	}
	if cfg.RunTimeout, err = getenvDuration("RUN_TIMEOUT", 10*time.Minute); err != nil {
		return nil, err
	}

	cfg.StoreBackend = getenvDefault("STORE_BACKEND", "minio")
	cfg.MinioEndpoint = getenvDefault("MINIO_ENDPOINT", "localhost:9000")
	cfg.MinioBucket = getenvDefault("MINIO_BUCKET", "mapimages")
	cfg.MinioAccessKey = os.Getenv("MINIO_ACCESS_KEY")
	cfg.MinioSecretKey = os.Getenv("MINIO_SECRET_KEY")
	cfg.MinioUseSSL = getenvBool("MINIO_USE_SSL", false)

	cfg.StoreMaxHistory = getenvInt("STORE_MAX_HISTORY", 96)
	if cfg.StoreMaxAge, err = getenvDuration("STORE_MAX_AGE", 24*time.Hour); err != nil {
		return nil, err
	}

	list, err := parseCities(os.Getenv("CITIES"))
	if err != nil {
		return nil, err
	}
	cfg.Cities = list

	return cfg, nil
}

// parseCities parses "CODE:Name:lat:lon" entries separated by semicolons,
// e.g. "GUA:Guatemala City:14.63:-90.51;QEZ:Quetzaltenango:14.84:-91.52".
func parseCities(raw string) ([]cities.City, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	var list []cities.City
	for _, entry := range strings.Split(raw, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		parts := strings.Split(entry, ":")
		if len(parts) != 4 {
			return nil, fmt.Errorf("invalid city entry %q, expected CODE:Name:lat:lon", entry)
		}

		lat, err := strconv.ParseFloat(strings.TrimSpace(parts[2]), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid latitude in city entry %q: %w", entry, err)
		}
		lon, err := strconv.ParseFloat(strings.TrimSpace(parts[3]), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid longitude in city entry %q: %w", entry, err)
		}

		list = append(list, cities.City{
			Code: strings.TrimSpace(parts[0]),
			Name: strings.TrimSpace(parts[1]),
			Lat:  lat,
			Lon:  lon,
		})
	}

	return list, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
