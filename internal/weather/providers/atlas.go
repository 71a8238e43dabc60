package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rcastellanos/climawatch/internal/cities"
	"github.com/rcastellanos/climawatch/internal/weather"
)

// AtlasForecastProvider fetches quarter-day forecasts from the Azure Maps
// weather API.
type AtlasForecastProvider struct {
	name    string
	apiKey  string
	baseURL string
	http    *resilientClient
}

func NewAtlasForecastProvider(client *http.Client, apiKey string) *AtlasForecastProvider {
	return &AtlasForecastProvider{
		name:    "azure-maps",
		apiKey:  apiKey,
		baseURL: "https://atlas.microsoft.com/weather/forecast/quarterDay/json",
		http:    newResilientClient(client, "azure-maps"),
	}
}

func (p *AtlasForecastProvider) Name() string {
	return p.name
}

// valueUnit mirrors the API's {value, unit} wrappers. Only the value is
// kept; units are fixed by the metric request.
type valueUnit struct {
	Value float64 `json:"value"`
}

type atlasForecast struct {
	EffectiveDate string    `json:"effectiveDate"`
	Quarter       int       `json:"quarter"`
	IconPhrase    string    `json:"iconPhrase"`
	ShortPhrase   string    `json:"shortPhrase"`
	Temperature   struct {
		Minimum valueUnit `json:"minimum"`
		Maximum valueUnit `json:"maximum"`
		Value   float64   `json:"value"`
	} `json:"temperature"`
	RealFeelTemperature struct {
		Minimum *valueUnit `json:"minimum"`
		Maximum *valueUnit `json:"maximum"`
	} `json:"realFeelTemperature"`
	DewPoint         *valueUnit `json:"dewPoint"`
	RelativeHumidity float64    `json:"relativeHumidity"`
	Wind             struct {
		Direction struct {
			Degrees              *float64 `json:"degrees"`
			LocalizedDescription string   `json:"localizedDescription"`
		} `json:"direction"`
		Speed valueUnit `json:"speed"`
	} `json:"wind"`
	WindGust struct {
		Speed *valueUnit `json:"speed"`
	} `json:"windGust"`
	Visibility               *valueUnit `json:"visibility"`
	CloudCover               float64    `json:"cloudCover"`
	HasPrecipitation         bool       `json:"hasPrecipitation"`
	PrecipitationType        string     `json:"precipitationType"`
	PrecipitationIntensity   string     `json:"precipitationIntensity"`
	PrecipitationProbability float64    `json:"precipitationProbability"`
	ThunderstormProbability  float64    `json:"thunderstormProbability"`
	TotalLiquid              valueUnit  `json:"totalLiquid"`
	Rain                     valueUnit  `json:"rain"`
}

// QuarterDay fetches the next day's quarter-day forecast slices for a city.
func (p *AtlasForecastProvider) QuarterDay(ctx context.Context, city cities.City) ([]weather.ForecastEntry, error) {
	if p.apiKey == "" {
		return nil, fmt.Errorf("maps api key is not configured")
	}

	values := url.Values{}
	values.Set("api-version", "1.1")
	values.Set("query", fmt.Sprintf("%f,%f", city.Lat, city.Lon))
	values.Set("duration", "1")
	values.Set("subscription-key", p.apiKey)
	values.Set("language", "es-419")

	resp, err := p.http.get(ctx, fmt.Sprintf("%s?%s", p.baseURL, values.Encode()))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var payload struct {
		Forecasts []atlasForecast `json:"forecasts"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}

	entries := make([]weather.ForecastEntry, 0, len(payload.Forecasts))
	for _, f := range payload.Forecasts {
		effective, err := time.Parse(time.RFC3339, f.EffectiveDate)
		if err != nil {
			// A slice without a parseable effective date is useless for
			// ordering; skip it rather than guess.
			continue
		}

		entry := weather.ForecastEntry{
			CityCode:                    city.Code,
			EffectiveAt:                 effective.UTC(),
			Quarter:                     f.Quarter,
			IconPhrase:                  f.IconPhrase,
			Phrase:                      f.ShortPhrase,
			TemperatureMinC:             f.Temperature.Minimum.Value,
			TemperatureMaxC:             f.Temperature.Maximum.Value,
			TemperatureC:                f.Temperature.Value,
			HumidityPct:                 f.RelativeHumidity,
			WindDirectionDeg:            f.Wind.Direction.Degrees,
			WindDirection:               f.Wind.Direction.LocalizedDescription,
			WindSpeedKmh:                f.Wind.Speed.Value,
			CloudCoverPct:               f.CloudCover,
			HasPrecipitation:            f.HasPrecipitation,
			PrecipitationType:           f.PrecipitationType,
			PrecipitationIntensity:      f.PrecipitationIntensity,
			PrecipitationProbabilityPct: f.PrecipitationProbability,
			ThunderstormProbabilityPct:  f.ThunderstormProbability,
			TotalLiquidMm:               f.TotalLiquid.Value,
			RainMm:                      f.Rain.Value,
		}

		if f.RealFeelTemperature.Minimum != nil {
			entry.RealFeelMinC = &f.RealFeelTemperature.Minimum.Value
		}
		if f.RealFeelTemperature.Maximum != nil {
			entry.RealFeelMaxC = &f.RealFeelTemperature.Maximum.Value
		}
		if f.DewPoint != nil {
			entry.DewPointC = &f.DewPoint.Value
		}
		if f.WindGust.Speed != nil {
			entry.WindGustKmh = &f.WindGust.Speed.Value
		}
		if f.Visibility != nil {
			entry.VisibilityKm = &f.Visibility.Value
		}

		entries = append(entries, entry)
	}

	return entries, nil
}
