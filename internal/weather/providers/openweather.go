package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rcastellanos/climawatch/internal/cities"
	"github.com/rcastellanos/climawatch/internal/common"
	"github.com/rcastellanos/climawatch/internal/weather"
)

// OpenWeatherProvider fetches current conditions from OpenWeatherMap.
type OpenWeatherProvider struct {
	name    string
	apiKey  string
	baseURL string
	http    *resilientClient
}

func NewOpenWeatherProvider(client *http.Client, apiKey string) *OpenWeatherProvider {
	return &OpenWeatherProvider{
		name:    "openweathermap",
		apiKey:  apiKey,
		baseURL: "https://api.openweathermap.org/data/2.5/weather",
		http:    newResilientClient(client, "openweather"),
	}
}

func (p *OpenWeatherProvider) Name() string {
	return p.name
}

// Current fetches and normalizes the current observation for a city.
func (p *OpenWeatherProvider) Current(ctx context.Context, city cities.City) (weather.Observation, error) {
	if p.apiKey == "" {
		return weather.Observation{}, fmt.Errorf("openweather api key is not configured")
	}

	values := url.Values{}
	values.Set("appid", p.apiKey)
	values.Set("units", "metric")
	values.Set("lang", "es")
	values.Set("lat", fmt.Sprintf("%f", city.Lat))
	values.Set("lon", fmt.Sprintf("%f", city.Lon))

	resp, err := p.http.get(ctx, fmt.Sprintf("%s?%s", p.baseURL, values.Encode()))
	if err != nil {
		return weather.Observation{}, err
	}
	defer resp.Body.Close()

	var payload struct {
		Dt      int64 `json:"dt"`
		Weather []struct {
			Main        string `json:"main"`
			Description string `json:"description"`
		} `json:"weather"`
		Main struct {
			Temp      float64 `json:"temp"`
			FeelsLike float64 `json:"feels_like"`
			Humidity  float64 `json:"humidity"`
			Pressure  float64 `json:"pressure"`
		} `json:"main"`
		Visibility *int `json:"visibility"`
		Wind       struct {
			Speed float64  `json:"speed"`
			Deg   float64  `json:"deg"`
			Gust  *float64 `json:"gust"`
		} `json:"wind"`
		Clouds struct {
			All float64 `json:"all"`
		} `json:"clouds"`
		Rain struct {
			OneH   *float64 `json:"1h"`
			ThreeH *float64 `json:"3h"`
		} `json:"rain"`
		Sys struct {
			Country string `json:"country"`
			Sunrise int64  `json:"sunrise"`
			Sunset  int64  `json:"sunset"`
		} `json:"sys"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return weather.Observation{}, err
	}

	ts := time.Unix(payload.Dt, 0).UTC()
	if payload.Dt == 0 {
		ts = time.Now().UTC()
	}

	var main, desc string
	if len(payload.Weather) > 0 {
		main = payload.Weather[0].Main
		desc = payload.Weather[0].Description
	}

	return weather.Observation{
		CityCode:     city.Code,
		CityName:     city.Name,
		Country:      payload.Sys.Country,
		At:           ts,
		TemperatureC: payload.Main.Temp,
		FeelsLikeC:   payload.Main.FeelsLike,
		HumidityPct:  payload.Main.Humidity,
		PressureHpa:  payload.Main.Pressure,
		WindSpeedMS:  payload.Wind.Speed,
		WindDeg:      payload.Wind.Deg,
		WindGustMS:   payload.Wind.Gust,
		CloudsPct:    payload.Clouds.All,
		RainOneHMm:   payload.Rain.OneH,
		RainThreeHMm: payload.Rain.ThreeH,
		VisibilityM:  payload.Visibility,
		Sunrise:      time.Unix(payload.Sys.Sunrise, 0).UTC(),
		Sunset:       time.Unix(payload.Sys.Sunset, 0).UTC(),
		Condition:    mapOpenWeatherCondition(main, desc),
		Description:  desc,
	}, nil
}

func mapOpenWeatherCondition(main, description string) weather.Condition {
	switch main {
	case "Clear":
		return weather.ConditionClear
	case "Clouds":
		return weather.ConditionCloudy
	case "Rain", "Drizzle":
		return weather.ConditionRain
	case "Snow":
		return weather.ConditionSnow
	case "Thunderstorm":
		return weather.ConditionStorm
	case "Mist", "Fog", "Haze":
		return weather.ConditionMist
	}

	// Fall back on the localized free-text description.
	desc := strings.ToLower(description)
	switch {
	case common.HasAny(desc, "lluvia", "rain"):
		return weather.ConditionRain
	case common.HasAny(desc, "tormenta", "storm"):
		return weather.ConditionStorm
	case common.HasAny(desc, "nube", "cloud"):
		return weather.ConditionCloudy
	case common.HasAny(desc, "despejado", "clear"):
		return weather.ConditionClear
	case common.HasAny(desc, "niebla", "mist", "fog"):
		return weather.ConditionMist
	default:
		return weather.ConditionUnknown
	}
}
