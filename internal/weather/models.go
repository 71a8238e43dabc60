package weather

import "time"

// Condition represents a normalized high-level weather condition.
type Condition string

const (
	ConditionUnknown Condition = "unknown"
	ConditionClear   Condition = "clear"
	ConditionCloudy  Condition = "cloudy"
	ConditionRain    Condition = "rain"
	ConditionSnow    Condition = "snow"
	ConditionStorm   Condition = "storm"
	ConditionMist    Condition = "mist"
)

// Observation is a structured current-weather record for one city at one
// point in time. Fields the upstream may omit are pointers.
type Observation struct {
	CityCode string    `json:"cityCode"`
	CityName string    `json:"cityName"`
	Country  string    `json:"country,omitempty"`
	At       time.Time `json:"at"` // always UTC

	TemperatureC float64  `json:"temperatureC"`
	FeelsLikeC   float64  `json:"feelsLikeC"`
	HumidityPct  float64  `json:"humidityPercent"`
	PressureHpa  float64  `json:"pressureHpa"`
	WindSpeedMS  float64  `json:"windSpeedMs"`
	WindDeg      float64  `json:"windDeg"`
	WindGustMS   *float64 `json:"windGustMs,omitempty"`
	CloudsPct    float64  `json:"cloudsPercent"`
	RainOneHMm   *float64 `json:"rain1hMm,omitempty"`
	RainThreeHMm *float64 `json:"rain3hMm,omitempty"`
	VisibilityM  *int     `json:"visibilityM,omitempty"`

	Sunrise time.Time `json:"sunrise"`
	Sunset  time.Time `json:"sunset"`

	Condition   Condition `json:"condition"`
	Description string    `json:"description,omitempty"`
}

// ForecastEntry is one quarter-day slice of a city's forecast.
type ForecastEntry struct {
	CityCode    string    `json:"cityCode"`
	EffectiveAt time.Time `json:"effectiveAt"`
	Quarter     int       `json:"quarter"`

	IconPhrase string `json:"iconPhrase,omitempty"`
	Phrase     string `json:"phrase,omitempty"`

	TemperatureMinC float64  `json:"temperatureMinC"`
	TemperatureMaxC float64  `json:"temperatureMaxC"`
	TemperatureC    float64  `json:"temperatureC"`
	RealFeelMinC    *float64 `json:"realFeelMinC,omitempty"`
	RealFeelMaxC    *float64 `json:"realFeelMaxC,omitempty"`
	DewPointC       *float64 `json:"dewPointC,omitempty"`
	HumidityPct     float64  `json:"humidityPercent"`

	WindDirectionDeg *float64 `json:"windDirectionDeg,omitempty"`
	WindDirection    string   `json:"windDirection,omitempty"`
	WindSpeedKmh     float64  `json:"windSpeedKmh"`
	WindGustKmh      *float64 `json:"windGustKmh,omitempty"`

	VisibilityKm  *float64 `json:"visibilityKm,omitempty"`
	CloudCoverPct float64  `json:"cloudCoverPercent"`

	HasPrecipitation            bool    `json:"hasPrecipitation"`
	PrecipitationType           string  `json:"precipitationType,omitempty"`
	PrecipitationIntensity      string  `json:"precipitationIntensity,omitempty"`
	PrecipitationProbabilityPct float64 `json:"precipitationProbabilityPercent"`
	ThunderstormProbabilityPct  float64 `json:"thunderstormProbabilityPercent"`
	TotalLiquidMm               float64 `json:"totalLiquidMm"`
	RainMm                      float64 `json:"rainMm"`
}
