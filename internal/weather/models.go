package weather

import (
	"strconv"
	"time"
)

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

// Suggestion is one geocoding match offered to the user while typing.
// Lat/Lon are optional: some providers omit coordinates for partial matches.
type Suggestion struct {
	Name    string   `json:"name" validate:"required"`
	Country string   `json:"country"`
	State   string   `json:"state,omitempty"`
	Lat     *float64 `json:"latitude,omitempty" validate:"omitempty,gte=-90,lte=90"`
	Lon     *float64 `json:"longitude,omitempty" validate:"omitempty,gte=-180,lte=180"`
}

// Coordinates returns the suggestion's position and whether it has one.
func (s Suggestion) Coordinates() (lat, lon float64, ok bool) {
	if s.Lat == nil || s.Lon == nil {
		return 0, 0, false
	}
	return *s.Lat, *s.Lon, true
}

// Label is the human readable "Name, CC" form shown in suggestion lists.
func (s Suggestion) Label() string {
	if s.Country == "" {
		return s.Name
	}
	return s.Name + ", " + s.Country
}

// Key identifies the suggestion within a list. Coordinates are preferred;
// index is only a positional fallback and is not stable across lookups.
func (s Suggestion) Key(index int) string {
	if lat, lon, ok := s.Coordinates(); ok {
		return strconv.FormatFloat(lat, 'f', -1, 64) + "-" + strconv.FormatFloat(lon, 'f', -1, 64)
	}
	return strconv.Itoa(index)
}

// WeatherSample is a single point of a forecast series.
// Units: °C, %, hPa, metres, m/s, degrees, probability in [0,1].
type WeatherSample struct {
	Timestamp                time.Time `json:"timestamp"` // always UTC
	Temperature              float64   `json:"temperature"`
	FeelsLike                float64   `json:"feelsLike"`
	TempMin                  float64   `json:"tempMin"`
	TempMax                  float64   `json:"tempMax"`
	Humidity                 float64   `json:"humidity"`
	Pressure                 float64   `json:"pressure"`
	Visibility               float64   `json:"visibility"`
	WindSpeed                float64   `json:"windSpeed"`
	WindGustSpeed            float64   `json:"windGustSpeed"`
	WindDirectionDegrees     float64   `json:"windDirectionDegrees"`
	PrecipitationProbability float64   `json:"precipitationProbability"`
	CloudCoverPercent        float64   `json:"cloudCoverPercent"`
	ConditionCode            int       `json:"conditionCode"`
	ConditionIcon            string    `json:"conditionIcon"`
	Description              string    `json:"description,omitempty"`
	Condition                Condition `json:"condition"`
}

// ProviderForecast is the raw, unbounded forecast returned by a provider.
// Samples are expected to be ordered by Timestamp ascending.
type ProviderForecast struct {
	ProviderName   string
	LocationLabel  string
	Country        string
	Sunrise        time.Time
	Sunset         time.Time
	TimezoneOffset int // seconds east of UTC
	Samples        []WeatherSample
}

// ForecastSnapshot is the display-ready, bounded forecast.
// Samples[0] is the current/reference reading.
type ForecastSnapshot struct {
	Provider       string          `json:"provider"`
	LocationLabel  string          `json:"locationLabel"`
	Country        string          `json:"country"`
	Sunrise        time.Time       `json:"sunrise"`
	Sunset         time.Time       `json:"sunset"`
	TimezoneOffset int             `json:"timezoneOffset"`
	Samples        []WeatherSample `json:"samples"`
}

// Current returns the reference reading, if any.
func (f ForecastSnapshot) Current() (WeatherSample, bool) {
	if len(f.Samples) == 0 {
		return WeatherSample{}, false
	}
	return f.Samples[0], true
}
