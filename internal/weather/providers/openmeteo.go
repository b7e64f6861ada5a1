package providers

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/camara12-arth/weather-app/internal/weather"
	"github.com/sony/gobreaker"
)

const openMeteoHourly = "temperature_2m,apparent_temperature,relative_humidity_2m,pressure_msl," +
	"visibility,wind_speed_10m,wind_gusts_10m,wind_direction_10m," +
	"precipitation_probability,cloud_cover,weather_code,is_day"

// OpenMeteoProvider implements weather.Geocoder and weather.ForecastFetcher
// for Open-Meteo. No API key is required.
type OpenMeteoProvider struct {
	name         string
	geocodingURL string
	forecastURL  string
	lang         string
	httpCfg      HTTPClientConfig
	circuit      *gobreaker.CircuitBreaker
	now          func() time.Time
}

func NewOpenMeteoProvider(cfg HTTPClientConfig, lang string) *OpenMeteoProvider {
	return &OpenMeteoProvider{
		name:         "openmeteo",
		geocodingURL: "https://geocoding-api.open-meteo.com/v1/search",
		forecastURL:  "https://api.open-meteo.com/v1/forecast",
		lang:         lang,
		httpCfg:      cfg,
		circuit:      newBreaker("openmeteo"),
		now:          time.Now,
	}
}

func (p *OpenMeteoProvider) Name() string {
	return p.name
}

func (p *OpenMeteoProvider) Lookup(ctx context.Context, query string, limit int) ([]weather.Suggestion, error) {
	if limit <= 0 {
		limit = 5
	}

	values := url.Values{}
	values.Set("name", query)
	values.Set("count", strconv.Itoa(limit))
	values.Set("format", "json")
	if p.lang != "" {
		values.Set("language", p.lang)
	}
	u := fmt.Sprintf("%s?%s", p.geocodingURL, values.Encode())

	var payload struct {
		Results []struct {
			Name        string   `json:"name"`
			Latitude    *float64 `json:"latitude"`
			Longitude   *float64 `json:"longitude"`
			CountryCode string   `json:"country_code"`
			Admin1      string   `json:"admin1"`
		} `json:"results"`
	}
	if err := getJSON(ctx, p.httpCfg, p.circuit, u, &payload); err != nil {
		return nil, err
	}
	if len(payload.Results) == 0 {
		return nil, fmt.Errorf("openmeteo: no match for %q: %w", query, weather.ErrNotFound)
	}

	out := make([]weather.Suggestion, 0, len(payload.Results))
	for _, r := range payload.Results {
		out = append(out, weather.Suggestion{
			Name:    r.Name,
			Country: r.CountryCode,
			State:   r.Admin1,
			Lat:     r.Latitude,
			Lon:     r.Longitude,
		})
	}
	return out, nil
}

// FetchForecast requests hourly data in unix time and drops the hours that
// already passed, so the first sample is the current hour.
func (p *OpenMeteoProvider) FetchForecast(ctx context.Context, lat, lon float64) (weather.ProviderForecast, error) {
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return weather.ProviderForecast{}, fmt.Errorf("openmeteo: invalid coordinates %f,%f: %w", lat, lon, weather.ErrNotFound)
	}

	values := url.Values{}
	values.Set("latitude", fmt.Sprintf("%f", lat))
	values.Set("longitude", fmt.Sprintf("%f", lon))
	values.Set("hourly", openMeteoHourly)
	values.Set("daily", "sunrise,sunset,temperature_2m_max,temperature_2m_min")
	values.Set("timezone", "auto")
	values.Set("timeformat", "unixtime")
	values.Set("wind_speed_unit", "ms")
	values.Set("forecast_days", "3")
	u := fmt.Sprintf("%s?%s", p.forecastURL, values.Encode())

	var payload struct {
		UTCOffsetSeconds int `json:"utc_offset_seconds"`
		Hourly           struct {
			Time                     []int64   `json:"time"`
			Temperature              []float64 `json:"temperature_2m"`
			ApparentTemperature      []float64 `json:"apparent_temperature"`
			RelativeHumidity         []float64 `json:"relative_humidity_2m"`
			PressureMSL              []float64 `json:"pressure_msl"`
			Visibility               []float64 `json:"visibility"`
			WindSpeed                []float64 `json:"wind_speed_10m"`
			WindGusts                []float64 `json:"wind_gusts_10m"`
			WindDirection            []float64 `json:"wind_direction_10m"`
			PrecipitationProbability []float64 `json:"precipitation_probability"`
			CloudCover               []float64 `json:"cloud_cover"`
			WeatherCode              []int     `json:"weather_code"`
			IsDay                    []int     `json:"is_day"`
		} `json:"hourly"`
		Daily struct {
			Time    []int64   `json:"time"`
			Sunrise []int64   `json:"sunrise"`
			Sunset  []int64   `json:"sunset"`
			TempMax []float64 `json:"temperature_2m_max"`
			TempMin []float64 `json:"temperature_2m_min"`
		} `json:"daily"`
	}
	if err := getJSON(ctx, p.httpCfg, p.circuit, u, &payload); err != nil {
		return weather.ProviderForecast{}, err
	}

	h := payload.Hourly
	current := p.now().UTC().Truncate(time.Hour)
	samples := make([]weather.WeatherSample, 0, len(h.Time))
	for i, t := range h.Time {
		ts := time.Unix(t, 0).UTC()
		if ts.Before(current) {
			continue
		}

		code := intAt(h.WeatherCode, i)
		s := weather.WeatherSample{
			Timestamp:                ts,
			Temperature:              floatAt(h.Temperature, i),
			FeelsLike:                floatAt(h.ApparentTemperature, i),
			Humidity:                 floatAt(h.RelativeHumidity, i),
			Pressure:                 floatAt(h.PressureMSL, i),
			Visibility:               floatAt(h.Visibility, i),
			WindSpeed:                floatAt(h.WindSpeed, i),
			WindGustSpeed:            floatAt(h.WindGusts, i),
			WindDirectionDegrees:     floatAt(h.WindDirection, i),
			PrecipitationProbability: floatAt(h.PrecipitationProbability, i) / 100,
			CloudCoverPercent:        floatAt(h.CloudCover, i),
			ConditionCode:            code,
			ConditionIcon:            openMeteoIcon(code, intAt(h.IsDay, i) == 1),
			Condition:                mapOpenMeteoCondition(code),
		}

		// Daily min/max is the closest thing Open-Meteo has to per-sample range.
		day := dayIndex(payload.Daily.Time, t)
		s.TempMin = floatAt(payload.Daily.TempMin, day)
		s.TempMax = floatAt(payload.Daily.TempMax, day)

		samples = append(samples, s)
	}

	var sunrise, sunset time.Time
	if len(payload.Daily.Sunrise) > 0 {
		sunrise = time.Unix(payload.Daily.Sunrise[0], 0).UTC()
	}
	if len(payload.Daily.Sunset) > 0 {
		sunset = time.Unix(payload.Daily.Sunset[0], 0).UTC()
	}

	return weather.ProviderForecast{
		ProviderName:   p.name,
		Sunrise:        sunrise,
		Sunset:         sunset,
		TimezoneOffset: payload.UTCOffsetSeconds,
		Samples:        samples,
	}, nil
}

func mapOpenMeteoCondition(code int) weather.Condition {
	// Mapping based on Open-Meteo weather codes (simplified).
	switch {
	case code == 0:
		return weather.ConditionClear
	case code >= 1 && code <= 3:
		return weather.ConditionCloudy
	case code == 45 || code == 48:
		return weather.ConditionMist
	case (code >= 51 && code <= 67) || (code >= 80 && code <= 82):
		return weather.ConditionRain
	case (code >= 71 && code <= 77) || code == 85 || code == 86:
		return weather.ConditionSnow
	case code >= 95:
		return weather.ConditionStorm
	default:
		return weather.ConditionUnknown
	}
}

// openMeteoIcon maps WMO codes onto the OpenWeather icon set so clients
// render one icon family regardless of provider.
func openMeteoIcon(code int, isDay bool) string {
	var icon string
	switch mapOpenMeteoCondition(code) {
	case weather.ConditionClear:
		icon = "01"
	case weather.ConditionCloudy:
		icon = fmt.Sprintf("%02d", code+1)
	case weather.ConditionMist:
		icon = "50"
	case weather.ConditionRain:
		icon = "10"
		if code >= 80 || code <= 57 {
			icon = "09"
		}
	case weather.ConditionSnow:
		icon = "13"
	case weather.ConditionStorm:
		icon = "11"
	default:
		return ""
	}
	if isDay {
		return icon + "d"
	}
	return icon + "n"
}

func dayIndex(days []int64, t int64) int {
	idx := 0
	for i, d := range days {
		if d <= t {
			idx = i
		}
	}
	return idx
}

func floatAt(v []float64, i int) float64 {
	if i < 0 || i >= len(v) {
		return 0
	}
	return v[i]
}

func intAt(v []int, i int) int {
	if i < 0 || i >= len(v) {
		return 0
	}
	return v[i]
}

var (
	_ weather.Geocoder        = (*OpenMeteoProvider)(nil)
	_ weather.ForecastFetcher = (*OpenMeteoProvider)(nil)
)
