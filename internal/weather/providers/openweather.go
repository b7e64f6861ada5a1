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

// OpenWeatherProvider implements weather.Geocoder (direct geocoding) and
// weather.ForecastFetcher (5 day / 3 hour forecast) for OpenWeatherMap.
type OpenWeatherProvider struct {
	name    string
	apiKey  string
	baseURL string
	units   string
	lang    string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewOpenWeatherProvider(cfg HTTPClientConfig, apiKey, units, lang string) *OpenWeatherProvider {
	if units == "" {
		units = "metric"
	}
	return &OpenWeatherProvider{
		name:    "openweathermap",
		apiKey:  apiKey,
		baseURL: "https://api.openweathermap.org",
		units:   units,
		lang:    lang,
		httpCfg: cfg,
		circuit: newBreaker("openweather"),
	}
}

func (p *OpenWeatherProvider) Name() string {
	return p.name
}

// Lookup calls /geo/1.0/direct. An empty result list is reported as NotFound.
func (p *OpenWeatherProvider) Lookup(ctx context.Context, query string, limit int) ([]weather.Suggestion, error) {
	if p.apiKey == "" {
		return nil, fmt.Errorf("openweather api key is not configured: %w", weather.ErrTransient)
	}
	if limit <= 0 {
		limit = 5
	}

	values := url.Values{}
	values.Set("q", query)
	values.Set("limit", strconv.Itoa(limit))
	values.Set("appid", p.apiKey)
	u := fmt.Sprintf("%s/geo/1.0/direct?%s", p.baseURL, values.Encode())

	var payload []struct {
		Name    string   `json:"name"`
		Lat     *float64 `json:"lat"`
		Lon     *float64 `json:"lon"`
		Country string   `json:"country"`
		State   string   `json:"state"`
	}
	if err := getJSON(ctx, p.httpCfg, p.circuit, u, &payload); err != nil {
		return nil, err
	}
	if len(payload) == 0 {
		return nil, fmt.Errorf("openweather: no match for %q: %w", query, weather.ErrNotFound)
	}

	out := make([]weather.Suggestion, 0, len(payload))
	for _, item := range payload {
		// local_names is ignored: suggestions show the canonical name.
		out = append(out, weather.Suggestion{
			Name:    item.Name,
			Country: item.Country,
			State:   item.State,
			Lat:     item.Lat,
			Lon:     item.Lon,
		})
	}
	return out, nil
}

// Reverse calls /geo/1.0/reverse and returns the nearest named place.
func (p *OpenWeatherProvider) Reverse(ctx context.Context, lat, lon float64) (weather.Suggestion, error) {
	if p.apiKey == "" {
		return weather.Suggestion{}, fmt.Errorf("openweather api key is not configured: %w", weather.ErrTransient)
	}

	values := url.Values{}
	values.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	values.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	values.Set("limit", "1")
	values.Set("appid", p.apiKey)
	u := fmt.Sprintf("%s/geo/1.0/reverse?%s", p.baseURL, values.Encode())

	var payload []struct {
		Name    string  `json:"name"`
		Lat     float64 `json:"lat"`
		Lon     float64 `json:"lon"`
		Country string  `json:"country"`
		State   string  `json:"state"`
	}
	if err := getJSON(ctx, p.httpCfg, p.circuit, u, &payload); err != nil {
		return weather.Suggestion{}, err
	}
	if len(payload) == 0 {
		return weather.Suggestion{}, fmt.Errorf("openweather: no place at %.4f,%.4f: %w", lat, lon, weather.ErrNotFound)
	}

	item := payload[0]
	return weather.Suggestion{
		Name:    item.Name,
		Country: item.Country,
		State:   item.State,
		Lat:     float64Ptr(item.Lat),
		Lon:     float64Ptr(item.Lon),
	}, nil
}

// FetchForecast calls /data/2.5/forecast for a coordinate pair.
func (p *OpenWeatherProvider) FetchForecast(ctx context.Context, lat, lon float64) (weather.ProviderForecast, error) {
	if p.apiKey == "" {
		return weather.ProviderForecast{}, fmt.Errorf("openweather api key is not configured: %w", weather.ErrTransient)
	}

	values := url.Values{}
	values.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	values.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	values.Set("appid", p.apiKey)
	values.Set("units", p.units)
	if p.lang != "" {
		values.Set("lang", p.lang)
	}
	u := fmt.Sprintf("%s/data/2.5/forecast?%s", p.baseURL, values.Encode())

	var payload struct {
		List []struct {
			Dt   int64 `json:"dt"`
			Main struct {
				Temp      float64 `json:"temp"`
				FeelsLike float64 `json:"feels_like"`
				TempMin   float64 `json:"temp_min"`
				TempMax   float64 `json:"temp_max"`
				Pressure  float64 `json:"pressure"`
				Humidity  float64 `json:"humidity"`
			} `json:"main"`
			Weather []struct {
				ID          int    `json:"id"`
				Main        string `json:"main"`
				Description string `json:"description"`
				Icon        string `json:"icon"`
			} `json:"weather"`
			Clouds struct {
				All float64 `json:"all"`
			} `json:"clouds"`
			Wind struct {
				Speed float64 `json:"speed"`
				Deg   float64 `json:"deg"`
				Gust  float64 `json:"gust"`
			} `json:"wind"`
			Visibility float64 `json:"visibility"`
			Pop        float64 `json:"pop"`
		} `json:"list"`
		City struct {
			Name     string `json:"name"`
			Country  string `json:"country"`
			Timezone int    `json:"timezone"`
			Sunrise  int64  `json:"sunrise"`
			Sunset   int64  `json:"sunset"`
		} `json:"city"`
	}
	if err := getJSON(ctx, p.httpCfg, p.circuit, u, &payload); err != nil {
		return weather.ProviderForecast{}, err
	}

	samples := make([]weather.WeatherSample, 0, len(payload.List))
	for _, item := range payload.List {
		s := weather.WeatherSample{
			Timestamp:                time.Unix(item.Dt, 0).UTC(),
			Temperature:              item.Main.Temp,
			FeelsLike:                item.Main.FeelsLike,
			TempMin:                  item.Main.TempMin,
			TempMax:                  item.Main.TempMax,
			Humidity:                 item.Main.Humidity,
			Pressure:                 item.Main.Pressure,
			Visibility:               item.Visibility,
			WindSpeed:                item.Wind.Speed,
			WindGustSpeed:            item.Wind.Gust,
			WindDirectionDegrees:     item.Wind.Deg,
			PrecipitationProbability: item.Pop,
			CloudCoverPercent:        item.Clouds.All,
			Condition:                weather.ConditionUnknown,
		}
		if len(item.Weather) > 0 {
			s.ConditionCode = item.Weather[0].ID
			s.ConditionIcon = item.Weather[0].Icon
			s.Description = item.Weather[0].Description
			s.Condition = mapOpenWeatherCondition(item.Weather[0].Main)
		}
		samples = append(samples, s)
	}

	return weather.ProviderForecast{
		ProviderName:   p.name,
		LocationLabel:  payload.City.Name,
		Country:        payload.City.Country,
		Sunrise:        time.Unix(payload.City.Sunrise, 0).UTC(),
		Sunset:         time.Unix(payload.City.Sunset, 0).UTC(),
		TimezoneOffset: payload.City.Timezone,
		Samples:        samples,
	}, nil
}

func mapOpenWeatherCondition(main string) weather.Condition {
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
	case "Mist", "Fog", "Haze", "Smoke", "Dust":
		return weather.ConditionMist
	default:
		return weather.ConditionUnknown
	}
}

var (
	_ weather.Geocoder        = (*OpenWeatherProvider)(nil)
	_ weather.ReverseGeocoder = (*OpenWeatherProvider)(nil)
	_ weather.ForecastFetcher = (*OpenWeatherProvider)(nil)
)
