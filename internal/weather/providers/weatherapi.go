package providers

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/camara12-arth/weather-app/internal/common"
	"github.com/camara12-arth/weather-app/internal/weather"
	"github.com/sony/gobreaker"
)

// WeatherAPIProvider implements weather.Geocoder (search.json autocomplete)
// and weather.ForecastFetcher (hourly forecast.json) for WeatherAPI.com.
type WeatherAPIProvider struct {
	name    string
	apiKey  string
	baseURL string
	lang    string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
	now     func() time.Time
}

func NewWeatherAPIProvider(cfg HTTPClientConfig, apiKey, lang string) *WeatherAPIProvider {
	return &WeatherAPIProvider{
		name:    "weatherapi",
		apiKey:  apiKey,
		baseURL: "https://api.weatherapi.com/v1",
		lang:    lang,
		httpCfg: cfg,
		circuit: newBreaker("weatherapi"),
		now:     time.Now,
	}
}

func (p *WeatherAPIProvider) Name() string {
	return p.name
}

func (p *WeatherAPIProvider) Lookup(ctx context.Context, query string, limit int) ([]weather.Suggestion, error) {
	if p.apiKey == "" {
		return nil, fmt.Errorf("weatherapi api key is not configured: %w", weather.ErrTransient)
	}

	values := url.Values{}
	values.Set("key", p.apiKey)
	values.Set("q", query)
	u := fmt.Sprintf("%s/search.json?%s", p.baseURL, values.Encode())

	var payload []struct {
		Name    string   `json:"name"`
		Region  string   `json:"region"`
		Country string   `json:"country"`
		Lat     *float64 `json:"lat"`
		Lon     *float64 `json:"lon"`
	}
	if err := getJSON(ctx, p.httpCfg, p.circuit, u, &payload); err != nil {
		return nil, err
	}
	if len(payload) == 0 {
		return nil, fmt.Errorf("weatherapi: no match for %q: %w", query, weather.ErrNotFound)
	}

	out := make([]weather.Suggestion, 0, len(payload))
	for _, item := range payload {
		out = append(out, weather.Suggestion{
			Name:    item.Name,
			Country: item.Country,
			State:   item.Region,
			Lat:     item.Lat,
			Lon:     item.Lon,
		})
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (p *WeatherAPIProvider) FetchForecast(ctx context.Context, lat, lon float64) (weather.ProviderForecast, error) {
	if p.apiKey == "" {
		return weather.ProviderForecast{}, fmt.Errorf("weatherapi api key is not configured: %w", weather.ErrTransient)
	}

	values := url.Values{}
	values.Set("key", p.apiKey)
	// WeatherAPI uses "q" for location; it accepts "lat,lon".
	values.Set("q", fmt.Sprintf("%f,%f", lat, lon))
	values.Set("days", "3")
	values.Set("aqi", "no")
	values.Set("alerts", "no")
	if p.lang != "" {
		values.Set("lang", p.lang)
	}
	u := fmt.Sprintf("%s/forecast.json?%s", p.baseURL, values.Encode())

	var payload struct {
		Location struct {
			Name    string `json:"name"`
			Country string `json:"country"`
			TzID    string `json:"tz_id"`
		} `json:"location"`
		Forecast struct {
			ForecastDay []struct {
				Date string `json:"date"`
				Day  struct {
					MaxTempC float64 `json:"maxtemp_c"`
					MinTempC float64 `json:"mintemp_c"`
				} `json:"day"`
				Astro struct {
					Sunrise string `json:"sunrise"`
					Sunset  string `json:"sunset"`
				} `json:"astro"`
				Hour []struct {
					TimeEpoch    int64   `json:"time_epoch"`
					TempC        float64 `json:"temp_c"`
					FeelsLikeC   float64 `json:"feelslike_c"`
					Humidity     float64 `json:"humidity"`
					PressureMb   float64 `json:"pressure_mb"`
					VisKm        float64 `json:"vis_km"`
					WindKph      float64 `json:"wind_kph"`
					GustKph      float64 `json:"gust_kph"`
					WindDegree   float64 `json:"wind_degree"`
					ChanceOfRain float64 `json:"chance_of_rain"`
					ChanceOfSnow float64 `json:"chance_of_snow"`
					Cloud        float64 `json:"cloud"`
					Condition    struct {
						Text string `json:"text"`
						Icon string `json:"icon"`
						Code int    `json:"code"`
					} `json:"condition"`
				} `json:"hour"`
			} `json:"forecastday"`
		} `json:"forecast"`
	}
	if err := getJSON(ctx, p.httpCfg, p.circuit, u, &payload); err != nil {
		return weather.ProviderForecast{}, err
	}

	loc, err := time.LoadLocation(payload.Location.TzID)
	if err != nil {
		log.Printf("WARN: weatherapi: unknown timezone %q, using UTC: %v", payload.Location.TzID, err)
		loc = time.UTC
	}

	current := p.now().UTC().Truncate(time.Hour)
	var samples []weather.WeatherSample
	for _, day := range payload.Forecast.ForecastDay {
		for _, h := range day.Hour {
			ts := time.Unix(h.TimeEpoch, 0).UTC()
			if ts.Before(current) {
				continue
			}
			pop := h.ChanceOfRain
			if h.ChanceOfSnow > pop {
				pop = h.ChanceOfSnow
			}
			samples = append(samples, weather.WeatherSample{
				Timestamp:                ts,
				Temperature:              h.TempC,
				FeelsLike:                h.FeelsLikeC,
				TempMin:                  day.Day.MinTempC,
				TempMax:                  day.Day.MaxTempC,
				Humidity:                 h.Humidity,
				Pressure:                 h.PressureMb,
				Visibility:               h.VisKm * 1000,
				WindSpeed:                h.WindKph / 3.6,
				WindGustSpeed:            h.GustKph / 3.6,
				WindDirectionDegrees:     h.WindDegree,
				PrecipitationProbability: pop / 100,
				CloudCoverPercent:        h.Cloud,
				ConditionCode:            h.Condition.Code,
				ConditionIcon:            strings.TrimSuffix(path.Base(h.Condition.Icon), ".png"),
				Description:              h.Condition.Text,
				Condition:                mapWeatherAPICondition(h.Condition.Text),
			})
		}
	}

	var sunrise, sunset time.Time
	if len(payload.Forecast.ForecastDay) > 0 {
		first := payload.Forecast.ForecastDay[0]
		sunrise = parseAstroTime(first.Date, first.Astro.Sunrise, loc)
		sunset = parseAstroTime(first.Date, first.Astro.Sunset, loc)
	}

	_, offset := p.now().In(loc).Zone()

	return weather.ProviderForecast{
		ProviderName:   p.name,
		LocationLabel:  payload.Location.Name,
		Country:        payload.Location.Country,
		Sunrise:        sunrise,
		Sunset:         sunset,
		TimezoneOffset: offset,
		Samples:        samples,
	}, nil
}

// parseAstroTime combines "2006-01-02" and "03:04 PM" in the location's zone.
func parseAstroTime(date, clock string, loc *time.Location) time.Time {
	t, err := time.ParseInLocation("2006-01-02 03:04 PM", date+" "+clock, loc)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

func mapWeatherAPICondition(text string) weather.Condition {
	switch {
	case text == "":
		return weather.ConditionUnknown
	case contains(text, "thunder", "storm"):
		return weather.ConditionStorm
	case contains(text, "snow", "sleet", "blizzard", "ice pellets"):
		return weather.ConditionSnow
	case contains(text, "rain", "shower", "drizzle"):
		return weather.ConditionRain
	case contains(text, "mist", "fog"):
		return weather.ConditionMist
	case contains(text, "cloud", "overcast"):
		return weather.ConditionCloudy
	case contains(text, "sunny", "clear"):
		return weather.ConditionClear
	default:
		return weather.ConditionUnknown
	}
}

func contains(s string, subs ...string) bool {
	return common.HasAny(strings.ToLower(s), subs...)
}

var (
	_ weather.Geocoder        = (*WeatherAPIProvider)(nil)
	_ weather.ForecastFetcher = (*WeatherAPIProvider)(nil)
)
