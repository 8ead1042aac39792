package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/akshu187/smartsafe/internal/shared/geo"

	"github.com/go-resty/resty/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	cacheTTL       = time.Minute
	requestTimeout = 10 * time.Second
)

// Report is the condensed current-conditions payload shown on the
// dashboard.
type Report struct {
	Condition     string    `json:"condition"`
	Icon          string    `json:"icon"`
	TemperatureC  int       `json:"temperature"`
	Visibility    string    `json:"visibility"`
	WindKph       int       `json:"windKph"`
	Humidity      float64   `json:"humidity"`
	Precipitation float64   `json:"precipitation"`
	Location      geo.Point `json:"location"`
}

type meteoResponse struct {
	Current struct {
		Temperature   *float64 `json:"temperature_2m"`
		Visibility    *float64 `json:"visibility"`
		WindSpeed     *float64 `json:"wind_speed_10m"`
		WeatherCode   *float64 `json:"weather_code"`
		Humidity      *float64 `json:"relative_humidity_2m"`
		Precipitation *float64 `json:"precipitation"`
	} `json:"current"`
}

type Service struct {
	client *resty.Client
	url    string
	redis  *redis.Client
	logger *zap.Logger
}

func NewService(url string, redisClient *redis.Client, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		client: resty.New().SetTimeout(requestTimeout),
		url:    url,
		redis:  redisClient,
		logger: logger,
	}
}

// Current fetches conditions for the position. Any upstream failure
// degrades to the static defaults: the dashboard always gets a report.
func (s *Service) Current(ctx context.Context, lat, lng float64) Report {
	key := cacheKey(lat, lng)
	if s.redis != nil {
		if cached, err := s.redis.Get(ctx, key).Bytes(); err == nil {
			var r Report
			if err := json.Unmarshal(cached, &r); err == nil {
				return r
			}
		}
	}

	report, err := s.fetch(ctx, lat, lng)
	if err != nil {
		s.logger.Warn("weather fetch failed", zap.Error(err))
		return fallbackReport(lat, lng)
	}

	if s.redis != nil {
		if payload, err := json.Marshal(report); err == nil {
			if err := s.redis.Set(ctx, key, payload, cacheTTL).Err(); err != nil {
				s.logger.Warn("weather cache write failed", zap.Error(err))
			}
		}
	}
	return report
}

func (s *Service) fetch(ctx context.Context, lat, lng float64) (Report, error) {
	var data meteoResponse
	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"latitude":  fmt.Sprintf("%f", lat),
			"longitude": fmt.Sprintf("%f", lng),
			"current":   "temperature_2m,visibility,wind_speed_10m,weather_code,relative_humidity_2m,precipitation",
		}).
		SetResult(&data).
		Get(s.url)
	if err != nil {
		return Report{}, err
	}
	if resp.IsError() {
		return Report{}, fmt.Errorf("weather request failed with status %d", resp.StatusCode())
	}

	cur := data.Current
	visibilityM := valueOr(cur.Visibility, 2100)
	condition, icon := classify(int(valueOr(cur.WeatherCode, 0)))

	return Report{
		Condition:     condition,
		Icon:          icon,
		TemperatureC:  int(math.Round(valueOr(cur.Temperature, 24))),
		Visibility:    fmt.Sprintf("%.1f km", math.Round(visibilityM/100)/10),
		WindKph:       int(math.Round(valueOr(cur.WindSpeed, 5) * 3.6)),
		Humidity:      valueOr(cur.Humidity, 65),
		Precipitation: valueOr(cur.Precipitation, 0),
		Location:      geo.Point{Lat: lat, Lng: lng},
	}, nil
}

// classify maps WMO weather codes to a coarse condition label.
func classify(code int) (string, string) {
	switch {
	case code >= 51 && code <= 67:
		return "Light Rain", "🌧️"
	case code >= 71 && code <= 77:
		return "Snow", "❄️"
	case code >= 80 && code <= 82:
		return "Rain showers", "🌦️"
	case code >= 95:
		return "Thunderstorm", "⛈️"
	case code == 45 || code == 48:
		return "Fog", "🌫️"
	case code >= 1 && code <= 3:
		return "Partly Cloudy", "⛅"
	default:
		return "Clear", "☀️"
	}
}

func fallbackReport(lat, lng float64) Report {
	return Report{
		Condition:     "Unknown",
		Icon:          "🌡️",
		TemperatureC:  24,
		Visibility:    "2.1 km",
		WindKph:       18,
		Humidity:      65,
		Precipitation: 0,
		Location:      geo.Point{Lat: lat, Lng: lng},
	}
}

func valueOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

func cacheKey(lat, lng float64) string {
	return fmt.Sprintf("weather:%.3f:%.3f", lat, lng)
}
