package weather

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const meteoBody = `{"current":{"temperature_2m":31.4,"visibility":8000,` +
	`"wind_speed_10m":4.2,"weather_code":61,"relative_humidity_2m":72,"precipitation":0.4}}`

func TestCurrentMapsConditions(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("latitude") == "" || r.URL.Query().Get("current") == "" {
			t.Errorf("missing query params: %s", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(meteoBody))
	}))
	defer upstream.Close()

	svc := NewService(upstream.URL, nil, nil)
	report := svc.Current(context.Background(), 28.4595, 77.0266)

	if report.Condition != "Light Rain" || report.Icon != "🌧️" {
		t.Fatalf("unexpected condition %q %q", report.Condition, report.Icon)
	}
	if report.TemperatureC != 31 {
		t.Fatalf("temperature = %d, want 31", report.TemperatureC)
	}
	if report.Visibility != "8.0 km" {
		t.Fatalf("visibility = %q", report.Visibility)
	}
	if report.WindKph != 15 {
		t.Fatalf("windKph = %d, want 15", report.WindKph)
	}
}

func TestCurrentFallsBackOnUpstreamError(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer upstream.Close()

	svc := NewService(upstream.URL, nil, nil)
	report := svc.Current(context.Background(), 28.4595, 77.0266)

	if report.Condition != "Unknown" || report.TemperatureC != 24 || report.Visibility != "2.1 km" {
		t.Fatalf("expected static fallback, got %+v", report)
	}
}

func TestCurrentServedFromCache(t *testing.T) {
	calls := 0
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(meteoBody))
	}))
	defer upstream.Close()

	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	defer client.Close()

	svc := NewService(upstream.URL, client, nil)
	first := svc.Current(context.Background(), 28.4595, 77.0266)
	second := svc.Current(context.Background(), 28.4595, 77.0266)

	if calls != 1 {
		t.Fatalf("expected a single upstream call, got %d", calls)
	}
	if first != second {
		t.Fatalf("cache returned different report")
	}
	if s.TTL(cacheKey(28.4595, 77.0266)) != cacheTTL {
		t.Fatalf("unexpected cache TTL")
	}
}

func TestWeatherHandlerDefaults(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("latitude") != "28.459500" {
			t.Errorf("unexpected latitude %q", r.URL.Query().Get("latitude"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(meteoBody))
	}))
	defer upstream.Close()

	app := fiber.New()
	RegisterRoutes(app.Group("/weather"), NewService(upstream.URL, nil, nil))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/weather/", nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var report Report
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if report.Location.Lat != defaultLat || report.Location.Lng != defaultLng {
		t.Fatalf("unexpected location %+v", report.Location)
	}
}
