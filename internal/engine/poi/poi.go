package poi

import (
	"context"
	"fmt"
	"time"
)

type Type string

const (
	TypeSchool    Type = "school"
	TypeHospital  Type = "hospital"
	TypeReligious Type = "religious"
	TypeMarket    Type = "market"
)

// POI is one nearby point of interest, distance-annotated for the caller.
type POI struct {
	ID        string  `json:"id"`
	Type      Type    `json:"type"`
	Name      string  `json:"name"`
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
	DistanceM float64 `json:"distance_m"`
}

// Alert is raised when the driver enters a point's proximity radius.
type Alert struct {
	Type          Type      `json:"type"`
	Name          string    `json:"name"`
	Message       string    `json:"message"`
	SpeedLimitKmh int       `json:"speed_limit_kmh"`
	At            time.Time `json:"at"`
}

// Querier finds points of interest around a position. The production
// implementation queries Overpass; tests supply canned results.
type Querier interface {
	Nearby(ctx context.Context, lat, lng float64, radiusM int) ([]POI, error)
}

// newAlert maps a point to its typed zone warning and recommended limit.
func newAlert(p POI, now time.Time) Alert {
	switch p.Type {
	case TypeSchool:
		return Alert{
			Type:          TypeSchool,
			Name:          p.Name,
			Message:       fmt.Sprintf("School Zone ahead: %s. Reduce speed to 30 km/h. Watch for children crossing.", p.Name),
			SpeedLimitKmh: 30,
			At:            now,
		}
	case TypeHospital:
		return Alert{
			Type:          TypeHospital,
			Name:          p.Name,
			Message:       fmt.Sprintf("Hospital Zone: %s. No horn. Reduce speed to 20 km/h. Emergency vehicles may be present.", p.Name),
			SpeedLimitKmh: 20,
			At:            now,
		}
	case TypeReligious:
		return Alert{
			Type:          TypeReligious,
			Name:          p.Name,
			Message:       fmt.Sprintf("Religious place ahead: %s. Drive slowly and avoid horn. Watch for pedestrians.", p.Name),
			SpeedLimitKmh: 20,
			At:            now,
		}
	default:
		return Alert{
			Type:          TypeMarket,
			Name:          p.Name,
			Message:       fmt.Sprintf("Market area: %s. Heavy pedestrian traffic. Drive carefully.", p.Name),
			SpeedLimitKmh: 30,
			At:            now,
		}
	}
}
