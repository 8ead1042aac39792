package zone

import "github.com/akshu187/smartsafe/internal/shared/geo"

type Severity string

const (
	SeverityLow    Severity = "LOW"
	SeverityMedium Severity = "MEDIUM"
	SeverityHigh   Severity = "HIGH"
)

// Zone is one accident-prone road section.
type Zone struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Lat        float64  `json:"lat"`
	Lng        float64  `json:"lng"`
	RadiusM    int      `json:"radiusMeters"`
	Severity   Severity `json:"severity"`
	Message    string   `json:"message"`
	City       string   `json:"city"`
	State      string   `json:"state"`
	DistanceKm float64  `json:"distance"`
}

// NearbyResponse mirrors the dashboard wire format for the zones query.
type NearbyResponse struct {
	Zones        []Zone    `json:"zones"`
	Count        int       `json:"count"`
	UserLocation geo.Point `json:"userLocation"`
	SearchRadius float64   `json:"searchRadius"`
}
