package trip

import "time"

// Trip JSON field names follow the dashboard wire format (camelCase).
type Trip struct {
	ID                   string     `json:"id"`
	UserID               string     `json:"user_id,omitempty"`
	StartTime            time.Time  `json:"startTime"`
	EndTime              *time.Time `json:"endTime"`
	DistanceKm           float64    `json:"distance"`
	DurationSec          int64      `json:"duration"`
	AvgSpeedKmh          float64    `json:"avgSpeed"`
	MaxSpeedKmh          float64    `json:"maxSpeed"`
	SafetyScore          int        `json:"safetyScore"`
	HarshBrakeCount      int        `json:"harshBrakeCount"`
	HarshAccelCount      int        `json:"harshAccelCount"`
	SpeedingCount        int        `json:"speedingCount"`
	RiskZonesEncountered int        `json:"riskZonesEncountered"`
	WeatherCondition     string     `json:"weatherCondition"`
	IsActive             bool       `json:"isActive"`
	Events               []Event    `json:"events"`
}

// Event is one harsh-driving, crash or SOS occurrence recorded against a
// trip.
type Event struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Severity  string    `json:"severity"`
	Details   string    `json:"details"`
}

// EndSummary carries the final trip statistics reported when a drive
// ends.
type EndSummary struct {
	EndTime              time.Time `json:"endTime"`
	DistanceKm           float64   `json:"distance"`
	DurationSec          int64     `json:"duration"`
	AvgSpeedKmh          float64   `json:"avgSpeed"`
	MaxSpeedKmh          float64   `json:"maxSpeed"`
	SafetyScore          int       `json:"safetyScore"`
	HarshBrakeCount      int       `json:"harshBrakeCount"`
	HarshAccelCount      int       `json:"harshAccelCount"`
	SpeedingCount        int       `json:"speedingCount"`
	RiskZonesEncountered int       `json:"riskZonesEncountered"`
	WeatherCondition     string    `json:"weatherCondition"`
}
