package trip

import (
	"context"
	"errors"
	"time"

	"github.com/akshu187/smartsafe/internal/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const (
	historyLimit       = 20
	eventsPerTripLimit = 5
)

type Service struct {
	db db.Querier
}

func NewService(db db.Querier) *Service {
	return &Service{db: db}
}

// History returns up to the 20 most recent trips for the account behind
// the email, each with its 5 most recent events. An unknown email is not
// an error: the driver simply has no history yet.
func (s *Service) History(ctx context.Context, email string) ([]Trip, error) {
	var userID string
	err := s.db.QueryRow(ctx, `SELECT id FROM users WHERE email=$1`, email).Scan(&userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return []Trip{}, nil
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx, `
		SELECT id, start_time, end_time, COALESCE(distance_km,0), COALESCE(duration_sec,0),
		       COALESCE(avg_speed_kmh,0), COALESCE(max_speed_kmh,0), COALESCE(safety_score,100),
		       harsh_brake_count, harsh_accel_count, speeding_count, risk_zones_encountered,
		       COALESCE(weather_condition,''), is_active
		FROM trips WHERE user_id=$1
		ORDER BY start_time DESC
		LIMIT $2
	`, userID, historyLimit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trips []Trip
	var ids []string
	for rows.Next() {
		var t Trip
		if err := rows.Scan(&t.ID, &t.StartTime, &t.EndTime, &t.DistanceKm, &t.DurationSec,
			&t.AvgSpeedKmh, &t.MaxSpeedKmh, &t.SafetyScore,
			&t.HarshBrakeCount, &t.HarshAccelCount, &t.SpeedingCount, &t.RiskZonesEncountered,
			&t.WeatherCondition, &t.IsActive); err != nil {
			return nil, err
		}
		t.Events = []Event{}
		ids = append(ids, t.ID)
		trips = append(trips, t)
	}
	if trips == nil {
		return []Trip{}, nil
	}

	events, err := s.loadEvents(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range trips {
		if evs := events[trips[i].ID]; evs != nil {
			trips[i].Events = evs
		}
	}
	return trips, nil
}

func (s *Service) loadEvents(ctx context.Context, tripIDs []string) (map[string][]Event, error) {
	rows, err := s.db.Query(ctx, `
		SELECT trip_id, event_type, timestamp, severity, COALESCE(details,'')
		FROM trip_events WHERE trip_id = ANY($1)
		ORDER BY timestamp DESC
	`, tripIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := map[string][]Event{}
	for rows.Next() {
		var tripID string
		var e Event
		if err := rows.Scan(&tripID, &e.Type, &e.Timestamp, &e.Severity, &e.Details); err != nil {
			return nil, err
		}
		if len(events[tripID]) < eventsPerTripLimit {
			events[tripID] = append(events[tripID], e)
		}
	}
	return events, nil
}

// Start opens an active trip for the user.
func (s *Service) Start(ctx context.Context, userID string, startTime time.Time) (Trip, error) {
	if startTime.IsZero() {
		startTime = time.Now()
	}
	t := Trip{
		ID:          uuid.NewString(),
		UserID:      userID,
		StartTime:   startTime,
		SafetyScore: 100,
		IsActive:    true,
		Events:      []Event{},
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO trips (id, user_id, start_time, safety_score, is_active)
		VALUES ($1,$2,$3,$4,true)
	`, t.ID, t.UserID, t.StartTime, t.SafetyScore)
	if err != nil {
		return Trip{}, err
	}
	return t, nil
}

// End closes the trip and records the final statistics.
func (s *Service) End(ctx context.Context, id string, sum EndSummary) (Trip, error) {
	if sum.EndTime.IsZero() {
		sum.EndTime = time.Now()
	}

	t := Trip{
		ID:                   id,
		EndTime:              &sum.EndTime,
		DistanceKm:           sum.DistanceKm,
		DurationSec:          sum.DurationSec,
		AvgSpeedKmh:          sum.AvgSpeedKmh,
		MaxSpeedKmh:          sum.MaxSpeedKmh,
		SafetyScore:          sum.SafetyScore,
		HarshBrakeCount:      sum.HarshBrakeCount,
		HarshAccelCount:      sum.HarshAccelCount,
		SpeedingCount:        sum.SpeedingCount,
		RiskZonesEncountered: sum.RiskZonesEncountered,
		WeatherCondition:     sum.WeatherCondition,
		Events:               []Event{},
	}
	row := s.db.QueryRow(ctx, `
		UPDATE trips
		SET end_time=$2, distance_km=$3, duration_sec=$4, avg_speed_kmh=$5, max_speed_kmh=$6,
		    safety_score=$7, harsh_brake_count=$8, harsh_accel_count=$9, speeding_count=$10,
		    risk_zones_encountered=$11, weather_condition=$12, is_active=false
		WHERE id=$1
		RETURNING user_id, start_time
	`, t.ID, sum.EndTime, sum.DistanceKm, sum.DurationSec, sum.AvgSpeedKmh, sum.MaxSpeedKmh,
		sum.SafetyScore, sum.HarshBrakeCount, sum.HarshAccelCount, sum.SpeedingCount,
		sum.RiskZonesEncountered, sum.WeatherCondition)
	if err := row.Scan(&t.UserID, &t.StartTime); err != nil {
		return Trip{}, err
	}
	return t, nil
}

// AddEvent appends one event row to the trip.
func (s *Service) AddEvent(ctx context.Context, tripID string, e Event) (Event, error) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO trip_events (id, trip_id, event_type, timestamp, severity, details)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, uuid.NewString(), tripID, e.Type, e.Timestamp, e.Severity, e.Details)
	if err != nil {
		return Event{}, err
	}
	return e, nil
}
