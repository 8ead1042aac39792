package sos

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/akshu187/smartsafe/internal/db"
	"github.com/akshu187/smartsafe/internal/stream"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Service struct {
	db     db.Querier
	hub    *stream.Hub
	logger *zap.Logger
}

func NewService(db db.Querier, hub *stream.Hub, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{db: db, hub: hub, logger: logger}
}

// Trigger persists the SOS and broadcasts the formatted emergency
// message on the user's alert channel. Broadcast failures never fail
// the trigger; the database row is the source of truth.
func (s *Service) Trigger(ctx context.Context, req Request) (Event, error) {
	if req.UserID == "" {
		return Event{}, errors.New("user_id required")
	}
	if req.Reason != ReasonCrash && req.Reason != ReasonManual {
		return Event{}, fmt.Errorf("unknown sos reason %q", req.Reason)
	}

	event := Event{
		ID:       uuid.NewString(),
		UserID:   req.UserID,
		UserName: req.UserName,
		Lat:      req.Lat,
		Lng:      req.Lng,
		Reason:   req.Reason,
		GForce:   req.GForce,
		SpeedKmh: req.SpeedKmh,
	}

	row := s.db.QueryRow(ctx, `
		INSERT INTO sos_events (id, user_id, user_name, lat, lng, reason, g_force, speed_kmh)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING created_at
	`, event.ID, event.UserID, event.UserName, event.Lat, event.Lng, event.Reason, event.GForce, event.SpeedKmh)
	if err := row.Scan(&event.CreatedAt); err != nil {
		return Event{}, err
	}

	event.Message = FormatMessage(req, event.CreatedAt)

	if s.hub != nil {
		payload, _ := json.Marshal(broadcastEnvelope{Type: "sos", Event: event})
		s.hub.Broadcast(event.UserID, payload)
	}
	s.logger.Info("sos triggered",
		zap.String("user_id", event.UserID),
		zap.String("reason", event.Reason))

	return event, nil
}

type broadcastEnvelope struct {
	Type  string `json:"type"`
	Event Event  `json:"event"`
}

// Recent returns the user's latest SOS events, newest first.
func (s *Service) Recent(ctx context.Context, userID string, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(ctx, `
		SELECT id, user_id, user_name, lat, lng, reason, g_force, speed_kmh, created_at
		FROM sos_events WHERE user_id=$1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.UserID, &e.UserName, &e.Lat, &e.Lng, &e.Reason, &e.GForce, &e.SpeedKmh, &e.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	if events == nil {
		events = []Event{}
	}
	return events, nil
}

// GoogleMapsLink points emergency contacts at the driver's position.
func GoogleMapsLink(lat, lng float64) string {
	return fmt.Sprintf("https://maps.google.com/?q=%g,%g", lat, lng)
}

// FormatMessage renders the emergency text shared with contacts.
func FormatMessage(req Request, at time.Time) string {
	reason := "Manual SOS"
	if req.Reason == ReasonCrash {
		reason = "Crash Detected"
	}

	var b strings.Builder
	b.WriteString("🚨 EMERGENCY ALERT 🚨\n\n")
	fmt.Fprintf(&b, "%s needs help!\n\n", req.UserName)
	fmt.Fprintf(&b, "Location: %s\n\n", GoogleMapsLink(req.Lat, req.Lng))
	fmt.Fprintf(&b, "Time: %s\n", at.Format("02 Jan 2006, 15:04:05"))
	fmt.Fprintf(&b, "Reason: %s\n", reason)
	if req.GForce > 0 {
		fmt.Fprintf(&b, "Impact Force: %.1fg\n", req.GForce)
	}
	if req.SpeedKmh > 0 {
		fmt.Fprintf(&b, "Speed: %.0f km/h\n", req.SpeedKmh)
	}
	b.WriteString("\nThis is an automated message from SmartSafe.")
	return b.String()
}
