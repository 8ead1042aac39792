package alert

import (
	"time"

	"github.com/akshu187/smartsafe/internal/shared/geo"

	"github.com/google/uuid"
)

type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// Kind identifies which estimator raised an alert.
type Kind string

const (
	KindCrash    Kind = "crash"
	KindHarsh    Kind = "harsh_driving"
	KindFatigue  Kind = "fatigue"
	KindPOI      Kind = "poi"
	KindSpeeding Kind = "speeding"
	KindSOS      Kind = "sos"
)

type Alert struct {
	ID          string    `json:"id"`
	Kind        Kind      `json:"kind"`
	Message     string    `json:"message"`
	Severity    Severity  `json:"severity"`
	Position    geo.Point `json:"position"`
	HasPosition bool      `json:"has_position"`
	At          time.Time `json:"at"`
}

func New(kind Kind, message string, severity Severity, at time.Time) Alert {
	return Alert{
		ID:       uuid.NewString(),
		Kind:     kind,
		Message:  message,
		Severity: severity,
		At:       at,
	}
}

// Sink receives alerts from the estimators. Rendering (voice, vibration,
// modal) happens behind this boundary and is not part of the engine.
type Sink interface {
	Notify(Alert)
}

// SinkFunc adapts a plain function to a Sink.
type SinkFunc func(Alert)

func (f SinkFunc) Notify(a Alert) { f(a) }
