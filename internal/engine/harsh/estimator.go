package harsh

import (
	"sync"
	"time"

	"github.com/akshu187/smartsafe/internal/engine/alert"
	"github.com/akshu187/smartsafe/internal/shared/geo"
)

type EventType string

const (
	EventBrake    EventType = "harsh_brake"
	EventAccel    EventType = "harsh_accel"
	EventSpeeding EventType = "speeding"
)

// Event is one classified driving event. Events are append-only for the
// lifetime of a trip and never mutated after creation.
type Event struct {
	Type        EventType      `json:"type"`
	Severity    alert.Severity `json:"severity"`
	Value       float64        `json:"value"`
	Position    geo.Point      `json:"position"`
	HasPosition bool           `json:"has_position"`
	At          time.Time      `json:"at"`
}

type Stats struct {
	BrakeCount    int `json:"harsh_brake_count"`
	AccelCount    int `json:"harsh_accel_count"`
	SpeedingCount int `json:"speeding_count"`
}

const (
	minMovingKmh        = 5.0
	minTickInterval     = time.Second
	speedingCooldown    = 10 * time.Second
	speedingMarginKmh   = 10.0
	brakeHighThresh     = -4.0
	brakeMediumThresh   = -3.0
	accelHighThresh     = 3.0
	accelMediumThresh   = 2.5
	excessHighKmh       = 30.0
	excessMediumKmh     = 20.0
	scoreBrakeWeight    = 5
	scoreAccelWeight    = 3
	scoreSpeedingWeight = 10
)

// Estimator classifies driving behavior from the smoothed speed signal.
// Evaluate is expected at least once per second; ticks closer together
// than one second are ignored.
type Estimator struct {
	speedLimit float64
	onEvent    func(Event)

	mu           sync.Mutex
	stats        Stats
	events       []Event
	prevSpeed    float64
	prevTime     time.Time
	hasPrev      bool
	lastSpeeding time.Time
}

func NewEstimator(speedLimitKmh float64, onEvent func(Event)) *Estimator {
	return &Estimator{speedLimit: speedLimitKmh, onEvent: onEvent}
}

// Evaluate classifies one tick of the speed signal. Counters are updated
// for every matched category, but the callback fires at most once per
// tick, with the last event computed. That bias mirrors the shipped
// behavior and keeps alert volume at one per tick.
func (e *Estimator) Evaluate(speedKmh float64, pos geo.Point, hasPos bool, now time.Time) {
	e.mu.Lock()

	if !e.hasPrev {
		e.prevSpeed = speedKmh
		e.prevTime = now
		e.hasPrev = true
		e.mu.Unlock()
		return
	}

	dt := now.Sub(e.prevTime).Seconds()
	if dt < minTickInterval.Seconds() {
		e.mu.Unlock()
		return
	}

	// Below walking pace the signal is GPS jitter, not driving.
	if speedKmh < minMovingKmh {
		e.prevSpeed = speedKmh
		e.prevTime = now
		e.mu.Unlock()
		return
	}

	accel := ((speedKmh - e.prevSpeed) / 3.6) / dt

	var last *Event

	switch {
	case accel < brakeHighThresh:
		last = e.recordLocked(EventBrake, alert.SeverityHigh, accel, pos, hasPos, now)
		e.stats.BrakeCount++
	case accel < brakeMediumThresh:
		last = e.recordLocked(EventBrake, alert.SeverityMedium, accel, pos, hasPos, now)
		e.stats.BrakeCount++
	}

	switch {
	case accel > accelHighThresh:
		last = e.recordLocked(EventAccel, alert.SeverityHigh, accel, pos, hasPos, now)
		e.stats.AccelCount++
	case accel > accelMediumThresh:
		last = e.recordLocked(EventAccel, alert.SeverityMedium, accel, pos, hasPos, now)
		e.stats.AccelCount++
	}

	if speedKmh > e.speedLimit+speedingMarginKmh && now.Sub(e.lastSpeeding) > speedingCooldown {
		excess := speedKmh - e.speedLimit
		severity := alert.SeverityLow
		if excess > excessHighKmh {
			severity = alert.SeverityHigh
		} else if excess > excessMediumKmh {
			severity = alert.SeverityMedium
		}
		last = e.recordLocked(EventSpeeding, severity, speedKmh, pos, hasPos, now)
		e.stats.SpeedingCount++
		e.lastSpeeding = now
	}

	e.prevSpeed = speedKmh
	e.prevTime = now
	cb := e.onEvent
	e.mu.Unlock()

	if last != nil && cb != nil {
		cb(*last)
	}
}

func (e *Estimator) recordLocked(typ EventType, sev alert.Severity, value float64, pos geo.Point, hasPos bool, at time.Time) *Event {
	ev := Event{Type: typ, Severity: sev, Value: value, Position: pos, HasPosition: hasPos, At: at}
	e.events = append(e.events, ev)
	return &ev
}

func (e *Estimator) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}

// Events returns a copy of the session event log, oldest first.
func (e *Estimator) Events() []Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Event, len(e.events))
	copy(out, e.events)
	return out
}

// SafetyScore derives the 0-100 trip score from the counters. It is
// computed on demand and never stored.
func (e *Estimator) SafetyScore() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	score := 100 - scoreBrakeWeight*e.stats.BrakeCount -
		scoreAccelWeight*e.stats.AccelCount -
		scoreSpeedingWeight*e.stats.SpeedingCount
	if score < 0 {
		score = 0
	}
	return score
}

// Reset clears counters and the event log for a new trip.
func (e *Estimator) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stats = Stats{}
	e.events = nil
	e.hasPrev = false
	e.lastSpeeding = time.Time{}
}
