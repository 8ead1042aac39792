package fatigue

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

type Level string

const (
	LevelSafe     Level = "safe"
	LevelWarning  Level = "warning"
	LevelCritical Level = "critical"
)

// Alert is one graduated rest reminder.
type Alert struct {
	Level   Level     `json:"level"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

const (
	warningMinutes    = 120
	criticalMinutes   = 240
	nightThresholdMin = 60
	repeatEveryMin    = 30
	alertCooldown     = 30 * time.Minute
)

// Monitor is a timed state machine over trip duration. Tick is expected
// once per minute while a trip is active; the level is derived purely
// from elapsed minutes and resets with the trip.
type Monitor struct {
	onAlert func(Alert)
	logger  *zap.Logger

	mu        sync.Mutex
	tripStart time.Time
	active    bool
	lastAlert time.Time
}

func NewMonitor(onAlert func(Alert), logger *zap.Logger) *Monitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{onAlert: onAlert, logger: logger}
}

// StartTrip begins (or restarts) the elapsed-time counter.
func (m *Monitor) StartTrip(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tripStart = now
	m.active = true
	m.lastAlert = time.Time{}
}

// StopTrip clears the trip; the next StartTrip begins from zero.
func (m *Monitor) StopTrip() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active = false
	m.tripStart = time.Time{}
	m.lastAlert = time.Time{}
}

// ElapsedMinutes reports whole minutes since trip start.
func (m *Monitor) ElapsedMinutes(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.active {
		return 0
	}
	return int(now.Sub(m.tripStart).Minutes())
}

// Status derives the current band from elapsed minutes.
func (m *Monitor) Status(now time.Time) Level {
	minutes := m.ElapsedMinutes(now)
	switch {
	case minutes < warningMinutes:
		return LevelSafe
	case minutes < criticalMinutes:
		return LevelWarning
	default:
		return LevelCritical
	}
}

// Tick evaluates the state machine. The critical band is checked first so
// the mandatory-rest alert lands exactly at the four-hour mark; warnings
// repeat every 30 minutes past the threshold (one hour at night). Any two
// alerts are separated by at least 30 minutes.
func (m *Monitor) Tick(now time.Time) {
	m.mu.Lock()

	if !m.active {
		m.mu.Unlock()
		return
	}

	minutes := int(now.Sub(m.tripStart).Minutes())
	cooledDown := m.lastAlert.IsZero() || now.Sub(m.lastAlert) >= alertCooldown

	var out *Alert

	if minutes >= criticalMinutes && cooledDown {
		out = &Alert{
			Level:   LevelCritical,
			Message: fmt.Sprintf("MANDATORY REST - You have been driving for %d hours. Take a 15-minute break immediately.", minutes/60),
			At:      now,
		}
	} else if cooledDown {
		threshold := warningMinutes
		hour := now.Hour()
		if hour >= 22 || hour <= 6 {
			threshold = nightThresholdMin
		}
		if minutes >= threshold && minutes%repeatEveryMin == 0 {
			out = &Alert{
				Level:   LevelWarning,
				Message: fmt.Sprintf("You have been driving for %d hours. Consider taking a break.", minutes/60),
				At:      now,
			}
		}
	}

	if out != nil {
		m.lastAlert = now
	}
	cb := m.onAlert
	m.mu.Unlock()

	if out != nil {
		m.logger.Info("fatigue alert",
			zap.String("level", string(out.Level)),
			zap.Int("elapsed_minutes", minutes))
		if cb != nil {
			cb(*out)
		}
	}
}

// Run drives Tick once per minute until the context signals done. Tests
// call Tick directly with synthetic clocks.
func (m *Monitor) Run(done <-chan struct{}) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case now := <-ticker.C:
			m.Tick(now)
		}
	}
}
