package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/akshu187/smartsafe/internal/engine/alert"
	"github.com/akshu187/smartsafe/internal/engine/crash"
	"github.com/akshu187/smartsafe/internal/engine/fatigue"
	"github.com/akshu187/smartsafe/internal/engine/geoloc"
	"github.com/akshu187/smartsafe/internal/engine/harsh"
	"github.com/akshu187/smartsafe/internal/engine/poi"
	"github.com/akshu187/smartsafe/internal/shared/geo"

	"go.uber.org/zap"
)

// Options configures a Session. Source is required; POIQuerier is
// optional and disables proximity monitoring when nil. MotionConsent
// reflects whether the user granted motion-sensor access: without it the
// crash detector stays inactive for the whole session.
type Options struct {
	Source        geoloc.Source
	POIQuerier    poi.Querier
	SpeedLimitKmh float64
	MotionConsent bool
	Sink          alert.Sink
	Logger        *zap.Logger
}

// Session owns one normalizer and the four estimators for a single
// driving session and fans their alerts into one Sink plus the bounded
// activity log. The normalized position sample is the only state shared
// between estimators, and only the session writes it.
type Session struct {
	sink   alert.Sink
	log    *alert.ActivityLog
	logger *zap.Logger

	normalizer *geoloc.Normalizer
	harsh      *harsh.Estimator
	crash      *crash.Detector
	fatigue    *fatigue.Monitor
	poi        *poi.Monitor

	motionConsent bool

	mu        sync.Mutex
	running   bool
	cancel    context.CancelFunc
	sample    geoloc.Sample
	hasSample bool
}

func NewSession(opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Session{
		sink:          opts.Sink,
		log:           alert.NewActivityLog(),
		logger:        logger,
		motionConsent: opts.MotionConsent,
	}
	s.harsh = harsh.NewEstimator(opts.SpeedLimitKmh, s.onHarshEvent)
	s.crash = crash.NewDetector(s.onCrash, logger.Named("crash"))
	s.fatigue = fatigue.NewMonitor(s.onFatigue, logger.Named("fatigue"))
	if opts.POIQuerier != nil {
		s.poi = poi.NewMonitor(opts.POIQuerier, s.onPOI, logger.Named("poi"))
	}
	s.normalizer = geoloc.NewNormalizer(opts.Source, s.onSample, logger.Named("geoloc"))
	return s
}

// Start begins the session: position watching, the fatigue clock and,
// with consent, the crash detector. Calling Start on a running session
// is a no-op. An unsupported position source fails the whole session.
func (s *Session) Start(now time.Time) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	if err := s.normalizer.Start(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())

	s.mu.Lock()
	s.running = true
	s.cancel = cancel
	s.mu.Unlock()

	s.fatigue.StartTrip(now)
	if s.motionConsent {
		s.crash.Start(now)
	}

	go s.fatigue.Run(ctx.Done())
	if s.poi != nil {
		go s.poi.Run(ctx, s.position)
	}
	return nil
}

// Stop tears the session down symmetrically to Start and is idempotent.
func (s *Session) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	cancel()
	s.normalizer.Stop()
	s.fatigue.StopTrip()
	s.crash.Stop()
}

func (s *Session) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Sample returns the most recent normalized position sample.
func (s *Session) Sample() (geoloc.Sample, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sample, s.hasSample
}

func (s *Session) position() (geo.Point, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasSample {
		return geo.Point{}, false
	}
	return s.sample.Position(), true
}

// Log returns the session's activity log. The session owns the log;
// callers read snapshots through it.
func (s *Session) Log() *alert.ActivityLog { return s.log }

func (s *Session) Stats() harsh.Stats { return s.harsh.Stats() }

func (s *Session) SafetyScore() int { return s.harsh.SafetyScore() }

func (s *Session) FatigueStatus(now time.Time) fatigue.Level {
	return s.fatigue.Status(now)
}

func (s *Session) NearbyPOIs() []poi.POI {
	if s.poi == nil {
		return nil
	}
	return s.poi.Nearby()
}

// ProcessMotion forwards one accelerometer sample to the crash detector.
func (s *Session) ProcessMotion(m crash.MotionSample) { s.crash.ProcessMotion(m) }

// ProcessOrientation forwards one device-orientation sample.
func (s *Session) ProcessOrientation(o crash.OrientationSample) { s.crash.ProcessOrientation(o) }

// ProcessSound forwards one ambient-amplitude reading.
func (s *Session) ProcessSound(avgAmplitude float64, now time.Time) {
	s.crash.ProcessSound(avgAmplitude, now)
}

// RecordFalsePositive notes a user-cancelled crash alert so later
// detections are scored more conservatively.
func (s *Session) RecordFalsePositive(reason string, now time.Time) {
	s.crash.RecordFalsePositive(reason, now)
}

func (s *Session) onSample(sm geoloc.Sample) {
	s.mu.Lock()
	s.sample = sm
	s.hasSample = true
	s.mu.Unlock()

	if sm.SmoothedValid {
		s.harsh.Evaluate(sm.SmoothedKmh, sm.Position(), true, sm.At)
		s.crash.UpdateSpeed(sm.SmoothedKmh, sm.Position(), true, sm.AccuracyM)
	}
}

func (s *Session) emit(a alert.Alert) {
	s.log.Append(a)
	if s.sink != nil {
		s.sink.Notify(a)
	}
}

func (s *Session) onHarshEvent(e harsh.Event) {
	kind := alert.KindHarsh
	var msg string
	switch e.Type {
	case harsh.EventBrake:
		msg = fmt.Sprintf("Harsh braking detected (%.1f m/s²)", e.Value)
	case harsh.EventAccel:
		msg = fmt.Sprintf("Rapid acceleration detected (%.1f m/s²)", e.Value)
	case harsh.EventSpeeding:
		kind = alert.KindSpeeding
		msg = fmt.Sprintf("Speed limit exceeded: %.0f km/h", e.Value)
	}
	a := alert.New(kind, msg, e.Severity, e.At)
	a.Position, a.HasPosition = e.Position, e.HasPosition
	s.emit(a)
}

func (s *Session) onCrash(d crash.Detection) {
	msg := fmt.Sprintf("Possible %s crash detected, confidence %.0f%%", d.Type, d.Confidence)
	a := alert.New(alert.KindCrash, msg, alert.SeverityCritical, d.At)
	a.Position, a.HasPosition = d.Position, d.HasPosition
	s.emit(a)
}

func (s *Session) onFatigue(f fatigue.Alert) {
	sev := alert.SeverityMedium
	if f.Level == fatigue.LevelCritical {
		sev = alert.SeverityCritical
	}
	a := alert.New(alert.KindFatigue, f.Message, sev, f.At)
	a.Position, a.HasPosition = s.position()
	s.emit(a)
}

func (s *Session) onPOI(p poi.Alert) {
	a := alert.New(alert.KindPOI, p.Message, alert.SeverityLow, p.At)
	a.Position, a.HasPosition = s.position()
	s.emit(a)
}
