package geoloc

import (
	"errors"
	"sync"
	"time"

	"github.com/akshu187/smartsafe/internal/shared/geo"

	"go.uber.org/zap"
)

// ErrUnsupported marks a platform without any position source. The
// normalizer treats it as permanent: no samples will ever be produced.
var ErrUnsupported = errors.New("geoloc: position source unsupported")

// Fix is one raw position reading from the device.
type Fix struct {
	Lat           float64
	Lng           float64
	AccuracyM     float64
	SpeedMPS      float64
	SpeedValid    bool
	Heading       float64
	HeadingValid  bool
	AltitudeM     float64
	AltitudeValid bool
	At            time.Time
}

// Sample is a normalized fix plus the smoothed speed estimate, immutable
// once emitted.
type Sample struct {
	Fix
	SmoothedKmh   float64
	SmoothedValid bool
}

func (s Sample) Position() geo.Point {
	return geo.Point{Lat: s.Lat, Lng: s.Lng}
}

// Source abstracts the platform position API so the normalizer can be fed
// synthetic fix sequences in tests. Start begins delivery and Stop cancels
// it; both must tolerate repeated calls.
type Source interface {
	Start(onFix func(Fix), onError func(error)) error
	Stop()
}

const (
	historySize     = 5
	maxSpeedKmh     = 200
	outlierJumpKmh  = 50
	stationaryKmh   = 1
	minFixInterval  = time.Second
	calculatedShare = 0.6
	deviceShare     = 0.4
)

type fixRecord struct {
	lat, lng   float64
	at         time.Time
	speedMPS   float64
	speedValid bool
}

// Normalizer turns raw fixes into smoothed position samples. It is the
// single upstream producer for every estimator.
type Normalizer struct {
	src    Source
	logger *zap.Logger

	mu        sync.Mutex
	watching  bool
	permErr   error
	lastErr   error
	history   []fixRecord
	speedHist []float64
	onSample  func(Sample)
}

func NewNormalizer(src Source, onSample func(Sample), logger *zap.Logger) *Normalizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Normalizer{src: src, onSample: onSample, logger: logger}
}

// Start begins watching the source. Starting an already-started normalizer
// is a no-op. An unsupported source leaves the normalizer in a permanent
// error state; other source errors are recorded but restartable.
func (n *Normalizer) Start() error {
	n.mu.Lock()
	if n.permErr != nil {
		err := n.permErr
		n.mu.Unlock()
		return err
	}
	if n.watching {
		n.mu.Unlock()
		return nil
	}
	n.watching = true
	n.mu.Unlock()

	err := n.src.Start(n.handleFix, n.handleError)
	if err != nil {
		n.mu.Lock()
		n.watching = false
		if errors.Is(err, ErrUnsupported) {
			n.permErr = err
		}
		n.lastErr = err
		n.mu.Unlock()
		return err
	}
	return nil
}

// Stop cancels the watch and clears all history buffers. Safe to call
// repeatedly.
func (n *Normalizer) Stop() {
	n.mu.Lock()
	wasWatching := n.watching
	n.watching = false
	n.history = nil
	n.speedHist = nil
	n.mu.Unlock()

	if wasWatching {
		n.src.Stop()
	}
}

// Err reports the most recent source error, permanent or transient.
func (n *Normalizer) Err() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.permErr != nil {
		return n.permErr
	}
	return n.lastErr
}

func (n *Normalizer) Watching() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.watching
}

func (n *Normalizer) handleError(err error) {
	n.mu.Lock()
	n.lastErr = err
	n.watching = false
	n.mu.Unlock()
	n.logger.Warn("position source error", zap.Error(err))
}

func (n *Normalizer) handleFix(f Fix) {
	n.mu.Lock()

	if !n.watching {
		n.mu.Unlock()
		return
	}

	n.lastErr = nil
	n.history = append(n.history, fixRecord{
		lat: f.Lat, lng: f.Lng, at: f.At,
		speedMPS: f.SpeedMPS, speedValid: f.SpeedValid,
	})
	if len(n.history) > historySize {
		n.history = n.history[1:]
	}

	sample := Sample{Fix: f}
	if len(n.history) >= 2 {
		prev := n.history[len(n.history)-2]
		cur := n.history[len(n.history)-1]
		dt := cur.at.Sub(prev.at)

		if dt >= minFixInterval {
			sample.SmoothedKmh = n.blendSpeedLocked(prev, cur, dt.Seconds())
			sample.SmoothedValid = true
		}
	}

	cb := n.onSample
	n.mu.Unlock()

	if cb != nil {
		cb(sample)
	}
}

// blendSpeedLocked implements the hybrid speed estimate: 60% haversine
// speed, 40% device speed, outlier rejection against the previous blend,
// rolling average over the last 5 blends, stationary snap and a 200 km/h
// cap. Caller holds n.mu.
func (n *Normalizer) blendSpeedLocked(prev, cur fixRecord, dtSec float64) float64 {
	distKm := geo.HaversineKm(prev.lat, prev.lng, cur.lat, cur.lng)
	calculatedKmh := (distKm / dtSec) * 3600

	combined := calculatedKmh
	if cur.speedValid && cur.speedMPS >= 0 {
		deviceKmh := cur.speedMPS * 3.6
		combined = calculatedKmh*calculatedShare + deviceKmh*deviceShare
	}

	if len(n.speedHist) > 0 {
		last := n.speedHist[len(n.speedHist)-1]
		if diff := combined - last; diff > outlierJumpKmh || diff < -outlierJumpKmh {
			combined = last
		}
	}

	n.speedHist = append(n.speedHist, combined)
	if len(n.speedHist) > historySize {
		n.speedHist = n.speedHist[1:]
	}

	sum := 0.0
	for _, s := range n.speedHist {
		sum += s
	}
	avg := sum / float64(len(n.speedHist))

	if avg > maxSpeedKmh {
		avg = maxSpeedKmh
	}
	if avg < stationaryKmh {
		avg = 0
	}
	return avg
}
