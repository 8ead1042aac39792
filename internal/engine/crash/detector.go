package crash

import (
	"math"
	"sync"
	"time"

	"github.com/akshu187/smartsafe/internal/shared/geo"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"
)

type Type string

const (
	TypeFrontal  Type = "frontal"
	TypeSide     Type = "side"
	TypeRear     Type = "rear"
	TypeRollover Type = "rollover"
	TypeUnknown  Type = "unknown"
)

// MotionSample is one raw accelerometer reading (gravity included),
// optionally with the gyroscope rotation rate attached.
type MotionSample struct {
	AccX, AccY, AccZ            float64
	RotAlpha, RotBeta, RotGamma float64
	HasRotation                 bool
	At                          time.Time
}

// OrientationSample is one absolute device-orientation reading in degrees.
type OrientationSample struct {
	Alpha, Beta, Gamma float64
	At                 time.Time
}

// Detection is a confidence-scored crash candidate that met the trigger
// criteria.
type Detection struct {
	GForce        float64   `json:"g_force"`
	Jerk          float64   `json:"jerk"`
	RotationRate  float64   `json:"rotation_rate"`
	SpeedDrop     float64   `json:"speed_drop"`
	SoundDetected bool      `json:"sound_detected"`
	Confidence    float64   `json:"confidence"`
	Type          Type      `json:"crash_type"`
	SpeedKmh      float64   `json:"speed_kmh"`
	Position      geo.Point `json:"position"`
	HasPosition   bool      `json:"has_position"`
	At            time.Time `json:"at"`
}

const (
	gravity             = 9.8
	minSampleInterval   = 100 * time.Millisecond
	cooldown            = 10 * time.Second
	speedWindow         = 10   // ~2 s of speed readings
	impactWindow        = 5    // impact consistency voting window
	patternWindow       = 1200 // ~2 min of motion samples
	baselineDelay       = 2 * time.Minute
	loudSoundThreshold  = 150.0
	loudSoundHold       = 2 * time.Second
	falsePositiveWindow = time.Hour
	confidentThreshold  = 65.0
)

type baseline struct {
	avgG float64
	maxG float64
}

type falsePositive struct {
	at     time.Time
	reason string
}

type patternPoint struct {
	x, y, z float64
	at      time.Time
}

// Detector fuses motion, orientation and ambient-sound signals into a
// crash decision. The caller starts it only after motion-sensor consent;
// a detector that is never started stays inactive for the session.
// Missing signals (no gyroscope, no microphone) just narrow the score.
type Detector struct {
	onDetection func(Detection)
	logger      *zap.Logger

	mu        sync.Mutex
	active    bool
	startedAt time.Time

	lastAcc        [3]float64
	lastSampleTime time.Time
	lastOrient     OrientationSample
	hasOrient      bool
	lastOrientRate float64

	speedKmh    float64
	speedHist   []float64
	position    geo.Point
	hasPosition bool
	accuracyM   float64

	impactSamples []float64
	pattern       []patternPoint
	base          baseline
	baseSet       bool

	loudUntil      time.Time
	lastDetection  time.Time
	falsePositives []falsePositive
	cancelCount    int
}

func NewDetector(onDetection func(Detection), logger *zap.Logger) *Detector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Detector{
		onDetection: onDetection,
		logger:      logger,
		base:        baseline{avgG: 1, maxG: 2},
	}
}

// Start activates detection. Call it after the platform has granted
// motion-sensor access; starting twice is a no-op.
func (d *Detector) Start(now time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.active {
		return
	}
	d.active = true
	d.startedAt = now
	d.lastSampleTime = now
}

// Stop deactivates detection and drops the per-session windows. The
// learned false-positive history survives a restart within the session.
func (d *Detector) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.active = false
	d.speedHist = nil
	d.impactSamples = nil
	d.pattern = nil
	d.baseSet = false
	d.base = baseline{avgG: 1, maxG: 2}
	d.hasOrient = false
}

func (d *Detector) Active() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.active
}

// UpdateSpeed feeds the latest smoothed speed and position from the
// normalizer. The speed window backs the sudden-drop signal.
func (d *Detector) UpdateSpeed(speedKmh float64, pos geo.Point, hasPos bool, accuracyM float64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.speedKmh = speedKmh
	d.position = pos
	d.hasPosition = hasPos
	d.accuracyM = accuracyM

	d.speedHist = append(d.speedHist, speedKmh)
	if len(d.speedHist) > speedWindow {
		d.speedHist = d.speedHist[1:]
	}
}

// ProcessSound feeds one ambient loudness reading (frequency-domain
// average amplitude, 0-255). A reading above the threshold flags "loud
// sound" for the next two seconds.
func (d *Detector) ProcessSound(avgAmplitude float64, now time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.active {
		return
	}
	if avgAmplitude > loudSoundThreshold {
		d.loudUntil = now.Add(loudSoundHold)
		d.logger.Debug("loud sound detected", zap.Float64("amplitude", avgAmplitude))
	}
}

// RecordFalsePositive notes a user cancellation so future confidence
// scores are penalized for the next hour.
func (d *Detector) RecordFalsePositive(reason string, now time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.falsePositives = append(d.falsePositives, falsePositive{at: now, reason: reason})
	d.cancelCount++
	if d.cancelCount >= 3 {
		d.logger.Info("repeated crash cancellations, detection confidence reduced",
			zap.Int("cancel_count", d.cancelCount))
	}
}

// ProcessOrientation handles absolute orientation readings and detects
// rollovers from extreme rotation rates. Rollover alerts share the same
// cooldown as motion-triggered detections.
func (d *Detector) ProcessOrientation(o OrientationSample) {
	d.mu.Lock()

	if !d.active {
		d.mu.Unlock()
		return
	}
	if !d.hasOrient {
		d.lastOrient = o
		d.hasOrient = true
		d.mu.Unlock()
		return
	}

	dt := o.At.Sub(d.lastSampleTime).Seconds()
	if dt < minSampleInterval.Seconds() {
		d.mu.Unlock()
		return
	}

	alphaChange := math.Abs(o.Alpha - d.lastOrient.Alpha)
	if alphaChange > 180 { // compass wraparound
		alphaChange = 360 - alphaChange
	}
	betaChange := math.Abs(o.Beta - d.lastOrient.Beta)
	gammaChange := math.Abs(o.Gamma - d.lastOrient.Gamma)

	rate := math.Sqrt(alphaChange*alphaChange+betaChange*betaChange+gammaChange*gammaChange) / dt
	d.lastOrient = o
	d.lastOrientRate = rate

	if rate > 90 && d.speedKmh > 15 && o.At.Sub(d.lastDetection) >= cooldown {
		d.lastDetection = o.At
		det := Detection{
			RotationRate: rate,
			Type:         TypeRollover,
			SpeedKmh:     d.speedKmh,
			Position:     d.position,
			HasPosition:  d.hasPosition,
			At:           o.At,
		}
		cb := d.onDetection
		d.mu.Unlock()

		d.logger.Warn("rollover detected",
			zap.Float64("rotation_rate", rate),
			zap.Float64("speed_kmh", det.SpeedKmh))
		if cb != nil {
			cb(det)
		}
		return
	}

	d.mu.Unlock()
}

// ProcessMotion runs the full per-sample pipeline: jerk, G-force, crash
// typing, eight-factor confidence scoring and the trigger checks.
func (d *Detector) ProcessMotion(s MotionSample) {
	d.mu.Lock()

	if !d.active {
		d.mu.Unlock()
		return
	}

	dt := s.At.Sub(d.lastSampleTime).Seconds()
	if dt < minSampleInterval.Seconds() {
		d.mu.Unlock()
		return
	}

	jerkX := math.Abs(s.AccX-d.lastAcc[0]) / dt
	jerkY := math.Abs(s.AccY-d.lastAcc[1]) / dt
	jerkZ := math.Abs(s.AccZ-d.lastAcc[2]) / dt
	totalJerk := math.Sqrt(jerkX*jerkX + jerkY*jerkY + jerkZ*jerkZ)

	totalG := math.Sqrt(s.AccX*s.AccX+s.AccY*s.AccY+s.AccZ*s.AccZ) / gravity

	gyroRate := 0.0
	if s.HasRotation {
		gyroRate = math.Sqrt(s.RotAlpha*s.RotAlpha + s.RotBeta*s.RotBeta + s.RotGamma*s.RotGamma)
	}

	speedDrop := 0.0
	if len(d.speedHist) >= 2 {
		speedDrop = d.speedHist[0] - d.speedHist[len(d.speedHist)-1]
	}

	d.impactSamples = append(d.impactSamples, totalG)
	if len(d.impactSamples) > impactWindow {
		d.impactSamples = d.impactSamples[1:]
	}

	d.pattern = append(d.pattern, patternPoint{x: s.AccX, y: s.AccY, z: s.AccZ, at: s.At})
	if len(d.pattern) > patternWindow {
		d.pattern = d.pattern[1:]
	}

	d.maybeEstablishBaselineLocked(s.At)

	highG := 0
	for _, g := range d.impactSamples {
		if g > 2.5 {
			highG++
		}
	}
	consistentImpact := highG >= 3

	unusualForUser := totalG > d.base.maxG*1.5
	erratic := d.patternVarianceLocked() > 50

	crashType := classify(s, gyroRate, d.lastOrientRate)

	conf := d.confidenceLocked(totalG, totalJerk, speedDrop, consistentImpact, unusualForUser, erratic, s)

	speed := d.speedKmh
	if s.At.Sub(d.lastDetection) < cooldown {
		d.lastAcc = [3]float64{s.AccX, s.AccY, s.AccZ}
		d.lastSampleTime = s.At
		d.mu.Unlock()
		return
	}

	highImpact := totalG > 4 && totalJerk > 40 && speed > 20
	mediumImpact := totalG > 3 && totalJerk > 30 && speed > 15
	rollover := (gyroRate > 5 || d.lastOrientRate > 60) && speed > 15
	confident := conf >= confidentThreshold && consistentImpact && speed > 15

	d.lastAcc = [3]float64{s.AccX, s.AccY, s.AccZ}
	d.lastSampleTime = s.At

	if !(highImpact || mediumImpact || rollover || confident) {
		d.mu.Unlock()
		return
	}

	reportedRate := gyroRate
	if reportedRate == 0 {
		reportedRate = d.lastOrientRate
	}

	d.lastDetection = s.At
	det := Detection{
		GForce:        totalG,
		Jerk:          totalJerk,
		RotationRate:  reportedRate,
		SpeedDrop:     speedDrop,
		SoundDetected: s.At.Before(d.loudUntil),
		Confidence:    conf,
		Type:          crashType,
		SpeedKmh:      speed,
		Position:      d.position,
		HasPosition:   d.hasPosition,
		At:            s.At,
	}
	cb := d.onDetection
	d.mu.Unlock()

	d.logger.Warn("crash detected",
		zap.Float64("g_force", det.GForce),
		zap.Float64("jerk", det.Jerk),
		zap.Float64("speed_kmh", det.SpeedKmh),
		zap.Float64("confidence", det.Confidence),
		zap.String("crash_type", string(det.Type)))
	if cb != nil {
		cb(det)
	}
}

// maybeEstablishBaselineLocked replaces the default driving baseline with
// the learned one, once, the first time a sample arrives two minutes or
// more after activation.
func (d *Detector) maybeEstablishBaselineLocked(now time.Time) {
	if d.baseSet || now.Sub(d.startedAt) < baselineDelay || len(d.pattern) == 0 {
		return
	}

	gs := make([]float64, len(d.pattern))
	maxG := 0.0
	for i, p := range d.pattern {
		g := math.Sqrt(p.x*p.x+p.y*p.y+p.z*p.z) / gravity
		gs[i] = g
		if g > maxG {
			maxG = g
		}
	}
	d.base = baseline{avgG: stat.Mean(gs, nil), maxG: maxG}
	d.baseSet = true
	d.logger.Info("driving baseline established",
		zap.Float64("avg_g", d.base.avgG),
		zap.Float64("max_g", d.base.maxG))
}

// patternVarianceLocked measures how erratic the last second of motion
// was: the RMS of successive acceleration-vector deltas over the last 10
// pattern points.
func (d *Detector) patternVarianceLocked() float64 {
	recent := d.pattern
	if len(recent) > 10 {
		recent = recent[len(recent)-10:]
	}
	if len(recent) <= 1 {
		return 0
	}

	sum := 0.0
	for i := 1; i < len(recent); i++ {
		p, prev := recent[i], recent[i-1]
		dx, dy, dz := p.x-prev.x, p.y-prev.y, p.z-prev.z
		diff := math.Sqrt(dx*dx + dy*dy + dz*dz)
		sum += diff * diff
	}
	return math.Sqrt(sum / float64(len(recent)))
}

// confidenceLocked scores the candidate 0-100 from eight weighted signals
// plus situational bonuses and penalties.
func (d *Detector) confidenceLocked(totalG, totalJerk, speedDrop float64, consistent, unusual, erratic bool, s MotionSample) float64 {
	conf := 0.0

	switch {
	case totalG > 4:
		conf += 25
	case totalG > 3:
		conf += 18
	case totalG > 2.5:
		conf += 10
	}

	switch {
	case totalJerk > 40:
		conf += 20
	case totalJerk > 30:
		conf += 12
	case totalJerk > 20:
		conf += 8
	}

	switch {
	case d.speedKmh > 30:
		conf += 15
	case d.speedKmh > 20:
		conf += 10
	case d.speedKmh > 15:
		conf += 5
	}

	if s.At.Before(d.loudUntil) {
		conf += 12
	}

	switch {
	case speedDrop > 20:
		conf += 10
	case speedDrop > 10:
		conf += 5
	}

	if consistent {
		conf += 8
	}
	if unusual {
		conf += 5
	}
	if erratic {
		conf += 5
	}

	// Mounted phones read steady gravity on the Z axis.
	if absZ := math.Abs(s.AccZ); absZ > 8 && absZ < 12 {
		conf += 10
	}

	hour := s.At.Hour()
	if hour >= 22 || hour <= 6 {
		conf -= 5
	}

	recentFP := 0
	for _, fp := range d.falsePositives {
		if s.At.Sub(fp.at) < falsePositiveWindow {
			recentFP++
		}
	}
	conf -= float64(recentFP) * 5

	if d.hasPosition && d.accuracyM > 0 && d.accuracyM < 20 {
		conf += 5
	}

	if conf > 100 {
		conf = 100
	}
	if conf < 0 {
		conf = 0
	}
	return conf
}

// classify picks the crash type from the dominant acceleration axis, or
// rollover when rotation dominates.
func classify(s MotionSample, gyroRate, orientRate float64) Type {
	absX, absY, absZ := math.Abs(s.AccX), math.Abs(s.AccY), math.Abs(s.AccZ)
	dominant := math.Max(absX, math.Max(absY, absZ))

	switch {
	case absY == dominant:
		if s.AccY > 0 {
			return TypeFrontal
		}
		return TypeRear
	case absX == dominant:
		return TypeSide
	case gyroRate > 5 || orientRate > 60:
		return TypeRollover
	default:
		return TypeUnknown
	}
}
