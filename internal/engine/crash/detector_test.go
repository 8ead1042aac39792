package crash

import (
	"testing"
	"time"

	"github.com/akshu187/smartsafe/internal/shared/geo"
)

var here = geo.Point{Lat: 28.4595, Lng: 77.0266}

func noon() time.Time {
	return time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
}

func impactSample(at time.Time) MotionSample {
	// |a| = 40 m/s² => ~4.08 G; jerk from rest over 200 ms is far past 40.
	return MotionSample{AccY: 40, At: at}
}

func TestHighImpactDetection(t *testing.T) {
	var dets []Detection
	d := NewDetector(func(det Detection) { dets = append(dets, det) }, nil)

	t0 := noon()
	d.Start(t0)
	d.UpdateSpeed(50, here, true, 10)
	d.ProcessMotion(impactSample(t0.Add(200 * time.Millisecond)))

	if len(dets) != 1 {
		t.Fatalf("expected 1 detection, got %d", len(dets))
	}
	det := dets[0]
	if det.Type != TypeFrontal {
		t.Fatalf("expected frontal crash, got %v", det.Type)
	}
	if det.GForce < 4 || det.Jerk < 40 {
		t.Fatalf("unexpected signal values: %+v", det)
	}
	// 25 (G) + 20 (jerk) + 15 (speed>30) + 5 (above baseline) + 5 (gps) = 70
	if det.Confidence != 70 {
		t.Fatalf("confidence = %v, want 70", det.Confidence)
	}
}

func TestCrashTypeByDominantAxis(t *testing.T) {
	cases := []struct {
		name   string
		sample MotionSample
		want   Type
	}{
		{"frontal", MotionSample{AccY: 40}, TypeFrontal},
		{"rear", MotionSample{AccY: -40}, TypeRear},
		{"side", MotionSample{AccX: 40}, TypeSide},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var dets []Detection
			d := NewDetector(func(det Detection) { dets = append(dets, det) }, nil)
			t0 := noon()
			d.Start(t0)
			d.UpdateSpeed(50, here, true, 10)
			tc.sample.At = t0.Add(200 * time.Millisecond)
			d.ProcessMotion(tc.sample)
			if len(dets) != 1 || dets[0].Type != tc.want {
				t.Fatalf("got %+v, want type %v", dets, tc.want)
			}
		})
	}
}

func TestCooldownSuppressesRepeats(t *testing.T) {
	var dets []Detection
	d := NewDetector(func(det Detection) { dets = append(dets, det) }, nil)

	t0 := noon()
	d.Start(t0)
	d.UpdateSpeed(50, here, true, 10)

	// Sustained high-G input for 12 seconds at sensor cadence, alternating
	// direction so the jerk stays past the trigger threshold.
	sign := 1.0
	for at := t0.Add(200 * time.Millisecond); at.Before(t0.Add(12 * time.Second)); at = at.Add(200 * time.Millisecond) {
		d.ProcessMotion(MotionSample{AccY: sign * 40, At: at})
		sign = -sign
	}

	if len(dets) != 2 {
		t.Fatalf("expected exactly 2 detections across 12 s, got %d", len(dets))
	}
	if gap := dets[1].At.Sub(dets[0].At); gap < 10*time.Second {
		t.Fatalf("detections %v apart, want >= 10 s", gap)
	}
}

func TestConfidenceClampedAt100(t *testing.T) {
	var dets []Detection
	d := NewDetector(func(det Detection) { dets = append(dets, det) }, nil)

	t0 := noon()
	d.Start(t0)
	for i := 0; i < 9; i++ {
		d.UpdateSpeed(60, here, true, 10)
	}
	d.UpdateSpeed(35, here, true, 10) // speed drop 25, still above 30

	d.ProcessSound(200, t0.Add(100*time.Millisecond))

	// Alternate hard impacts to keep the pattern erratic and the impact
	// window consistently above 2.5 G.
	at := t0.Add(200 * time.Millisecond)
	for i := 0; i < 60; i++ {
		s := MotionSample{AccY: 40, AccZ: 9.8, At: at}
		if i%2 == 1 {
			s.AccY = -40
		}
		d.ProcessMotion(s)
		at = at.Add(200 * time.Millisecond)
	}

	if len(dets) == 0 {
		t.Fatalf("expected detections")
	}
	for _, det := range dets {
		if det.Confidence < 0 || det.Confidence > 100 {
			t.Fatalf("confidence out of range: %v", det.Confidence)
		}
	}
	// The second detection has every factor and bonus maxed.
	if len(dets) >= 2 && dets[1].Confidence != 100 {
		t.Fatalf("expected saturated confidence 100, got %v", dets[1].Confidence)
	}
}

func TestFalsePositivePenalty(t *testing.T) {
	var dets []Detection
	d := NewDetector(func(det Detection) { dets = append(dets, det) }, nil)

	t0 := noon()
	d.Start(t0)
	d.UpdateSpeed(50, here, true, 10)
	d.RecordFalsePositive("user cancelled", t0.Add(-10*time.Minute))
	d.RecordFalsePositive("user cancelled", t0.Add(-5*time.Minute))
	d.RecordFalsePositive("user cancelled", t0.Add(-1*time.Minute))
	// An old cancellation outside the one-hour window must not count.
	d.RecordFalsePositive("stale", t0.Add(-2*time.Hour))

	d.ProcessMotion(impactSample(t0.Add(200 * time.Millisecond)))

	if len(dets) != 1 {
		t.Fatalf("expected detection, got %d", len(dets))
	}
	// Baseline 70 minus 5 per recent false positive.
	if dets[0].Confidence != 55 {
		t.Fatalf("confidence = %v, want 55", dets[0].Confidence)
	}
}

func TestLoudSoundRaisesConfidence(t *testing.T) {
	var dets []Detection
	d := NewDetector(func(det Detection) { dets = append(dets, det) }, nil)

	t0 := noon()
	d.Start(t0)
	d.UpdateSpeed(50, here, true, 10)
	d.ProcessSound(200, t0.Add(100*time.Millisecond))
	d.ProcessMotion(impactSample(t0.Add(200 * time.Millisecond)))

	if len(dets) != 1 || !dets[0].SoundDetected {
		t.Fatalf("expected sound-flagged detection, got %+v", dets)
	}
	if dets[0].Confidence != 82 {
		t.Fatalf("confidence = %v, want 82", dets[0].Confidence)
	}
}

func TestSoundFlagExpires(t *testing.T) {
	var dets []Detection
	d := NewDetector(func(det Detection) { dets = append(dets, det) }, nil)

	t0 := noon()
	d.Start(t0)
	d.UpdateSpeed(50, here, true, 10)
	d.ProcessSound(200, t0)
	d.ProcessMotion(impactSample(t0.Add(3 * time.Second)))

	if len(dets) != 1 || dets[0].SoundDetected {
		t.Fatalf("sound flag should expire after 2 s: %+v", dets)
	}
}

func TestQuietSoundIgnored(t *testing.T) {
	d := NewDetector(nil, nil)
	t0 := noon()
	d.Start(t0)
	d.ProcessSound(100, t0)
	d.mu.Lock()
	loud := d.loudUntil
	d.mu.Unlock()
	if !loud.IsZero() {
		t.Fatalf("quiet reading must not arm the sound flag")
	}
}

func TestRolloverFromOrientation(t *testing.T) {
	var dets []Detection
	d := NewDetector(func(det Detection) { dets = append(dets, det) }, nil)

	t0 := noon()
	d.Start(t0)
	d.UpdateSpeed(30, here, true, 10)

	d.ProcessOrientation(OrientationSample{Alpha: 10, Beta: 0, Gamma: 0, At: t0.Add(200 * time.Millisecond)})
	// 50 degrees of beta change over 400 ms is ~125 deg/s.
	d.ProcessOrientation(OrientationSample{Alpha: 10, Beta: 50, Gamma: 0, At: t0.Add(400 * time.Millisecond)})

	if len(dets) != 1 || dets[0].Type != TypeRollover {
		t.Fatalf("expected rollover detection, got %+v", dets)
	}

	// A second extreme rotation inside the cooldown stays silent.
	d.ProcessOrientation(OrientationSample{Alpha: 10, Beta: 120, Gamma: 0, At: t0.Add(600 * time.Millisecond)})
	if len(dets) != 1 {
		t.Fatalf("cooldown must suppress repeat rollover, got %d", len(dets))
	}
}

func TestRolloverRequiresSpeed(t *testing.T) {
	var dets []Detection
	d := NewDetector(func(det Detection) { dets = append(dets, det) }, nil)

	t0 := noon()
	d.Start(t0)
	d.UpdateSpeed(5, here, true, 10) // picking the phone up, not a rollover

	d.ProcessOrientation(OrientationSample{Beta: 0, At: t0.Add(200 * time.Millisecond)})
	d.ProcessOrientation(OrientationSample{Beta: 80, At: t0.Add(400 * time.Millisecond)})

	if len(dets) != 0 {
		t.Fatalf("expected no detection at low speed, got %+v", dets)
	}
}

func TestAlphaWraparound(t *testing.T) {
	var dets []Detection
	d := NewDetector(func(det Detection) { dets = append(dets, det) }, nil)

	t0 := noon()
	d.Start(t0)
	d.UpdateSpeed(30, here, true, 10)

	// 359 -> 2 degrees is a 3-degree change, not 357.
	d.ProcessOrientation(OrientationSample{Alpha: 359, At: t0.Add(200 * time.Millisecond)})
	d.ProcessOrientation(OrientationSample{Alpha: 2, At: t0.Add(1200 * time.Millisecond)})

	if len(dets) != 0 {
		t.Fatalf("compass wraparound misread as rollover: %+v", dets)
	}
}

func TestInactiveDetectorIgnoresSamples(t *testing.T) {
	var dets []Detection
	d := NewDetector(func(det Detection) { dets = append(dets, det) }, nil)

	d.UpdateSpeed(50, here, true, 10)
	d.ProcessMotion(impactSample(noon()))

	if d.Active() {
		t.Fatalf("detector must stay inactive without consent")
	}
	if len(dets) != 0 {
		t.Fatalf("inactive detector produced detection")
	}
}

func TestLowSpeedSuppressesTriggers(t *testing.T) {
	var dets []Detection
	d := NewDetector(func(det Detection) { dets = append(dets, det) }, nil)

	t0 := noon()
	d.Start(t0)
	d.UpdateSpeed(10, here, true, 10) // dropped phone while parked
	d.ProcessMotion(impactSample(t0.Add(200 * time.Millisecond)))

	if len(dets) != 0 {
		t.Fatalf("expected no detection below trigger speeds, got %+v", dets)
	}
}

func TestBaselineEstablishedAfterTwoMinutes(t *testing.T) {
	d := NewDetector(nil, nil)
	t0 := noon()
	d.Start(t0)

	// Calm driving: gravity on Z only.
	for i := 0; i < 20; i++ {
		d.ProcessMotion(MotionSample{AccZ: 9.8, At: t0.Add(time.Duration(i) * time.Second)})
	}
	d.mu.Lock()
	set := d.baseSet
	d.mu.Unlock()
	if set {
		t.Fatalf("baseline learned too early")
	}

	d.ProcessMotion(MotionSample{AccZ: 9.8, At: t0.Add(121 * time.Second)})
	d.mu.Lock()
	base, set := d.base, d.baseSet
	d.mu.Unlock()
	if !set {
		t.Fatalf("baseline not established after 2 minutes")
	}
	if base.avgG < 0.9 || base.avgG > 1.1 || base.maxG < 0.9 || base.maxG > 1.1 {
		t.Fatalf("unexpected baseline: %+v", base)
	}
}

func TestStopClearsSessionWindows(t *testing.T) {
	d := NewDetector(nil, nil)
	t0 := noon()
	d.Start(t0)
	d.UpdateSpeed(50, here, true, 10)
	d.ProcessMotion(MotionSample{AccZ: 9.8, At: t0.Add(200 * time.Millisecond)})

	d.Stop()
	d.Stop() // idempotent

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.active || len(d.pattern) != 0 || len(d.impactSamples) != 0 || len(d.speedHist) != 0 {
		t.Fatalf("stop must clear session state")
	}
}
