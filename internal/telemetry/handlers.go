package telemetry

import (
	"encoding/json"
	"time"

	"github.com/akshu187/smartsafe/internal/engine"
	"github.com/akshu187/smartsafe/internal/engine/alert"
	"github.com/akshu187/smartsafe/internal/engine/crash"
	"github.com/akshu187/smartsafe/internal/engine/fatigue"
	"github.com/akshu187/smartsafe/internal/engine/geoloc"
	"github.com/akshu187/smartsafe/internal/engine/harsh"
	"github.com/akshu187/smartsafe/internal/engine/poi"
	"github.com/akshu187/smartsafe/internal/stream"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"
)

// frame is one inbound telemetry message. Type selects which fields are
// read; the rest stay zero.
type frame struct {
	Type string `json:"type"`

	// fix
	Lat       float64  `json:"lat"`
	Lng       float64  `json:"lng"`
	AccuracyM float64  `json:"accuracy"`
	SpeedMPS  *float64 `json:"speed"`
	Heading   *float64 `json:"heading"`
	AltitudeM *float64 `json:"altitude"`

	// motion
	AccX     float64  `json:"acc_x"`
	AccY     float64  `json:"acc_y"`
	AccZ     float64  `json:"acc_z"`
	RotAlpha *float64 `json:"rot_alpha"`
	RotBeta  *float64 `json:"rot_beta"`
	RotGamma *float64 `json:"rot_gamma"`

	// orientation
	Alpha float64 `json:"alpha"`
	Beta  float64 `json:"beta"`
	Gamma float64 `json:"gamma"`

	// sound
	Amplitude float64 `json:"amplitude"`

	// false_positive
	Reason string `json:"reason"`

	At time.Time `json:"at"`
}

// statusReply answers a "status" frame with the session's current view.
type statusReply struct {
	Type         string        `json:"type"`
	SafetyScore  int           `json:"safety_score"`
	FatigueLevel fatigue.Level `json:"fatigue_level"`
	Stats        harsh.Stats   `json:"stats"`
	NearbyPOIs   []poi.POI     `json:"nearby_pois"`
}

// RegisterRoutes exposes the telemetry ingest socket. Each connection
// runs its own engine session: fix, motion, orientation and sound frames
// drive the estimators and every alert they raise is broadcast on the
// session's alert channel. Motion-sensor consent is declared up front
// with ?consent=true.
func RegisterRoutes(r fiber.Router, hub *stream.Hub, poiQuerier poi.Querier, speedLimitKmh float64, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	r.Get("/ws/:sessionID", websocket.New(func(c *websocket.Conn) {
		sessionID := c.Params("sessionID")
		consent := c.Query("consent") == "true"

		src := &pushSource{}
		sess := engine.NewSession(engine.Options{
			Source:        src,
			POIQuerier:    poiQuerier,
			SpeedLimitKmh: speedLimitKmh,
			MotionConsent: consent,
			Sink: alert.SinkFunc(func(a alert.Alert) {
				payload, err := json.Marshal(a)
				if err != nil {
					return
				}
				hub.Broadcast(sessionID, payload)
			}),
			Logger: logger.With(zap.String("session_id", sessionID)),
		})
		if err := sess.Start(time.Now()); err != nil {
			logger.Warn("telemetry session start failed",
				zap.String("session_id", sessionID), zap.Error(err))
			c.WriteJSON(fiber.Map{"type": "error", "message": err.Error()})
			return
		}
		defer sess.Stop()

		for {
			var f frame
			if err := c.ReadJSON(&f); err != nil {
				return
			}
			handleFrame(c, sess, src, f)
		}
	}))
}

func handleFrame(c *websocket.Conn, sess *engine.Session, src *pushSource, f frame) {
	at := f.At
	if at.IsZero() {
		at = time.Now()
	}

	switch f.Type {
	case "fix":
		fix := geoloc.Fix{Lat: f.Lat, Lng: f.Lng, AccuracyM: f.AccuracyM, At: at}
		if f.SpeedMPS != nil {
			fix.SpeedMPS, fix.SpeedValid = *f.SpeedMPS, true
		}
		if f.Heading != nil {
			fix.Heading, fix.HeadingValid = *f.Heading, true
		}
		if f.AltitudeM != nil {
			fix.AltitudeM, fix.AltitudeValid = *f.AltitudeM, true
		}
		src.Push(fix)
	case "motion":
		m := crash.MotionSample{AccX: f.AccX, AccY: f.AccY, AccZ: f.AccZ, At: at}
		if f.RotAlpha != nil && f.RotBeta != nil && f.RotGamma != nil {
			m.RotAlpha, m.RotBeta, m.RotGamma = *f.RotAlpha, *f.RotBeta, *f.RotGamma
			m.HasRotation = true
		}
		sess.ProcessMotion(m)
	case "orientation":
		sess.ProcessOrientation(crash.OrientationSample{Alpha: f.Alpha, Beta: f.Beta, Gamma: f.Gamma, At: at})
	case "sound":
		sess.ProcessSound(f.Amplitude, at)
	case "false_positive":
		sess.RecordFalsePositive(f.Reason, at)
	case "status":
		c.WriteJSON(statusReply{
			Type:         "status",
			SafetyScore:  sess.SafetyScore(),
			FatigueLevel: sess.FatigueStatus(at),
			Stats:        sess.Stats(),
			NearbyPOIs:   sess.NearbyPOIs(),
		})
	}
}
