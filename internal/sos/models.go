package sos

import "time"

const (
	ReasonCrash  = "crash"
	ReasonManual = "manual"
)

// Request is an SOS trigger, either raised automatically by the crash
// detector or by the driver pressing the manual button.
type Request struct {
	UserID   string  `json:"user_id"`
	UserName string  `json:"user_name"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	Reason   string  `json:"reason"`
	GForce   float64 `json:"g_force"`
	SpeedKmh float64 `json:"speed"`
}

// Event is a persisted SOS occurrence plus the message sent to the
// driver's emergency contacts.
type Event struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	UserName  string    `json:"user_name"`
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	Reason    string    `json:"reason"`
	GForce    float64   `json:"g_force"`
	SpeedKmh  float64   `json:"speed"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}
