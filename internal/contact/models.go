package contact

import "time"

// Contact is one emergency contact for a driver. Priority 1 is called
// first when an SOS fires.
type Contact struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Priority  int       `json:"priority"`
	CreatedAt time.Time `json:"created_at"`
}
