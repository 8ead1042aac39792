package alert

import "sync"

const logCapacity = 10

// ActivityLog is a bounded, newest-first record of alerts for one session.
// It is created at session start and cleared when the session ends; nothing
// else shares or mutates it.
type ActivityLog struct {
	mu      sync.Mutex
	entries []Alert
}

func NewActivityLog() *ActivityLog {
	return &ActivityLog{}
}

func (l *ActivityLog) Append(a Alert) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = append([]Alert{a}, l.entries...)
	if len(l.entries) > logCapacity {
		l.entries = l.entries[:logCapacity]
	}
}

// Entries returns a copy, newest first.
func (l *ActivityLog) Entries() []Alert {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Alert, len(l.entries))
	copy(out, l.entries)
	return out
}

func (l *ActivityLog) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = nil
}
