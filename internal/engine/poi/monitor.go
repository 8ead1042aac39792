package poi

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/akshu187/smartsafe/internal/shared/geo"

	"go.uber.org/zap"
)

const (
	searchRadiusM  = 500
	alertRadiusM   = 200.0
	pollInterval   = 10 * time.Second
	repeatSuppress = 2 * time.Minute
)

type lastAlert struct {
	typ  Type
	name string
	at   time.Time
}

// Monitor polls the geospatial source for nearby points and raises a
// typed zone alert when the nearest qualifying point is within the alert
// radius. Repeats of the identical point are suppressed for two minutes.
type Monitor struct {
	querier Querier
	onAlert func(Alert)
	logger  *zap.Logger

	mu      sync.Mutex
	nearby  []POI
	current *POI
	last    *lastAlert
}

func NewMonitor(q Querier, onAlert func(Alert), logger *zap.Logger) *Monitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{querier: q, onAlert: onAlert, logger: logger}
}

// Check runs one polling cycle at the given position. Query failures are
// logged and the cycle is skipped; the next poll retries naturally.
func (m *Monitor) Check(ctx context.Context, pos geo.Point, now time.Time) {
	pois, err := m.querier.Nearby(ctx, pos.Lat, pos.Lng, searchRadiusM)
	if err != nil {
		m.logger.Warn("poi query failed", zap.Error(err))
		return
	}

	sort.Slice(pois, func(i, j int) bool { return pois[i].DistanceM < pois[j].DistanceM })

	m.mu.Lock()
	m.nearby = pois

	var nearest *POI
	for i := range pois {
		if pois[i].DistanceM <= alertRadiusM {
			nearest = &pois[i]
			break
		}
	}
	if nearest == nil {
		m.current = nil
		m.mu.Unlock()
		return
	}
	m.current = nearest

	if m.last != nil && m.last.typ == nearest.Type && m.last.name == nearest.Name &&
		now.Sub(m.last.at) <= repeatSuppress {
		m.mu.Unlock()
		return
	}

	a := newAlert(*nearest, now)
	m.last = &lastAlert{typ: nearest.Type, name: nearest.Name, at: now}
	cb := m.onAlert
	m.mu.Unlock()

	m.logger.Info("poi proximity alert",
		zap.String("type", string(a.Type)),
		zap.String("name", a.Name),
		zap.Float64("distance_m", nearest.DistanceM))
	if cb != nil {
		cb(a)
	}
}

// Nearby returns the last polled result set, nearest first.
func (m *Monitor) Nearby() []POI {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]POI, len(m.nearby))
	copy(out, m.nearby)
	return out
}

// Current returns the point the driver is inside of, if any.
func (m *Monitor) Current() (POI, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return POI{}, false
	}
	return *m.current, true
}

// Run polls every 10 seconds using the supplied position getter until the
// context is done. Positions are unavailable until the first GPS fix.
func (m *Monitor) Run(ctx context.Context, position func() (geo.Point, bool)) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if pos, ok := position(); ok {
				m.Check(ctx, pos, now)
			}
		}
	}
}
