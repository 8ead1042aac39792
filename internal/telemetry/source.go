package telemetry

import (
	"sync"

	"github.com/akshu187/smartsafe/internal/engine/geoloc"
)

// pushSource feeds the normalizer from fixes pushed over the wire
// instead of a platform position API. Push before Start (or after Stop)
// drops the fix.
type pushSource struct {
	mu    sync.Mutex
	onFix func(geoloc.Fix)
}

func (s *pushSource) Start(onFix func(geoloc.Fix), onError func(error)) error {
	s.mu.Lock()
	s.onFix = onFix
	s.mu.Unlock()
	return nil
}

func (s *pushSource) Stop() {
	s.mu.Lock()
	s.onFix = nil
	s.mu.Unlock()
}

func (s *pushSource) Push(f geoloc.Fix) {
	s.mu.Lock()
	onFix := s.onFix
	s.mu.Unlock()
	if onFix != nil {
		onFix(f)
	}
}
