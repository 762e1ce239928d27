// v0
// internal/http/health.go
package httpserver

import "sync"

// HealthState tracks readiness information for the HTTP API. Liveness is
// implied while the process runs. Readiness is raised by the application
// once the dashboard monitor, log feed and stream hub loops have started,
// and lowered again as soon as shutdown begins so load balancers stop
// routing new requests before the server drains.
type HealthState struct {
	mu    sync.RWMutex
	ready bool
}

// NewHealthState returns a tracker that reports not ready until SetReady
// is called, so probes never see a half-wired service as healthy.
func NewHealthState() *HealthState {
	return &HealthState{}
}

// SetReady flips the readiness flag. The application calls it during
// startup and at the start of shutdown.
func (h *HealthState) SetReady(value bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ready = value
}

// Ready reports the readiness flag. It is safe for concurrent use.
func (h *HealthState) Ready() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.ready
}
