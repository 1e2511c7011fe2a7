package handlers

import (
	"net/http"
	"sync/atomic"
)

// HealthChecker serves liveness and readiness probes.
type HealthChecker struct {
	ready atomic.Bool
}

// NewHealthChecker creates a checker that reports not-ready until SetReady.
func NewHealthChecker() *HealthChecker {
	return &HealthChecker{}
}

// SetReady flips the readiness state.
func (hc *HealthChecker) SetReady(ready bool) {
	hc.ready.Store(ready)
}

// HealthzHandler reports process liveness.
func (hc *HealthChecker) HealthzHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ReadyzHandler reports whether the service finished initialization.
func (hc *HealthChecker) ReadyzHandler(w http.ResponseWriter, r *http.Request) {
	if !hc.ready.Load() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
