// Package health exposes liveness/readiness HTTP handlers for the
// controller process. Adapted from the teacher's pkg/health, with the
// readiness gate driven by named probe functions instead of a single
// atomic flag, since the controller's readiness depends on more than
// one external collaborator (entity store, scheduler client).
package health

import (
	"net/http"
	"sync"
)

// Probe reports whether a dependency is currently healthy.
type Probe func() error

// Checker aggregates named probes behind liveness/readiness handlers.
type Checker struct {
	mu     sync.RWMutex
	probes map[string]Probe
}

// NewChecker creates an empty Checker. Register probes with Register.
func NewChecker() *Checker {
	return &Checker{probes: map[string]Probe{}}
}

// Register adds or replaces a named readiness probe.
func (c *Checker) Register(name string, p Probe) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.probes[name] = p
}

// LivenessHandler only verifies the process is responding.
func (c *Checker) LivenessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
}

// ReadinessHandler runs every registered probe and fails closed on the
// first error.
func (c *Checker) ReadinessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		c.mu.RLock()
		defer c.mu.RUnlock()
		for name, probe := range c.probes {
			if err := probe(); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(name + ": " + err.Error()))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
}

// AttachEndpoints wires /healthz and /readyz onto mux.
func AttachEndpoints(mux *http.ServeMux, checker *Checker) {
	mux.Handle("/healthz", checker.LivenessHandler())
	mux.Handle("/readyz", checker.ReadinessHandler())
}
