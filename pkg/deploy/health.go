package deploy

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/drycc/controller/pkg/store"
)

// HTTPClient is the minimal surface verifyHealth needs, injected so
// tests can substitute a deterministic double instead of reaching a
// process-wide *http.Client (Design Note: "global state").
type HTTPClient interface {
	Get(url string) (*http.Response, error)
}

// Dialer is the minimal surface the TCP check needs.
type Dialer interface {
	DialTimeout(network, address string, timeout time.Duration) (net.Conn, error)
}

type netDialer struct{}

func (netDialer) DialTimeout(network, address string, timeout time.Duration) (net.Conn, error) {
	return net.DialTimeout(network, address, timeout)
}

const (
	healthMaxAttempts  = 10
	healthTCPTimeout   = 3 * time.Second
	healthTCPBackoff   = 3 * time.Second
	healthDefaultHTTPTimeout = 3 * time.Second
)

// verifyHealth runs the first-time-web HTTP/TCP verification
// described in spec.md §4.8. Failures are logged, never raised — a
// first deploy's observed readiness is advisory only.
func (o *Orchestrator) verifyHealth(ctx context.Context, app *store.App, plan Plan) {
	if plan.Ptype == "web" {
		o.verifyHTTPHealth(ctx, app, plan)
		return
	}
	o.verifyTCPHealth(ctx, app, plan)
}

func (o *Orchestrator) verifyHTTPHealth(ctx context.Context, app *store.App, plan Plan) {
	client := o.httpClient()
	domain := fmt.Sprintf("%s.%s", app.ID, plan.Ptype)

	path := "/"
	var requireOnly200 bool
	timeout := healthDefaultHTTPTimeout
	if plan.LivenessProbe != nil && plan.LivenessProbe.HTTPGet != nil {
		path = plan.LivenessProbe.HTTPGet.Path
		if path == "" {
			path = "/"
		}
		requireOnly200 = true
		if plan.LivenessProbe.TimeoutSeconds > 0 {
			timeout = time.Duration(plan.LivenessProbe.TimeoutSeconds) * time.Second
		}
	}

	port := int32(80)
	url := fmt.Sprintf("http://%s:%d%s", domain, port, path)
	deadline := time.Now().Add(10 * timeout)

	for attempt := 0; attempt < healthMaxAttempts; attempt++ {
		if time.Now().After(deadline) {
			o.log.WithField("app", app.ID).Warn("health verification elapsed total budget")
			return
		}
		resp, err := client.Get(url)
		if err != nil {
			o.log.WithError(err).WithField("app", app.ID).Warn("health check transport failure")
			continue
		}
		resp.Body.Close()

		if requireOnly200 {
			if resp.StatusCode == http.StatusOK {
				return
			}
			continue
		}
		if resp.StatusCode == http.StatusNotFound {
			o.log.WithField("app", app.ID).Warn("health check got 404")
			continue
		}
		if resp.StatusCode >= 200 && resp.StatusCode < 600 {
			return
		}
	}
	o.log.WithField("app", app.ID).Warn("health check exhausted retries")
}

func (o *Orchestrator) verifyTCPHealth(ctx context.Context, app *store.App, plan Plan) {
	dialer := o.dialer()
	domain := fmt.Sprintf("%s.%s", app.ID, plan.Ptype)
	port := int32(80)

	for attempt := 0; attempt < healthMaxAttempts; attempt++ {
		conn, err := dialer.DialTimeout("tcp", fmt.Sprintf("%s:%d", domain, port), healthTCPTimeout)
		if err == nil {
			conn.Close()
			return
		}
		time.Sleep(healthTCPBackoff)
	}
	o.log.WithField("app", app.ID).Warn("tcp health check exhausted retries")
}

func (o *Orchestrator) httpClient() HTTPClient {
	if o.HTTP != nil {
		return o.HTTP
	}
	return http.DefaultClient
}

func (o *Orchestrator) dialer() Dialer {
	if o.Dial != nil {
		return o.Dial
	}
	return netDialer{}
}
