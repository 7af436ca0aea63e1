package health

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/noah-isme/studio-vouchers/internal/common"
)

const defaultProbeTimeout = 500 * time.Millisecond

var errNotConfigured = errors.New("not configured")

var ready atomic.Bool

func init() { ready.Store(true) }

// SetReady toggles readiness, e.g. to drain traffic during shutdown.
func SetReady(v bool) { ready.Store(v) }

// IsReady reports the current readiness flag.
func IsReady() bool { return ready.Load() }

// Probe checks one dependency.
type Probe struct {
	Name    string
	Timeout time.Duration
	Check   func(ctx context.Context) error
}

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingProbe wraps a Ping method as a named probe.
func PingProbe(name string, p Pinger, timeout time.Duration) Probe {
	return Probe{Name: name, Timeout: timeout, Check: func(ctx context.Context) error {
		if p == nil {
			return errNotConfigured
		}
		return p.Ping(ctx)
	}}
}

// Handler exposes liveness and readiness endpoints.
type Handler struct {
	Probes []Probe
}

// Live reports that the process is serving.
func (h Handler) Live(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ready runs every probe concurrently and answers 503 if any fails or the
// service is draining.
func (h Handler) Ready(w http.ResponseWriter, r *http.Request) {
	results := h.run(r.Context())
	healthy := IsReady()
	for _, status := range results {
		if status != "ok" {
			healthy = false
		}
	}
	if !IsReady() {
		results["service"] = "draining"
	}
	code := http.StatusOK
	if !healthy {
		code = http.StatusServiceUnavailable
	}
	common.JSON(w, code, results)
}

func (h Handler) run(ctx context.Context) map[string]string {
	out := make(map[string]string, len(h.Probes))
	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, p := range h.Probes {
		wg.Add(1)
		go func(p Probe) {
			defer wg.Done()
			timeout := p.Timeout
			if timeout <= 0 {
				timeout = defaultProbeTimeout
			}
			pctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			status := "ok"
			if p.Check == nil {
				status = errNotConfigured.Error()
			} else if err := p.Check(pctx); err != nil {
				status = err.Error()
			}
			mu.Lock()
			out[p.Name] = status
			mu.Unlock()
		}(p)
	}
	wg.Wait()
	return out
}
