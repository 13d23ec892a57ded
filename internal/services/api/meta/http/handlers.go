// Package http provides meta endpoints
package http

import (
	"context"
	"net/http"
	"time"

	"nocscan/internal/core/version"
	"nocscan/internal/modkit/httpkit"
	"nocscan/internal/platform/store"
)

// Probe is one named readiness dependency; a nil Pinger is reported as skipped
type Probe struct {
	Name   string
	Pinger store.Pinger
}

// Deps are the handler dependencies
type Deps struct {
	StartedAt time.Time
	Probes    []Probe
	// Workers reports how many scan workers are still running
	Workers func() (running, total int)
}

type handlers struct{ deps Deps }

// Register mounts the meta routes
func Register(r httpkit.Router, d Deps) {
	h := &handlers{deps: d}
	httpkit.Get(r, "/ready", h.ready)
	httpkit.Get(r, "/version", h.version)
	httpkit.Get(r, "/service", h.service)
}

// ReadyCheck describes a single dependency check
type ReadyCheck struct {
	Name   string `json:"name" example:"pg"`
	Status string `json:"status" example:"ok"` // ok fail skipped
	Error  string `json:"error,omitempty"`
}

// ReadyResponse summarizes readiness
type ReadyResponse struct {
	Status string       `json:"status" example:"ok"` // ok fail
	Checks []ReadyCheck `json:"checks"`
	Now    time.Time    `json:"now"`
}

// ServiceResponse describes the process
type ServiceResponse struct {
	Build   version.BuildInfo `json:"build"`
	Started time.Time         `json:"started"`
	Uptime  int64             `json:"uptime_s"`
	Running int               `json:"workers_running"`
	Workers int               `json:"workers_total"`
}

func (h *handlers) ready(r *http.Request) (any, error) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	out := ReadyResponse{Status: "ok", Now: time.Now().UTC()}
	for _, p := range h.deps.Probes {
		c := ReadyCheck{Name: p.Name, Status: "ok"}
		switch {
		case p.Pinger == nil:
			c.Status = "skipped"
		default:
			if err := p.Pinger.Ping(ctx); err != nil {
				c.Status, c.Error = "fail", err.Error()
				out.Status = "fail"
			}
		}
		out.Checks = append(out.Checks, c)
	}
	return out, nil
}

func (h *handlers) version(*http.Request) (any, error) { return version.Info(), nil }

func (h *handlers) service(*http.Request) (any, error) {
	out := ServiceResponse{
		Build:   version.Info(),
		Started: h.deps.StartedAt.UTC(),
		Uptime:  int64(time.Since(h.deps.StartedAt) / time.Second),
	}
	if h.deps.Workers != nil {
		out.Running, out.Workers = h.deps.Workers()
	}
	return out, nil
}
