// Package module wires meta endpoints into the API
package module

import (
	"net/http"
	"time"

	"nocscan/internal/modkit"
	"nocscan/internal/modkit/httpkit"
	"nocscan/internal/platform/store"
	scanner "nocscan/internal/services/scanner/domain"

	metahttp "nocscan/internal/services/api/meta/http"
)

// Module implements modkit.Module
type Module struct {
	name   string
	prefix string
	mws    []func(http.Handler) http.Handler

	register func(httpkit.Router)
}

// Ports optionally carries the supervisor so /service can count workers
type Ports struct {
	Supervisor scanner.SupervisorPort
}

// New constructs the meta module; readiness probes every enabled store seam
func New(deps modkit.Deps, opts ...modkit.Option) modkit.Module {
	b := modkit.Build(append([]modkit.Option{
		modkit.WithName("meta"),
		modkit.WithPrefix("/meta"),
	}, opts...)...)

	st := deps.StoreOrEmpty()
	d := metahttp.Deps{
		StartedAt: time.Now(),
		Probes: []metahttp.Probe{
			{Name: "pg", Pinger: pinger(st.PG)},
			{Name: "sqlite", Pinger: pinger(st.Lite)},
			{Name: "ch", Pinger: pinger(st.CH)},
		},
	}
	if p, ok := b.Ports.(Ports); ok && p.Supervisor != nil {
		d.Workers = func() (running, total int) {
			list := p.Supervisor.List()
			for _, s := range list {
				if !s.Finished {
					running++
				}
			}
			return running, len(list)
		}
	}

	m := &Module{name: b.Name, prefix: b.Prefix, mws: b.Mw}
	external := b.Register
	m.register = func(r httpkit.Router) {
		metahttp.Register(r, d)
		external(r)
	}
	return m
}

// pinger unwraps seams that can report readiness; disabled seams are nil
func pinger(seam any) store.Pinger {
	if seam == nil {
		return nil
	}
	p, _ := seam.(store.Pinger)
	return p
}

// MountRoutes mounts the module under its prefix
func (m *Module) MountRoutes(r httpkit.Router) { httpkit.MountUnder(r, m.prefix, m.mws, m.register) }

// Name returns the module name
func (m *Module) Name() string { return m.name }

// Ports returns nil; meta exposes nothing
func (m *Module) Ports() any { return nil }
