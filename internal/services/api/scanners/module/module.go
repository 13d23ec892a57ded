// Package module wires the scanner supervisor into the API using modkit
package module

import (
	"net/http"

	"nocscan/internal/modkit"
	"nocscan/internal/modkit/httpkit"

	shttp "nocscan/internal/services/api/scanners/http"
)

// Module implements the supervisor API module
type Module struct {
	name   string
	prefix string
	mws    []func(http.Handler) http.Handler
	ports  Ports

	register func(httpkit.Router)
}

// New constructs the module; the Supervisor port must be injected with modkit.WithPorts
func New(_ modkit.Deps, opts ...modkit.Option) modkit.Module {
	b := modkit.Build(append([]modkit.Option{
		modkit.WithName("scanners"),
		modkit.WithPrefix("/scanners"),
	}, opts...)...)

	injected, _ := b.Ports.(Ports)
	if injected.Supervisor == nil {
		panic("scanners API module requires the Supervisor port (from services/scanner)")
	}

	m := &Module{
		name:   b.Name,
		prefix: b.Prefix,
		mws:    b.Mw,
		ports:  injected,
	}
	external := b.Register
	m.register = func(r httpkit.Router) {
		shttp.Register(r, injected.Supervisor, injected.Sightings)
		external(r)
	}
	return m
}

// Name returns the module name
func (m *Module) Name() string { return m.name }

// Ports returns the injected ports
func (m *Module) Ports() any { return m.ports }

// MountRoutes mounts the module routes under its prefix
func (m *Module) MountRoutes(r httpkit.Router) {
	httpkit.MountUnder(r, m.prefix, m.mws, m.register)
}
