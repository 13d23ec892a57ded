// Package modkit wires modules from shared deps and lets them expose routes and ports
package modkit

import (
	"context"
	"reflect"

	"nocscan/internal/platform/config"
	"nocscan/internal/platform/logger"
	phttp "nocscan/internal/platform/net/http"
	"nocscan/internal/platform/store"
)

// Deps holds core dependencies passed to modules. Store seams are nil when disabled
type Deps struct {
	Log   logger.Logger
	Cfg   config.Conf
	Store *store.Store
}

// StoreOrEmpty never returns nil so modules can probe seams without checks
func (d Deps) StoreOrEmpty() *store.Store {
	if d.Store == nil {
		return &store.Store{}
	}
	return d.Store
}

// Module is the common surface for modules that mount routes and expose ports
type Module interface {
	MountRoutes(r phttp.Router)
	Ports() any
	Name() string
}

// Runner is a module with a blocking run loop, driven by the command
type Runner interface {
	Module
	Run(ctx context.Context) error
}

// PortsOf pulls a T out of a module's Ports bundle; a bundle may be T itself
// or a struct with an exported field implementing T
func PortsOf[T any](m Module) (t T, ok bool) {
	p := m.Ports()
	if p == nil {
		return t, false
	}
	if v, ok := p.(T); ok {
		return v, true
	}
	rv := reflect.ValueOf(p)
	if rv.Kind() != reflect.Struct {
		return t, false
	}
	for i := range rv.NumField() {
		f := rv.Field(i)
		if !f.CanInterface() {
			continue
		}
		if v, ok := f.Interface().(T); ok {
			return v, true
		}
	}
	return t, false
}

// MustPortsOf panics when the module does not expose T
func MustPortsOf[T any](m Module) T {
	if v, ok := PortsOf[T](m); ok {
		return v
	}
	panic("modkit: requested port not found on module " + m.Name())
}
