// Package httpkit gives modules the platform http helpers under one import
package httpkit

import (
	"net/http"

	phttp "nocscan/internal/platform/net/http"
	"nocscan/internal/platform/net/middleware"
)

type (
	// Router is the platform router seam
	Router = phttp.Router
	// Response lets a handler pick its own status
	Response = phttp.Response
	// Envelope is the response body shape
	Envelope = phttp.Envelope
)

// Accepted returns a 202 response
func Accepted(data any) Response { return phttp.Accepted(data) }

// Param returns a path parameter
func Param(r *http.Request, name string) string { return phttp.Param(r, name) }

// Get mounts a body-less handler under GET
func Get(r Router, path string, h func(*http.Request) (any, error)) {
	r.Get(path, phttp.NoBodyHandler(h))
}

// Post mounts a body-less handler under POST
func Post(r Router, path string, h func(*http.Request) (any, error)) {
	r.Post(path, phttp.NoBodyHandler(h))
}

// PostJSON mounts a bound and validated JSON handler under POST
func PostJSON[T any](r Router, path string, h func(*http.Request, T) (any, error)) {
	r.Post(path, phttp.JSONHandler(h))
}

// MountUnder mounts a subrouter at prefix with per-module middleware
func MountUnder(r Router, prefix string, mw []func(http.Handler) http.Handler, mount func(Router)) {
	r.Route(prefix, func(sub Router) {
		if len(mw) > 0 {
			sub.Use(mw...)
		}
		mount(sub)
	})
}

// MountAPIV1 mounts under /api/v1
func MountAPIV1(r Router, mw []func(http.Handler) http.Handler, mount func(Router)) {
	MountUnder(r, "/api/v1", mw, mount)
}

// CommonStack is the baseline middleware for API modules
func CommonStack(cors middleware.CORSOptions) []func(http.Handler) http.Handler {
	return middleware.Defaults(cors)
}
