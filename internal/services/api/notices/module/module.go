// Package module wires the notices read API using modkit
package module

import (
	"net/http"

	modkit "tedingest/internal/modkit"
	"tedingest/internal/modkit/httpkit"
	noticeshttp "tedingest/internal/services/api/notices/http"
	noticesrepo "tedingest/internal/services/api/notices/repo"
	noticessvc "tedingest/internal/services/api/notices/service"
)

// Module implements the notices module
type Module struct {
	deps   modkit.Deps
	name string
	mws  []func(http.Handler) http.Handler

	subrouter func(httpkit.Router) httpkit.Router
	register  func(httpkit.Router)

	svc noticessvc.Service
}

// New constructs the notices module. It has no prefix since it owns both
// /notices and /runs.
func New(deps modkit.Deps, opts ...modkit.Option) modkit.Module {
	b := modkit.Build(append([]modkit.Option{modkit.WithName("notices")}, opts...)...)

	m := &Module{
		deps:      deps,
		name:      b.Name,
		mws:       b.Mw,
		subrouter: b.Subrouter,
		svc:       noticessvc.New(deps.PG, noticesrepo.NewPG()),
	}

	external := b.Register
	m.register = func(r httpkit.Router) {
		noticeshttp.Register(r, m.svc)
		if external != nil {
			external(r)
		}
	}
	return m
}

// MountRoutes mounts the module routes on the given router
func (m *Module) MountRoutes(r httpkit.Router) {
	r.Group(func(rr httpkit.Router) {
		if len(m.mws) > 0 {
			rr.Use(m.mws...)
		}
		if m.subrouter != nil {
			rr = m.subrouter(rr)
		}
		m.register(rr)
	})
}

// Name returns the module name
func (m *Module) Name() string { return m.name }

// Ports exposes the service for cross module use
func (m *Module) Ports() any { return m.svc }
