// Package api provides the supervisor HTTP API
package api

import (
	"nocscan/internal/modkit"
	"nocscan/internal/modkit/httpkit"
	"nocscan/internal/platform/net/middleware"

	metamod "nocscan/internal/services/api/meta/module"
	scannersmod "nocscan/internal/services/api/scanners/module"
	"nocscan/internal/services/scanner/domain"
	"nocscan/internal/services/scanner/repo"
)

// Options are the API options
type Options struct {
	Deps modkit.Deps
	CORS middleware.CORSOptions
}

// Mount mounts the API onto r. scanner is the running scanner module whose
// Supervisor port the routes drive
func Mount(r httpkit.Router, scanner modkit.Module, opt Options) {
	sup := modkit.MustPortsOf[domain.SupervisorPort](scanner)

	ports := scannersmod.Ports{Supervisor: sup}
	if ch := opt.Deps.StoreOrEmpty().CH; ch != nil {
		ports.Sightings = repo.NewSightings(ch)
	}

	mods := []modkit.Module{
		metamod.New(opt.Deps, modkit.WithPorts(metamod.Ports{Supervisor: sup})),
		scannersmod.New(opt.Deps, modkit.WithPorts(ports)),
	}

	httpkit.MountAPIV1(r, httpkit.CommonStack(opt.CORS), func(v1 httpkit.Router) {
		for _, m := range mods {
			opt.Deps.Log.Debug().Str("module", m.Name()).Msg("mounting module routes")
			m.MountRoutes(v1)
		}
	})
}
