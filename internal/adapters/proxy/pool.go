// Package proxy hands out proxy addresses from named round robin pools
package proxy

import (
	"sort"
	"strings"
	"sync/atomic"

	perr "nocscan/internal/platform/errors"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

type ring struct {
	addrs []string
	cur   atomic.Uint64
}

// Pools is safe for concurrent draws
type Pools struct {
	rings map[string]*ring
}

// New validates every address and builds the pools. Pool names are case-insensitive
func New(pools map[string][]string) (*Pools, error) {
	p := &Pools{rings: make(map[string]*ring, len(pools))}
	for name, addrs := range pools {
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" {
			return nil, perr.InvalidArgf("proxy pool with empty name")
		}
		r := &ring{}
		for _, a := range addrs {
			a = strings.TrimSpace(a)
			if a == "" {
				continue
			}
			if err := validate.Var(a, "url"); err != nil {
				return nil, perr.WithField(perr.Newf(perr.ErrorCodeValidation, "pool %s: invalid proxy %q", name, a), "proxy_pools."+key)
			}
			r.addrs = append(r.addrs, a)
		}
		if len(r.addrs) == 0 {
			return nil, perr.InvalidArgf("proxy pool %s has no addresses", name)
		}
		p.rings[key] = r
	}
	return p, nil
}

// Draw returns the next address of the named pool
func (p *Pools) Draw(pool string) (string, error) {
	r, ok := p.rings[strings.ToLower(strings.TrimSpace(pool))]
	if !ok {
		return "", perr.NotFoundf("proxy pool %q not configured", pool)
	}
	n := r.cur.Add(1) - 1
	return r.addrs[n%uint64(len(r.addrs))], nil
}

// Has reports whether a pool exists
func (p *Pools) Has(pool string) bool {
	_, ok := p.rings[strings.ToLower(strings.TrimSpace(pool))]
	return ok
}

// Names lists the configured pools
func (p *Pools) Names() []string {
	out := make([]string, 0, len(p.rings))
	for k := range p.rings {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
