// Package http provides http transport for the scanner supervisor
package http

import (
	stdhttp "net/http"
	"time"

	"nocscan/internal/modkit/httpkit"
	perr "nocscan/internal/platform/errors"
	"nocscan/internal/services/api/scanners/domain"
	scanner "nocscan/internal/services/scanner/domain"
)

// MaxSightingsWindow bounds the since query on the sightings endpoint
const MaxSightingsWindow = 7 * 24 * time.Hour

// Register mounts the router. sightings may be nil when no archive is configured
func Register(r httpkit.Router, sup scanner.SupervisorPort, sightings domain.SightingsReader) {
	h := &handlers{sup: sup, sightings: sightings, now: time.Now}
	httpkit.Get(r, "/", h.list)
	httpkit.Get(r, "/sightings", h.sightingCounts)
	httpkit.Get(r, "/{name}/status", h.status)
	httpkit.Get(r, "/{name}/position", h.position)
	httpkit.Get(r, "/{name}/mapobjects", h.mapObjects)
	httpkit.Get(r, "/{name}/encounters", h.encounters)
	httpkit.PostJSON[domain.TokenInput](r, "/{name}/challenge", h.challenge)
	httpkit.Post(r, "/{name}/finish", h.finish)
}

type handlers struct {
	sup       scanner.SupervisorPort
	sightings domain.SightingsReader
	now       func() time.Time
}

func (h *handlers) list(*stdhttp.Request) (any, error) {
	return h.sup.List(), nil
}

func (h *handlers) status(r *stdhttp.Request) (any, error) {
	return h.sup.Status(httpkit.Param(r, "name"))
}

func (h *handlers) position(r *stdhttp.Request) (any, error) {
	name := httpkit.Param(r, "name")
	p, err := h.sup.Position(name)
	if err != nil {
		return nil, err
	}
	return domain.PositionOutput{Account: name, Position: p}, nil
}

func (h *handlers) mapObjects(r *stdhttp.Request) (any, error) {
	name := httpkit.Param(r, "name")
	mo, err := h.sup.MapObjects(name)
	if err != nil {
		return nil, err
	}
	catchable, nearby := mo.Counts()
	return domain.MapObjectsOutput{Account: name, Catchable: catchable, Nearby: nearby, Objects: mo}, nil
}

func (h *handlers) encounters(r *stdhttp.Request) (any, error) {
	name := httpkit.Param(r, "name")
	es, err := h.sup.Encounters(name)
	if err != nil {
		return nil, err
	}
	return domain.EncountersOutput{Account: name, Encounters: es}, nil
}

// challenge hands a solved token to a worker parked in captcha_pending
func (h *handlers) challenge(r *stdhttp.Request, in domain.TokenInput) (any, error) {
	name := httpkit.Param(r, "name")
	if err := h.sup.SupplyToken(name, in.Token); err != nil {
		return nil, err
	}
	return httpkit.Accepted(domain.AckOutput{Account: name, Action: "challenge"}), nil
}

func (h *handlers) finish(r *stdhttp.Request) (any, error) {
	name := httpkit.Param(r, "name")
	if err := h.sup.Finish(name); err != nil {
		return nil, err
	}
	return httpkit.Accepted(domain.AckOutput{Account: name, Action: "finish"}), nil
}

// sightingCounts reads ?since=<duration>, default one hour
func (h *handlers) sightingCounts(r *stdhttp.Request) (any, error) {
	if h.sightings == nil {
		return nil, perr.Unavailablef("sightings archive is not configured")
	}
	window := time.Hour
	if raw := r.URL.Query().Get("since"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 || d > MaxSightingsWindow {
			return nil, perr.WithField(perr.InvalidArgf("since must be a positive duration up to %s", MaxSightingsWindow), "since")
		}
		window = d
	}
	since := h.now().Add(-window).UTC()
	counts, err := h.sightings.KindCounts(r.Context(), since)
	if err != nil {
		return nil, err
	}
	var total uint64
	for _, n := range counts {
		total += n
	}
	return domain.SightingsOutput{Since: since, Counts: counts, Total: total}, nil
}
