// Package domain holds DTOs and ports for the scanner supervisor API
package domain

import (
	"context"
	"time"

	"nocscan/internal/core/encounters"
	"nocscan/internal/core/geo"
	scanner "nocscan/internal/services/scanner/domain"
)

// TokenInput carries a solved challenge response
type TokenInput struct {
	Token string `json:"token" validate:"required,token,max=4096" example:"03AGdBq24..."`
}

// PositionOutput is the worker's last accepted position
type PositionOutput struct {
	Account  string       `json:"account" example:"ash"`
	Position geo.Position `json:"position"`
}

// MapObjectsOutput is the worker's latest map query with entity totals
type MapObjectsOutput struct {
	Account   string             `json:"account" example:"ash"`
	Catchable int                `json:"catchable" example:"4"`
	Nearby    int                `json:"nearby" example:"2"`
	Objects   scanner.MapObjects `json:"objects"`
}

// EncountersOutput lists unexpired cached encounters
type EncountersOutput struct {
	Account    string                 `json:"account" example:"ash"`
	Encounters []encounters.Encounter `json:"encounters"`
}

// AckOutput acknowledges a control request
type AckOutput struct {
	Account string `json:"account" example:"ash"`
	Action  string `json:"action" example:"finish"`
}

// SightingsOutput counts archived sightings per kind since a cutoff
type SightingsOutput struct {
	Since  time.Time      `json:"since"`
	Counts map[int]uint64 `json:"counts"`
	Total  uint64         `json:"total"`
}

// SightingsReader reads the sightings archive
type SightingsReader interface {
	KindCounts(ctx context.Context, since time.Time) (map[int]uint64, error)
}
