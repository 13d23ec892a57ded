package domain

import (
	"time"

	"nocscan/internal/core/encounters"
)

// PlayerInfo is the result of the first init batch
type PlayerInfo struct {
	Username      string `json:"username"`
	Level         int    `json:"level"`
	ChallengeURL  string `json:"challenge_url,omitempty"`
	TutorialState []int  `json:"tutorial_state"`
}

// Settings are the server-side knobs downloaded during the second init batch
type Settings struct {
	MinRefresh     time.Duration  `json:"min_refresh"`
	MaxRefresh     time.Duration  `json:"max_refresh"`
	MapDistanceM   float64        `json:"map_distance_m"`
	EncounterRange float64        `json:"encounter_range_m"`
	Hash           string         `json:"hash,omitempty"`
	Extra          map[string]any `json:"extra,omitempty"`
}

// InitialData is the result of the second init batch
type InitialData struct {
	RemoteConfig map[string]any `json:"remote_config,omitempty"`
	Inventory    map[string]int `json:"inventory,omitempty"`
	Settings     Settings       `json:"settings"`
}

// Nearby is an entity the server reports as close but not yet catchable
type Nearby struct {
	ID        string  `json:"id"`
	Kind      int     `json:"kind"`
	DistanceM float64 `json:"distance_m"`
}

// Cell is one map tile of a map query response
type Cell struct {
	ID        uint64                 `json:"id,string"`
	Nearby    []Nearby               `json:"nearby"`
	Catchable []encounters.Catchable `json:"catchable"`
}

// MapObjects is a full map query result
type MapObjects struct {
	At           time.Time `json:"at"`
	Cells        []Cell    `json:"cells"`
	ChallengeURL string    `json:"challenge_url,omitempty"`
}

// Counts totals catchable and nearby entities over every cell
func (m MapObjects) Counts() (catchable, nearby int) {
	for _, c := range m.Cells {
		catchable += len(c.Catchable)
		nearby += len(c.Nearby)
	}
	return catchable, nearby
}

// Catchables flattens catchable entities across cells
func (m MapObjects) Catchables() []encounters.Catchable {
	var out []encounters.Catchable
	for _, c := range m.Cells {
		out = append(out, c.Catchable...)
	}
	return out
}
