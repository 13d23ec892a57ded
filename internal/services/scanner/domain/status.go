package domain

import (
	"time"

	"nocscan/internal/core/challenge"
	"nocscan/internal/core/encounters"
	"nocscan/internal/core/geo"
)

// State is a worker lifecycle state
type State string

// Worker states in lifecycle order; captcha_pending interrupts init_step1 or scanning
const (
	StateIdle           State = "idle"
	StateLoggingIn      State = "logging_in"
	StateAuthenticated  State = "authenticated"
	StateInitStep1      State = "init_step1"
	StateInitStep2      State = "init_step2"
	StateScanning       State = "scanning"
	StateCaptchaPending State = "captcha_pending"
	StateFinished       State = "finished"
)

// Status is a point-in-time view of one worker
type Status struct {
	Account       string          `json:"account"`
	State         State           `json:"state"`
	Finished      bool            `json:"finished"`
	Reason        string          `json:"reason,omitempty"`
	RunID         string          `json:"run_id,omitempty"`
	Restarts      int             `json:"restarts"`
	Stalled       bool            `json:"stalled"`
	Position      *geo.Position   `json:"position,omitempty"`
	Encounters    int             `json:"encounters"`
	SoftbanStreak int             `json:"softban_streak"`
	Challenge     challenge.State `json:"challenge"`
	StartedAt     time.Time       `json:"started_at,omitzero"`
	LastScanAt    time.Time       `json:"last_scan_at,omitzero"`
}

// SupervisorPort is the read and control surface over a running pool
type SupervisorPort interface {
	List() []Status
	Status(name string) (Status, error)
	Position(name string) (geo.Position, error)
	MapObjects(name string) (MapObjects, error)
	Encounters(name string) ([]encounters.Encounter, error)
	SupplyToken(name, token string) error
	Finish(name string) error
}
