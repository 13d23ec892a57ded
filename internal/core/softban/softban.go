// Package softban counts consecutive empty scans and signals when the streak
// looks like a server side soft-ban
package softban

import "sync"

// DefaultThreshold is the number of empty scans in a row that escalates
const DefaultThreshold = 3

// Verdict is the detector output for one scan
type Verdict int

const (
	Continue Verdict = iota
	Escalate
)

func (v Verdict) String() string {
	if v == Escalate {
		return "escalate"
	}
	return "continue"
}

// Detector tracks one worker's empty streak
type Detector struct {
	threshold int

	mu          sync.Mutex
	streak      int
	escalations int
}

// New builds a Detector; threshold <= 0 means DefaultThreshold
func New(threshold int) *Detector {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Detector{threshold: threshold}
}

// Record feeds one scan result. The streak resets right after an escalation
// so the next signal needs a fresh run of empty scans.
func (d *Detector) Record(catchable, nearby int) Verdict {
	d.mu.Lock()
	defer d.mu.Unlock()

	if catchable != 0 || nearby != 0 {
		d.streak = 0
		return Continue
	}
	d.streak++
	if d.streak >= d.threshold {
		d.streak = 0
		d.escalations++
		return Escalate
	}
	return Continue
}

// Streak returns the current run of empty scans
func (d *Detector) Streak() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.streak
}

// Escalations returns how many times the detector fired
func (d *Detector) Escalations() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.escalations
}
