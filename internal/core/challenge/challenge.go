// Package challenge tracks the human verification lifecycle per account:
// required, required with a token waiting, then cleared by Complete
package challenge

import (
	"strings"
	"sync"
	"time"

	"nocscan/internal/core/account"
	perr "nocscan/internal/platform/errors"
	ptime "nocscan/internal/platform/time"
)

// State is a read-only view of one account's challenge
type State struct {
	Required   bool      `json:"required"`
	URL        string    `json:"url,omitempty"`
	HasToken   bool      `json:"has_token"`
	Since      time.Time `json:"since,omitzero"`
	Attempts   int       `json:"attempts"`
	LastSolved time.Time `json:"last_solved,omitzero"`
}

type entry struct {
	required   bool
	url        string
	token      string
	since      time.Time
	attempts   int
	lastSolved time.Time
}

// Controller is shared by all workers and the supervisor API
type Controller struct {
	clock ptime.Clock

	mu sync.Mutex
	m  map[account.ID]*entry
}

// New returns an empty controller
func New(clock ptime.Clock) *Controller {
	return &Controller{clock: ptime.Or(clock), m: make(map[account.ID]*entry)}
}

func (c *Controller) get(id account.ID) *entry {
	e, ok := c.m[id]
	if !ok {
		e = &entry{}
		c.m[id] = e
	}
	return e
}

// MarkRequired flags the account and stores the challenge URL; calling it
// again while pending only refreshes the URL
func (c *Controller) MarkRequired(id account.ID, url string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.get(id)
	if !e.required {
		e.required = true
		e.since = c.clock.Now()
	}
	if url != "" {
		e.url = url
	}
}

// IsRequired reports whether a challenge is pending
func (c *Controller) IsRequired(id account.ID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.m[id]
	return ok && e.required
}

// SupplyToken stores a solved token; the latest token wins
func (c *Controller) SupplyToken(id account.ID, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return perr.WithField(perr.New(perr.ErrorCodeValidation, "token is required"), "token")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.m[id]
	if !ok || !e.required {
		return perr.WithOp(perr.Conflictf("no pending challenge for %s", id), "challenge.supply")
	}
	e.token = token
	return nil
}

// ConsumeToken hands out the waiting token at most once
func (c *Controller) ConsumeToken(id account.ID) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.m[id]
	if !ok || e.token == "" {
		return "", false
	}
	tok := e.token
	e.token = ""
	e.attempts++
	return tok, true
}

// Complete clears the pending flag whatever the verification outcome was
func (c *Controller) Complete(id account.ID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.m[id]
	if !ok {
		return
	}
	e.required = false
	e.token = ""
	e.url = ""
	e.since = time.Time{}
	e.lastSolved = c.clock.Now()
}

// State returns a copy of the account's challenge state
func (c *Controller) State(id account.ID) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.m[id]
	if !ok {
		return State{}
	}
	return State{
		Required:   e.required,
		URL:        e.url,
		HasToken:   e.token != "",
		Since:      e.since,
		Attempts:   e.attempts,
		LastSolved: e.lastSolved,
	}
}

// Pending lists accounts waiting on a challenge
func (c *Controller) Pending() []account.ID {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []account.ID
	for id, e := range c.m {
		if e.required {
			out = append(out, id)
		}
	}
	return out
}

// Forget drops all state for the account
func (c *Controller) Forget(id account.ID) {
	c.mu.Lock()
	delete(c.m, id)
	c.mu.Unlock()
}
