// Package account defines scanner account credentials and the folded identity
// every per-account table is keyed by
package account

import (
	"strings"

	"golang.org/x/text/cases"
)

// ID is the case-folded username; "Ash" and "ash" are one account
type ID string

// Key folds a username into an ID
// cases.Caser carries state so a fresh one is built per call
func Key(username string) ID {
	return ID(cases.Fold().String(strings.TrimSpace(username)))
}

// String returns the folded name
func (id ID) String() string { return string(id) }

// Circuit is the anonymizing circuit control config for one account
type Circuit struct {
	Control  string `yaml:"control" json:"control" validate:"required,hostname_port"`
	Password string `yaml:"password" json:"-"`
}

// Account holds immutable credentials for one worker run
type Account struct {
	Username string `yaml:"username" json:"username" validate:"required,max=64"`
	Password string `yaml:"password" json:"-" validate:"required"`

	// Proxy is a static proxy URL; ProxyPool names a shared pool instead
	Proxy     string `yaml:"proxy,omitempty" json:"proxy,omitempty" validate:"omitempty,url,excluded_with=ProxyPool"`
	ProxyPool string `yaml:"proxy_pool,omitempty" json:"proxy_pool,omitempty"`

	Circuit *Circuit `yaml:"circuit,omitempty" json:"circuit,omitempty" validate:"omitempty"`
}

// ID returns the folded identity
func (a Account) ID() ID { return Key(a.Username) }

// HasCircuit reports whether circuit rotation is configured
func (a Account) HasCircuit() bool { return a.Circuit != nil && a.Circuit.Control != "" }

// EndpointKey is the persisted cache key for the last RPC endpoint
func (a Account) EndpointKey() string { return a.Username + "-endpoint" }

// String never includes the password
func (a Account) String() string { return a.Username }
