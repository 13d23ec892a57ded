// Package domain defines the ports the scanner service drives
package domain

import (
	"context"

	"nocscan/internal/core/account"
	"nocscan/internal/core/encounters"
	"nocscan/internal/core/geo"
)

// Dialer builds one transport client per login attempt
type Dialer interface {
	Dial(proxy string) (Client, error)
}

// Client is the remote game protocol client.
// Each context-taking method is one batched request
type Client interface {
	Login(ctx context.Context, username, password string) (token string, err error)
	SetAuthInfo(token string)

	SetPosition(p geo.Position)
	Position() geo.Position

	Endpoint() string
	SetEndpoint(url string)

	PlayerInfo(ctx context.Context) (PlayerInfo, error)
	InitialData(ctx context.Context) (InitialData, error)
	ApplySettings(s Settings)
	MapObjects(ctx context.Context, cellIDs []uint64) (MapObjects, error)
	VerifyChallenge(ctx context.Context, token string) (bool, error)
	CompleteTutorial(ctx context.Context, stages []int) error
}

// Strategy picks where a worker goes next and digests what it saw.
// Shutdown may be called from any goroutine
type Strategy interface {
	NextPosition(ctx context.Context, initial bool) (geo.Position, bool)
	HandleNearby(entities []Nearby, region string, origin geo.Position)
	HandleCatchable(entities []encounters.Catchable, region string)
	Backstep()
	Shutdown()
}

// StrategyFactory builds one strategy per worker
type StrategyFactory func(acct account.Account) Strategy

// Onboarding completes first-login steps for fresh accounts
type Onboarding interface {
	Run(ctx context.Context, c Client, acct account.Account, tutorialState []int) error
}

// Rotator requests a new anonymizing circuit for an account
type Rotator interface {
	Rotate(ctx context.Context, acct account.Account) error
}

// Notifier delivers operator notifications
type Notifier interface {
	Notify(ctx context.Context, message string) error
}

// Tiler maps positions to map cells and cells to region keys
type Tiler interface {
	CellIDs(p geo.Position) []uint64
	RegionKey(cellID uint64) string
}

// KV is the persistent key/value cache
type KV interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
}

// SightingSink archives catchable sightings
type SightingSink interface {
	Record(ctx context.Context, id account.ID, batch []encounters.Catchable) error
}

// ProxyPool hands out proxy addresses from a named pool
type ProxyPool interface {
	Draw(pool string) (string, error)
}

// WorkerPort runs every configured worker until ctx is done or all have finished
type WorkerPort interface {
	Run(ctx context.Context) error
}
