// Package simtransport is an in-process stand-in for the game protocol client.
// It lets the binary run end to end in dry-run mode: logins succeed for any
// non-empty password and map queries return synthetic entities
package simtransport

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"nocscan/internal/core/encounters"
	"nocscan/internal/core/geo"
	perr "nocscan/internal/platform/errors"
	"nocscan/internal/services/scanner/domain"

	"github.com/google/uuid"
)

// DefaultEndpoint is where a fresh client starts
const DefaultEndpoint = "https://sim.nocscan.local/rpc"

// Options tunes the synthetic world
type Options struct {
	// Catchable entities per cell are drawn uniformly from [0, MaxPerCell]
	MaxPerCell int
	// Every Nth map query carries a challenge; 0 disables
	ChallengeEvery int
	// Entities keep their id for this long, so re-sightings refresh the cache
	Spawn time.Duration
	Seed  uint64
	Now   func() time.Time
}

// Dialer hands out independent simulated clients
type Dialer struct {
	opts Options
}

// NewDialer applies defaults
func NewDialer(o Options) *Dialer {
	if o.MaxPerCell <= 0 {
		o.MaxPerCell = 2
	}
	if o.Spawn <= 0 {
		o.Spawn = 15 * time.Minute
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return &Dialer{opts: o}
}

// Dial never fails
func (d *Dialer) Dial(proxy string) (domain.Client, error) {
	return &Client{
		opts:     d.opts,
		proxy:    proxy,
		endpoint: DefaultEndpoint,
		rnd:      rand.New(rand.NewPCG(d.opts.Seed, uint64(d.opts.Now().UnixNano()))),
	}, nil
}

// Client is one simulated session
type Client struct {
	opts  Options
	proxy string

	mu       sync.Mutex
	rnd      *rand.Rand
	token    string
	pos      geo.Position
	endpoint string
	settings domain.Settings
	calls    int
	tutorial []int
}

var _ domain.Client = (*Client)(nil)

// Login accepts any non-empty password
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", perr.Wrap(err, perr.ErrorCodeUnavailable, "login cancelled")
	}
	if strings.TrimSpace(password) == "" {
		return "", perr.Unauthorizedf("login rejected for %s", username)
	}
	return "sim-" + uuid.NewString(), nil
}

// SetAuthInfo stores the session token
func (c *Client) SetAuthInfo(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// SetPosition moves the player
func (c *Client) SetPosition(p geo.Position) {
	c.mu.Lock()
	c.pos = p
	c.mu.Unlock()
}

// Position returns the player position
func (c *Client) Position() geo.Position {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pos
}

// Endpoint returns the current RPC endpoint
func (c *Client) Endpoint() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.endpoint
}

// SetEndpoint overrides the RPC endpoint
func (c *Client) SetEndpoint(url string) {
	c.mu.Lock()
	c.endpoint = url
	c.mu.Unlock()
}

func (c *Client) authed() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token == "" {
		return perr.RPCf("no auth info set")
	}
	return nil
}

// PlayerInfo reports a fresh account until the tutorial is completed
func (c *Client) PlayerInfo(context.Context) (domain.PlayerInfo, error) {
	if err := c.authed(); err != nil {
		return domain.PlayerInfo{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return domain.PlayerInfo{Level: 1, TutorialState: append([]int(nil), c.tutorial...)}, nil
}

// InitialData returns fixed settings
func (c *Client) InitialData(context.Context) (domain.InitialData, error) {
	if err := c.authed(); err != nil {
		return domain.InitialData{}, err
	}
	return domain.InitialData{
		RemoteConfig: map[string]any{"sim": true},
		Inventory:    map[string]int{"ball": 50},
		Settings: domain.Settings{
			MinRefresh:     10 * time.Second,
			MaxRefresh:     30 * time.Second,
			MapDistanceM:   500,
			EncounterRange: 50,
			Hash:           "sim",
		},
	}, nil
}

// ApplySettings stores settings
func (c *Client) ApplySettings(s domain.Settings) {
	c.mu.Lock()
	c.settings = s
	c.mu.Unlock()
}

// Settings returns what was applied
func (c *Client) Settings() domain.Settings {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.settings
}

// MapObjects draws entities per cell. Ids are stable within a spawn window
func (c *Client) MapObjects(ctx context.Context, cellIDs []uint64) (domain.MapObjects, error) {
	if err := c.authed(); err != nil {
		return domain.MapObjects{}, err
	}
	if err := ctx.Err(); err != nil {
		return domain.MapObjects{}, perr.Wrap(err, perr.ErrorCodeRPC, "map objects cancelled")
	}
	now := c.opts.Now()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	out := domain.MapObjects{At: now}
	if c.opts.ChallengeEvery > 0 && c.calls%c.opts.ChallengeEvery == 0 {
		out.ChallengeURL = fmt.Sprintf("https://sim.nocscan.local/challenge/%d", c.calls)
		return out, nil
	}

	window := now.Truncate(c.opts.Spawn)
	expires := window.Add(c.opts.Spawn).UnixMilli()
	for _, cell := range cellIDs {
		mc := domain.Cell{ID: cell}
		n := c.rnd.IntN(c.opts.MaxPerCell + 1)
		for i := range n {
			mc.Catchable = append(mc.Catchable, encounters.Catchable{
				ID:        spawnID(cell, window, i),
				Kind:      1 + int(spawnHash(cell, window, i)%151),
				Lat:       c.pos.Lat,
				Lng:       c.pos.Lng,
				CellID:    cell,
				ExpiresMs: expires,
			})
		}
		if c.rnd.IntN(2) == 0 {
			mc.Nearby = append(mc.Nearby, domain.Nearby{
				ID:        spawnID(cell, window, 100),
				Kind:      1 + int(spawnHash(cell, window, 100)%151),
				DistanceM: 50 + c.rnd.Float64()*150,
			})
		}
		out.Cells = append(out.Cells, mc)
	}
	return out, nil
}

// VerifyChallenge accepts any non-empty token
func (c *Client) VerifyChallenge(_ context.Context, token string) (bool, error) {
	if err := c.authed(); err != nil {
		return false, err
	}
	return strings.TrimSpace(token) != "", nil
}

// CompleteTutorial records stages as done
func (c *Client) CompleteTutorial(_ context.Context, stages []int) error {
	if err := c.authed(); err != nil {
		return err
	}
	c.mu.Lock()
	c.tutorial = append(c.tutorial, stages...)
	c.mu.Unlock()
	return nil
}

func spawnHash(cell uint64, window time.Time, i int) uint64 {
	h := fnv.New64a()
	_, _ = fmt.Fprintf(h, "%d/%d/%d", cell, window.Unix(), i)
	return h.Sum64()
}

func spawnID(cell uint64, window time.Time, i int) string {
	return fmt.Sprintf("%016x", spawnHash(cell, window, i))
}
