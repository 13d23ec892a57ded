package module

import (
	"time"

	"nocscan/internal/core/geo"
	"nocscan/internal/core/speedgate"
	"nocscan/internal/platform/config"
	"nocscan/internal/services/scanner/domain"
	"nocscan/internal/services/scanner/repo"
	"nocscan/internal/services/scanner/service"
)

// Options controls the scanner pool. Values are read from NOCSCAN_* and may be
// overridden from the command line
type Options struct {
	// worker timing and thresholds
	ScanDelay        time.Duration
	InitDelay        time.Duration
	SpeedbanRetry    time.Duration
	Runtime          time.Duration
	MaxSpeedKmh      float64
	SoftbanThreshold int
	ChallengeRetries int
	LoginRPS         float64
	LoginBurst       int

	// collaborators
	AccountsFile    string
	KVBackend       string
	NotifyWebhook   string
	NotifyTimeout   time.Duration
	CircuitTimeout  time.Duration
	RecordSightings bool

	// dry run transport
	DryRun            bool
	SimChallengeEvery int
	SimSeed           uint64

	// spiral strategy and tiling
	Start      geo.Position
	StepM      float64
	Rings      int
	Loop       bool
	CellZoom   int
	RegionZoom int
	CellRing   int

	// Dialer replaces the simulated transport; it is never read from env
	Dialer domain.Dialer
}

// FromConfig reads options using the NOCSCAN_ prefix
func FromConfig(cfg config.Conf) Options {
	c := cfg.Prefix("NOCSCAN_")
	return Options{
		ScanDelay:        c.MayDuration("SCAN_DELAY", service.DefaultScanDelay),
		InitDelay:        c.MayDuration("INIT_DELAY", service.DefaultInitDelay),
		SpeedbanRetry:    c.MayDuration("SPEEDBAN_RETRY", service.DefaultSpeedbanRetry),
		Runtime:          c.MayDuration("RUNTIME", 0),
		MaxSpeedKmh:      c.MayFloat64("MAX_SPEED_KMH", speedgate.DefaultMaxSpeedKmh),
		SoftbanThreshold: c.MayInt("SOFTBAN_THRESHOLD", 0),
		ChallengeRetries: c.MayInt("CHALLENGE_RETRIES", service.DefaultChallengeRetries),
		LoginRPS:         c.MayFloat64("LOGIN_RPS", service.DefaultLoginRPS),
		LoginBurst:       c.MayInt("LOGIN_BURST", service.DefaultLoginBurst),

		AccountsFile:    c.MayString("ACCOUNTS", "accounts.yaml"),
		KVBackend:       c.MayEnum("KV_BACKEND", repo.BackendMemory, repo.BackendMemory, repo.BackendSQLite, repo.BackendPG),
		NotifyWebhook:   c.MayString("NOTIFY_WEBHOOK", ""),
		NotifyTimeout:   c.MayDuration("NOTIFY_TIMEOUT", 10*time.Second),
		CircuitTimeout:  c.MayDuration("CIRCUIT_TIMEOUT", 5*time.Second),
		RecordSightings: c.MayBool("RECORD_SIGHTINGS", true),

		DryRun:            c.MayBool("DRY_RUN", true),
		SimChallengeEvery: c.MayInt("SIM_CHALLENGE_EVERY", 0),
		SimSeed:           uint64(c.MayInt("SIM_SEED", 1)),

		Start: geo.Position{
			Lat: c.MayFloat64("START_LAT", 40.7829),
			Lng: c.MayFloat64("START_LNG", -73.9654),
		},
		StepM:      c.MayFloat64("STEP_M", 0),
		Rings:      c.MayInt("RINGS", -1),
		Loop:       c.MayBool("LOOP", true),
		CellZoom:   c.MayInt("CELL_ZOOM", 17),
		RegionZoom: c.MayInt("REGION_ZOOM", 13),
		CellRing:   c.MayInt("CELL_RING", 1),
	}
}

// merge applies non-zero overrides onto o
func (o Options) merge(ov Options) Options {
	if ov.ScanDelay != 0 {
		o.ScanDelay = ov.ScanDelay
	}
	if ov.InitDelay != 0 {
		o.InitDelay = ov.InitDelay
	}
	if ov.SpeedbanRetry != 0 {
		o.SpeedbanRetry = ov.SpeedbanRetry
	}
	if ov.Runtime != 0 {
		o.Runtime = ov.Runtime
	}
	if ov.MaxSpeedKmh != 0 {
		o.MaxSpeedKmh = ov.MaxSpeedKmh
	}
	if ov.SoftbanThreshold != 0 {
		o.SoftbanThreshold = ov.SoftbanThreshold
	}
	if ov.ChallengeRetries != 0 {
		o.ChallengeRetries = ov.ChallengeRetries
	}
	if ov.LoginRPS != 0 {
		o.LoginRPS = ov.LoginRPS
	}
	if ov.LoginBurst != 0 {
		o.LoginBurst = ov.LoginBurst
	}
	if ov.AccountsFile != "" {
		o.AccountsFile = ov.AccountsFile
	}
	if ov.KVBackend != "" {
		o.KVBackend = ov.KVBackend
	}
	if ov.NotifyWebhook != "" {
		o.NotifyWebhook = ov.NotifyWebhook
	}
	if ov.SimChallengeEvery != 0 {
		o.SimChallengeEvery = ov.SimChallengeEvery
	}
	if ov.Start != (geo.Position{}) {
		o.Start = ov.Start
	}
	if ov.StepM != 0 {
		o.StepM = ov.StepM
	}
	if ov.Rings != 0 {
		o.Rings = ov.Rings
	}
	if ov.Dialer != nil {
		o.Dialer = ov.Dialer
	}
	return o
}

func (o Options) serviceConfig() service.Config {
	return service.Config{
		ScanDelay:        o.ScanDelay,
		InitDelay:        o.InitDelay,
		SpeedbanRetry:    o.SpeedbanRetry,
		Runtime:          o.Runtime,
		SoftbanThreshold: o.SoftbanThreshold,
		ChallengeRetries: o.ChallengeRetries,
		LoginRPS:         o.LoginRPS,
		LoginBurst:       o.LoginBurst,
	}
}
