package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"nocscan/internal/core/geo"
	"nocscan/internal/modkit"
	"nocscan/internal/platform/config"
	"nocscan/internal/platform/logger"
	phttp "nocscan/internal/platform/net/http"
	"nocscan/internal/platform/net/middleware"
	"nocscan/internal/platform/store"

	"nocscan/internal/services/api"
	scannermod "nocscan/internal/services/scanner/module"

	"github.com/joho/godotenv"
)

func main() {
	// .env is optional; real env wins
	_ = godotenv.Load()
	logger.Init(logger.FromEnv())
	l := logger.Get()

	var (
		fAccounts = flag.String("accounts", "", "accounts YAML file (overrides NOCSCAN_ACCOUNTS)")
		fDelay    = flag.Duration("scan-delay", 0, "delay between scans")
		fRuntime  = flag.Duration("runtime", 0, "stop every worker after this long (0 = unbounded)")
		fLat      = flag.Float64("lat", 0, "spiral centre latitude")
		fLng      = flag.Float64("lng", 0, "spiral centre longitude")
		fRings    = flag.Int("rings", 0, "spiral rings around the centre")
		fKV       = flag.String("kv", "", "endpoint cache backend: memory | sqlite | pg")
		fNoAPI    = flag.Bool("no-api", false, "run workers without the supervisor API")
	)
	flag.Parse()

	root := config.New()
	apiCfg := root.Prefix("NOCSCAN_API_")
	pgCfg := root.Prefix("SERVICE_PGSQL_")
	liteCfg := root.Prefix("SERVICE_SQLITE_")
	chCfg := root.Prefix("SERVICE_CLICKHOUSE_")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, store.Config{
		AppName: "nocscan",
		PG: store.PGConfig{
			Enabled:     pgCfg.MayBool("ENABLED", false),
			URL:         pgCfg.MayString("DBURL", ""),
			MaxConns:    int32(pgCfg.MayInt("MAX_CONNS", 4)),
			SlowQueryMs: pgCfg.MayInt("SLOW_MS", 500),
			LogSQL:      pgCfg.MayBool("LOG_SQL", false),
		},
		Lite: store.SQLiteConfig{
			Enabled: liteCfg.MayBool("ENABLED", false),
			Path:    liteCfg.MayString("PATH", "nocscan.db"),
			LogSQL:  liteCfg.MayBool("LOG_SQL", false),
		},
		CH: store.CHConfig{
			Enabled: chCfg.MayBool("ENABLED", false),
			URL:     chCfg.MayString("DBURL", ""),
			Role:    "scanner",
		},
	}, store.WithLogger(*l))
	if err != nil {
		l.Fatal().Err(err).Msg("store.Open failed")
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()

	deps := modkit.Deps{Log: *l, Cfg: root, Store: st}

	overrides := scannermod.Options{
		AccountsFile: *fAccounts,
		ScanDelay:    *fDelay,
		Runtime:      *fRuntime,
		Rings:        *fRings,
		KVBackend:    *fKV,
	}
	if *fLat != 0 || *fLng != 0 {
		overrides.Start = geo.Position{Lat: *fLat, Lng: *fLng}
	}

	sm, err := scannermod.New(ctx, deps, overrides)
	if err != nil {
		l.Fatal().Err(err).Msg("scanner module failed")
	}
	runner := modkit.MustPortsOf[scannermod.Ports](sm).Worker

	errc := make(chan error, 2)
	srvCtx, stopSrv := context.WithCancel(ctx)
	defer stopSrv()

	if !*fNoAPI {
		srv := phttp.NewServer(":" + apiCfg.MayString("PORT", "4000"))
		api.Mount(srv.Router(), sm, api.Options{
			Deps: deps,
			CORS: middleware.CORSOptions{
				AllowedOrigins: apiCfg.MayCSV("CORS_ORIGINS", nil),
			},
		})
		go func() {
			err := srv.Run(srvCtx)
			if err != nil {
				l.Error().Err(err).Msg("http server failed; workers keep running")
			}
			errc <- err
		}()
		l.Info().Str("addr", srv.Addr()).Msg("supervisor api listening")
	}

	start := time.Now()
	if err := runner.Run(ctx); err != nil {
		l.Fatal().Err(err).Msg("scanner pool failed")
	}
	l.Info().Dur("ran", time.Since(start)).Msg("scanner pool done")

	stopSrv()
	if !*fNoAPI {
		<-errc
	}
}
