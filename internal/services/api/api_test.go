package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"nocscan/internal/core/geo"
	"nocscan/internal/modkit"
	phttp "nocscan/internal/platform/net/http"
	"nocscan/internal/platform/net/middleware"
	"nocscan/internal/platform/testkit"
	"nocscan/internal/services/scanner/domain"
	scannermod "nocscan/internal/services/scanner/module"

	"github.com/go-chi/chi/v5"
)

const roster = `
accounts:
  - username: ash
    password: pikachu
`

// TestMount_DryRunEndToEnd drives a simulated pool through the versioned API
func TestMount_DryRunEndToEnd(t *testing.T) {
	t.Parallel()
	af, err := scannermod.ParseAccounts(strings.NewReader(roster))
	if err != nil {
		t.Fatal(err)
	}
	sm, err := scannermod.NewWithAccounts(context.Background(), modkit.Deps{}, scannermod.Options{
		ScanDelay:   20 * time.Millisecond,
		InitDelay:   10 * time.Millisecond,
		LoginRPS:    100,
		LoginBurst:  10,
		MaxSpeedKmh: 1e6,
		DryRun:      true,
		Start:       geo.Position{Lat: 40.7829, Lng: -73.9654},
		Rings:       1,
		Loop:        true,
		CellRing:    -1,
	}, af)
	if err != nil {
		t.Fatal(err)
	}

	mux := chi.NewRouter()
	Mount(phttp.AdaptChi(mux), sm, Options{CORS: middleware.CORSOptions{}})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sm.Run(ctx) }()

	get := func(path string) (int, phttp.Envelope) {
		rr := httptest.NewRecorder()
		mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		var env phttp.Envelope
		_ = json.Unmarshal(rr.Body.Bytes(), &env)
		return rr.Code, env
	}

	testkit.Eventually(t, 3*time.Second, 20*time.Millisecond, func() bool {
		code, _ := get("/api/v1/scanners/ash/mapobjects")
		return code == http.StatusOK
	}, "no map objects served")

	if code, env := get("/api/v1/scanners/ash/status"); code != http.StatusOK || env.Data.(map[string]any)["state"] != string(domain.StateScanning) {
		t.Fatalf("status %d %+v", code, env)
	}
	if code, _ := get("/api/v1/scanners/sightings"); code != http.StatusServiceUnavailable {
		t.Fatalf("sightings without archive = %d", code)
	}

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/scanners/ash/finish", nil))
	if rr.Code != http.StatusAccepted {
		t.Fatalf("finish = %d %s", rr.Code, rr.Body.String())
	}
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(3 * time.Second):
		cancel()
		t.Fatalf("pool did not stop after finish")
	}
	cancel()
}
