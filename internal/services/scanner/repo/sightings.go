package repo

import (
	"context"
	"time"

	"nocscan/internal/core/account"
	"nocscan/internal/core/encounters"
	perr "nocscan/internal/platform/errors"
	"nocscan/internal/platform/store"
	"nocscan/internal/services/scanner/domain"
)

// SightingsTable is the clickhouse table catchable sightings are appended to.
// Expected layout, column order matters for the batch insert:
//
//	CREATE TABLE scanner_sightings (
//	  observed_at  DateTime64(3),
//	  account      LowCardinality(String),
//	  encounter_id String,
//	  kind         UInt16,
//	  lat          Float64,
//	  lng          Float64,
//	  cell_id      UInt64,
//	  expires_at   Nullable(DateTime64(3))
//	) ENGINE = MergeTree ORDER BY (observed_at, encounter_id)
const SightingsTable = "scanner_sightings"

// Sightings archives catchable sightings in clickhouse
type Sightings struct {
	ch  store.Clickhouse
	now func() time.Time
}

var _ domain.SightingSink = (*Sightings)(nil)

// NewSightings binds the sink to the clickhouse seam
func NewSightings(ch store.Clickhouse) *Sightings {
	return &Sightings{ch: ch, now: time.Now}
}

// Record appends one row per catchable
func (s *Sightings) Record(ctx context.Context, id account.ID, batch []encounters.Catchable) error {
	if len(batch) == 0 {
		return nil
	}
	at := s.now().UTC()
	rows := make([][]any, 0, len(batch))
	for _, c := range batch {
		var expires *time.Time
		if c.ExpiresMs > 0 {
			t := time.UnixMilli(c.ExpiresMs).UTC()
			expires = &t
		}
		rows = append(rows, []any{at, id.String(), c.ID, uint16(c.Kind), c.Lat, c.Lng, c.CellID, expires})
	}
	if err := s.ch.Insert(ctx, SightingsTable, rows); err != nil {
		return perr.Wrapf(err, perr.ErrorCodeDB, "record %d sightings for %s", len(rows), id)
	}
	return nil
}

// KindCounts summarises sightings per kind since a point in time
func (s *Sightings) KindCounts(ctx context.Context, since time.Time) (map[int]uint64, error) {
	rs, err := s.ch.Query(ctx,
		`SELECT kind, count() FROM `+SightingsTable+` WHERE observed_at >= ? GROUP BY kind`, since.UTC())
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeDB, "query sighting counts")
	}
	defer rs.Close()
	out := make(map[int]uint64)
	for rs.Next() {
		var kind uint16
		var n uint64
		if err := rs.Scan(&kind, &n); err != nil {
			return nil, perr.Wrap(err, perr.ErrorCodeDB, "scan sighting counts")
		}
		out[int(kind)] = n
	}
	return out, rs.Err()
}
