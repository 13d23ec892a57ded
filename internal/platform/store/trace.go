package store

import (
	"context"
	"time"

	"nocscan/internal/platform/store/pg"
)

// span emits query events to an optional tracer; shared by every sql adapter
type span struct {
	tracer pg.QueryTracer
	slowUS int64
}

func newSpan(tracer pg.QueryTracer, slowMs int) span {
	return span{tracer: tracer, slowUS: int64(slowMs) * 1000}
}

func (s span) emit(ctx context.Context, sql string, args []any, start time.Time, err error) {
	if s.tracer == nil {
		return
	}
	elapsedUS := time.Since(start).Microseconds()
	s.tracer.OnQuery(ctx, pg.QueryEvent{
		SQL:       sql,
		Args:      args,
		ElapsedUS: elapsedUS,
		Err:       err,
		Slow:      s.slowUS >= 0 && elapsedUS >= s.slowUS,
	})
}

// tracedRow emits once Scan returns so the event carries the scan error
type tracedRow struct {
	r     Row
	after func(error)
}

func (x tracedRow) Scan(dst ...any) error {
	err := x.r.Scan(dst...)
	if x.after != nil {
		x.after(err)
	}
	return err
}
