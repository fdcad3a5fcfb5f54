// Package worker runs the periodic background loops: the expired-hold
// sweep and the reminder scan.  Both are ticker-driven, cancel cleanly
// through their context, and log with logrus.
package worker

import (
    "context"
    "time"

    "github.com/sirupsen/logrus"

    "github.com/jolie-croquette/ludov-reservation/internal/booking"
)

// Sweeper periodically deletes expired holds so their resources return
// to the available pool.  Expiry is already enforced at read time; the
// sweep just keeps the table from accumulating dead rows.
type Sweeper struct {
    holds    *booking.HoldService
    interval time.Duration
    log      *logrus.Logger
}

// NewSweeper wires a sweeper.  log may be nil.
func NewSweeper(holds *booking.HoldService, interval time.Duration, log *logrus.Logger) *Sweeper {
    if log == nil {
        log = logrus.StandardLogger()
    }
    return &Sweeper{holds: holds, interval: interval, log: log}
}

// Run loops until ctx is cancelled, sweeping once per interval.  A
// failed pass is logged and retried on the next tick.
func (s *Sweeper) Run(ctx context.Context) {
    ticker := time.NewTicker(s.interval)
    defer ticker.Stop()

    for {
        select {
        case <-ctx.Done():
            return
        case <-ticker.C:
            n, err := s.holds.SweepExpired(ctx)
            if err != nil {
                s.log.WithError(err).Warn("sweeper: pass failed")
                continue
            }
            if n > 0 {
                s.log.WithField("deleted", n).Info("sweeper: expired holds removed")
            }
        }
    }
}
