package worker

import (
    "context"
    "time"

    "github.com/sirupsen/logrus"

    "github.com/jolie-croquette/ludov-reservation/internal/booking"
)

// ReminderWorker drives the reminder scheduler on a fixed period.
// The scheduler itself is idempotent, so overlapping or repeated scans
// after a crash never double-send.
type ReminderWorker struct {
    scheduler *booking.ReminderScheduler
    interval  time.Duration
    log       *logrus.Logger
}

// NewReminderWorker wires a reminder loop.  log may be nil.
func NewReminderWorker(scheduler *booking.ReminderScheduler, interval time.Duration, log *logrus.Logger) *ReminderWorker {
    if log == nil {
        log = logrus.StandardLogger()
    }
    return &ReminderWorker{scheduler: scheduler, interval: interval, log: log}
}

// Run loops until ctx is cancelled, scanning once per interval.
func (w *ReminderWorker) Run(ctx context.Context) {
    ticker := time.NewTicker(w.interval)
    defer ticker.Stop()

    for {
        select {
        case <-ctx.Done():
            return
        case <-ticker.C:
            sent, err := w.scheduler.Run(ctx)
            if err != nil {
                w.log.WithError(err).Warn("reminder: scan failed")
                continue
            }
            if sent > 0 {
                w.log.WithField("sent", sent).Info("reminder: reminders dispatched")
            }
        }
    }
}
