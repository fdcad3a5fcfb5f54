package booking

import (
    "context"

    "github.com/sirupsen/logrus"

    "github.com/jolie-croquette/ludov-reservation/internal/model"
)

// Notifier dispatches one reminder to the user; the transport is
// external (email gateway, message broker).  A nil error means the
// reminder was handed off successfully.
type Notifier interface {
    SendReminder(ctx context.Context, r model.Reservation, recipient string) error
}

// EmailLog appends notification attempts; entries are never mutated.
type EmailLog interface {
    Append(ctx context.Context, e model.EmailLogEntry) error
}

// ReminderScheduler walks pending reservations whose reminder window
// has opened and dispatches reminders at-least-once.  The reminder_sent
// flag flips only on a successful dispatch, so re-running the scan
// never double-sends; failed attempts stay pending and leave a failed
// email log entry for the next pass.
type ReminderScheduler struct {
    store    ReservationStore
    catalog  Catalog
    logs     EmailLog
    notifier Notifier
    clock    Clock
    log      *logrus.Logger
}

// NewReminderScheduler wires a scheduler.  log may be nil.
func NewReminderScheduler(store ReservationStore, catalog Catalog, logs EmailLog, notifier Notifier, clk Clock, log *logrus.Logger) *ReminderScheduler {
    if log == nil {
        log = logrus.StandardLogger()
    }
    return &ReminderScheduler{
        store:    store,
        catalog:  catalog,
        logs:     logs,
        notifier: notifier,
        clock:    clk,
        log:      log,
    }
}

// DueReminders returns the pending reservations whose reminder window
// has opened and whose slot has not started yet.
func (s *ReminderScheduler) DueReminders(ctx context.Context) ([]model.Reservation, error) {
    return s.store.DueReminders(ctx, s.clock.Now())
}

// MarkSent records the outcome of one dispatch attempt.  On success it
// transitions the reservation to SENT exactly once and logs a sent
// entry; on failure it logs a failed entry and leaves the reservation
// pending.  The email log is appended in both cases.
func (s *ReminderScheduler) MarkSent(ctx context.Context, r model.Reservation, recipient string, sendErr error) error {
    now := s.clock.Now()
    entry := model.EmailLogEntry{
        ReservationID: r.ID,
        EmailType:     model.EmailTypeReminder,
        Recipient:     recipient,
        Status:        model.EmailStatusSent,
        CreatedAt:     now,
    }
    if sendErr != nil {
        msg := sendErr.Error()
        entry.Status = model.EmailStatusFailed
        entry.ErrorMessage = &msg
        if err := s.logs.Append(ctx, entry); err != nil {
            return err
        }
        return nil
    }

    ok, err := s.store.MarkReminderSent(ctx, r.ID, now)
    if err != nil {
        return err
    }
    if !ok {
        // Another scan already flipped it; nothing to log twice.
        return nil
    }
    return s.logs.Append(ctx, entry)
}

// Run performs one scan-and-dispatch pass and returns the number of
// reminders sent.  Safe to invoke repeatedly from a ticker.
func (s *ReminderScheduler) Run(ctx context.Context) (int, error) {
    now := s.clock.Now()
    due, err := s.store.DueReminders(ctx, now)
    if err != nil {
        return 0, err
    }

    sent := 0
    for _, r := range due {
        recipient, err := s.catalog.UserEmail(ctx, r.UserID)
        if err != nil {
            s.log.WithField("reservation", r.ID).WithError(err).Warn("reminder: recipient lookup failed")
            continue
        }

        sendErr := s.notifier.SendReminder(ctx, r, recipient)
        if err := s.MarkSent(ctx, r, recipient, sendErr); err != nil {
            s.log.WithField("reservation", r.ID).WithError(err).Warn("reminder: outcome not recorded")
            continue
        }
        if sendErr != nil {
            s.log.WithField("reservation", r.ID).WithError(sendErr).Warn("reminder: dispatch failed, will retry")
            continue
        }
        sent++
    }
    return sent, nil
}
