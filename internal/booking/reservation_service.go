package booking

import (
    "context"
    "time"

    "github.com/jolie-croquette/ludov-reservation/internal/model"
)

// ReservationStore persists confirmed reservations.  Create must map a
// slot-uniqueness violation to ErrStoreConflict so a lost promotion
// race never double-books.
type ReservationStore interface {
    WithTx(ctx context.Context, fn func(ctx context.Context) error) error
    Get(ctx context.Context, id string) (*model.Reservation, error)
    Create(ctx context.Context, r model.Reservation) error
    Archive(ctx context.Context, id string, now time.Time) (bool, error)
    DueReminders(ctx context.Context, now time.Time) ([]model.Reservation, error)
    MarkReminderSent(ctx context.Context, id string, at time.Time) (bool, error)
}

// ConfirmationPublisher receives a best-effort notification after a
// promotion commits.  Failures are the publisher's problem; the
// reservation stands either way.
type ConfirmationPublisher interface {
    PublishConfirmed(ctx context.Context, r model.Reservation) error
}

// ReservationService promotes holds into durable reservations and owns
// the reservation lifecycle.  The central invariant enforced here and
// never relaxed: two non-archived reservations sharing a resource
// never overlap in time.
type ReservationService struct {
    holds     HoldStore
    store     ReservationStore
    catalog   Catalog
    avail     *AvailabilityIndex
    clock     Clock
    slotLen   time.Duration
    publisher ConfirmationPublisher
}

// NewReservationService wires a reservation manager.  publisher may be
// nil when no event transport is configured.
func NewReservationService(holds HoldStore, store ReservationStore, catalog Catalog, avail *AvailabilityIndex, clk Clock, slotLen time.Duration, publisher ConfirmationPublisher) *ReservationService {
    return &ReservationService{
        holds:     holds,
        store:     store,
        catalog:   catalog,
        avail:     avail,
        clock:     clk,
        slotLen:   slotLen,
        publisher: publisher,
    }
}

// PromoteOptions carries the reminder preferences recorded on the new
// reservation.
type PromoteOptions struct {
    ReminderEnabled     bool
    ReminderHoursBefore int
}

// Promote converts a live hold into a reservation.  It re-validates
// everything at promotion time — the hold's resources may have been
// deactivated since creation and the sweep may be lagging — then
// deletes the hold and inserts the reservation with the same
// identifier in one transaction.  On any error the hold is left
// untouched.
func (s *ReservationService) Promote(ctx context.Context, holdID string, opts PromoteOptions) (model.Reservation, error) {
    now := s.clock.Now()
    var result model.Reservation

    err := s.store.WithTx(ctx, func(txCtx context.Context) error {
        hold, err := s.holds.Get(txCtx, holdID)
        if err != nil {
            return err
        }
        if hold == nil {
            return ErrHoldNotFound
        }
        if !hold.Active(now) {
            return ErrHoldExpired
        }
        if hold.Slot == nil || hold.CourseID == nil {
            // A reservation needs a confirmed window and a course;
            // resource-only holds must be slotted before promotion.
            return ErrInvalidInput
        }

        if err := s.recheckCatalog(txCtx, *hold); err != nil {
            return err
        }

        if err := s.holds.LockResources(txCtx, hold.Resources()); err != nil {
            return err
        }
        free, err := s.avail.IsFree(txCtx, hold.Resources(), hold.Slot, hold.ID, now)
        if err != nil {
            return err
        }
        if !free {
            return ErrResourceUnavailable
        }

        consoleID := uint64(0)
        if hold.ConsoleID != nil {
            consoleID = *hold.ConsoleID
        } else {
            consoleID, err = s.avail.FreeUnit(txCtx, hold.ConsoleTypeID, hold.Slot, hold.ID, now)
            if err != nil {
                return err
            }
        }

        slot := *hold.Slot
        if slot.Duration <= 0 {
            slot.Duration = s.slotLen
        }
        reservation := model.Reservation{
            ID:                  hold.ID,
            UserID:              hold.UserID,
            ConsoleID:           consoleID,
            ConsoleTypeID:       hold.ConsoleTypeID,
            GameIDs:             hold.GameIDs,
            StationID:           hold.StationID,
            AccessoryIDs:        hold.AccessoryIDs,
            CourseID:            *hold.CourseID,
            Slot:                slot,
            Archived:            false,
            ReminderEnabled:     opts.ReminderEnabled,
            ReminderHoursBefore: opts.ReminderHoursBefore,
            ReminderSent:        false,
            CreatedAt:           now,
            LastUpdatedAt:       now,
        }

        if ok, err := s.holds.Delete(txCtx, hold.ID); err != nil {
            return err
        } else if !ok {
            return ErrHoldNotFound
        }
        if err := s.store.Create(txCtx, reservation); err != nil {
            return err
        }
        result = reservation
        return nil
    })
    if err != nil {
        return model.Reservation{}, err
    }

    if s.publisher != nil {
        _ = s.publisher.PublishConfirmed(ctx, result)
    }
    return result, nil
}

// Archive soft-deletes a reservation; it drops out of every future
// availability check but stays on record.
func (s *ReservationService) Archive(ctx context.Context, id string) error {
    ok, err := s.store.Archive(ctx, id, s.clock.Now())
    if err != nil {
        return err
    }
    if !ok {
        return ErrReservationNotFound
    }
    return nil
}

// Get returns a reservation by id.
func (s *ReservationService) Get(ctx context.Context, id string) (model.Reservation, error) {
    r, err := s.store.Get(ctx, id)
    if err != nil {
        return model.Reservation{}, err
    }
    if r == nil {
        return model.Reservation{}, ErrReservationNotFound
    }
    return *r, nil
}

// FindConflicts lists the non-archived reservations clashing with the
// given resource set and slot.
func (s *ReservationService) FindConflicts(ctx context.Context, res model.ResourceSet, slot model.Slot) ([]model.Reservation, error) {
    return s.avail.FindConflicts(ctx, res, slot)
}

// recheckCatalog guards the promotion race where a held resource was
// deactivated after the hold was created.
func (s *ReservationService) recheckCatalog(ctx context.Context, hold model.Hold) error {
    if hold.ConsoleID != nil {
        unit, err := s.catalog.ConsoleUnit(ctx, *hold.ConsoleID)
        if err != nil {
            return err
        }
        if unit == nil || !unit.IsActive {
            return ErrResourceUnavailable
        }
    }
    for _, gid := range hold.GameIDs {
        game, err := s.catalog.Game(ctx, gid)
        if err != nil {
            return err
        }
        if game == nil || !game.IsActive {
            return ErrResourceUnavailable
        }
    }
    for _, aid := range hold.AccessoryIDs {
        acc, err := s.catalog.Accessory(ctx, aid)
        if err != nil {
            return err
        }
        if acc == nil || acc.Hidden {
            return ErrResourceUnavailable
        }
    }
    return nil
}
