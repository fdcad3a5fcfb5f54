package booking

import (
    "context"
    "time"

    "github.com/google/uuid"

    "github.com/jolie-croquette/ludov-reservation/internal/model"
)

// HoldStore persists holds.  WithTx runs fn inside one store
// transaction, carried in the context so that nested reads and writes
// share it.  LockResources takes row locks on every resource the set
// claims — the console type plus the named games, station and
// accessories — so that two bookers sharing ANY resource serialize,
// not only those drawing on the same pool; Create must map a
// uniqueness violation on (console, date, time) to ErrStoreConflict.
type HoldStore interface {
    WithTx(ctx context.Context, fn func(ctx context.Context) error) error
    Get(ctx context.Context, id string) (*model.Hold, error)
    Create(ctx context.Context, h model.Hold) error
    UpdateExpiry(ctx context.Context, id string, expiresAt time.Time) (bool, error)
    Delete(ctx context.Context, id string) (bool, error)
    DeleteExpired(ctx context.Context, now time.Time) (int64, error)
    LockResources(ctx context.Context, res model.ResourceSet) error
}

// HoldService owns the hold lifecycle: creation against the
// availability index, renewal, cancellation and the expiry sweep.
type HoldService struct {
    store      HoldStore
    catalog    Catalog
    avail      *AvailabilityIndex
    clock      Clock
    defaultTTL time.Duration
    slotLen    time.Duration
}

// NewHoldService wires a hold manager.  defaultTTL is used when a
// create request does not name one; slotLen is the implicit slot
// duration.
func NewHoldService(store HoldStore, catalog Catalog, avail *AvailabilityIndex, clk Clock, defaultTTL, slotLen time.Duration) *HoldService {
    return &HoldService{
        store:      store,
        catalog:    catalog,
        avail:      avail,
        clock:      clk,
        defaultTTL: defaultTTL,
        slotLen:    slotLen,
    }
}

// CreateHoldInput carries a hold request.  ID is optional; the service
// generates one when empty.  Either ConsoleID or ConsoleTypeID must be
// set.  A nil Slot creates a resource-only hold.
type CreateHoldInput struct {
    ID            string
    UserID        uint64
    ConsoleID     *uint64
    ConsoleTypeID uint64
    GameIDs       []uint64
    StationID     *uint64
    AccessoryIDs  []uint64
    CourseID      *uint64
    Slot          *model.Slot
    TTL           time.Duration
}

// Create validates every resource reference once at the boundary,
// checks opening hours for slotted requests, then runs
// lock→availability-check→insert as one transaction.  A lost race
// surfaces as ErrResourceUnavailable (check failed) or
// ErrStoreConflict (uniqueness constraint fired); both mean "pick
// another slot".
func (s *HoldService) Create(ctx context.Context, in CreateHoldInput) (model.Hold, error) {
    if in.UserID == 0 {
        return model.Hold{}, ErrInvalidInput
    }
    if in.ConsoleID == nil && in.ConsoleTypeID == 0 {
        return model.Hold{}, ErrInvalidInput
    }
    if len(in.GameIDs) > 3 {
        return model.Hold{}, ErrInvalidInput
    }

    if in.ConsoleID != nil {
        unit, err := s.catalog.ConsoleUnit(ctx, *in.ConsoleID)
        if err != nil {
            return model.Hold{}, err
        }
        if unit == nil {
            return model.Hold{}, ErrInvalidInput
        }
        if !unit.IsActive {
            return model.Hold{}, ErrResourceUnavailable
        }
        if in.ConsoleTypeID != 0 && in.ConsoleTypeID != unit.ConsoleTypeID {
            return model.Hold{}, ErrInvalidInput
        }
        in.ConsoleTypeID = unit.ConsoleTypeID
    }
    for _, gid := range in.GameIDs {
        game, err := s.catalog.Game(ctx, gid)
        if err != nil {
            return model.Hold{}, err
        }
        if game == nil {
            return model.Hold{}, ErrInvalidInput
        }
        if !game.IsActive {
            return model.Hold{}, ErrResourceUnavailable
        }
    }
    if in.StationID != nil {
        station, err := s.catalog.Station(ctx, *in.StationID)
        if err != nil {
            return model.Hold{}, err
        }
        if station == nil {
            return model.Hold{}, ErrInvalidInput
        }
    }
    for _, aid := range in.AccessoryIDs {
        acc, err := s.catalog.Accessory(ctx, aid)
        if err != nil {
            return model.Hold{}, err
        }
        if acc == nil {
            return model.Hold{}, ErrInvalidInput
        }
        if acc.Hidden {
            return model.Hold{}, ErrResourceUnavailable
        }
    }
    if in.CourseID != nil {
        course, err := s.catalog.Course(ctx, *in.CourseID)
        if err != nil {
            return model.Hold{}, err
        }
        if course == nil {
            return model.Hold{}, ErrInvalidInput
        }
    }

    if in.Slot != nil {
        if in.Slot.Duration <= 0 {
            in.Slot.Duration = s.slotLen
        }
        calendar, err := s.catalog.OpeningCalendar(ctx)
        if err != nil {
            return model.Hold{}, err
        }
        if !calendar.Allows(in.Slot.StartsAt) {
            return model.Hold{}, ErrResourceUnavailable
        }
    }

    ttl := in.TTL
    if ttl <= 0 {
        ttl = s.defaultTTL
    }
    now := s.clock.Now()
    hold := model.Hold{
        ID:            in.ID,
        UserID:        in.UserID,
        ConsoleID:     in.ConsoleID,
        ConsoleTypeID: in.ConsoleTypeID,
        GameIDs:       in.GameIDs,
        StationID:     in.StationID,
        AccessoryIDs:  in.AccessoryIDs,
        CourseID:      in.CourseID,
        Slot:          in.Slot,
        ExpiresAt:     now.Add(ttl),
        CreatedAt:     now,
    }
    if hold.ID == "" {
        hold.ID = uuid.NewString()
    }

    err := s.store.WithTx(ctx, func(txCtx context.Context) error {
        if err := s.store.LockResources(txCtx, hold.Resources()); err != nil {
            return err
        }
        free, err := s.avail.IsFree(txCtx, hold.Resources(), hold.Slot, "", now)
        if err != nil {
            return err
        }
        if !free {
            return ErrResourceUnavailable
        }
        return s.store.Create(txCtx, hold)
    })
    if err != nil {
        return model.Hold{}, err
    }
    return hold, nil
}

// Renew extends a live hold's expiry to now+ttl.  Expired or missing
// holds are terminal for this operation.
func (s *HoldService) Renew(ctx context.Context, id string, ttl time.Duration) (model.Hold, error) {
    if ttl <= 0 {
        ttl = s.defaultTTL
    }
    hold, err := s.store.Get(ctx, id)
    if err != nil {
        return model.Hold{}, err
    }
    if hold == nil {
        return model.Hold{}, ErrHoldNotFound
    }
    now := s.clock.Now()
    if !hold.Active(now) {
        return model.Hold{}, ErrHoldExpired
    }
    expiresAt := now.Add(ttl)
    ok, err := s.store.UpdateExpiry(ctx, id, expiresAt)
    if err != nil {
        return model.Hold{}, err
    }
    if !ok {
        // Swept between the read and the write.
        return model.Hold{}, ErrHoldNotFound
    }
    hold.ExpiresAt = expiresAt
    return *hold, nil
}

// Cancel releases a hold before its expiry.
func (s *HoldService) Cancel(ctx context.Context, id string) error {
    ok, err := s.store.Delete(ctx, id)
    if err != nil {
        return err
    }
    if !ok {
        return ErrHoldNotFound
    }
    return nil
}

// SweepExpired deletes every hold whose expiry has passed and returns
// the count.  The cutoff is captured once, so a hold created while the
// sweep runs is never caught by the same pass.  Idempotent.
func (s *HoldService) SweepExpired(ctx context.Context) (int64, error) {
    return s.store.DeleteExpired(ctx, s.clock.Now())
}
