package booking

import (
    "context"
    "time"

    "github.com/jolie-croquette/ludov-reservation/internal/model"
)

// ClaimStore reads the claims that make resources unavailable: live
// holds and non-archived reservations.  Implementations must return
// every claim that names any resource in the set or draws from the
// same console type; the index does the slot arithmetic itself.
// Methods read through the transaction carried in ctx when one is
// present, so availability checks inside create/promote see a
// consistent snapshot.
type ClaimStore interface {
    ActiveHolds(ctx context.Context, res model.ResourceSet, now time.Time) ([]model.Hold, error)
    OpenReservations(ctx context.Context, res model.ResourceSet) ([]model.Reservation, error)
}

// Catalog is the read-only view of the catalog store.  The engine
// never mutates catalog rows; it only resolves references and reads
// status flags and unit counts.
type Catalog interface {
    ConsoleUnit(ctx context.Context, id uint64) (*model.ConsoleUnit, error)
    UnitCount(ctx context.Context, consoleTypeID uint64) (int, error)
    ActiveUnits(ctx context.Context, consoleTypeID uint64) ([]model.ConsoleUnit, error)
    Game(ctx context.Context, id uint64) (*model.Game, error)
    Station(ctx context.Context, id uint64) (*model.Station, error)
    Accessory(ctx context.Context, id uint64) (*model.Accessory, error)
    Course(ctx context.Context, id uint64) (*model.Course, error)
    UserEmail(ctx context.Context, id uint64) (string, error)
    OpeningCalendar(ctx context.Context) (model.OpeningCalendar, error)
}

// AvailabilityIndex decides whether a resource set is free for a slot.
// It is side-effect free; atomicity comes from the caller running the
// check and the subsequent write in one store transaction.
type AvailabilityIndex struct {
    claims  ClaimStore
    catalog Catalog
    slotLen time.Duration
}

// NewAvailabilityIndex builds an index over the given stores.  slotLen
// is the implicit duration applied to slots that carry none.
func NewAvailabilityIndex(claims ClaimStore, catalog Catalog, slotLen time.Duration) *AvailabilityIndex {
    return &AvailabilityIndex{claims: claims, catalog: catalog, slotLen: slotLen}
}

// IsFree reports whether every resource in the set is available for
// the slot.  A nil slot means the caller wants a resource-only claim,
// which must not clash with any existing claim at any time.  The hold
// identified by excludeHoldID is ignored, which lets promotion
// re-validate a hold without tripping over itself.
//
// Single-unit resources (a specific console unit, game copies,
// stations, accessories) are blocked by any intersecting claim whose
// window overlaps.  Console types are counted: the set is free only
// while the number of claims drawing on the type during the window is
// below the type's active unit count.
func (ix *AvailabilityIndex) IsFree(ctx context.Context, res model.ResourceSet, slot *model.Slot, excludeHoldID string, now time.Time) (bool, error) {
    slot = ix.normalize(slot)

    holds, err := ix.claims.ActiveHolds(ctx, res, now)
    if err != nil {
        return false, err
    }
    reservations, err := ix.claims.OpenReservations(ctx, res)
    if err != nil {
        return false, err
    }

    typeClaims := 0
    for _, h := range holds {
        if excludeHoldID != "" && h.ID == excludeHoldID {
            continue
        }
        if !windowsCollide(ix.normalize(h.Slot), slot) {
            continue
        }
        if h.Resources().Intersects(res) {
            return false, nil
        }
        if h.Resources().SameConsoleType(res) {
            typeClaims++
        }
    }
    for _, r := range reservations {
        s := r.Slot
        if !windowsCollide(ix.normalize(&s), slot) {
            continue
        }
        if r.Resources().Intersects(res) {
            return false, nil
        }
        if r.Resources().SameConsoleType(res) {
            typeClaims++
        }
    }

    if res.ConsoleTypeID != 0 && typeClaims > 0 {
        total, err := ix.catalog.UnitCount(ctx, res.ConsoleTypeID)
        if err != nil {
            return false, err
        }
        if typeClaims >= total {
            return false, nil
        }
    }
    return true, nil
}

// FindConflicts returns the non-archived reservations that would clash
// with the given resource set and slot.  Same pool rule as IsFree:
// reservations that merely share the console type only count once the
// type's units are all spoken for during the window.  Diagnostic only,
// no side effects.
func (ix *AvailabilityIndex) FindConflicts(ctx context.Context, res model.ResourceSet, slot model.Slot) ([]model.Reservation, error) {
    norm := ix.normalize(&slot)
    reservations, err := ix.claims.OpenReservations(ctx, res)
    if err != nil {
        return nil, err
    }
    var out []model.Reservation
    var typeOnly []model.Reservation
    typeClaims := 0
    for _, r := range reservations {
        s := r.Slot
        if !windowsCollide(ix.normalize(&s), norm) {
            continue
        }
        if r.Resources().Intersects(res) {
            out = append(out, r)
            if r.Resources().SameConsoleType(res) {
                typeClaims++
            }
            continue
        }
        if r.Resources().SameConsoleType(res) {
            typeOnly = append(typeOnly, r)
            typeClaims++
        }
    }
    if len(typeOnly) > 0 {
        total, err := ix.catalog.UnitCount(ctx, res.ConsoleTypeID)
        if err != nil {
            return nil, err
        }
        if typeClaims >= total {
            out = append(out, typeOnly...)
        }
    }
    return out, nil
}

// FreeUnit picks an active console unit of the type that no colliding
// claim has taken for the slot.  Promotion uses it to turn a pool
// claim into a concrete unit.  Returns ErrResourceUnavailable when the
// pool is exhausted.
func (ix *AvailabilityIndex) FreeUnit(ctx context.Context, consoleTypeID uint64, slot *model.Slot, excludeHoldID string, now time.Time) (uint64, error) {
    slot = ix.normalize(slot)
    units, err := ix.catalog.ActiveUnits(ctx, consoleTypeID)
    if err != nil {
        return 0, err
    }
    pool := model.ResourceSet{ConsoleTypeID: consoleTypeID}
    holds, err := ix.claims.ActiveHolds(ctx, pool, now)
    if err != nil {
        return 0, err
    }
    reservations, err := ix.claims.OpenReservations(ctx, pool)
    if err != nil {
        return 0, err
    }

    taken := make(map[uint64]struct{})
    for _, h := range holds {
        if excludeHoldID != "" && h.ID == excludeHoldID {
            continue
        }
        if h.ConsoleID != nil && windowsCollide(ix.normalize(h.Slot), slot) {
            taken[*h.ConsoleID] = struct{}{}
        }
    }
    for _, r := range reservations {
        s := r.Slot
        if windowsCollide(ix.normalize(&s), slot) {
            taken[r.ConsoleID] = struct{}{}
        }
    }
    for _, u := range units {
        if _, used := taken[u.ID]; !used {
            return u.ID, nil
        }
    }
    return 0, ErrResourceUnavailable
}

// normalize fills in the implicit duration on a copy of the slot.
func (ix *AvailabilityIndex) normalize(slot *model.Slot) *model.Slot {
    if slot == nil {
        return nil
    }
    s := *slot
    if s.Duration <= 0 {
        s.Duration = ix.slotLen
    }
    return &s
}

// windowsCollide applies the conservative slotless rule: a claim with
// no window, or a request with no window, collides with everything.
func windowsCollide(claim, requested *model.Slot) bool {
    if claim == nil || requested == nil {
        return true
    }
    return claim.Overlaps(*requested)
}
