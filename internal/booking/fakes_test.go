package booking

import (
    "context"
    "fmt"
    "sort"
    "sync"
    "time"

    "github.com/jolie-croquette/ludov-reservation/internal/model"
)

// fakeStore is an in-memory implementation of HoldStore,
// ReservationStore, ClaimStore, Catalog and EmailLog, with the same
// semantics the MySQL layer provides: claim reads return a superset
// the index filters, reservation Create enforces slot uniqueness per
// console, MarkReminderSent flips the flag at most once, and
// LockResources takes per-row mutexes that WithTx holds until the
// transaction ends, mirroring InnoDB row locks.
type fakeStore struct {
    mu       sync.Mutex
    rowLocks map[string]*sync.Mutex

    holds        map[string]model.Hold
    reservations map[string]model.Reservation

    types       map[uint64]struct{}
    units       map[uint64]model.ConsoleUnit
    games       map[uint64]model.Game
    stations    map[uint64]model.Station
    accessories map[uint64]model.Accessory
    courses     map[uint64]model.Course
    emails      map[uint64]string
    calendar    model.OpeningCalendar

    emailLog []model.EmailLogEntry
}

func newFakeStore() *fakeStore {
    return &fakeStore{
        rowLocks:     map[string]*sync.Mutex{},
        holds:        map[string]model.Hold{},
        reservations: map[string]model.Reservation{},
        types:        map[uint64]struct{}{},
        units:        map[uint64]model.ConsoleUnit{},
        games:        map[uint64]model.Game{},
        stations:     map[uint64]model.Station{},
        accessories:  map[uint64]model.Accessory{},
        courses:      map[uint64]model.Course{},
        emails:       map[uint64]string{},
    }
}

func (f *fakeStore) addType(id uint64, unitCount int) {
    f.types[id] = struct{}{}
    for i := 0; i < unitCount; i++ {
        uid := id*100 + uint64(i) + 1
        f.units[uid] = model.ConsoleUnit{ID: uid, ConsoleTypeID: id, Name: "unit", IsActive: true}
    }
}

// HoldStore

type fakeTxKey struct{}

// fakeTx collects the row locks taken during one transaction so WithTx
// can release them when it ends.
type fakeTx struct {
    mu     sync.Mutex
    locked []*sync.Mutex
}

func (f *fakeStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
    if ctx.Value(fakeTxKey{}) != nil {
        return fn(ctx)
    }
    tx := &fakeTx{}
    err := fn(context.WithValue(ctx, fakeTxKey{}, tx))
    tx.mu.Lock()
    for i := len(tx.locked) - 1; i >= 0; i-- {
        tx.locked[i].Unlock()
    }
    tx.locked = nil
    tx.mu.Unlock()
    return err
}

// LockResources mirrors the repository: validate the console type,
// then acquire one mutex per claimed resource in a deterministic key
// order, holding them until the transaction ends.
func (f *fakeStore) LockResources(ctx context.Context, res model.ResourceSet) error {
    if res.ConsoleTypeID != 0 {
        f.mu.Lock()
        _, ok := f.types[res.ConsoleTypeID]
        f.mu.Unlock()
        if !ok {
            return ErrInvalidInput
        }
    }

    var keys []string
    if res.ConsoleTypeID != 0 {
        keys = append(keys, fmt.Sprintf("console_type:%d", res.ConsoleTypeID))
    }
    for _, id := range res.GameIDs {
        keys = append(keys, fmt.Sprintf("game:%d", id))
    }
    if res.StationID != nil {
        keys = append(keys, fmt.Sprintf("station:%d", *res.StationID))
    }
    for _, id := range res.AccessoryIDs {
        keys = append(keys, fmt.Sprintf("accessory:%d", id))
    }
    sort.Strings(keys)

    tx, _ := ctx.Value(fakeTxKey{}).(*fakeTx)
    prev := ""
    for _, key := range keys {
        if key == prev {
            continue
        }
        prev = key
        f.mu.Lock()
        rowMu, ok := f.rowLocks[key]
        if !ok {
            rowMu = &sync.Mutex{}
            f.rowLocks[key] = rowMu
        }
        f.mu.Unlock()
        rowMu.Lock()
        if tx != nil {
            tx.mu.Lock()
            tx.locked = append(tx.locked, rowMu)
            tx.mu.Unlock()
        } else {
            rowMu.Unlock()
        }
    }
    return nil
}

func (f *fakeStore) Get(ctx context.Context, id string) (*model.Hold, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    h, ok := f.holds[id]
    if !ok {
        return nil, nil
    }
    return &h, nil
}

func (f *fakeStore) Create(ctx context.Context, h model.Hold) error {
    f.mu.Lock()
    defer f.mu.Unlock()
    f.holds[h.ID] = h
    return nil
}

func (f *fakeStore) UpdateExpiry(ctx context.Context, id string, expiresAt time.Time) (bool, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    h, ok := f.holds[id]
    if !ok {
        return false, nil
    }
    h.ExpiresAt = expiresAt
    f.holds[id] = h
    return true, nil
}

func (f *fakeStore) Delete(ctx context.Context, id string) (bool, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    if _, ok := f.holds[id]; !ok {
        return false, nil
    }
    delete(f.holds, id)
    return true, nil
}

func (f *fakeStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    var n int64
    for id, h := range f.holds {
        if !h.ExpiresAt.After(now) {
            delete(f.holds, id)
            n++
        }
    }
    return n, nil
}

// ClaimStore

func (f *fakeStore) ActiveHolds(ctx context.Context, res model.ResourceSet, now time.Time) ([]model.Hold, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    var out []model.Hold
    for _, h := range f.holds {
        if h.Active(now) {
            out = append(out, h)
        }
    }
    return out, nil
}

func (f *fakeStore) OpenReservations(ctx context.Context, res model.ResourceSet) ([]model.Reservation, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    var out []model.Reservation
    for _, r := range f.reservations {
        if !r.Archived {
            out = append(out, r)
        }
    }
    return out, nil
}

// ReservationStore (Create shadows the hold Create by signature, so the
// fake exposes reservation writes through a wrapper type below)

type fakeReservationStore struct{ *fakeStore }

func (f fakeReservationStore) Get(ctx context.Context, id string) (*model.Reservation, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    r, ok := f.reservations[id]
    if !ok {
        return nil, nil
    }
    return &r, nil
}

func (f fakeReservationStore) Create(ctx context.Context, r model.Reservation) error {
    f.mu.Lock()
    defer f.mu.Unlock()
    for _, existing := range f.reservations {
        if existing.Archived {
            continue
        }
        if existing.ConsoleID == r.ConsoleID && existing.Slot.StartsAt.Equal(r.Slot.StartsAt) {
            return ErrStoreConflict
        }
    }
    f.reservations[r.ID] = r
    return nil
}

func (f fakeReservationStore) Archive(ctx context.Context, id string, now time.Time) (bool, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    r, ok := f.reservations[id]
    if !ok {
        return false, nil
    }
    r.Archived = true
    r.LastUpdatedAt = now
    f.reservations[id] = r
    return true, nil
}

func (f fakeReservationStore) DueReminders(ctx context.Context, now time.Time) ([]model.Reservation, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    var out []model.Reservation
    for _, r := range f.reservations {
        if r.ReminderDue(now) {
            out = append(out, r)
        }
    }
    return out, nil
}

func (f fakeReservationStore) MarkReminderSent(ctx context.Context, id string, at time.Time) (bool, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    r, ok := f.reservations[id]
    if !ok || r.ReminderSent {
        return false, nil
    }
    r.ReminderSent = true
    sentAt := at
    r.ReminderSentAt = &sentAt
    f.reservations[id] = r
    return true, nil
}

// Catalog

func (f *fakeStore) ConsoleUnit(ctx context.Context, id uint64) (*model.ConsoleUnit, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    u, ok := f.units[id]
    if !ok {
        return nil, nil
    }
    return &u, nil
}

func (f *fakeStore) UnitCount(ctx context.Context, consoleTypeID uint64) (int, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    n := 0
    for _, u := range f.units {
        if u.ConsoleTypeID == consoleTypeID && u.IsActive {
            n++
        }
    }
    return n, nil
}

func (f *fakeStore) ActiveUnits(ctx context.Context, consoleTypeID uint64) ([]model.ConsoleUnit, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    var out []model.ConsoleUnit
    for _, u := range f.units {
        if u.ConsoleTypeID == consoleTypeID && u.IsActive {
            out = append(out, u)
        }
    }
    return out, nil
}

func (f *fakeStore) Game(ctx context.Context, id uint64) (*model.Game, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    g, ok := f.games[id]
    if !ok {
        return nil, nil
    }
    return &g, nil
}

func (f *fakeStore) Station(ctx context.Context, id uint64) (*model.Station, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    s, ok := f.stations[id]
    if !ok {
        return nil, nil
    }
    return &s, nil
}

func (f *fakeStore) Accessory(ctx context.Context, id uint64) (*model.Accessory, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    a, ok := f.accessories[id]
    if !ok {
        return nil, nil
    }
    return &a, nil
}

func (f *fakeStore) Course(ctx context.Context, id uint64) (*model.Course, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    c, ok := f.courses[id]
    if !ok {
        return nil, nil
    }
    return &c, nil
}

func (f *fakeStore) UserEmail(ctx context.Context, id uint64) (string, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    email, ok := f.emails[id]
    if !ok {
        return "", ErrInvalidInput
    }
    return email, nil
}

func (f *fakeStore) OpeningCalendar(ctx context.Context) (model.OpeningCalendar, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    return f.calendar, nil
}

// EmailLog

func (f *fakeStore) Append(ctx context.Context, e model.EmailLogEntry) error {
    f.mu.Lock()
    defer f.mu.Unlock()
    f.emailLog = append(f.emailLog, e)
    return nil
}

// fakeNotifier records dispatches and can be forced to fail.
type fakeNotifier struct {
    mu        sync.Mutex
    sent      []string
    confirmed []string
    err       error
}

func (n *fakeNotifier) SendReminder(ctx context.Context, r model.Reservation, recipient string) error {
    n.mu.Lock()
    defer n.mu.Unlock()
    if n.err != nil {
        return n.err
    }
    n.sent = append(n.sent, r.ID)
    return nil
}

func (n *fakeNotifier) PublishConfirmed(ctx context.Context, r model.Reservation) error {
    n.mu.Lock()
    defer n.mu.Unlock()
    n.confirmed = append(n.confirmed, r.ID)
    return nil
}

func ptr(v uint64) *uint64 { return &v }
