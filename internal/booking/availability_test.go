package booking

import (
    "context"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/jolie-croquette/ludov-reservation/internal/model"
)

func newIndexFixture(t *testing.T) (*AvailabilityIndex, *fakeStore) {
    t.Helper()
    store := newFakeStore()
    store.addType(1, 2) // units 101, 102
    store.addType(2, 1) // unit 201
    return NewAvailabilityIndex(store, store, testSlotLen), store
}

func TestAvailabilityIndex_IsFree(t *testing.T) {
    now := time.Date(2025, 3, 1, 13, 0, 0, 0, time.UTC)
    slot := &model.Slot{StartsAt: time.Date(2025, 3, 1, 14, 0, 0, 0, time.UTC)}

    t.Run("empty store is free", func(t *testing.T) {
        ix, _ := newIndexFixture(t)
        free, err := ix.IsFree(context.Background(), model.ResourceSet{ConsoleTypeID: 1}, slot, "", now)
        require.NoError(t, err)
        assert.True(t, free)
    })

    t.Run("type pool counts overlapping claims", func(t *testing.T) {
        ix, store := newIndexFixture(t)
        store.holds["h1"] = model.Hold{ID: "h1", UserID: 1, ConsoleTypeID: 1, Slot: slot, ExpiresAt: now.Add(time.Minute)}
        store.reservations["r1"] = model.Reservation{ID: "r1", UserID: 2, ConsoleID: 102, ConsoleTypeID: 1, CourseID: 3, Slot: *slot}

        free, err := ix.IsFree(context.Background(), model.ResourceSet{ConsoleTypeID: 1}, slot, "", now)
        require.NoError(t, err)
        assert.False(t, free, "both units are spoken for during the window")

        // The other pool is untouched.
        free, err = ix.IsFree(context.Background(), model.ResourceSet{ConsoleTypeID: 2}, slot, "", now)
        require.NoError(t, err)
        assert.True(t, free)
    })

    t.Run("expired hold releases its claim without a sweep", func(t *testing.T) {
        ix, store := newIndexFixture(t)
        store.holds["h1"] = model.Hold{ID: "h1", UserID: 1, ConsoleID: ptr(uint64(101)), ConsoleTypeID: 1, Slot: slot, ExpiresAt: now.Add(-time.Second)}

        free, err := ix.IsFree(context.Background(), model.ResourceSet{ConsoleID: ptr(uint64(101)), ConsoleTypeID: 1}, slot, "", now)
        require.NoError(t, err)
        assert.True(t, free)
    })

    t.Run("claims without a stored duration still collide", func(t *testing.T) {
        ix, store := newIndexFixture(t)
        // Rows read back from the store carry no duration; the index
        // applies the configured slot length before comparing.
        zeroDur := &model.Slot{StartsAt: slot.StartsAt}
        store.holds["h1"] = model.Hold{ID: "h1", UserID: 1, ConsoleID: ptr(uint64(101)), ConsoleTypeID: 1, Slot: zeroDur, ExpiresAt: now.Add(time.Minute)}

        overlapping := &model.Slot{StartsAt: slot.StartsAt.Add(30 * time.Minute)}
        free, err := ix.IsFree(context.Background(), model.ResourceSet{ConsoleID: ptr(uint64(101)), ConsoleTypeID: 1}, overlapping, "", now)
        require.NoError(t, err)
        assert.False(t, free)
    })

    t.Run("excluded hold does not block itself", func(t *testing.T) {
        ix, store := newIndexFixture(t)
        store.holds["h1"] = model.Hold{ID: "h1", UserID: 1, ConsoleID: ptr(uint64(101)), ConsoleTypeID: 1, Slot: slot, ExpiresAt: now.Add(time.Minute)}

        free, err := ix.IsFree(context.Background(), model.ResourceSet{ConsoleID: ptr(uint64(101)), ConsoleTypeID: 1}, slot, "h1", now)
        require.NoError(t, err)
        assert.True(t, free)
    })

    t.Run("resource-only request collides with any claim on the resource", func(t *testing.T) {
        ix, store := newIndexFixture(t)
        store.holds["h1"] = model.Hold{ID: "h1", UserID: 1, ConsoleTypeID: 1, StationID: ptr(uint64(5)), Slot: slot, ExpiresAt: now.Add(time.Minute)}

        free, err := ix.IsFree(context.Background(), model.ResourceSet{StationID: ptr(uint64(5))}, nil, "", now)
        require.NoError(t, err)
        assert.False(t, free)
    })
}

func TestAvailabilityIndex_FreeUnit(t *testing.T) {
    now := time.Date(2025, 3, 1, 13, 0, 0, 0, time.UTC)
    slot := &model.Slot{StartsAt: time.Date(2025, 3, 1, 14, 0, 0, 0, time.UTC), Duration: testSlotLen}

    t.Run("skips units taken during the window", func(t *testing.T) {
        ix, store := newIndexFixture(t)
        store.reservations["r1"] = model.Reservation{ID: "r1", UserID: 1, ConsoleID: 101, ConsoleTypeID: 1, CourseID: 3, Slot: *slot}

        unit, err := ix.FreeUnit(context.Background(), 1, slot, "", now)
        require.NoError(t, err)
        assert.Equal(t, uint64(102), unit)
    })

    t.Run("exhausted pool", func(t *testing.T) {
        ix, store := newIndexFixture(t)
        store.reservations["r1"] = model.Reservation{ID: "r1", UserID: 1, ConsoleID: 101, ConsoleTypeID: 1, CourseID: 3, Slot: *slot}
        store.holds["h1"] = model.Hold{ID: "h1", UserID: 2, ConsoleID: ptr(uint64(102)), ConsoleTypeID: 1, Slot: slot, ExpiresAt: now.Add(time.Minute)}

        _, err := ix.FreeUnit(context.Background(), 1, slot, "", now)
        assert.ErrorIs(t, err, ErrResourceUnavailable)
    })
}

func TestAvailabilityIndex_FindConflicts(t *testing.T) {
    now := time.Date(2025, 3, 1, 14, 0, 0, 0, time.UTC)
    slot := model.Slot{StartsAt: now, Duration: testSlotLen}

    t.Run("named unit", func(t *testing.T) {
        ix, store := newIndexFixture(t)
        store.reservations["hit"] = model.Reservation{ID: "hit", UserID: 1, ConsoleID: 101, ConsoleTypeID: 1, CourseID: 3, Slot: slot}
        store.reservations["other-slot"] = model.Reservation{ID: "other-slot", UserID: 2, ConsoleID: 101, ConsoleTypeID: 1, CourseID: 3,
            Slot: model.Slot{StartsAt: now.Add(2 * testSlotLen), Duration: testSlotLen}}
        archived := model.Reservation{ID: "archived", UserID: 3, ConsoleID: 101, ConsoleTypeID: 1, CourseID: 3, Slot: slot, Archived: true}
        store.reservations["archived"] = archived

        conflicts, err := ix.FindConflicts(context.Background(), model.ResourceSet{ConsoleID: ptr(uint64(101)), ConsoleTypeID: 1}, slot)
        require.NoError(t, err)
        require.Len(t, conflicts, 1)
        assert.Equal(t, "hit", conflicts[0].ID)
    })

    t.Run("spare unit in the pool is not a conflict", func(t *testing.T) {
        ix, store := newIndexFixture(t)
        store.reservations["r1"] = model.Reservation{ID: "r1", UserID: 1, ConsoleID: 101, ConsoleTypeID: 1, CourseID: 3, Slot: slot}

        // One of two units taken; a type-level request still fits.
        conflicts, err := ix.FindConflicts(context.Background(), model.ResourceSet{ConsoleTypeID: 1}, slot)
        require.NoError(t, err)
        assert.Empty(t, conflicts)

        // Second unit goes; now both reservations block the pool.
        store.reservations["r2"] = model.Reservation{ID: "r2", UserID: 2, ConsoleID: 102, ConsoleTypeID: 1, CourseID: 3, Slot: slot}
        conflicts, err = ix.FindConflicts(context.Background(), model.ResourceSet{ConsoleTypeID: 1}, slot)
        require.NoError(t, err)
        assert.Len(t, conflicts, 2)
    })
}
