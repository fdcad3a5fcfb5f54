package booking

import (
    "context"
    "math/rand"
    "sync"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/jolie-croquette/ludov-reservation/internal/model"
)

const (
    testTTL     = 15 * time.Minute
    testSlotLen = time.Hour
)

func newHoldFixture(t *testing.T, now time.Time) (*HoldService, *fakeStore) {
    t.Helper()
    store := newFakeStore()
    store.addType(1, 2)
    store.games[10] = model.Game{ID: 10, Title: "Metroid Prime", IsActive: true}
    store.games[11] = model.Game{ID: 11, Title: "Wind Waker", IsActive: true}
    store.stations[5] = model.Station{ID: 5}
    store.accessories[7] = model.Accessory{ID: 7, Name: "controller"}
    store.courses[3] = model.Course{ID: 3, Code: "JEU-1001", Name: "Game history"}

    avail := NewAvailabilityIndex(store, store, testSlotLen)
    svc := NewHoldService(store, store, avail, FixedClock(now), testTTL, testSlotLen)
    return svc, store
}

func TestHoldService_Create(t *testing.T) {
    now := time.Date(2025, 3, 1, 13, 0, 0, 0, time.UTC)
    slot := &model.Slot{StartsAt: time.Date(2025, 3, 1, 14, 0, 0, 0, time.UTC)}

    t.Run("assigns id and expiry", func(t *testing.T) {
        svc, _ := newHoldFixture(t, now)
        hold, err := svc.Create(context.Background(), CreateHoldInput{
            UserID:        42,
            ConsoleTypeID: 1,
            GameIDs:       []uint64{10},
            CourseID:      ptr(3),
            Slot:          slot,
        })
        require.NoError(t, err)
        assert.NotEmpty(t, hold.ID)
        assert.Equal(t, now.Add(testTTL), hold.ExpiresAt)
        assert.True(t, hold.Active(now))
    })

    t.Run("unknown game is invalid input", func(t *testing.T) {
        svc, _ := newHoldFixture(t, now)
        _, err := svc.Create(context.Background(), CreateHoldInput{
            UserID:        42,
            ConsoleTypeID: 1,
            GameIDs:       []uint64{99},
        })
        assert.ErrorIs(t, err, ErrInvalidInput)
    })

    t.Run("inactive game is unavailable", func(t *testing.T) {
        svc, store := newHoldFixture(t, now)
        g := store.games[10]
        g.IsActive = false
        store.games[10] = g
        _, err := svc.Create(context.Background(), CreateHoldInput{
            UserID:        42,
            ConsoleTypeID: 1,
            GameIDs:       []uint64{10},
        })
        assert.ErrorIs(t, err, ErrResourceUnavailable)
    })

    t.Run("more than three games rejected", func(t *testing.T) {
        svc, _ := newHoldFixture(t, now)
        _, err := svc.Create(context.Background(), CreateHoldInput{
            UserID:        42,
            ConsoleTypeID: 1,
            GameIDs:       []uint64{10, 11, 10, 11},
        })
        assert.ErrorIs(t, err, ErrInvalidInput)
    })

    t.Run("pool exhaustion blocks the last unit", func(t *testing.T) {
        svc, _ := newHoldFixture(t, now)
        for i := 0; i < 2; i++ {
            _, err := svc.Create(context.Background(), CreateHoldInput{
                UserID:        uint64(i + 1),
                ConsoleTypeID: 1,
                Slot:          slot,
            })
            require.NoError(t, err)
        }
        _, err := svc.Create(context.Background(), CreateHoldInput{
            UserID:        3,
            ConsoleTypeID: 1,
            Slot:          slot,
        })
        assert.ErrorIs(t, err, ErrResourceUnavailable)
    })

    t.Run("non-overlapping slot stays available", func(t *testing.T) {
        svc, _ := newHoldFixture(t, now)
        for i := 0; i < 2; i++ {
            _, err := svc.Create(context.Background(), CreateHoldInput{
                UserID:        uint64(i + 1),
                ConsoleTypeID: 1,
                Slot:          slot,
            })
            require.NoError(t, err)
        }
        later := &model.Slot{StartsAt: slot.StartsAt.Add(testSlotLen)}
        _, err := svc.Create(context.Background(), CreateHoldInput{
            UserID:        3,
            ConsoleTypeID: 1,
            Slot:          later,
        })
        assert.NoError(t, err, "back-to-back slots must not collide")
    })

    t.Run("same station cannot be double held", func(t *testing.T) {
        svc, _ := newHoldFixture(t, now)
        _, err := svc.Create(context.Background(), CreateHoldInput{
            UserID:        1,
            ConsoleTypeID: 1,
            StationID:     ptr(5),
            Slot:          slot,
        })
        require.NoError(t, err)
        _, err = svc.Create(context.Background(), CreateHoldInput{
            UserID:        2,
            ConsoleTypeID: 1,
            StationID:     ptr(5),
            Slot:          slot,
        })
        assert.ErrorIs(t, err, ErrResourceUnavailable)
    })

    t.Run("slotless hold blocks its resources for every slot", func(t *testing.T) {
        svc, _ := newHoldFixture(t, now)
        _, err := svc.Create(context.Background(), CreateHoldInput{
            UserID:        1,
            ConsoleTypeID: 1,
            GameIDs:       []uint64{10},
        })
        require.NoError(t, err)
        farFuture := &model.Slot{StartsAt: time.Date(2025, 9, 1, 10, 0, 0, 0, time.UTC)}
        _, err = svc.Create(context.Background(), CreateHoldInput{
            UserID:        2,
            ConsoleTypeID: 1,
            GameIDs:       []uint64{10},
            Slot:          farFuture,
        })
        assert.ErrorIs(t, err, ErrResourceUnavailable)
    })

    t.Run("closed hours reject slotted requests", func(t *testing.T) {
        svc, store := newHoldFixture(t, now)
        store.calendar = model.OpeningCalendar{Weekly: []model.WeeklyRule{{
            DayOfWeek: "monday",
            Enabled:   true,
            Ranges:    []model.HourRange{{Start: 9 * 60, End: 17 * 60}},
        }}}
        // 2025-03-01 is a Saturday; no rule covers it once a schedule exists.
        _, err := svc.Create(context.Background(), CreateHoldInput{
            UserID:        1,
            ConsoleTypeID: 1,
            Slot:          slot,
        })
        assert.ErrorIs(t, err, ErrResourceUnavailable)
    })
}

func TestHoldService_Create_Concurrent(t *testing.T) {
    now := time.Date(2025, 3, 1, 13, 0, 0, 0, time.UTC)
    slot := model.Slot{StartsAt: time.Date(2025, 3, 1, 14, 0, 0, 0, time.UTC)}

    t.Run("station shared across console types admits one winner", func(t *testing.T) {
        // The two requests draw on different pools, so pool counting
        // alone would let both through; the station rows they share
        // must serialize them.
        svc, store := newHoldFixture(t, now)
        store.addType(2, 1)

        start := make(chan struct{})
        errs := make(chan error, 2)
        var wg sync.WaitGroup
        for _, typeID := range []uint64{1, 2} {
            wg.Add(1)
            go func(typeID uint64) {
                defer wg.Done()
                <-start
                s := slot
                _, err := svc.Create(context.Background(), CreateHoldInput{
                    UserID:        typeID,
                    ConsoleTypeID: typeID,
                    StationID:     ptr(5),
                    Slot:          &s,
                })
                errs <- err
            }(typeID)
        }
        close(start)
        wg.Wait()
        close(errs)

        won, lost := 0, 0
        for err := range errs {
            if err == nil {
                won++
                continue
            }
            assert.ErrorIs(t, err, ErrResourceUnavailable)
            lost++
        }
        assert.Equal(t, 1, won)
        assert.Equal(t, 1, lost)
        assert.Len(t, store.holds, 1)
    })

    t.Run("random overlapping requests never double-book the station", func(t *testing.T) {
        svc, store := newHoldFixture(t, now)
        store.addType(2, 1)

        rng := rand.New(rand.NewSource(1))
        durations := []time.Duration{0, 30 * time.Minute, 90 * time.Minute}
        type request struct {
            typeID uint64
            slot   model.Slot
        }
        reqs := make([]request, 32)
        for i := range reqs {
            reqs[i] = request{
                typeID: uint64(1 + rng.Intn(2)),
                slot: model.Slot{
                    StartsAt: slot.StartsAt.Add(time.Duration(rng.Intn(20)) * 30 * time.Minute),
                    Duration: durations[rng.Intn(len(durations))],
                },
            }
        }

        start := make(chan struct{})
        var wg sync.WaitGroup
        for i, req := range reqs {
            wg.Add(1)
            go func(userID uint64, req request) {
                defer wg.Done()
                <-start
                s := req.slot
                _, err := svc.Create(context.Background(), CreateHoldInput{
                    UserID:        userID,
                    ConsoleTypeID: req.typeID,
                    StationID:     ptr(5),
                    Slot:          &s,
                })
                if err != nil {
                    assert.ErrorIs(t, err, ErrResourceUnavailable)
                }
            }(uint64(i+1), req)
        }
        close(start)
        wg.Wait()

        // Every committed hold claims station 5, so no two of them may
        // overlap in time.
        var committed []model.Hold
        for _, h := range store.holds {
            committed = append(committed, h)
        }
        for i := 0; i < len(committed); i++ {
            for j := i + 1; j < len(committed); j++ {
                assert.False(t, committed[i].Slot.Overlaps(*committed[j].Slot),
                    "holds %s and %s share the station and overlap", committed[i].ID, committed[j].ID)
            }
        }
        assert.NotEmpty(t, committed)
    })
}

func TestHoldService_Renew(t *testing.T) {
    now := time.Date(2025, 3, 1, 13, 0, 0, 0, time.UTC)

    t.Run("extends a live hold", func(t *testing.T) {
        svc, store := newHoldFixture(t, now)
        store.holds["h1"] = model.Hold{ID: "h1", UserID: 1, ConsoleTypeID: 1, ExpiresAt: now.Add(time.Minute)}
        hold, err := svc.Renew(context.Background(), "h1", 30*time.Minute)
        require.NoError(t, err)
        assert.Equal(t, now.Add(30*time.Minute), hold.ExpiresAt)
    })

    t.Run("expired hold is terminal", func(t *testing.T) {
        svc, store := newHoldFixture(t, now)
        store.holds["h1"] = model.Hold{ID: "h1", UserID: 1, ConsoleTypeID: 1, ExpiresAt: now.Add(-time.Second)}
        _, err := svc.Renew(context.Background(), "h1", 0)
        assert.ErrorIs(t, err, ErrHoldExpired)
    })

    t.Run("missing hold", func(t *testing.T) {
        svc, _ := newHoldFixture(t, now)
        _, err := svc.Renew(context.Background(), "nope", 0)
        assert.ErrorIs(t, err, ErrHoldNotFound)
    })
}

func TestHoldService_SweepExpired(t *testing.T) {
    now := time.Date(2025, 3, 1, 13, 0, 0, 0, time.UTC)
    svc, store := newHoldFixture(t, now)

    store.holds["dead"] = model.Hold{ID: "dead", UserID: 1, ConsoleTypeID: 1, ExpiresAt: now.Add(-time.Minute)}
    store.holds["edge"] = model.Hold{ID: "edge", UserID: 2, ConsoleTypeID: 1, ExpiresAt: now}
    store.holds["live"] = model.Hold{ID: "live", UserID: 3, ConsoleTypeID: 1, ExpiresAt: now.Add(time.Minute)}

    n, err := svc.SweepExpired(context.Background())
    require.NoError(t, err)
    assert.Equal(t, int64(2), n, "expiry exactly at the cutoff counts as expired")
    assert.Contains(t, store.holds, "live")
    assert.NotContains(t, store.holds, "dead")

    // Idempotent: a second pass finds nothing.
    n, err = svc.SweepExpired(context.Background())
    require.NoError(t, err)
    assert.Zero(t, n)
}

func TestHoldService_Cancel(t *testing.T) {
    now := time.Date(2025, 3, 1, 13, 0, 0, 0, time.UTC)
    svc, store := newHoldFixture(t, now)
    store.holds["h1"] = model.Hold{ID: "h1", UserID: 1, ConsoleTypeID: 1, ExpiresAt: now.Add(time.Minute)}

    require.NoError(t, svc.Cancel(context.Background(), "h1"))
    assert.ErrorIs(t, svc.Cancel(context.Background(), "h1"), ErrHoldNotFound)
}
