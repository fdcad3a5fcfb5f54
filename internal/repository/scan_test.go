package repository

import (
    "database/sql"
    "database/sql/driver"
    "testing"
    "time"

    "github.com/go-sql-driver/mysql"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/jolie-croquette/ludov-reservation/internal/booking"
    "github.com/jolie-croquette/ludov-reservation/internal/model"
)

func TestSplitAndJoinGames(t *testing.T) {
    g1, g2, g3 := splitGames([]uint64{7, 8})
    require.NotNil(t, g1)
    require.NotNil(t, g2)
    assert.Nil(t, g3)
    assert.Equal(t, uint64(7), *g1)

    ids := joinGames(
        sql.NullInt64{Int64: 7, Valid: true},
        sql.NullInt64{},
        sql.NullInt64{Int64: 9, Valid: true},
    )
    assert.Equal(t, []uint64{7, 9}, ids, "gaps in the columns are skipped")
}

func TestSplitSlot(t *testing.T) {
    date, clock := splitSlot(nil)
    assert.Nil(t, date)
    assert.Nil(t, clock)

    s := &model.Slot{StartsAt: time.Date(2025, 3, 1, 14, 30, 0, 0, time.UTC)}
    date, clock = splitSlot(s)
    require.NotNil(t, date)
    require.NotNil(t, clock)
    assert.Equal(t, "2025-03-01", *date)
    assert.Equal(t, "14:30:00", *clock)
}

func TestCombineSlot(t *testing.T) {
    slot, err := combineSlot(sql.NullTime{}, sql.NullString{})
    require.NoError(t, err)
    assert.Nil(t, slot, "resource-only rows have no window")

    slot, err = combineSlot(
        sql.NullTime{Time: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), Valid: true},
        sql.NullString{String: "14:30:00", Valid: true},
    )
    require.NoError(t, err)
    require.NotNil(t, slot)
    assert.Equal(t, time.Date(2025, 3, 1, 14, 30, 0, 0, time.UTC), slot.StartsAt)
    assert.Zero(t, slot.Duration, "duration is applied by the availability index")
}

func TestMarshalIDsRoundTrip(t *testing.T) {
    s, err := marshalIDs(nil)
    require.NoError(t, err)
    assert.Nil(t, s, "no accessories stores NULL, not an empty array")

    s, err = marshalIDs([]uint64{3, 5})
    require.NoError(t, err)
    require.NotNil(t, s)
    assert.Equal(t, "[3,5]", *s)

    ids, err := unmarshalIDs(sql.NullString{String: *s, Valid: true})
    require.NoError(t, err)
    assert.Equal(t, []uint64{3, 5}, ids)
}

func TestPlaceholders(t *testing.T) {
    assert.Equal(t, "?", placeholders(1))
    assert.Equal(t, "?,?,?", placeholders(3))
}

func TestMapError(t *testing.T) {
    assert.NoError(t, mapError(nil))
    assert.ErrorIs(t, mapError(&mysql.MySQLError{Number: 1062}), booking.ErrStoreConflict)
    assert.ErrorIs(t, mapError(&mysql.MySQLError{Number: 1213}), booking.ErrStoreConflict)
    assert.ErrorIs(t, mapError(&mysql.MySQLError{Number: 1205}), booking.ErrStoreConflict)
    assert.ErrorIs(t, mapError(driver.ErrBadConn), booking.ErrStoreUnavailable)

    other := &mysql.MySQLError{Number: 1146}
    assert.Equal(t, error(other), mapError(other), "unmapped driver errors pass through")
}
