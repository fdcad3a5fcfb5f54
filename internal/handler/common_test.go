package handler

import (
    "errors"
    "net/http"
    "net/http/httptest"
    "testing"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/jolie-croquette/ludov-reservation/internal/booking"
)

func TestParseSlot(t *testing.T) {
    slot, err := parseSlot(nil)
    require.NoError(t, err)
    assert.Nil(t, slot)

    slot, err = parseSlot(&slotInput{})
    require.NoError(t, err)
    assert.Nil(t, slot, "an empty slot object means no slot requested")

    _, err = parseSlot(&slotInput{Date: "2025-03-01"})
    assert.Error(t, err, "date without time is rejected")

    slot, err = parseSlot(&slotInput{Date: "2025-03-01", Time: "14:00", DurationMinutes: 90})
    require.NoError(t, err)
    require.NotNil(t, slot)
    assert.Equal(t, time.Date(2025, 3, 1, 14, 0, 0, 0, time.UTC), slot.StartsAt)
    assert.Equal(t, 90*time.Minute, slot.Duration)

    slot, err = parseSlot(&slotInput{Date: "2025-03-01", Time: "14:00:30"})
    require.NoError(t, err)
    assert.Equal(t, time.Date(2025, 3, 1, 14, 0, 30, 0, time.UTC), slot.StartsAt)
}

func TestWriteErrorStatusMapping(t *testing.T) {
    cases := []struct {
        err  error
        code int
    }{
        {booking.ErrInvalidInput, http.StatusBadRequest},
        {booking.ErrHoldNotFound, http.StatusNotFound},
        {booking.ErrReservationNotFound, http.StatusNotFound},
        {booking.ErrHoldExpired, http.StatusGone},
        {booking.ErrResourceUnavailable, http.StatusConflict},
        {booking.ErrStoreConflict, http.StatusConflict},
        {booking.ErrStoreUnavailable, http.StatusServiceUnavailable},
        {errors.New("boom"), http.StatusInternalServerError},
    }

    e := echo.New()
    for _, tc := range cases {
        rec := httptest.NewRecorder()
        c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
        require.NoError(t, writeError(c, tc.err))
        assert.Equal(t, tc.code, rec.Code, "error %v", tc.err)
    }
}
