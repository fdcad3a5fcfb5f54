package handler

import (
    "errors"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/jolie-croquette/ludov-reservation/internal/booking"
    "github.com/jolie-croquette/ludov-reservation/internal/model"
)

// slotInput is the JSON shape of a requested time slot.  Duration is in
// minutes and optional; the engine applies the configured slot length
// when it is absent.
type slotInput struct {
    Date            string `json:"date"`             // "2006-01-02"
    Time            string `json:"time"`             // "15:04" or "15:04:05"
    DurationMinutes int    `json:"duration_minutes"` // optional
}

// parseSlot converts a slotInput into a model.Slot.  Both date and time
// must be present; a nil result with a nil error means no slot was
// requested at all.
func parseSlot(in *slotInput) (*model.Slot, error) {
    if in == nil {
        return nil, nil
    }
    if in.Date == "" && in.Time == "" {
        return nil, nil
    }
    if in.Date == "" || in.Time == "" {
        return nil, errors.New("slot requires both date and time")
    }
    layout := "2006-01-02 15:04"
    if len(in.Time) == len("15:04:05") {
        layout = "2006-01-02 15:04:05"
    }
    starts, err := time.Parse(layout, in.Date+" "+in.Time)
    if err != nil {
        return nil, err
    }
    slot := &model.Slot{StartsAt: starts.UTC()}
    if in.DurationMinutes > 0 {
        slot.Duration = time.Duration(in.DurationMinutes) * time.Minute
    }
    return slot, nil
}

// writeError maps the booking error taxonomy onto HTTP status codes.
// Unrecognized errors surface as 500 without leaking driver details.
func writeError(c echo.Context, err error) error {
    switch {
    case errors.Is(err, booking.ErrInvalidInput):
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid input"})
    case errors.Is(err, booking.ErrHoldNotFound), errors.Is(err, booking.ErrReservationNotFound):
        return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
    case errors.Is(err, booking.ErrHoldExpired):
        return c.JSON(http.StatusGone, echo.Map{"error": "hold expired"})
    case errors.Is(err, booking.ErrResourceUnavailable), errors.Is(err, booking.ErrStoreConflict):
        return c.JSON(http.StatusConflict, echo.Map{"error": "resource unavailable"})
    case errors.Is(err, booking.ErrStoreUnavailable):
        return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "store unavailable"})
    default:
        c.Logger().Errorf("internal error: %v", err)
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
    }
}

// holdJSON is the response shape for a hold.
type holdJSON struct {
    ID            string    `json:"id"`
    UserID        uint64    `json:"user_id"`
    ConsoleID     *uint64   `json:"console_id,omitempty"`
    ConsoleTypeID uint64    `json:"console_type_id"`
    GameIDs       []uint64  `json:"game_ids,omitempty"`
    StationID     *uint64   `json:"station_id,omitempty"`
    AccessoryIDs  []uint64  `json:"accessory_ids,omitempty"`
    CourseID      *uint64   `json:"course_id,omitempty"`
    Slot          *slotJSON `json:"slot,omitempty"`
    ExpiresAt     string    `json:"expires_at"`
    CreatedAt     string    `json:"created_at"`
}

type slotJSON struct {
    StartsAt        string `json:"starts_at"`
    DurationMinutes int    `json:"duration_minutes,omitempty"`
}

func renderSlot(s *model.Slot) *slotJSON {
    if s == nil {
        return nil
    }
    return &slotJSON{
        StartsAt:        s.StartsAt.UTC().Format(time.RFC3339),
        DurationMinutes: int(s.Duration / time.Minute),
    }
}

func renderHold(h model.Hold) holdJSON {
    return holdJSON{
        ID:            h.ID,
        UserID:        h.UserID,
        ConsoleID:     h.ConsoleID,
        ConsoleTypeID: h.ConsoleTypeID,
        GameIDs:       h.GameIDs,
        StationID:     h.StationID,
        AccessoryIDs:  h.AccessoryIDs,
        CourseID:      h.CourseID,
        Slot:          renderSlot(h.Slot),
        ExpiresAt:     h.ExpiresAt.UTC().Format(time.RFC3339),
        CreatedAt:     h.CreatedAt.UTC().Format(time.RFC3339),
    }
}

// reservationJSON is the response shape for a confirmed reservation.
type reservationJSON struct {
    ID                  string   `json:"id"`
    UserID              uint64   `json:"user_id"`
    ConsoleID           uint64   `json:"console_id"`
    ConsoleTypeID       uint64   `json:"console_type_id"`
    GameIDs             []uint64 `json:"game_ids,omitempty"`
    StationID           *uint64  `json:"station_id,omitempty"`
    AccessoryIDs        []uint64 `json:"accessory_ids,omitempty"`
    CourseID            uint64   `json:"course_id"`
    Slot                slotJSON `json:"slot"`
    Archived            bool     `json:"archived"`
    ReminderEnabled     bool     `json:"reminder_enabled"`
    ReminderHoursBefore int      `json:"reminder_hours_before,omitempty"`
    ReminderSent        bool     `json:"reminder_sent"`
    CreatedAt           string   `json:"created_at"`
}

func renderReservation(r model.Reservation) reservationJSON {
    return reservationJSON{
        ID:                  r.ID,
        UserID:              r.UserID,
        ConsoleID:           r.ConsoleID,
        ConsoleTypeID:       r.ConsoleTypeID,
        GameIDs:             r.GameIDs,
        StationID:           r.StationID,
        AccessoryIDs:        r.AccessoryIDs,
        CourseID:            r.CourseID,
        Slot:                *renderSlot(&r.Slot),
        Archived:            r.Archived,
        ReminderEnabled:     r.ReminderEnabled,
        ReminderHoursBefore: r.ReminderHoursBefore,
        ReminderSent:        r.ReminderSent,
        CreatedAt:           r.CreatedAt.UTC().Format(time.RFC3339),
    }
}
