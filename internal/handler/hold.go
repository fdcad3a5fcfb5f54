package handler

import (
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/jolie-croquette/ludov-reservation/internal/booking"
)

// HoldHandler exposes the hold lifecycle over HTTP: create, renew and
// cancel.  Validation of resource references and all concurrency
// control live in the booking services; the handler only translates
// between JSON and the service types.
type HoldHandler struct {
    holds *booking.HoldService
}

// NewHoldHandler constructs a HoldHandler.  The service must be non-nil.
func NewHoldHandler(holds *booking.HoldService) *HoldHandler {
    if holds == nil {
        panic("nil service passed to NewHoldHandler")
    }
    return &HoldHandler{holds: holds}
}

// Create handles POST /v1/holds.  The body names the user, the
// requested resources and optionally a slot and a TTL.  Returns 201
// with the hold, including its server-assigned id and expiry.
func (h *HoldHandler) Create(c echo.Context) error {
    var body struct {
        UserID        uint64     `json:"user_id"`
        ConsoleID     *uint64    `json:"console_id"`
        ConsoleTypeID uint64     `json:"console_type_id"`
        GameIDs       []uint64   `json:"game_ids"`
        StationID     *uint64    `json:"station_id"`
        AccessoryIDs  []uint64   `json:"accessory_ids"`
        CourseID      *uint64    `json:"course_id"`
        Slot          *slotInput `json:"slot"`
        TTLMinutes    int        `json:"ttl_minutes"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    slot, err := parseSlot(body.Slot)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
    }

    in := booking.CreateHoldInput{
        UserID:        body.UserID,
        ConsoleID:     body.ConsoleID,
        ConsoleTypeID: body.ConsoleTypeID,
        GameIDs:       body.GameIDs,
        StationID:     body.StationID,
        AccessoryIDs:  body.AccessoryIDs,
        CourseID:      body.CourseID,
        Slot:          slot,
        TTL:           time.Duration(body.TTLMinutes) * time.Minute,
    }
    hold, err := h.holds.Create(c.Request().Context(), in)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusCreated, renderHold(hold))
}

// Renew handles POST /v1/holds/:id/renew.  Extends a live hold's
// expiry; expired holds return 410 and must be recreated.
func (h *HoldHandler) Renew(c echo.Context) error {
    id := c.Param("id")
    if id == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid hold id"})
    }
    var body struct {
        TTLMinutes int `json:"ttl_minutes"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    hold, err := h.holds.Renew(c.Request().Context(), id, time.Duration(body.TTLMinutes)*time.Minute)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, renderHold(hold))
}

// Cancel handles DELETE /v1/holds/:id.  Releases the hold's resources
// immediately; returns 204 on success.
func (h *HoldHandler) Cancel(c echo.Context) error {
    id := c.Param("id")
    if id == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid hold id"})
    }
    if err := h.holds.Cancel(c.Request().Context(), id); err != nil {
        return writeError(c, err)
    }
    return c.NoContent(http.StatusNoContent)
}
