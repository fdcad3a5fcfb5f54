package handler

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/jolie-croquette/ludov-reservation/internal/booking"
)

// ReservationHandler exposes promotion, archival and lookup of
// confirmed reservations.
type ReservationHandler struct {
    reservations *booking.ReservationService
}

// NewReservationHandler constructs a ReservationHandler.  The service
// must be non-nil.
func NewReservationHandler(reservations *booking.ReservationService) *ReservationHandler {
    if reservations == nil {
        panic("nil service passed to NewReservationHandler")
    }
    return &ReservationHandler{reservations: reservations}
}

// Promote handles POST /v1/holds/:id/promote.  Converts a live hold
// into a durable reservation; the body optionally carries the reminder
// preferences.  Returns 201 with the reservation, which keeps the
// hold's id.
func (h *ReservationHandler) Promote(c echo.Context) error {
    id := c.Param("id")
    if id == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid hold id"})
    }
    var body struct {
        ReminderEnabled     bool `json:"reminder_enabled"`
        ReminderHoursBefore int  `json:"reminder_hours_before"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if body.ReminderEnabled && body.ReminderHoursBefore <= 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "reminder_hours_before must be positive"})
    }

    reservation, err := h.reservations.Promote(c.Request().Context(), id, booking.PromoteOptions{
        ReminderEnabled:     body.ReminderEnabled,
        ReminderHoursBefore: body.ReminderHoursBefore,
    })
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusCreated, renderReservation(reservation))
}

// Get handles GET /v1/reservations/:id.
func (h *ReservationHandler) Get(c echo.Context) error {
    id := c.Param("id")
    if id == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
    }
    reservation, err := h.reservations.Get(c.Request().Context(), id)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, renderReservation(reservation))
}

// Archive handles POST /v1/reservations/:id/archive.  Soft-deletes the
// reservation; it drops out of availability but stays on record.
// Returns 204 on success, also for an already archived reservation.
func (h *ReservationHandler) Archive(c echo.Context) error {
    id := c.Param("id")
    if id == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
    }
    if err := h.reservations.Archive(c.Request().Context(), id); err != nil {
        return writeError(c, err)
    }
    return c.NoContent(http.StatusNoContent)
}
