package handler

import (
    "net/http"
    "strconv"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/jolie-croquette/ludov-reservation/internal/booking"
    "github.com/jolie-croquette/ludov-reservation/internal/model"
)

// AvailabilityHandler answers read-only availability questions.  Its
// answers are advisory: the authoritative check re-runs inside the
// create and promote transactions.
type AvailabilityHandler struct {
    avail        *booking.AvailabilityIndex
    reservations *booking.ReservationService
    clock        booking.Clock
}

// NewAvailabilityHandler constructs an AvailabilityHandler.  All
// dependencies must be non-nil.
func NewAvailabilityHandler(avail *booking.AvailabilityIndex, reservations *booking.ReservationService, clk booking.Clock) *AvailabilityHandler {
    if avail == nil || reservations == nil || clk == nil {
        panic("nil dependency passed to NewAvailabilityHandler")
    }
    return &AvailabilityHandler{avail: avail, reservations: reservations, clock: clk}
}

// Check handles GET /v1/availability.  Query parameters name the
// resources (console_id, console_type_id, game_ids, station_id,
// accessory_ids) and the slot (date, time, duration_minutes).  When no
// slot is given the check is resource-only.  Returns {"available":
// bool}.
func (h *AvailabilityHandler) Check(c echo.Context) error {
    res, err := resourceSetFromQuery(c)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
    }
    slot, err := slotFromQuery(c)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
    }
    if res.ConsoleID == nil && res.ConsoleTypeID == 0 && len(res.GameIDs) == 0 &&
        res.StationID == nil && len(res.AccessoryIDs) == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "at least one resource is required"})
    }

    free, err := h.avail.IsFree(c.Request().Context(), res, slot, "", h.clock.Now())
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"available": free})
}

// Conflicts handles GET /v1/reservations/conflicts.  Lists the
// non-archived reservations that clash with the given resource set and
// slot; the slot is required here.
func (h *AvailabilityHandler) Conflicts(c echo.Context) error {
    res, err := resourceSetFromQuery(c)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
    }
    slot, err := slotFromQuery(c)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
    }
    if slot == nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "date and time are required"})
    }

    conflicts, err := h.reservations.FindConflicts(c.Request().Context(), res, *slot)
    if err != nil {
        return writeError(c, err)
    }
    out := make([]reservationJSON, 0, len(conflicts))
    for _, r := range conflicts {
        out = append(out, renderReservation(r))
    }
    return c.JSON(http.StatusOK, echo.Map{"conflicts": out})
}

func resourceSetFromQuery(c echo.Context) (model.ResourceSet, error) {
    var res model.ResourceSet
    var err error
    if res.ConsoleID, err = queryID(c, "console_id"); err != nil {
        return res, err
    }
    if typeID, err := queryID(c, "console_type_id"); err != nil {
        return res, err
    } else if typeID != nil {
        res.ConsoleTypeID = *typeID
    }
    if res.StationID, err = queryID(c, "station_id"); err != nil {
        return res, err
    }
    if res.GameIDs, err = queryIDList(c, "game_ids"); err != nil {
        return res, err
    }
    if res.AccessoryIDs, err = queryIDList(c, "accessory_ids"); err != nil {
        return res, err
    }
    return res, nil
}

func slotFromQuery(c echo.Context) (*model.Slot, error) {
    in := slotInput{
        Date: c.QueryParam("date"),
        Time: c.QueryParam("time"),
    }
    if v := c.QueryParam("duration_minutes"); v != "" {
        n, err := strconv.Atoi(v)
        if err != nil {
            return nil, err
        }
        in.DurationMinutes = n
    }
    return parseSlot(&in)
}

func queryID(c echo.Context, name string) (*uint64, error) {
    v := c.QueryParam(name)
    if v == "" {
        return nil, nil
    }
    id, err := strconv.ParseUint(v, 10, 64)
    if err != nil || id == 0 {
        return nil, errInvalidParam(name)
    }
    return &id, nil
}

func queryIDList(c echo.Context, name string) ([]uint64, error) {
    v := c.QueryParam(name)
    if v == "" {
        return nil, nil
    }
    var ids []uint64
    for _, part := range strings.Split(v, ",") {
        part = strings.TrimSpace(part)
        if part == "" {
            continue
        }
        id, err := strconv.ParseUint(part, 10, 64)
        if err != nil || id == 0 {
            return nil, errInvalidParam(name)
        }
        ids = append(ids, id)
    }
    return ids, nil
}

type paramError string

func (e paramError) Error() string { return "invalid " + string(e) }

func errInvalidParam(name string) error { return paramError(name) }
