package model

import "time"

// Hold is a provisional, time-boxed claim on a console plus up to three
// games, an optional station and accessories, for one user and one
// slot.  Holds keep concurrent bookings from grabbing the same
// resources while a user finishes the flow, and expire automatically
// at ExpiresAt.  A hold whose Slot is nil is "resource-only": the user
// has picked resources but not a time yet, and the named single-unit
// resources are blocked for every slot until the hold expires.
//
// Fields:
//  ID            – string identifier, caller- or server-generated, unique.
//  UserID        – user who owns the hold.
//  ConsoleID     – specific console unit, when one was requested.
//  ConsoleTypeID – console unit pool the claim counts against.
//  GameIDs       – up to three game copies (game1_id..game3_id).
//  StationID     – optional station.
//  AccessoryIDs  – claimed accessories.
//  CourseID      – optional course section reference.
//  Slot          – requested window, nil while resource-only.
//  ExpiresAt     – absolute expiry instant; always after CreatedAt.
//  CreatedAt     – creation timestamp.
type Hold struct {
    ID            string     // reservation_hold.id
    UserID        uint64     // reservation_hold.user_id
    ConsoleID     *uint64    // reservation_hold.console_id
    ConsoleTypeID uint64     // reservation_hold.console_type_id
    GameIDs       []uint64   // reservation_hold.game1_id..game3_id
    StationID     *uint64    // reservation_hold.station_id
    AccessoryIDs  []uint64   // reservation_hold.accessoirs
    CourseID      *uint64    // reservation_hold.cours
    Slot          *Slot      // reservation_hold.date + time (both nullable)
    ExpiresAt     time.Time  // reservation_hold.expireAt
    CreatedAt     time.Time  // reservation_hold.createdAt
}

// Resources returns the resource set this hold claims.
func (h Hold) Resources() ResourceSet {
    return ResourceSet{
        ConsoleID:     h.ConsoleID,
        ConsoleTypeID: h.ConsoleTypeID,
        GameIDs:       h.GameIDs,
        StationID:     h.StationID,
        AccessoryIDs:  h.AccessoryIDs,
    }
}

// Active reports whether the hold is still live at the given instant.
func (h Hold) Active(now time.Time) bool {
    return h.ExpiresAt.After(now)
}

// Blocks reports whether this hold makes the requested slot
// unavailable.  A slotless hold blocks every slot; otherwise the two
// windows must overlap.
func (h Hold) Blocks(slot Slot) bool {
    if h.Slot == nil {
        return true
    }
    return h.Slot.Overlaps(slot)
}
