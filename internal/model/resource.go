package model

import "time"

// ResourceKind distinguishes how exclusivity is computed for a claimed
// resource.  Console types are multi-unit: availability is counted
// against the number of active units of the type.  Everything else is
// a single physical object that at most one claim may touch per slot.
type ResourceKind string

const (
    KindConsoleUnit ResourceKind = "console_unit" // one console_stock row
    KindConsoleType ResourceKind = "console_type" // interchangeable unit pool
    KindGame        ResourceKind = "game"
    KindStation     ResourceKind = "station"
    KindAccessory   ResourceKind = "accessory"
)

// ConsoleType groups interchangeable console units.  The catalog view
// exposes the number of active units per type, which the availability
// index counts claims against.
//
// Fields:
//  ID          – primary key identifier.
//  Name        – display name (unique).
//  Description – optional description.
type ConsoleType struct {
    ID          uint64  // console_type.id
    Name        string  // console_type.name
    Description *string // console_type.description
}

// ConsoleUnit is one physical console in stock.  Units are created by
// catalog ingestion and never mutated by the reservation core;
// IsActive is a status flag, not deletion.
//
// Fields:
//  ID            – primary key identifier.
//  ConsoleTypeID – type this unit belongs to.
//  Name          – unit label.
//  IsActive      – whether the unit may be reserved at all.
type ConsoleUnit struct {
    ID            uint64 // console_stock.id
    ConsoleTypeID uint64 // console_stock.console_type_id
    Name          string // console_stock.name
    IsActive      bool   // console_stock.is_active
}

// Game is one game copy from the catalog.
//
// Fields:
//  ID            – primary key identifier.
//  Title         – game title.
//  ConsoleTypeID – console type the copy runs on (nullable).
//  IsActive      – whether the copy may be reserved.
type Game struct {
    ID            uint64  // games.id
    Title         string  // games.titre
    ConsoleTypeID *uint64 // games.console_type_id
    IsActive      bool    // derived from games.holding = 0
}

// Station is a physical play station in the library.
type Station struct {
    ID        uint64    // stations.id
    CreatedAt time.Time // stations.createdAt
}

// Accessory is a controller, cable or similar add-on.  Hidden
// accessories cannot be claimed.
type Accessory struct {
    ID     uint64 // accessoires.id
    Name   string // accessoires.name
    Hidden bool   // accessoires.hidden
}

// Course is the course section a reservation is made for.
type Course struct {
    ID   uint64 // cours.id
    Code string // cours.code_cours
    Name string // cours.nom_cours
}

// ResourceSet names every allocatable resource a hold or reservation
// claims: at most one console (either a specific unit or a unit pool),
// up to three game copies, an optional station and any accessories.
//
// Fields:
//  ConsoleID     – specific console unit, when one has been assigned.
//  ConsoleTypeID – the unit pool; always set, even for specific units.
//  GameIDs       – up to three game copy ids.
//  StationID     – optional station.
//  AccessoryIDs  – accessory ids (validated foreign refs, not trusted JSON).
type ResourceSet struct {
    ConsoleID     *uint64
    ConsoleTypeID uint64
    GameIDs       []uint64
    StationID     *uint64
    AccessoryIDs  []uint64
}

// Intersects reports whether two resource sets share any single-unit
// resource, or claim the same console unit.  Console-type overlap alone
// is not an intersection: the pool may have spare units, so the
// availability index counts those claims separately.
func (s ResourceSet) Intersects(o ResourceSet) bool {
    if s.ConsoleID != nil && o.ConsoleID != nil && *s.ConsoleID == *o.ConsoleID {
        return true
    }
    if s.StationID != nil && o.StationID != nil && *s.StationID == *o.StationID {
        return true
    }
    for _, g := range s.GameIDs {
        for _, og := range o.GameIDs {
            if g == og {
                return true
            }
        }
    }
    for _, a := range s.AccessoryIDs {
        for _, oa := range o.AccessoryIDs {
            if a == oa {
                return true
            }
        }
    }
    return false
}

// SameConsoleType reports whether both sets draw from the same unit pool.
func (s ResourceSet) SameConsoleType(o ResourceSet) bool {
    return s.ConsoleTypeID != 0 && s.ConsoleTypeID == o.ConsoleTypeID
}
