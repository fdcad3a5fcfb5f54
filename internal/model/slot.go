package model

import "time"

// Slot is the time window a reservation or hold occupies: a calendar
// date plus a start time, with an implicit fixed duration configured
// at the service level.  All instants are UTC.
//
// Fields:
//  StartsAt – combined date and start time of the window.
//  Duration – length of the window; the service fills this in from
//             its configured slot length before any comparison.
type Slot struct {
    StartsAt time.Time // reservation.date + reservation.time
    Duration time.Duration
}

// End returns the exclusive end instant of the slot.
func (s Slot) End() time.Time {
    return s.StartsAt.Add(s.Duration)
}

// Overlaps reports whether two slots share any instant.  Windows are
// half-open [StartsAt, End), so back-to-back slots do not overlap.
func (s Slot) Overlaps(o Slot) bool {
    return s.StartsAt.Before(o.End()) && o.StartsAt.Before(s.End())
}

// SameDate reports whether both slots fall on the same UTC calendar day.
func (s Slot) SameDate(o Slot) bool {
    y1, m1, d1 := s.StartsAt.UTC().Date()
    y2, m2, d2 := o.StartsAt.UTC().Date()
    return y1 == y2 && m1 == m2 && d1 == d2
}
