package model

import "time"

// HourRange is one open window on a weekly rule, in minutes from
// midnight.  The stored columns are zero-padded hour/minute strings;
// the repository converts them on read.
type HourRange struct {
    Start int // minutes from midnight, inclusive
    End   int // minutes from midnight, exclusive
}

// Contains reports whether the given minute-of-day falls in the range.
func (r HourRange) Contains(minute int) bool {
    return minute >= r.Start && minute < r.End
}

// WeeklyRule describes the recurring opening hours for one day of the
// week, optionally limited to a start/end date window.
//
// Fields:
//  DayOfWeek       – lowercase English weekday name ("monday"..."sunday").
//  StartDate       – first date the rule applies, nil for no lower bound.
//  EndDate         – last date the rule applies, nil for no upper bound.
//  Enabled         – disabled rules close the day entirely.
//  AlwaysAvailable – the whole day is open, ranges ignored.
//  Ranges          – open windows when not always available.
type WeeklyRule struct {
    DayOfWeek       string      // weekly_availabilities.day_of_week
    StartDate       *time.Time  // weekly_availabilities.start_date
    EndDate         *time.Time  // weekly_availabilities.end_date
    Enabled         bool        // weekly_availabilities.enabled
    AlwaysAvailable bool        // weekly_availabilities.always_available
    Ranges          []HourRange // hour_ranges rows for this rule
}

// DateOverride is a specific-date entry that either opens an extra
// window (IsException false) or closes one (IsException true),
// overriding the weekly rules for that date.
type DateOverride struct {
    Date        time.Time // specific_dates.date
    Range       HourRange // specific_dates start/end columns
    IsException bool      // specific_dates.is_exception
}

// OpeningCalendar aggregates the library's opening-hours rules.  An
// empty calendar means no schedule has been configured and every slot
// is allowed.
type OpeningCalendar struct {
    Weekly    []WeeklyRule
    Overrides []DateOverride
}

// Configured reports whether any schedule rows exist at all.
func (c OpeningCalendar) Configured() bool {
    return len(c.Weekly) > 0 || len(c.Overrides) > 0
}

// Allows reports whether a slot starting at the given UTC instant
// falls inside opening hours.  Closure overrides win over everything;
// extra-opening overrides for the date replace the weekly rules; the
// weekly rules for the weekday apply otherwise.  An unconfigured
// calendar allows everything.
func (c OpeningCalendar) Allows(start time.Time) bool {
    if !c.Configured() {
        return true
    }
    start = start.UTC()
    minute := start.Hour()*60 + start.Minute()
    y, m, d := start.Date()

    var openings []DateOverride
    for _, o := range c.Overrides {
        oy, om, od := o.Date.UTC().Date()
        if oy != y || om != m || od != d {
            continue
        }
        if o.IsException {
            if o.Range.Contains(minute) {
                return false
            }
            continue
        }
        openings = append(openings, o)
    }
    if len(openings) > 0 {
        for _, o := range openings {
            if o.Range.Contains(minute) {
                return true
            }
        }
        return false
    }

    day := weekdayName(start.Weekday())
    for _, w := range c.Weekly {
        if w.DayOfWeek != day {
            continue
        }
        if w.StartDate != nil && start.Before(*w.StartDate) {
            continue
        }
        if w.EndDate != nil && start.After(w.EndDate.Add(24*time.Hour)) {
            continue
        }
        if !w.Enabled {
            continue
        }
        if w.AlwaysAvailable {
            return true
        }
        for _, r := range w.Ranges {
            if r.Contains(minute) {
                return true
            }
        }
    }
    // No enabled rule covers this instant: closed once a schedule exists.
    return false
}

func weekdayName(d time.Weekday) string {
    switch d {
    case time.Monday:
        return "monday"
    case time.Tuesday:
        return "tuesday"
    case time.Wednesday:
        return "wednesday"
    case time.Thursday:
        return "thursday"
    case time.Friday:
        return "friday"
    case time.Saturday:
        return "saturday"
    default:
        return "sunday"
    }
}
