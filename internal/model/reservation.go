package model

import "time"

// Reservation is a durable, confirmed claim with the same resource and
// slot shape as a Hold.  Reservations are created only by promoting a
// live hold and are never physically deleted: archival flips Archived
// and removes the row from all availability checks while preserving
// history.
//
// Fields:
//  ID                  – identifier inherited from the promoted hold.
//  UserID              – user who owns the reservation.
//  ConsoleID           – concrete console unit; always assigned by promotion.
//  ConsoleTypeID       – unit pool of the assigned console.
//  GameIDs             – up to three game copies.
//  StationID           – optional station.
//  AccessoryIDs        – reserved accessories.
//  CourseID            – course section the reservation is for.
//  Slot                – confirmed window.
//  Archived            – soft-delete flag.
//  ReminderEnabled     – whether a reminder should be sent.
//  ReminderHoursBefore – lead time for the reminder, in hours.
//  ReminderSent        – set once a reminder was dispatched successfully.
//  ReminderSentAt      – when the reminder was dispatched.
//  CreatedAt           – creation timestamp.
//  LastUpdatedAt       – last mutation timestamp.
type Reservation struct {
    ID                  string     // reservation.id
    UserID              uint64     // reservation.user_id
    ConsoleID           uint64     // reservation.console_id
    ConsoleTypeID       uint64     // reservation.console_type_id
    GameIDs             []uint64   // reservation.game1_id..game3_id
    StationID           *uint64    // reservation.station
    AccessoryIDs        []uint64   // reservation.accessory_ids
    CourseID            uint64     // reservation.cours_id
    Slot                Slot       // reservation.date + time
    Archived            bool       // reservation.archived
    ReminderEnabled     bool       // reservation.reminder_enabled
    ReminderHoursBefore int        // reservation.reminder_hours_before
    ReminderSent        bool       // reservation.reminder_sent
    ReminderSentAt      *time.Time // reservation.reminder_sent_at
    CreatedAt           time.Time  // reservation.createdAt
    LastUpdatedAt       time.Time  // reservation.lastUpdatedAt
}

// Resources returns the resource set this reservation occupies.
func (r Reservation) Resources() ResourceSet {
    cid := r.ConsoleID
    return ResourceSet{
        ConsoleID:     &cid,
        ConsoleTypeID: r.ConsoleTypeID,
        GameIDs:       r.GameIDs,
        StationID:     r.StationID,
        AccessoryIDs:  r.AccessoryIDs,
    }
}

// ReminderDue reports whether a reminder should be dispatched at the
// given instant: the reservation is pending (enabled, not yet sent,
// not archived), the lead window has opened and the slot has not
// started yet.  Reservations already in the past never become due.
func (r Reservation) ReminderDue(now time.Time) bool {
    if !r.ReminderEnabled || r.ReminderSent || r.Archived {
        return false
    }
    lead := time.Duration(r.ReminderHoursBefore) * time.Hour
    if now.Before(r.Slot.StartsAt.Add(-lead)) {
        return false
    }
    return now.Before(r.Slot.StartsAt)
}

// EmailLogEntry is the append-only record of one notification attempt
// tied to a reservation.  Entries are written by whatever dispatches
// email (the reminder scheduler here) and are never mutated or
// deleted; failed entries are what lets the scheduler retry without
// double-sending downstream.
//
// Fields:
//  ID            – primary key identifier.
//  ReservationID – reservation the email concerns.
//  EmailType     – kind of email, e.g. "reminder".
//  Recipient     – destination address, when known.
//  Status        – "sent" or "failed".
//  ErrorMessage  – optional failure detail.
//  CreatedAt     – when the attempt happened.
type EmailLogEntry struct {
    ID            uint64    // email_logs.id
    ReservationID string    // email_logs.reservation_id
    EmailType     string    // email_logs.email_type
    Recipient     string    // email_logs.recipient
    Status        string    // email_logs.status
    ErrorMessage  *string   // email_logs.error_message
    CreatedAt     time.Time // email_logs.created_at
}

// Email log status values, matching the email_logs.status enum.
const (
    EmailStatusSent   = "sent"
    EmailStatusFailed = "failed"
)

// EmailTypeReminder tags reminder emails in the log.
const EmailTypeReminder = "reminder"
