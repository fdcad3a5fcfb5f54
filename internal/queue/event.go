// Package queue defines message payloads exchanged over the message broker.
package queue

// ReservationConfirmedEvent is published when a hold is successfully
// promoted into a reservation.  It carries enough information for
// downstream consumers to log, notify, or trigger analytics without
// querying the primary database.
type ReservationConfirmedEvent struct {
    ReservationID string   `json:"reservation_id"`
    UserID        uint64   `json:"user_id"`
    ConsoleID     uint64   `json:"console_id"`
    ConsoleTypeID uint64   `json:"console_type_id"`
    GameIDs       []uint64 `json:"game_ids,omitempty"`
    StationID     *uint64  `json:"station_id,omitempty"`
    AccessoryIDs  []uint64 `json:"accessory_ids,omitempty"`
    CourseID      uint64   `json:"course_id"`
    StartsAt      string   `json:"starts_at"`
    EndsAt        string   `json:"ends_at"`
    ConfirmedAt   string   `json:"confirmed_at"`
}

// ReminderEvent is published when the reminder scheduler dispatches an
// upcoming-reservation reminder.
type ReminderEvent struct {
    ReservationID string `json:"reservation_id"`
    UserID        uint64 `json:"user_id"`
    Recipient     string `json:"recipient"`
    StartsAt      string `json:"starts_at"`
    SentAt        string `json:"sent_at"`
}
