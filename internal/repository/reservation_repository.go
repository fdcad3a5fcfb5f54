package repository

import (
    "context"
    "database/sql"
    "strings"
    "time"

    "github.com/jolie-croquette/ludov-reservation/internal/model"
)

const reservationColumns = `id, user_id, console_id, console_type_id, game1_id, game2_id, game3_id,
       accessory_ids, cours_id, station, date, time, archived,
       reminder_enabled, reminder_hours_before, reminder_sent, reminder_sent_at,
       createdAt, lastUpdatedAt`

// ReservationRepo provides data access to the reservation table.  It
// implements booking.ReservationStore plus the reservation side of the
// claim reads.  Rows are never deleted; archival flips the archived
// flag and the slot-uniqueness index ignores archived rows through its
// generated key column.
type ReservationRepo struct {
    db *sql.DB
}

// NewReservationRepo returns a ReservationRepo bound to the database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

// WithTx runs fn inside one transaction shared through the context.
func (r *ReservationRepo) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
    return withTx(ctx, r.db, fn)
}

// Get returns the reservation with the given id, or nil when absent.
func (r *ReservationRepo) Get(ctx context.Context, id string) (*model.Reservation, error) {
    row := q(ctx, r.db).QueryRowContext(ctx,
        `SELECT `+reservationColumns+` FROM reservation WHERE id = ?`, id)
    rec, err := scanReservation(row)
    if err == sql.ErrNoRows {
        return nil, nil
    }
    if err != nil {
        return nil, mapError(err)
    }
    return rec, nil
}

// Create inserts a confirmed reservation.  The unique index on
// (console_key, date, time) turns a promotion race into
// booking.ErrStoreConflict instead of a double booking.
func (r *ReservationRepo) Create(ctx context.Context, rec model.Reservation) error {
    accessories, err := marshalIDs(rec.AccessoryIDs)
    if err != nil {
        return err
    }
    game1, game2, game3 := splitGames(rec.GameIDs)
    slot := rec.Slot
    dateStr, timeStr := splitSlot(&slot)
    var hoursBefore *int
    if rec.ReminderEnabled {
        hoursBefore = &rec.ReminderHoursBefore
    }
    _, err = q(ctx, r.db).ExecContext(ctx,
        `INSERT INTO reservation
           (id, user_id, console_id, console_type_id, game1_id, game2_id, game3_id,
            accessory_ids, cours_id, station, date, time, archived,
            reminder_enabled, reminder_hours_before, reminder_sent,
            createdAt, lastUpdatedAt)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?, 0, ?, ?)`,
        rec.ID, rec.UserID, rec.ConsoleID, rec.ConsoleTypeID, game1, game2, game3,
        accessories, rec.CourseID, rec.StationID, dateStr, timeStr,
        rec.ReminderEnabled, hoursBefore,
        rec.CreatedAt.UTC(), rec.LastUpdatedAt.UTC(),
    )
    return mapError(err)
}

// Archive flips the archived flag.  Archiving an already archived
// reservation succeeds; only a missing row reports false.
func (r *ReservationRepo) Archive(ctx context.Context, id string, now time.Time) (bool, error) {
    res, err := q(ctx, r.db).ExecContext(ctx,
        `UPDATE reservation SET archived = 1, lastUpdatedAt = ? WHERE id = ?`,
        now.UTC(), id)
    if err != nil {
        return false, mapError(err)
    }
    n, err := res.RowsAffected()
    if err != nil {
        return false, mapError(err)
    }
    return n > 0, nil
}

// DueReminders returns the pending reservations whose reminder lead
// window has opened and whose slot has not started yet, using the
// pending-reminder index.
func (r *ReservationRepo) DueReminders(ctx context.Context, now time.Time) ([]model.Reservation, error) {
    const query = `SELECT ` + reservationColumns + ` FROM reservation
        WHERE reminder_enabled = 1
          AND reminder_sent = 0
          AND archived = 0
          AND reminder_hours_before IS NOT NULL
          AND TIMESTAMP(date, time) > ?
          AND DATE_SUB(TIMESTAMP(date, time), INTERVAL reminder_hours_before HOUR) <= ?
        ORDER BY date, time`
    rows, err := q(ctx, r.db).QueryContext(ctx, query, now.UTC(), now.UTC())
    if err != nil {
        return nil, mapError(err)
    }
    defer rows.Close()

    var out []model.Reservation
    for rows.Next() {
        rec, err := scanReservation(rows)
        if err != nil {
            return nil, mapError(err)
        }
        out = append(out, *rec)
    }
    if err := rows.Err(); err != nil {
        return nil, mapError(err)
    }
    return out, nil
}

// MarkReminderSent transitions a reservation to SENT exactly once.
// Returns false when the flag was already set, which makes repeated
// scans harmless.
func (r *ReservationRepo) MarkReminderSent(ctx context.Context, id string, at time.Time) (bool, error) {
    res, err := q(ctx, r.db).ExecContext(ctx,
        `UPDATE reservation
            SET reminder_sent = 1, reminder_sent_at = ?, lastUpdatedAt = ?
          WHERE id = ? AND reminder_sent = 0`,
        at.UTC(), at.UTC(), id)
    if err != nil {
        return false, mapError(err)
    }
    n, err := res.RowsAffected()
    if err != nil {
        return false, mapError(err)
    }
    return n > 0, nil
}

// OpenFor returns the non-archived reservations that touch any
// resource in the set or draw from the same console type.
func (r *ReservationRepo) OpenFor(ctx context.Context, res model.ResourceSet) ([]model.Reservation, error) {
    var conds []string
    var args []any
    if res.ConsoleTypeID != 0 {
        conds = append(conds, "console_type_id = ?")
        args = append(args, res.ConsoleTypeID)
    }
    if res.ConsoleID != nil {
        conds = append(conds, "console_id = ?")
        args = append(args, *res.ConsoleID)
    }
    if res.StationID != nil {
        conds = append(conds, "station = ?")
        args = append(args, *res.StationID)
    }
    if len(res.GameIDs) > 0 {
        ph := placeholders(len(res.GameIDs))
        for _, col := range []string{"game1_id", "game2_id", "game3_id"} {
            conds = append(conds, col+" IN ("+ph+")")
            for _, g := range res.GameIDs {
                args = append(args, g)
            }
        }
    }
    if len(res.AccessoryIDs) > 0 {
        ids, err := marshalIDs(res.AccessoryIDs)
        if err != nil {
            return nil, err
        }
        conds = append(conds, "JSON_OVERLAPS(accessory_ids, CAST(? AS JSON))")
        args = append(args, ids)
    }
    if len(conds) == 0 {
        return nil, nil
    }

    query := `SELECT ` + reservationColumns + ` FROM reservation
              WHERE archived = 0 AND (` + strings.Join(conds, " OR ") + `)`
    rows, err := q(ctx, r.db).QueryContext(ctx, query, args...)
    if err != nil {
        return nil, mapError(err)
    }
    defer rows.Close()

    var out []model.Reservation
    for rows.Next() {
        rec, err := scanReservation(rows)
        if err != nil {
            return nil, mapError(err)
        }
        out = append(out, *rec)
    }
    if err := rows.Err(); err != nil {
        return nil, mapError(err)
    }
    return out, nil
}

func scanReservation(s scanner) (*model.Reservation, error) {
    var (
        rec         model.Reservation
        game1       sql.NullInt64
        game2       sql.NullInt64
        game3       sql.NullInt64
        accessories sql.NullString
        stationID   sql.NullInt64
        date        sql.NullTime
        timeStr     sql.NullString
        hoursBefore sql.NullInt64
        sentAt      sql.NullTime
    )
    if err := s.Scan(
        &rec.ID, &rec.UserID, &rec.ConsoleID, &rec.ConsoleTypeID, &game1, &game2, &game3,
        &accessories, &rec.CourseID, &stationID, &date, &timeStr, &rec.Archived,
        &rec.ReminderEnabled, &hoursBefore, &rec.ReminderSent, &sentAt,
        &rec.CreatedAt, &rec.LastUpdatedAt,
    ); err != nil {
        return nil, err
    }
    rec.GameIDs = joinGames(game1, game2, game3)
    rec.StationID = nullID(stationID)
    var err error
    if rec.AccessoryIDs, err = unmarshalIDs(accessories); err != nil {
        return nil, err
    }
    slot, err := combineSlot(date, timeStr)
    if err != nil {
        return nil, err
    }
    if slot != nil {
        rec.Slot = *slot
    }
    if hoursBefore.Valid {
        rec.ReminderHoursBefore = int(hoursBefore.Int64)
    }
    if sentAt.Valid {
        t := sentAt.Time.UTC()
        rec.ReminderSentAt = &t
    }
    rec.CreatedAt = rec.CreatedAt.UTC()
    rec.LastUpdatedAt = rec.LastUpdatedAt.UTC()
    return &rec, nil
}

// ClaimReader joins both claim tables behind the single read interface
// the availability index consumes.
type ClaimReader struct {
    Holds        *HoldRepo
    Reservations *ReservationRepo
}

// ActiveHolds implements booking.ClaimStore.
func (c *ClaimReader) ActiveHolds(ctx context.Context, res model.ResourceSet, now time.Time) ([]model.Hold, error) {
    return c.Holds.ActiveFor(ctx, res, now)
}

// OpenReservations implements booking.ClaimStore.
func (c *ClaimReader) OpenReservations(ctx context.Context, res model.ResourceSet) ([]model.Reservation, error) {
    return c.Reservations.OpenFor(ctx, res)
}
