package repository

import (
    "context"
    "database/sql"
    "encoding/json"
    "sort"
    "strings"
    "time"

    "github.com/jolie-croquette/ludov-reservation/internal/booking"
    "github.com/jolie-croquette/ludov-reservation/internal/model"
)

const holdColumns = `id, user_id, console_id, console_type_id, game1_id, game2_id, game3_id,
       station_id, accessoirs, cours, date, time, expireAt, createdAt`

// HoldRepo provides data access to the reservation_hold table.  It
// implements booking.HoldStore plus the hold side of the claim reads
// the availability index needs.  All expiry comparisons use the
// caller-supplied instant, never the database clock, so a sweep pass
// works from one fixed cutoff.
type HoldRepo struct {
    db *sql.DB
}

// NewHoldRepo returns a HoldRepo bound to the provided database.
func NewHoldRepo(db *sql.DB) *HoldRepo { return &HoldRepo{db: db} }

// WithTx runs fn inside one transaction shared through the context.
func (r *HoldRepo) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
    return withTx(ctx, r.db, fn)
}

// LockResources takes row locks on every resource the set claims: the
// console type, then the games, station and accessory rows.  Locking
// all of them serializes two bookers that share any single resource
// even when their console types differ.  Tables are always visited in
// the same order and ids ascending, so concurrent callers cannot
// deadlock.  Only meaningful inside a transaction.
func (r *HoldRepo) LockResources(ctx context.Context, res model.ResourceSet) error {
    if res.ConsoleTypeID != 0 {
        var id uint64
        err := q(ctx, r.db).QueryRowContext(ctx,
            `SELECT id FROM console_type WHERE id = ? FOR UPDATE`, res.ConsoleTypeID,
        ).Scan(&id)
        if err == sql.ErrNoRows {
            return booking.ErrInvalidInput
        }
        if err != nil {
            return mapError(err)
        }
    }
    if err := r.lockRows(ctx, "games", res.GameIDs); err != nil {
        return err
    }
    if res.StationID != nil {
        if err := r.lockRows(ctx, "stations", []uint64{*res.StationID}); err != nil {
            return err
        }
    }
    return r.lockRows(ctx, "accessoires", res.AccessoryIDs)
}

// lockRows locks the given rows of one table in ascending id order and
// verifies they all exist.
func (r *HoldRepo) lockRows(ctx context.Context, table string, ids []uint64) error {
    if len(ids) == 0 {
        return nil
    }
    unique := make([]uint64, 0, len(ids))
    seen := make(map[uint64]struct{}, len(ids))
    for _, id := range ids {
        if _, ok := seen[id]; !ok {
            seen[id] = struct{}{}
            unique = append(unique, id)
        }
    }
    sort.Slice(unique, func(i, j int) bool { return unique[i] < unique[j] })

    args := make([]any, len(unique))
    for i, id := range unique {
        args[i] = id
    }
    query := `SELECT id FROM ` + table + ` WHERE id IN (` + placeholders(len(unique)) + `) ORDER BY id FOR UPDATE`
    rows, err := q(ctx, r.db).QueryContext(ctx, query, args...)
    if err != nil {
        return mapError(err)
    }
    defer rows.Close()

    locked := 0
    for rows.Next() {
        var id uint64
        if err := rows.Scan(&id); err != nil {
            return mapError(err)
        }
        locked++
    }
    if err := rows.Err(); err != nil {
        return mapError(err)
    }
    if locked != len(unique) {
        return booking.ErrInvalidInput
    }
    return nil
}

// Get returns the hold with the given id, or nil when absent.
func (r *HoldRepo) Get(ctx context.Context, id string) (*model.Hold, error) {
    row := q(ctx, r.db).QueryRowContext(ctx,
        `SELECT `+holdColumns+` FROM reservation_hold WHERE id = ?`, id)
    h, err := scanHold(row)
    if err == sql.ErrNoRows {
        return nil, nil
    }
    if err != nil {
        return nil, mapError(err)
    }
    return h, nil
}

// Create inserts a new hold.  A uniqueness violation on the slot index
// comes back as booking.ErrStoreConflict.
func (r *HoldRepo) Create(ctx context.Context, h model.Hold) error {
    accessoirs, err := marshalIDs(h.AccessoryIDs)
    if err != nil {
        return err
    }
    game1, game2, game3 := splitGames(h.GameIDs)
    dateStr, timeStr := splitSlot(h.Slot)
    _, err = q(ctx, r.db).ExecContext(ctx,
        `INSERT INTO reservation_hold
           (id, user_id, console_id, console_type_id, game1_id, game2_id, game3_id,
            station_id, accessoirs, cours, date, time, expireAt, createdAt)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
        h.ID, h.UserID, h.ConsoleID, h.ConsoleTypeID, game1, game2, game3,
        h.StationID, accessoirs, h.CourseID, dateStr, timeStr,
        h.ExpiresAt.UTC(), h.CreatedAt.UTC(),
    )
    return mapError(err)
}

// UpdateExpiry sets a new expiry instant.  Returns false when the hold
// no longer exists (for instance, swept between read and write).
func (r *HoldRepo) UpdateExpiry(ctx context.Context, id string, expiresAt time.Time) (bool, error) {
    res, err := q(ctx, r.db).ExecContext(ctx,
        `UPDATE reservation_hold SET expireAt = ? WHERE id = ?`, expiresAt.UTC(), id)
    if err != nil {
        return false, mapError(err)
    }
    n, err := res.RowsAffected()
    if err != nil {
        return false, mapError(err)
    }
    return n > 0, nil
}

// Delete removes a hold and reports whether a row was deleted.
func (r *HoldRepo) Delete(ctx context.Context, id string) (bool, error) {
    res, err := q(ctx, r.db).ExecContext(ctx,
        `DELETE FROM reservation_hold WHERE id = ?`, id)
    if err != nil {
        return false, mapError(err)
    }
    n, err := res.RowsAffected()
    if err != nil {
        return false, mapError(err)
    }
    return n > 0, nil
}

// DeleteExpired removes every hold whose expiry is at or before the
// cutoff and returns the count.  Holds created after the cutoff are
// untouched by construction.
func (r *HoldRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
    res, err := q(ctx, r.db).ExecContext(ctx,
        `DELETE FROM reservation_hold WHERE expireAt <= ?`, now.UTC())
    if err != nil {
        return 0, mapError(err)
    }
    n, err := res.RowsAffected()
    if err != nil {
        return 0, mapError(err)
    }
    return n, nil
}

// ActiveFor returns the live holds that touch any resource in the set
// or draw from the same console type.  Slot arithmetic is left to the
// availability index.
func (r *HoldRepo) ActiveFor(ctx context.Context, res model.ResourceSet, now time.Time) ([]model.Hold, error) {
    var conds []string
    args := []any{now.UTC()}
    if res.ConsoleTypeID != 0 {
        conds = append(conds, "console_type_id = ?")
        args = append(args, res.ConsoleTypeID)
    }
    if res.ConsoleID != nil {
        conds = append(conds, "console_id = ?")
        args = append(args, *res.ConsoleID)
    }
    if res.StationID != nil {
        conds = append(conds, "station_id = ?")
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
        conds = append(conds, "JSON_OVERLAPS(accessoirs, CAST(? AS JSON))")
        args = append(args, ids)
    }
    if len(conds) == 0 {
        return nil, nil
    }

    query := `SELECT ` + holdColumns + ` FROM reservation_hold
              WHERE expireAt > ? AND (` + strings.Join(conds, " OR ") + `)`
    rows, err := q(ctx, r.db).QueryContext(ctx, query, args...)
    if err != nil {
        return nil, mapError(err)
    }
    defer rows.Close()

    var holds []model.Hold
    for rows.Next() {
        h, err := scanHold(rows)
        if err != nil {
            return nil, mapError(err)
        }
        holds = append(holds, *h)
    }
    if err := rows.Err(); err != nil {
        return nil, mapError(err)
    }
    return holds, nil
}

// scanner abstracts *sql.Row and *sql.Rows for the shared scan code.
type scanner interface {
    Scan(dest ...any) error
}

func scanHold(s scanner) (*model.Hold, error) {
    var (
        h          model.Hold
        consoleID  sql.NullInt64
        game1      sql.NullInt64
        game2      sql.NullInt64
        game3      sql.NullInt64
        stationID  sql.NullInt64
        accessoirs sql.NullString
        courseID   sql.NullInt64
        date       sql.NullTime
        timeStr    sql.NullString
    )
    if err := s.Scan(
        &h.ID, &h.UserID, &consoleID, &h.ConsoleTypeID, &game1, &game2, &game3,
        &stationID, &accessoirs, &courseID, &date, &timeStr, &h.ExpiresAt, &h.CreatedAt,
    ); err != nil {
        return nil, err
    }
    h.ConsoleID = nullID(consoleID)
    h.GameIDs = joinGames(game1, game2, game3)
    h.StationID = nullID(stationID)
    h.CourseID = nullID(courseID)
    var err error
    if h.AccessoryIDs, err = unmarshalIDs(accessoirs); err != nil {
        return nil, err
    }
    if h.Slot, err = combineSlot(date, timeStr); err != nil {
        return nil, err
    }
    h.ExpiresAt = h.ExpiresAt.UTC()
    h.CreatedAt = h.CreatedAt.UTC()
    return &h, nil
}

func splitGames(ids []uint64) (g1, g2, g3 *uint64) {
    if len(ids) > 0 {
        g1 = &ids[0]
    }
    if len(ids) > 1 {
        g2 = &ids[1]
    }
    if len(ids) > 2 {
        g3 = &ids[2]
    }
    return
}

func joinGames(cols ...sql.NullInt64) []uint64 {
    var ids []uint64
    for _, c := range cols {
        if c.Valid {
            ids = append(ids, uint64(c.Int64))
        }
    }
    return ids
}

func nullID(n sql.NullInt64) *uint64 {
    if !n.Valid {
        return nil
    }
    id := uint64(n.Int64)
    return &id
}

// splitSlot breaks a slot into the DATE and TIME column values; both
// are nil for resource-only holds.
func splitSlot(slot *model.Slot) (date, clock *string) {
    if slot == nil {
        return nil, nil
    }
    d := slot.StartsAt.UTC().Format("2006-01-02")
    t := slot.StartsAt.UTC().Format("15:04:05")
    return &d, &t
}

// combineSlot rebuilds a slot from the DATE and TIME columns.  The
// stored row carries no duration; the availability index applies the
// configured slot length.
func combineSlot(date sql.NullTime, clock sql.NullString) (*model.Slot, error) {
    if !date.Valid || !clock.Valid {
        return nil, nil
    }
    t, err := time.Parse("15:04:05", clock.String)
    if err != nil {
        return nil, err
    }
    d := date.Time.UTC()
    starts := time.Date(d.Year(), d.Month(), d.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC)
    return &model.Slot{StartsAt: starts}, nil
}

func marshalIDs(ids []uint64) (*string, error) {
    if len(ids) == 0 {
        return nil, nil
    }
    b, err := json.Marshal(ids)
    if err != nil {
        return nil, err
    }
    s := string(b)
    return &s, nil
}

func unmarshalIDs(col sql.NullString) ([]uint64, error) {
    if !col.Valid || col.String == "" {
        return nil, nil
    }
    var ids []uint64
    if err := json.Unmarshal([]byte(col.String), &ids); err != nil {
        return nil, err
    }
    return ids, nil
}

func placeholders(n int) string {
    return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
