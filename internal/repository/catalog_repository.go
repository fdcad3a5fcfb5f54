package repository

import (
    "context"
    "database/sql"
    "fmt"
    "strconv"

    "github.com/jolie-croquette/ludov-reservation/internal/booking"
    "github.com/jolie-croquette/ludov-reservation/internal/model"
)

// CatalogRepo is the read-only view over the catalog tables.  Lookups
// return nil for missing rows so the services can distinguish a bad
// reference from a store failure.
type CatalogRepo struct {
    db *sql.DB
}

// NewCatalogRepo returns a CatalogRepo bound to the database.
func NewCatalogRepo(db *sql.DB) *CatalogRepo { return &CatalogRepo{db: db} }

// ConsoleUnit returns one console unit, or nil when absent.
func (r *CatalogRepo) ConsoleUnit(ctx context.Context, id uint64) (*model.ConsoleUnit, error) {
    var u model.ConsoleUnit
    err := q(ctx, r.db).QueryRowContext(ctx,
        `SELECT id, console_type_id, name, is_active FROM console_stock WHERE id = ?`, id,
    ).Scan(&u.ID, &u.ConsoleTypeID, &u.Name, &u.IsActive)
    if err == sql.ErrNoRows {
        return nil, nil
    }
    if err != nil {
        return nil, mapError(err)
    }
    return &u, nil
}

// UnitCount returns the number of active units of the console type.
func (r *CatalogRepo) UnitCount(ctx context.Context, consoleTypeID uint64) (int, error) {
    var n int
    err := q(ctx, r.db).QueryRowContext(ctx,
        `SELECT COUNT(*) FROM console_stock WHERE console_type_id = ? AND is_active = 1`,
        consoleTypeID,
    ).Scan(&n)
    if err != nil {
        return 0, mapError(err)
    }
    return n, nil
}

// ActiveUnits returns the active units of the console type in id order.
func (r *CatalogRepo) ActiveUnits(ctx context.Context, consoleTypeID uint64) ([]model.ConsoleUnit, error) {
    rows, err := q(ctx, r.db).QueryContext(ctx,
        `SELECT id, console_type_id, name, is_active FROM console_stock
          WHERE console_type_id = ? AND is_active = 1 ORDER BY id`,
        consoleTypeID)
    if err != nil {
        return nil, mapError(err)
    }
    defer rows.Close()

    var units []model.ConsoleUnit
    for rows.Next() {
        var u model.ConsoleUnit
        if err := rows.Scan(&u.ID, &u.ConsoleTypeID, &u.Name, &u.IsActive); err != nil {
            return nil, mapError(err)
        }
        units = append(units, u)
    }
    if err := rows.Err(); err != nil {
        return nil, mapError(err)
    }
    return units, nil
}

// Game returns one game copy, or nil when absent.  A copy marked as
// held back (holding = 1) is reported inactive.
func (r *CatalogRepo) Game(ctx context.Context, id uint64) (*model.Game, error) {
    var (
        g       model.Game
        holding bool
    )
    err := q(ctx, r.db).QueryRowContext(ctx,
        `SELECT id, titre, console_type_id, holding FROM games WHERE id = ?`, id,
    ).Scan(&g.ID, &g.Title, &g.ConsoleTypeID, &holding)
    if err == sql.ErrNoRows {
        return nil, nil
    }
    if err != nil {
        return nil, mapError(err)
    }
    g.IsActive = !holding
    return &g, nil
}

// Station returns one station, or nil when absent.
func (r *CatalogRepo) Station(ctx context.Context, id uint64) (*model.Station, error) {
    var s model.Station
    err := q(ctx, r.db).QueryRowContext(ctx,
        `SELECT id, createdAt FROM stations WHERE id = ?`, id,
    ).Scan(&s.ID, &s.CreatedAt)
    if err == sql.ErrNoRows {
        return nil, nil
    }
    if err != nil {
        return nil, mapError(err)
    }
    return &s, nil
}

// Accessory returns one accessory, or nil when absent.
func (r *CatalogRepo) Accessory(ctx context.Context, id uint64) (*model.Accessory, error) {
    var a model.Accessory
    err := q(ctx, r.db).QueryRowContext(ctx,
        `SELECT id, name, hidden FROM accessoires WHERE id = ?`, id,
    ).Scan(&a.ID, &a.Name, &a.Hidden)
    if err == sql.ErrNoRows {
        return nil, nil
    }
    if err != nil {
        return nil, mapError(err)
    }
    return &a, nil
}

// Course returns one course section, or nil when absent.
func (r *CatalogRepo) Course(ctx context.Context, id uint64) (*model.Course, error) {
    var c model.Course
    err := q(ctx, r.db).QueryRowContext(ctx,
        `SELECT id, code_cours, nom_cours FROM cours WHERE id = ?`, id,
    ).Scan(&c.ID, &c.Code, &c.Name)
    if err == sql.ErrNoRows {
        return nil, nil
    }
    if err != nil {
        return nil, mapError(err)
    }
    return &c, nil
}

// UserEmail resolves the notification address for a user.  A missing
// user is an invalid reference, not a store failure.
func (r *CatalogRepo) UserEmail(ctx context.Context, id uint64) (string, error) {
    var email string
    err := q(ctx, r.db).QueryRowContext(ctx,
        `SELECT email FROM users WHERE id = ?`, id,
    ).Scan(&email)
    if err == sql.ErrNoRows {
        return "", booking.ErrInvalidInput
    }
    if err != nil {
        return "", mapError(err)
    }
    return email, nil
}

// OpeningCalendar loads the full opening-hours schedule: the weekly
// rules with their hour ranges, plus the specific-date overrides.  The
// hour and minute columns are zero-padded strings; they are converted
// to minutes-of-day here.
func (r *CatalogRepo) OpeningCalendar(ctx context.Context) (model.OpeningCalendar, error) {
    var cal model.OpeningCalendar

    rows, err := q(ctx, r.db).QueryContext(ctx,
        `SELECT id, day_of_week, start_date, end_date, enabled, always_available
           FROM weekly_availabilities ORDER BY id`)
    if err != nil {
        return cal, mapError(err)
    }
    defer rows.Close()

    ruleIndex := make(map[uint64]int)
    var ruleIDs []uint64
    for rows.Next() {
        var (
            id        uint64
            rule      model.WeeklyRule
            startDate sql.NullTime
            endDate   sql.NullTime
        )
        if err := rows.Scan(&id, &rule.DayOfWeek, &startDate, &endDate, &rule.Enabled, &rule.AlwaysAvailable); err != nil {
            return cal, mapError(err)
        }
        if startDate.Valid {
            t := startDate.Time.UTC()
            rule.StartDate = &t
        }
        if endDate.Valid {
            t := endDate.Time.UTC()
            rule.EndDate = &t
        }
        ruleIndex[id] = len(cal.Weekly)
        ruleIDs = append(ruleIDs, id)
        cal.Weekly = append(cal.Weekly, rule)
    }
    if err := rows.Err(); err != nil {
        return cal, mapError(err)
    }

    if len(ruleIDs) > 0 {
        ph := placeholders(len(ruleIDs))
        args := make([]any, len(ruleIDs))
        for i, id := range ruleIDs {
            args[i] = id
        }
        hrRows, err := q(ctx, r.db).QueryContext(ctx,
            `SELECT weekly_availability_id, start_hour, start_minute, end_hour, end_minute
               FROM hour_ranges WHERE weekly_availability_id IN (`+ph+`) ORDER BY id`, args...)
        if err != nil {
            return cal, mapError(err)
        }
        defer hrRows.Close()
        for hrRows.Next() {
            var (
                ruleID         uint64
                sh, sm, eh, em string
            )
            if err := hrRows.Scan(&ruleID, &sh, &sm, &eh, &em); err != nil {
                return cal, mapError(err)
            }
            hr, err := hourRange(sh, sm, eh, em)
            if err != nil {
                return cal, err
            }
            if i, ok := ruleIndex[ruleID]; ok {
                cal.Weekly[i].Ranges = append(cal.Weekly[i].Ranges, hr)
            }
        }
        if err := hrRows.Err(); err != nil {
            return cal, mapError(err)
        }
    }

    ovRows, err := q(ctx, r.db).QueryContext(ctx,
        `SELECT date, start_hour, start_minute, end_hour, end_minute, is_exception
           FROM specific_dates ORDER BY date`)
    if err != nil {
        return cal, mapError(err)
    }
    defer ovRows.Close()
    for ovRows.Next() {
        var (
            ov             model.DateOverride
            sh, sm, eh, em string
        )
        if err := ovRows.Scan(&ov.Date, &sh, &sm, &eh, &em, &ov.IsException); err != nil {
            return cal, mapError(err)
        }
        if ov.Range, err = hourRange(sh, sm, eh, em); err != nil {
            return cal, err
        }
        ov.Date = ov.Date.UTC()
        cal.Overrides = append(cal.Overrides, ov)
    }
    if err := ovRows.Err(); err != nil {
        return cal, mapError(err)
    }
    return cal, nil
}

// hourRange converts the zero-padded hour/minute string columns into a
// minutes-of-day range.
func hourRange(startHour, startMinute, endHour, endMinute string) (model.HourRange, error) {
    start, err := minutesOfDay(startHour, startMinute)
    if err != nil {
        return model.HourRange{}, err
    }
    end, err := minutesOfDay(endHour, endMinute)
    if err != nil {
        return model.HourRange{}, err
    }
    return model.HourRange{Start: start, End: end}, nil
}

func minutesOfDay(hour, minute string) (int, error) {
    h, err := strconv.Atoi(hour)
    if err != nil {
        return 0, fmt.Errorf("invalid hour %q: %w", hour, err)
    }
    m, err := strconv.Atoi(minute)
    if err != nil {
        return 0, fmt.Errorf("invalid minute %q: %w", minute, err)
    }
    return h*60 + m, nil
}
