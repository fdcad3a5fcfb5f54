// Package repository implements the booking stores on MySQL.  All
// timestamps are stored and compared in UTC.  Driver errors never
// escape: they are mapped onto the booking error taxonomy here.
package repository

import (
    "context"
    "database/sql"
    "database/sql/driver"
    "errors"
    "fmt"

    "github.com/go-sql-driver/mysql"

    "github.com/jolie-croquette/ludov-reservation/internal/booking"
)

type txKey struct{}

// withTx runs fn inside a transaction carried in the context.  Nested
// calls reuse the ambient transaction, so a service composing several
// repositories gets one atomic unit of work.
func withTx(ctx context.Context, db *sql.DB, fn func(ctx context.Context) error) error {
    if txFromContext(ctx) != nil {
        return fn(ctx)
    }
    tx, err := db.BeginTx(ctx, nil)
    if err != nil {
        return mapError(err)
    }
    txCtx := context.WithValue(ctx, txKey{}, tx)
    if err := fn(txCtx); err != nil {
        _ = tx.Rollback()
        return err
    }
    if err := tx.Commit(); err != nil {
        return mapError(err)
    }
    return nil
}

func txFromContext(ctx context.Context) *sql.Tx {
    tx, _ := ctx.Value(txKey{}).(*sql.Tx)
    return tx
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
    QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
    QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
    ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// q returns the ambient transaction when one is carried in ctx, the
// plain pool otherwise.
func q(ctx context.Context, db *sql.DB) querier {
    if tx := txFromContext(ctx); tx != nil {
        return tx
    }
    return db
}

// mapError converts driver failures into the booking taxonomy.
// Duplicate keys, deadlocks and lock timeouts are concurrent-write
// races the caller may retry; connection-level failures surface as
// StoreUnavailable.
func mapError(err error) error {
    if err == nil {
        return nil
    }
    var mysqlErr *mysql.MySQLError
    if errors.As(err, &mysqlErr) {
        switch mysqlErr.Number {
        case 1062: // duplicate entry
            return booking.ErrStoreConflict
        case 1205, 1213: // lock wait timeout, deadlock
            return booking.ErrStoreConflict
        }
        return err
    }
    if errors.Is(err, driver.ErrBadConn) || errors.Is(err, mysql.ErrInvalidConn) {
        return fmt.Errorf("%w: %v", booking.ErrStoreUnavailable, err)
    }
    return err
}
