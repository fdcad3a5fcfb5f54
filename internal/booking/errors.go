// Package booking implements the reservation engine: the availability
// index, hold lifecycle, hold→reservation promotion and the reminder
// scheduler.  It owns the error taxonomy exposed to callers; no raw
// store error ever crosses this package's boundary.
package booking

import "errors"

// Sentinel errors returned by the engine.  ErrResourceUnavailable and
// ErrStoreConflict are recoverable: the caller picks another slot or
// retries.  The NotFound/Expired values are terminal for the operation
// that produced them.  ErrStoreUnavailable wraps transport failures to
// the backing store and should be retried with backoff by the caller.
var (
    ErrResourceUnavailable = errors.New("resource unavailable")
    ErrHoldNotFound        = errors.New("hold not found")
    ErrHoldExpired         = errors.New("hold expired")
    ErrReservationNotFound = errors.New("reservation not found")
    ErrStoreConflict       = errors.New("store conflict")
    ErrStoreUnavailable    = errors.New("store unavailable")
    ErrInvalidInput        = errors.New("invalid input")
)
