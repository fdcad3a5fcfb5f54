package booking

import "time"

// Clock supplies the current instant to the engine so that expiry and
// reminder arithmetic can be driven by a fixed time in tests.
type Clock interface {
    Now() time.Time
}

type systemClock struct{}

// SystemClock returns a Clock backed by time.Now in UTC.
func SystemClock() Clock { return systemClock{} }

func (systemClock) Now() time.Time { return time.Now().UTC() }

type fixedClock struct{ now time.Time }

// FixedClock returns a Clock frozen at the given instant.
func FixedClock(t time.Time) Clock { return fixedClock{now: t.UTC()} }

func (f fixedClock) Now() time.Time { return f.now }
