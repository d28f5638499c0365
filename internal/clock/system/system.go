// Package system provides the wall clock used outside tests.
package system

import "time"

// Clock implements scanner.Clock in UTC.
type Clock struct{}

// New creates a new Clock.
func New() *Clock {
	return &Clock{}
}

// Now returns the current UTC time. The monotonic reading is kept so
// durations computed from two calls are immune to wall-clock jumps.
func (Clock) Now() time.Time {
	return time.Now().UTC()
}
