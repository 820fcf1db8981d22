// Package system provides a real clock implementation.
package system

import "time"

// Clock implements refs.Clock using time.Now.
type Clock struct{}

// New creates a new Clock.
func New() *Clock {
	return &Clock{}
}

// Now returns the current local time. Rows and capture paths carry local
// timestamps so they line up with what operators see on the same machine.
func (Clock) Now() time.Time {
	return time.Now()
}
