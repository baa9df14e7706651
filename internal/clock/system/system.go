// Package system implements catalog.Clock on the wall clock. All
// pipeline timestamps are UTC; portals publish KST dates and the
// extractor normalizes those separately.
package system

import "time"

// Clock reads the system time in UTC.
type Clock struct{}

// New returns a Clock.
func New() *Clock { return &Clock{} }

// Now returns the current UTC time.
func (Clock) Now() time.Time { return time.Now().UTC() }
