// Package services contains the backup engine and its supporting services.
package services

import "time"

// Clock abstracts time retrieval so due calculation and record timestamps
// are deterministic in tests.
type Clock interface {
	Now() time.Time
}

// RealClock returns the actual current time in UTC.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now().UTC() }
