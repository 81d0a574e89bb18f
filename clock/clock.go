// Package clock abstracts time so workflow runs can be driven by virtual time in tests.
package clock

import "time"

// Clock abstracts time.Now and timer scheduling
type Clock interface {
	Now() time.Time
	// AfterFunc calls f once, on its own goroutine for the real clock, after d elapses
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a scheduled callback that can be stopped
type Timer interface {
	// Stop prevents the callback from firing. Returns false if it already fired or was stopped.
	Stop() bool
}

// Real implements Clock using the system clock
type Real struct{}

func (Real) Now() time.Time { return time.Now() }

func (Real) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
