package session

import "time"

// Timer is a cancellable pending callback armed through a [Clock].
type Timer interface {
	// Stop cancels the timer. It reports whether the call prevented the
	// callback from firing. Stopping an already-fired or already-stopped
	// timer is safe.
	Stop() bool
}

// Clock abstracts time for the session controller so that silence and
// max-duration timeout logic can be tested deterministically without
// wall-clock waits.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// AfterFunc arms fn to run after d elapses and returns a handle to
	// cancel it. fn runs at most once.
	AfterFunc(d time.Duration, fn func()) Timer
}

// realClock is the production [Clock] backed by the time package.
type realClock struct{}

// RealClock returns a [Clock] backed by real wall-clock timers.
func RealClock() Clock { return realClock{} }

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}
