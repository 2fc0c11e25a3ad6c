package domain

import "github.com/jonboulle/clockwork"

// clock is the package time source; anchor arithmetic never calls time.Now
// directly so tests can pin the current hour. Production uses the real clock.
var clock = clockwork.NewRealClock()

// SetClock swaps the package time source. Pass nil to restore real time.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}
