package model

import "time"

// RateLimitStatus is the quota state of one GitHub rate-limit resource.
type RateLimitStatus struct {
	Resource  string
	Limit     int
	Remaining int
	Used      int
	Reset     time.Time
}

// Exhausted reports whether no calls remain in the current window.
func (s RateLimitStatus) Exhausted() bool {
	return s.Remaining <= 0
}

// ResetIn returns the time left until the quota window resets, relative to now.
// Returns zero when the reset time has already passed.
func (s RateLimitStatus) ResetIn(now time.Time) time.Duration {
	if d := s.Reset.Sub(now); d > 0 {
		return d
	}
	return 0
}
