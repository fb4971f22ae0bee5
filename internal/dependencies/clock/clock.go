package clock

import "time"

// Clock provides time operations that can be mocked for testing
type Clock interface {
	Now() time.Time
}

// RealClock implements Clock using the system clock
type RealClock struct{}

// New creates a new RealClock
func New() *RealClock {
	return &RealClock{}
}

// Now returns the current time in UTC, truncated to milliseconds so
// stored timestamps survive a JSON round trip unchanged
func (c *RealClock) Now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// Within reports whether less than d has passed between since and c.Now().
// A nil since is never within any window.
func Within(c Clock, since *time.Time, d time.Duration) bool {
	if since == nil || d <= 0 {
		return false
	}
	return c.Now().Sub(*since) < d
}
