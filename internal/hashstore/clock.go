package hashstore

import "time"

// Clock supplies the wall time used to evaluate expiries.
type Clock interface {
	Now() time.Time
}

// SystemClock reads time.Now.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// ExpiryAfter returns the absolute expiry ttl from now, truncated to the
// millisecond resolution backends persist.
func ExpiryAfter(c Clock, ttl time.Duration) time.Time {
	return c.Now().Add(ttl).Truncate(time.Millisecond)
}

// Remaining converts an absolute expiry into a TTL as seen at now. It never
// returns a negative duration for a live record.
func Remaining(now, expiresAt time.Time) time.Duration {
	d := expiresAt.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}
