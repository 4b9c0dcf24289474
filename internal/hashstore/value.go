package hashstore

import (
	"fmt"
	"math"
	"strconv"
)

// AddInt applies IncrBy semantics to a stored value. An absent value counts
// as zero.
func AddInt(current []byte, present bool, delta int64) (int64, error) {
	var n int64
	if present {
		v, err := strconv.ParseInt(string(current), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrNotInteger, current)
		}
		n = v
	}
	if (delta > 0 && n > math.MaxInt64-delta) || (delta < 0 && n < math.MinInt64-delta) {
		return 0, fmt.Errorf("%w: increment would overflow", ErrNotInteger)
	}
	return n + delta, nil
}

// FormatInt encodes n the way IncrBy stores it.
func FormatInt(n int64) []byte {
	return strconv.AppendInt(nil, n, 10)
}

// Version is the snapshot of a key used by Watch.
type Version struct {
	Exists bool
	Seq    uint64
}
