package timer

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrClockFormat is returned by ParseClock for strings that are not
// minutes or minutes:seconds.
var ErrClockFormat = errors.New("expected minutes or minutes:seconds")

// FormatClock renders d as m:ss, rounding partial seconds up. A freshly
// started 25 minute phase therefore shows 25:00 until a whole second has
// elapsed, and 0:00 appears only at expiry.
func FormatClock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int64((d + time.Second - 1) / time.Second)
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}

// ParseClock parses a phase length written as "25" (minutes) or "25:30"
// (minutes and seconds). Seconds require exactly two digits and must be
// below 60.
func ParseClock(s string) (time.Duration, error) {
	mins, secs, hasSecs := strings.Cut(s, ":")
	m, err := strconv.ParseUint(mins, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrClockFormat, s)
	}
	d := time.Duration(m) * time.Minute
	if hasSecs {
		if len(secs) != 2 {
			return 0, fmt.Errorf("%w: %q", ErrClockFormat, s)
		}
		sec, err := strconv.ParseUint(secs, 10, 32)
		if err != nil || sec > 59 {
			return 0, fmt.Errorf("%w: %q", ErrClockFormat, s)
		}
		d += time.Duration(sec) * time.Second
	}
	if d > MaxPhaseDuration {
		return 0, fmt.Errorf("%w: %q is longer than %s", ErrClockFormat, s, MaxPhaseDuration)
	}
	return d, nil
}
