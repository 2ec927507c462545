// Package afptime converts between AFP's epoch (seconds since midnight UTC,
// January 1 2000) and time.Time.
package afptime

import "time"

// epoch is AFP's zero point: 2000-01-01 00:00:00 UTC.
var epoch = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// FromAFP converts a signed AFP timestamp (seconds since epoch) to a
// time.Time. Negative values represent dates before 2000, which AFP permits.
func FromAFP(seconds int32) time.Time {
	return epoch.Add(time.Duration(seconds) * time.Second)
}

// ToAFP converts t to an AFP timestamp. Times outside the representable
// ±68-year range around the epoch saturate to math.MinInt32/MaxInt32.
func ToAFP(t time.Time) int32 {
	delta := t.UTC().Sub(epoch).Seconds()
	const maxInt32 = float64(1<<31 - 1)
	const minInt32 = float64(-1 << 31)
	if delta > maxInt32 {
		return 1<<31 - 1
	}
	if delta < minInt32 {
		return -1 << 31
	}
	return int32(delta)
}
