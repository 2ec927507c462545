package afptime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEpochRoundTrip(t *testing.T) {
	assert.Equal(t, int32(0), ToAFP(FromAFP(0)))

	ref := time.Date(2024, time.March, 15, 12, 30, 0, 0, time.UTC)
	assert.Equal(t, ref, FromAFP(ToAFP(ref)))
}

func TestPreEpochNegative(t *testing.T) {
	pre := time.Date(1999, time.December, 31, 23, 59, 0, 0, time.UTC)
	afp := ToAFP(pre)
	assert.Negative(t, afp)
	assert.Equal(t, pre, FromAFP(afp))
}
