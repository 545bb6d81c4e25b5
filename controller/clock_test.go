package controller

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestInterpolatorSpreadsWindowEvenly(t *testing.T) {
	ip := NewInterpolator(2.0, 4.0, 4)
	var clock Clock

	times := make([]float64, 0, 4)
	for i := 0; i < 4; i++ {
		times = append(times, ip.Rel())
		ip.Advance(&clock)
	}

	require.Equal(t, []float64{2.0, 2.5, 3.0, 3.5}, times)
	// the last sample plus one step lands exactly on finish
	require.Equal(t, 4.0, ip.Rel())
}

func TestClockCarriesAcrossDayBoundary(t *testing.T) {
	var c Clock
	c.SetStamp(time.Date(2023, 6, 15, 23, 59, 59, 0, time.UTC), 900)

	c.Advance(0.150)

	require.Equal(t, "2023-06-16T00:00:00.050Z", c.Stamp())
}

func TestClockCarriesAcrossYearBoundary(t *testing.T) {
	var c Clock
	c.SetStamp(time.Date(2023, 12, 31, 23, 59, 59, 0, time.UTC), 980)

	c.Advance(0.055)

	require.Equal(t, "2024-01-01T00:00:00.035Z", c.Stamp())
}

func TestClockMillisStayNormalised(t *testing.T) {
	var c Clock
	c.SetStamp(time.Date(2023, 6, 15, 0, 0, 0, 0, time.UTC), 0)

	// 18 Hz for just under a minute's worth of samples
	for i := 0; i < 18*60-1; i++ {
		c.Advance(1.0 / 18.0)
	}

	require.GreaterOrEqual(t, c.millis, 0.0)
	require.Less(t, c.millis, 1000.0)
	require.Contains(t, c.Stamp(), "00:00:59")
}

func TestClockStepLargerThanOneSecond(t *testing.T) {
	var c Clock
	c.SetStamp(time.Date(2023, 6, 15, 10, 0, 0, 0, time.UTC), 500)

	c.Advance(2.25)

	require.Equal(t, "2023-06-15T10:00:02.750Z", c.Stamp())
}

func TestClockDayCountBasis(t *testing.T) {
	var c Clock

	// day field 0 means epoch + 1 day; 43200.5 seconds of day is noon
	c.SetDayCount(0, 43200.5)
	require.Equal(t, "2000-01-02T12:00:00.500Z", c.Stamp())

	c.SetDayCount(366, 0)
	require.Equal(t, "2001-01-02T00:00:00.000Z", c.Stamp())
}

func TestClockInvalidUntilBasisSet(t *testing.T) {
	var c Clock
	require.False(t, c.Valid())

	c.Advance(0.5) // no basis, must stay unset
	require.False(t, c.Valid())

	c.SetStamp(time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), 0)
	require.True(t, c.Valid())
}
