package controller

import (
	"math"
	"time"

	"github.com/Iv4nS/gpstelemetry/utils"
)

// Clock holds the absolute wall-clock timestamp of the current sample as a
// whole-second instant plus a millisecond remainder. Keeping the seconds in
// time.Time means every carry — minute, hour, day, month, year — is handled
// by ordinary time arithmetic. The clock is unset until a time basis has
// been observed.
type Clock struct {
	set    bool
	sec    time.Time
	millis float64
}

// Valid reports whether a time basis has been established.
func (c *Clock) Valid() bool { return c.set }

// SetStamp establishes the basis from a decoded time-of-day marker.
func (c *Clock) SetStamp(t time.Time, millis float64) {
	c.set = true
	c.sec = t
	c.millis = millis
}

// SetDayCount establishes the basis from the unified schema's inline fields:
// whole days since the device epoch (the device counts from day 1) and
// seconds-of-day with sub-second precision.
func (c *Clock) SetDayCount(days, secondsOfDay float64) {
	whole := math.Floor(secondsOfDay)
	c.set = true
	c.sec = utils.DeviceEpoch.Add(time.Duration((int64(days)+1)*86400+int64(whole)) * time.Second)
	c.millis = math.Floor(1000.0 * (secondsOfDay - whole))
}

// Advance moves the clock forward by step seconds, normalising the
// millisecond remainder into [0,1000) and carrying whole seconds into the
// instant.
func (c *Clock) Advance(step float64) {
	if !c.set {
		return
	}
	c.millis += step * 1000.0
	for c.millis >= 1000.0 {
		c.millis -= 1000.0
		c.sec = c.sec.Add(time.Second)
	}
}

// Stamp renders the current value as an ISO-8601 UTC timestamp with
// millisecond precision.
func (c *Clock) Stamp() string {
	return utils.FormatISO8601(c.sec, c.millis)
}

// Interpolator spreads a payload's [start, finish) playback window evenly
// over its N samples: sample i sits at start + i*step with
// step = (finish-start)/N, so the last sample plus one step lands exactly
// on finish.
type Interpolator struct {
	step float64
	now  float64
}

// NewInterpolator positions the interpolator on the first sample.
func NewInterpolator(start, finish float64, samples int) *Interpolator {
	return &Interpolator{
		step: (finish - start) / float64(samples),
		now:  start,
	}
}

// Rel returns the current sample's in-payload relative time in seconds.
func (ip *Interpolator) Rel() float64 { return ip.now }

// Advance moves to the next sample, stepping the wall clock in lock-step.
// This happens for every sample, whether or not it was emitted.
func (ip *Interpolator) Advance(c *Clock) {
	ip.now += ip.step
	c.Advance(ip.step)
}
