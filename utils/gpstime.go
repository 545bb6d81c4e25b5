package utils

import (
	"fmt"
	"time"
)

// DeviceEpoch is the reference instant for the unified-schema day counter:
// 2000-01-01T00:00:00 UTC. The camera reports days elapsed since this epoch,
// counting from day 1.
var DeviceEpoch = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// ParseDeviceStamp decodes the fixed-layout ASCII timestamp carried by GPSU
// records: "YYMMDDHHMMSS.sss", year offset from 2000, fraction in
// milliseconds. It returns the whole-second instant and the millisecond
// remainder separately so callers can keep sub-second arithmetic exact.
func ParseDeviceStamp(s string) (time.Time, float64, error) {
	if len(s) < 16 {
		return time.Time{}, 0, fmt.Errorf("device stamp too short: %q", s)
	}
	if s[12] != '.' {
		return time.Time{}, 0, fmt.Errorf("device stamp missing fraction separator: %q", s)
	}
	for i, c := range []byte(s[:16]) {
		if i == 12 {
			continue
		}
		if c < '0' || c > '9' {
			return time.Time{}, 0, fmt.Errorf("device stamp not numeric: %q", s)
		}
	}
	twoDigit := func(i int) int { return 10*int(s[i]-'0') + int(s[i+1]-'0') }

	year := 2000 + twoDigit(0)
	month := time.Month(twoDigit(2))
	day := twoDigit(4)
	hour := twoDigit(6)
	min := twoDigit(8)
	sec := twoDigit(10)
	millis := 100.0*float64(s[13]-'0') + 10.0*float64(s[14]-'0') + float64(s[15]-'0')

	return time.Date(year, month, day, hour, min, sec, 0, time.UTC), millis, nil
}

// FormatISO8601 renders a whole-second instant plus millisecond remainder as
// an ISO-8601 UTC timestamp with millisecond precision.
func FormatISO8601(t time.Time, millis float64) string {
	return fmt.Sprintf("%s.%03dZ", t.UTC().Format("2006-01-02T15:04:05"), int(millis))
}
