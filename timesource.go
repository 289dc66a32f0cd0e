package logboot

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// TimeSource timestamps log lines with the UTC offset captured at init.
type TimeSource struct {
	loc   *time.Location
	clock func() time.Time
}

// ResolveTimeSource captures the host's local offset once.
//
// TZ is read at resolution, not at process start. When it names a zone that
// cannot be loaded, Go would silently fall back to UTC; that case is reported
// as ErrTimeOffset rather than accepted.
func ResolveTimeSource(clock func() time.Time) (TimeSource, error) {
	const op Op = "logboot.ResolveTimeSource"
	local, err := zoneFromEnv()
	if err != nil {
		return TimeSource{}, newError(KindTimeOffset, op, "local offset is indeterminate", err)
	}
	if clock == nil {
		clock = time.Now
	}
	name, offset := clock().In(local).Zone()
	if name == emptyString {
		name = fmt.Sprintf("UTC%+03d:%02d", offset/3600, abs(offset%3600)/60)
	}
	return TimeSource{loc: time.FixedZone(name, offset), clock: clock}, nil
}

// zoneFromEnv loads the zone named by TZ, or returns time.Local when TZ is unset or empty.
func zoneFromEnv() (*time.Location, error) {
	tz, ok := os.LookupEnv("TZ")
	if !ok || tz == emptyString {
		return time.Local, nil
	}
	tz = strings.TrimPrefix(tz, ":")
	if filepath.IsAbs(tz) {
		data, err := os.ReadFile(tz)
		if err != nil {
			return nil, err
		}
		return time.LoadLocationFromTZData(filepath.Base(tz), data)
	}
	return time.LoadLocation(tz)
}

// Location is the fixed zone captured at resolution.
func (ts TimeSource) Location() *time.Location {
	if ts.loc == nil {
		return time.UTC
	}
	return ts.loc
}

// Now returns the current time in the captured zone.
func (ts TimeSource) Now() time.Time {
	clock := ts.clock
	if clock == nil {
		clock = time.Now
	}
	return clock().In(ts.Location())
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
