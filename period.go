package cdbf

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Units maps a period suffix to its length, e.g. "Min" to one minute.
type Units map[string]time.Duration

// DefaultUnits returns the suffixes accepted by window specifications such
// as "10_Min".
func DefaultUnits() Units {
	return Units{
		"Sec":  time.Second,
		"Min":  time.Minute,
		"Hour": time.Hour,
		"Day":  24 * time.Hour,
	}
}

// Parse converts a period specification of the form "<amount>_<unit>" into
// a duration. Returns EINVALID if the specification is malformed.
func (u Units) Parse(spec string) (time.Duration, error) {
	amount, unit, ok := strings.Cut(spec, "_")
	if !ok {
		return 0, Errorf(EINVALID, "invalid period %q: expected <amount>_<unit>", spec)
	}
	n, err := strconv.Atoi(amount)
	if err != nil || n <= 0 {
		return 0, Errorf(EINVALID, "invalid period %q: amount must be a positive integer", spec)
	}
	d, ok := u[unit]
	if !ok {
		return 0, Errorf(EINVALID, "invalid period %q: unknown unit %q", spec, unit)
	}
	if int64(n) > math.MaxInt64/int64(d) {
		return 0, Errorf(EINVALID, "invalid period %q: too long", spec)
	}
	return time.Duration(n) * d, nil
}
