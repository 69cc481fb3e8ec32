// Package tz resolves IANA timezone identifiers and converts instants
// between UTC and zone wall-clock time. All conversions go through the
// platform tzdata (time.LoadLocation); there is no hand-rolled offset math.
package tz

import (
	"errors"
	"fmt"
	"os"
	"time"
)

// ErrInvalidTimezone is returned when an identifier is not recognized by
// the platform timezone database.
var ErrInvalidTimezone = errors.New("invalid timezone")

// LocalDateTime is a wall-clock date/time without an attached zone. It only
// means something paired with a timezone identifier.
type LocalDateTime struct {
	Year   int
	Month  time.Month
	Day    int
	Hour   int
	Minute int
	Second int
}

// DeviceZone returns the IANA identifier the host is configured with.
// Detection never fails; it falls back to "UTC" when the platform does not
// expose a usable name.
func DeviceZone() string {
	if name := os.Getenv("TZ"); name != "" && IsValid(name) {
		return name
	}
	name := time.Local.String()
	if name == "" || name == "Local" {
		return "UTC"
	}
	return name
}

// IsValid reports whether id is recognized by the platform tzdata.
func IsValid(id string) bool {
	if id == "" {
		return false
	}
	_, err := time.LoadLocation(id)
	return err == nil
}

// Location loads the *time.Location for an IANA identifier.
func Location(id string) (*time.Location, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: empty identifier", ErrInvalidTimezone)
	}
	loc, err := time.LoadLocation(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTimezone, id)
	}
	return loc, nil
}

// LocationOrDevice loads id, falling back to the device zone (and finally
// UTC) when id is empty or unrecognized.
func LocationOrDevice(id string) *time.Location {
	if id != "" {
		if loc, err := time.LoadLocation(id); err == nil {
			return loc
		}
	}
	if loc, err := time.LoadLocation(DeviceZone()); err == nil {
		return loc
	}
	return time.UTC
}

// OffsetMinutes returns the signed minutes to add to UTC to get wall-clock
// time in tz at the given instant. DST is accounted for at that instant.
func OffsetMinutes(instant time.Time, tzID string) (int, error) {
	loc, err := Location(tzID)
	if err != nil {
		return 0, err
	}
	_, off := instant.In(loc).Zone()
	return off / 60, nil
}

// ToZone projects a UTC instant to the wall-clock fields observed in tz.
func ToZone(instant time.Time, tzID string) (LocalDateTime, error) {
	loc, err := Location(tzID)
	if err != nil {
		return LocalDateTime{}, err
	}
	return ToLocation(instant, loc), nil
}

// ToLocation is ToZone with a pre-resolved location.
func ToLocation(instant time.Time, loc *time.Location) LocalDateTime {
	t := instant.In(loc)
	return LocalDateTime{
		Year:   t.Year(),
		Month:  t.Month(),
		Day:    t.Day(),
		Hour:   t.Hour(),
		Minute: t.Minute(),
		Second: t.Second(),
	}
}

// FromZone is the inverse of ToZone: given wall-clock fields meant as "this
// time in tz", it returns the corresponding UTC instant.
//
// DST policy:
//   - spring-forward gap (the wall time never occurs): resolve as if the
//     clock had not jumped, i.e. add the missing duration (09:30 in a
//     02:00->03:00 gap day at 02:30 resolves to 03:30 local);
//   - fall-back fold (the wall time occurs twice): resolve to the first,
//     earlier instant.
func FromZone(local LocalDateTime, tzID string) (time.Time, error) {
	loc, err := Location(tzID)
	if err != nil {
		return time.Time{}, err
	}
	return FromLocation(local, loc), nil
}

// FromLocation is FromZone with a pre-resolved location.
func FromLocation(local LocalDateTime, loc *time.Location) time.Time {
	t := time.Date(local.Year, local.Month, local.Day, local.Hour, local.Minute, local.Second, 0, loc)

	// Gap: time.Date normalizes nonexistent wall times by sliding them
	// before the transition. When the produced wall clock is earlier than
	// requested, push forward by the missing amount so the result behaves
	// as if the clock had not jumped.
	if delta := wallDelta(local, t); delta > 0 {
		t = t.Add(delta)
		return t.UTC()
	}

	// Fold: if an earlier instant shows the same wall clock, prefer it.
	// The two instants of an ambiguous time differ by the zone-offset
	// delta across the transition.
	_, offHere := t.Zone()
	_, offBefore := t.Add(-12 * time.Hour).Zone()
	if offBefore > offHere {
		cand := t.Add(-time.Duration(offBefore-offHere) * time.Second)
		if sameWall(cand, local) {
			t = cand
		}
	}

	return t.UTC()
}

// wallDelta returns requested-minus-observed wall time as a duration.
func wallDelta(want LocalDateTime, got time.Time) time.Duration {
	wantAbs := time.Date(want.Year, want.Month, want.Day, want.Hour, want.Minute, want.Second, 0, time.UTC)
	gotAbs := time.Date(got.Year(), got.Month(), got.Day(), got.Hour(), got.Minute(), got.Second(), 0, time.UTC)
	return wantAbs.Sub(gotAbs)
}

func sameWall(t time.Time, want LocalDateTime) bool {
	return t.Year() == want.Year &&
		t.Month() == want.Month &&
		t.Day() == want.Day &&
		t.Hour() == want.Hour &&
		t.Minute() == want.Minute &&
		t.Second() == want.Second
}
