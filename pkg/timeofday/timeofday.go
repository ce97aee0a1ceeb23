// Package timeofday provides a wall-clock time-of-day value used for
// appointment slots. Values are zero-padded "HH:MM" on the wire, which keeps
// their lexicographic order identical to their temporal order within a day.
package timeofday

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// TimeOfDay is an hour/minute pair on a 24-hour clock.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// Parse parses a zero-padded "HH:MM" string. Unpadded input is rejected so
// every accepted value has the lexicographic-order guarantee.
func Parse(s string) (TimeOfDay, error) {
	if len(s) != 5 || s[2] != ':' {
		return TimeOfDay{}, fmt.Errorf("parse time of day %q: want HH:MM", s)
	}
	t, err := time.Parse("15:04", s)
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("parse time of day %q: %w", s, err)
	}
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}, nil
}

// MustParse is Parse for test fixtures and constants; it panics on error.
func MustParse(s string) TimeOfDay {
	t, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return t
}

// FromTime extracts the wall-clock time of day from t.
func FromTime(t time.Time) TimeOfDay {
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// Compare returns -1, 0, or 1 ordering t against u within the same day.
func (t TimeOfDay) Compare(u TimeOfDay) int {
	a := t.Hour*60 + t.Minute
	b := u.Hour*60 + u.Minute
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func (t TimeOfDay) Before(u TimeOfDay) bool { return t.Compare(u) < 0 }

func (t TimeOfDay) After(u TimeOfDay) bool { return t.Compare(u) > 0 }

// Add returns t advanced by the given number of minutes. Minutes carry into
// hours; there is no day rollover, so 23:45 + 30 yields 24:15.
func (t TimeOfDay) Add(minutes int) TimeOfDay {
	total := t.Hour*60 + t.Minute + minutes
	return TimeOfDay{Hour: total / 60, Minute: total % 60}
}

// Minutes returns the offset from midnight in minutes.
func (t TimeOfDay) Minutes() int {
	return t.Hour*60 + t.Minute
}

func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Value implements driver.Valuer so the type maps to a Postgres TIME column.
func (t TimeOfDay) Value() (driver.Value, error) {
	return t.String() + ":00", nil
}

// Scan implements sql.Scanner for TIME columns, accepting time.Time or text.
func (t *TimeOfDay) Scan(src interface{}) error {
	switch v := src.(type) {
	case time.Time:
		*t = FromTime(v)
		return nil
	case string:
		if len(v) > 5 {
			v = v[:5]
		}
		parsed, err := Parse(v)
		if err != nil {
			return err
		}
		*t = parsed
		return nil
	case []byte:
		return t.Scan(string(v))
	default:
		return fmt.Errorf("cannot scan %T into TimeOfDay", src)
	}
}
