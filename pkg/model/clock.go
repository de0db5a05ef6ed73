package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// ClockTime is a validated time of day, stored as minutes since midnight.
// It exists so that schedule times are parsed and rejected once, at the
// boundary, instead of re-parsing loosely formatted strings everywhere a
// countdown is computed.
type ClockTime struct {
	minutes int
	set     bool
}

const minutesPerDay = 24 * 60

func NewClockTime(hour, minute int) (ClockTime, error) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return ClockTime{}, fmt.Errorf("invalid time of day %02d:%02d", hour, minute)
	}
	return ClockTime{minutes: hour*60 + minute, set: true}, nil
}

// ParseClockTime accepts a 12-hour clock value with an AM/PM designator
// ("10:00 AM") or a 24-hour value ("15:04").
func ParseClockTime(s string) (ClockTime, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return ClockTime{}, fmt.Errorf("time of day cannot be empty")
	}
	for _, layout := range []string{"3:04 PM", "03:04 PM", "15:04"} {
		if t, err := time.Parse(layout, strings.ToUpper(s)); err == nil {
			return ClockTime{minutes: t.Hour()*60 + t.Minute(), set: true}, nil
		}
	}
	return ClockTime{}, fmt.Errorf("unrecognized time of day: %q", s)
}

func (c ClockTime) Hour() int   { return c.minutes / 60 }
func (c ClockTime) Minute() int { return c.minutes % 60 }

// IsSet reports whether the value came from a parsed input. The zero
// ClockTime would otherwise be indistinguishable from midnight.
func (c ClockTime) IsSet() bool { return c.set }

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour(), c.Minute())
}

func (c ClockTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

func (c *ClockTime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseClockTime(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

func (c ClockTime) MarshalBSONValue() (bsontype.Type, []byte, error) {
	return bson.MarshalValue(c.String())
}

func (c *ClockTime) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	var s string
	if err := bson.UnmarshalValue(t, data, &s); err != nil {
		return err
	}
	parsed, err := ParseClockTime(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
