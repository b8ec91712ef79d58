package domain

import (
	"errors"
	"fmt"
	"time"
)

// Weekday indexes a store's regular hours. Values match time.Weekday so the
// two convert without a lookup table.
type Weekday int

const (
	Sunday Weekday = iota
	Monday
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
)

var weekdayNames = [7]string{
	"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday",
}

func (d Weekday) String() string {
	if d < Sunday || d > Saturday {
		return "unknown"
	}
	return weekdayNames[d]
}

// WeekdayOf returns the weekday of t in t's location.
func WeekdayOf(t time.Time) Weekday {
	return Weekday(t.Weekday())
}

// DateKey is the canonical yyyy-MM-dd form of a calendar date. Schedule
// exceptions and category pickup restrictions are keyed by it.
type DateKey string

const dateKeyLayout = "2006-01-02"

func NewDateKey(t time.Time) DateKey {
	return DateKey(t.Format(dateKeyLayout))
}

// Date parses the key back into a midnight timestamp in loc.
func (k DateKey) Date(loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(dateKeyLayout, string(k), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", string(k), err)
	}
	return t, nil
}

// TimeRange is an opening window within a single day. Start and End use the
// 24-hour "HH:MM" clock and overnight ranges are not supported.
type TimeRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

func (r TimeRange) Validate() error {
	start, err := ParseClock(r.Start)
	if err != nil {
		return err
	}
	end, err := ParseClock(r.End)
	if err != nil {
		return err
	}
	if start >= end {
		return errors.New("time range start must be before end")
	}
	return nil
}

// ParseClock converts an "HH:MM" label to minutes since midnight.
func ParseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid clock time %q: %w", s, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// StoreSchedule is a store's weekly opening hours plus date-keyed overrides.
// A nil TimeRange means closed. An exception entry wins over the weekday
// hours for that exact calendar date and does not recur.
type StoreSchedule struct {
	RegularHours [7]*TimeRange
	Exceptions   map[DateKey]*TimeRange
}

// Resolve answers whether the store is open on date and during what window.
// A nil schedule means hours cannot be determined and resolves as closed.
func (s *StoreSchedule) Resolve(date time.Time) *TimeRange {
	if s == nil {
		return nil
	}
	if hours, ok := s.Exceptions[NewDateKey(date)]; ok {
		return hours
	}
	return s.RegularHours[WeekdayOf(date)]
}

// IsClosed reports whether no pickup window exists on date. A missing
// schedule behaves as closed.
func IsClosed(date time.Time, s *StoreSchedule) bool {
	return s.Resolve(date) == nil
}
