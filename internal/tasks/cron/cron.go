// Package cron implements the 3-field crontab dialect used for task
// schedules: minute, hour and day of week.
package cron

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"tubearchivist/internal/errs"
)

// Schedule is one parsed 3-field expression. A nil field set means
// every value matches.
type Schedule struct {
	minutes map[int]struct{}
	hours   map[int]struct{}
	days    map[int]struct{}
	loc     *time.Location
}

// field limits per position.
type bounds struct {
	name     string
	min, max int
}

var (
	minuteBounds = bounds{"minute", 0, 59}
	hourBounds   = bounds{"hour", 0, 23}
	dayBounds    = bounds{"day_of_week", 0, 6}
)

// Validate checks a 3-field expression without building a schedule.
func Validate(expr string) error {
	_, err := Parse(expr, time.UTC)
	return err
}

// Parse builds a schedule from "minute hour day_of_week". Each field is
// either "*", a single integer, or a comma list of integers within the
// field's range. Step and range syntax is rejected.
func Parse(expr string, loc *time.Location) (*Schedule, error) {
	fields := strings.Fields(expr)
	if len(fields) != 3 {
		return nil, fmt.Errorf("%w: cron needs exactly 3 fields, got %q", errs.ErrValidation, expr)
	}
	if loc == nil {
		loc = time.UTC
	}

	minutes, err := parseField(fields[0], minuteBounds)
	if err != nil {
		return nil, err
	}
	hours, err := parseField(fields[1], hourBounds)
	if err != nil {
		return nil, err
	}
	days, err := parseField(fields[2], dayBounds)
	if err != nil {
		return nil, err
	}

	return &Schedule{minutes: minutes, hours: hours, days: days, loc: loc}, nil
}

func parseField(field string, b bounds) (map[int]struct{}, error) {
	if field == "*" {
		return nil, nil
	}

	out := map[int]struct{}{}
	for _, part := range strings.Split(field, ",") {
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("%w: %s field %q is not an integer", errs.ErrValidation, b.name, part)
		}
		if n < b.min || n > b.max {
			return nil, fmt.Errorf("%w: %s %d out of range %d-%d", errs.ErrValidation, b.name, n, b.min, b.max)
		}
		out[n] = struct{}{}
	}
	return out, nil
}

// Matches reports whether t falls on the schedule, evaluated in the
// schedule's timezone with second precision dropped.
func (s *Schedule) Matches(t time.Time) bool {
	t = t.In(s.loc)
	return matchField(s.minutes, t.Minute()) &&
		matchField(s.hours, t.Hour()) &&
		matchField(s.days, int(t.Weekday()))
}

func matchField(set map[int]struct{}, v int) bool {
	if set == nil {
		return true
	}
	_, ok := set[v]
	return ok
}

// Next returns the first matching instant strictly after t. The search
// is bounded to just over a week, which every valid schedule hits.
func (s *Schedule) Next(t time.Time) time.Time {
	t = t.In(s.loc).Truncate(time.Minute).Add(time.Minute)
	limit := t.AddDate(0, 0, 8)
	for ; t.Before(limit); t = t.Add(time.Minute) {
		if s.Matches(t) {
			return t
		}
	}
	return time.Time{}
}
