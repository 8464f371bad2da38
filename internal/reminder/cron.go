// ClassBridge - University Class Scheduling and Notification Bridge
// Copyright 2026 M15 Lab
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/m15lab/classbridge

package reminder

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// CronSchedule is a parsed 5-field cron expression:
// minute hour day-of-month month day-of-week.
type CronSchedule struct {
	minutes     map[int]bool // 0-59
	hours       map[int]bool // 0-23
	daysOfMonth map[int]bool // 1-31
	months      map[int]bool // 1-12
	daysOfWeek  map[int]bool // 0-6, 0 = Sunday

	domWildcard bool
	dowWildcard bool
}

// ParseCron parses a standard 5-field cron expression. Supported field
// syntax: "*", "n", "n-m", "n,m,o", "*/s" and "n-m/s".
//
// Examples: "0 20 * * *" is daily at 20:00, "0 8 * * 1" is Monday at
// 8:00, "*/15 * * * *" is every 15 minutes.
func ParseCron(expr string) (*CronSchedule, error) {
	fields := strings.Fields(expr)
	if len(fields) != 5 {
		return nil, fmt.Errorf("cron expression must have 5 fields, got %d", len(fields))
	}

	minutes, err := parseCronField(fields[0], 0, 59)
	if err != nil {
		return nil, fmt.Errorf("invalid minute field: %w", err)
	}
	hours, err := parseCronField(fields[1], 0, 23)
	if err != nil {
		return nil, fmt.Errorf("invalid hour field: %w", err)
	}
	daysOfMonth, err := parseCronField(fields[2], 1, 31)
	if err != nil {
		return nil, fmt.Errorf("invalid day-of-month field: %w", err)
	}
	months, err := parseCronField(fields[3], 1, 12)
	if err != nil {
		return nil, fmt.Errorf("invalid month field: %w", err)
	}
	daysOfWeek, err := parseCronField(fields[4], 0, 7)
	if err != nil {
		return nil, fmt.Errorf("invalid day-of-week field: %w", err)
	}
	// 7 is an alias for Sunday
	if daysOfWeek[7] {
		delete(daysOfWeek, 7)
		daysOfWeek[0] = true
	}

	return &CronSchedule{
		minutes:     minutes,
		hours:       hours,
		daysOfMonth: daysOfMonth,
		months:      months,
		daysOfWeek:  daysOfWeek,
		domWildcard: fields[2] == "*",
		dowWildcard: fields[4] == "*",
	}, nil
}

// NextRun returns the first matching instant strictly after the given
// time. If loc is nil, UTC is used.
func (c *CronSchedule) NextRun(after time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	t := after.In(loc).Add(time.Minute).Truncate(time.Minute)

	// Bound the scan to avoid spinning forever on unsatisfiable
	// expressions (e.g. Feb 30); four years of minutes
	for i := 0; i < 4*366*24*60; i++ {
		if c.matches(t) {
			return t
		}
		t = t.Add(time.Minute)
	}
	return time.Time{}
}

// matches reports whether t satisfies the schedule. Day-of-month and
// day-of-week combine per standard cron: when both are restricted,
// either matching is sufficient.
func (c *CronSchedule) matches(t time.Time) bool {
	if !c.minutes[t.Minute()] || !c.hours[t.Hour()] || !c.months[int(t.Month())] {
		return false
	}

	domMatch := c.daysOfMonth[t.Day()]
	dowMatch := c.daysOfWeek[int(t.Weekday())]

	switch {
	case c.domWildcard && c.dowWildcard:
		return true
	case c.domWildcard:
		return dowMatch
	case c.dowWildcard:
		return domMatch
	default:
		return domMatch || dowMatch
	}
}

// sortedKeys returns the sorted allowed values of one field.
func sortedKeys(m map[int]bool) []int {
	out := make([]int, 0, len(m))
	for v := range m {
		out = append(out, v)
	}
	sort.Ints(out)
	return out
}

// parseCronField expands one field into its allowed-value set.
func parseCronField(field string, minVal, maxVal int) (map[int]bool, error) {
	out := make(map[int]bool)
	for _, part := range strings.Split(field, ",") {
		if err := parseCronPart(part, minVal, maxVal, out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func parseCronPart(part string, minVal, maxVal int, out map[int]bool) error {
	step := 1
	if idx := strings.IndexByte(part, '/'); idx >= 0 {
		s, err := strconv.Atoi(part[idx+1:])
		if err != nil || s <= 0 {
			return fmt.Errorf("invalid step value: %s", part[idx+1:])
		}
		step = s
		part = part[:idx]
	}

	start, end := minVal, maxVal
	switch {
	case part == "*":
		// full range
	case strings.Contains(part, "-"):
		bounds := strings.SplitN(part, "-", 2)
		var err error
		if start, err = strconv.Atoi(bounds[0]); err != nil {
			return fmt.Errorf("invalid range start: %s", bounds[0])
		}
		if end, err = strconv.Atoi(bounds[1]); err != nil {
			return fmt.Errorf("invalid range end: %s", bounds[1])
		}
		if start > end {
			return fmt.Errorf("invalid range: %d-%d", start, end)
		}
	default:
		v, err := strconv.Atoi(part)
		if err != nil {
			return fmt.Errorf("invalid value: %s", part)
		}
		start = v
		if step == 1 {
			end = v
		}
	}

	if start < minVal || end > maxVal {
		return fmt.Errorf("value out of range %d-%d: %s", minVal, maxVal, part)
	}
	for i := start; i <= end; i += step {
		out[i] = true
	}
	return nil
}
