package service

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Interval is a half-open [Start, End) range in minutes from midnight.
type Interval struct {
	Start int
	End   int
}

// Duration returns the interval length in minutes.
func (i Interval) Duration() int {
	return i.End - i.Start
}

// Overlaps reports whether two intervals share any minute.
func (i Interval) Overlaps(other Interval) bool {
	return i.Start < other.End && other.Start < i.End
}

// Contains reports whether the interval fully covers other.
func (i Interval) Contains(other Interval) bool {
	return i.Start <= other.Start && other.End <= i.End
}

func (i Interval) String() string {
	return formatClock(i.Start) + "-" + formatClock(i.End)
}

// DayInterval pins an interval to a day of week (0=Sunday .. 6=Saturday).
type DayInterval struct {
	Day int
	Interval
}

// parseClock converts "HH:MM" into minutes from midnight.
func parseClock(raw string) (int, error) {
	parts := strings.SplitN(strings.TrimSpace(raw), ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid clock value %q", raw)
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid clock value %q", raw)
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid clock value %q", raw)
	}
	if hours < 0 || hours > 24 || minutes < 0 || minutes > 59 {
		return 0, fmt.Errorf("clock value %q out of range", raw)
	}
	return hours*60 + minutes, nil
}

// formatClock renders minutes from midnight as "HH:MM".
func formatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// parseInterval converts a start/end clock pair.
func parseInterval(startTime, endTime string) (Interval, error) {
	start, err := parseClock(startTime)
	if err != nil {
		return Interval{}, err
	}
	end, err := parseClock(endTime)
	if err != nil {
		return Interval{}, err
	}
	return Interval{Start: start, End: end}, nil
}

// normalizeIntervals sorts intervals and merges overlapping or touching ones.
func normalizeIntervals(intervals []Interval) []Interval {
	filtered := make([]Interval, 0, len(intervals))
	for _, iv := range intervals {
		if iv.Start < iv.End {
			filtered = append(filtered, iv)
		}
	}
	if len(filtered) == 0 {
		return nil
	}
	sort.Slice(filtered, func(i, j int) bool { return filtered[i].Start < filtered[j].Start })

	merged := []Interval{filtered[0]}
	for _, iv := range filtered[1:] {
		last := &merged[len(merged)-1]
		if iv.Start <= last.End {
			if iv.End > last.End {
				last.End = iv.End
			}
			continue
		}
		merged = append(merged, iv)
	}
	return merged
}

// subtractIntervals removes cuts from each base interval.
func subtractIntervals(base []Interval, cuts []Interval) []Interval {
	base = normalizeIntervals(base)
	cuts = normalizeIntervals(cuts)
	if len(cuts) == 0 {
		return base
	}

	var result []Interval
	for _, iv := range base {
		current := iv
		for _, cut := range cuts {
			if !current.Overlaps(cut) {
				continue
			}
			if cut.Start > current.Start {
				result = append(result, Interval{Start: current.Start, End: cut.Start})
			}
			if cut.End >= current.End {
				current = Interval{}
				break
			}
			current = Interval{Start: cut.End, End: current.End}
		}
		if current.Duration() > 0 {
			result = append(result, current)
		}
	}
	return result
}

// intersectIntervals keeps only the minutes present in both sets.
func intersectIntervals(a, b []Interval) []Interval {
	a = normalizeIntervals(a)
	b = normalizeIntervals(b)

	var result []Interval
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		start := a[i].Start
		if b[j].Start > start {
			start = b[j].Start
		}
		end := a[i].End
		if b[j].End < end {
			end = b[j].End
		}
		if start < end {
			result = append(result, Interval{Start: start, End: end})
		}
		if a[i].End < b[j].End {
			i++
		} else {
			j++
		}
	}
	return result
}

// roundDownToUnit truncates minutes to a whole number of planning units.
func roundDownToUnit(minutes, unit int) int {
	if unit <= 0 {
		return minutes
	}
	return minutes - minutes%unit
}

// roundToUnit rounds minutes to the nearest whole planning unit.
func roundToUnit(minutes, unit int) int {
	if unit <= 0 {
		return minutes
	}
	remainder := minutes % unit
	if remainder*2 >= unit {
		return minutes + unit - remainder
	}
	return minutes - remainder
}

// hoursToMinutes converts fractional weekly hours into planning minutes,
// rounded to the given unit.
func hoursToMinutes(hours float64, unit int) int {
	minutes := int(hours*60 + 0.5)
	return roundToUnit(minutes, unit)
}

// weekStartOf normalizes any date to the Sunday starting its week, at
// midnight UTC.
func weekStartOf(t time.Time) time.Time {
	t = t.UTC()
	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return midnight.AddDate(0, 0, -int(midnight.Weekday()))
}

// ParseHorizon builds the daily planning window from HH:MM bounds.
func ParseHorizon(start, end string) (Interval, error) {
	return parseInterval(start, end)
}

// ParseWeekStart accepts a YYYY-MM-DD date and returns the week it falls in.
func ParseWeekStart(raw string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", raw)
	}
	return weekStartOf(t), nil
}
