// Package gaps computes uncovered sub-intervals of the daily observation
// window. Detection is a pure function over a day's analysis result and is
// deliberately forgiving: malformed timelines are sorted and clamped, never
// rejected, so gap checks stay available even when upstream validation
// missed something.
package gaps

import (
	"sort"
	"time"

	"github.com/mkarlsen/daylog/internal/busday"
	"github.com/mkarlsen/daylog/internal/timeline"
)

// Config bounds the observation window and filters noise gaps.
type Config struct {
	MinGapMinutes int
	StartHour     int
	StartMinute   int
	EndHour       int
	EndMinute     int
	DayStartHour  int
}

func DefaultConfig() Config {
	return Config{
		MinGapMinutes: 15,
		StartHour:     7,
		StartMinute:   30,
		EndHour:       18,
		EndMinute:     30,
		DayStartHour:  busday.DefaultDayStartHour,
	}
}

func (c Config) window() timeline.Window {
	return timeline.Window{
		StartHour:   c.StartHour,
		StartMinute: c.StartMinute,
		EndHour:     c.EndHour,
		EndMinute:   c.EndMinute,
	}
}

// Gap is a derived, never-persisted uncovered interval. It carries both the
// absolute instants and local-time counterparts for presentation.
type Gap struct {
	Start           time.Time
	End             time.Time
	StartLocal      time.Time
	EndLocal        time.Time
	DurationMinutes int
}

// DetectFromAnalysis returns the uncovered intervals of the observation
// window for the result's business date, in chronological order. When the
// business date is today, the window end is clamped to now so the unelapsed
// future is never reported as a gap.
func DetectFromAnalysis(res timeline.DailyResult, tz string, cfg Config, now time.Time) ([]Gap, error) {
	loc, err := busday.Location(tz)
	if err != nil {
		return nil, err
	}

	rangeStart, rangeEnd, err := cfg.window().Bounds(res.BusinessDate, loc)
	if err != nil {
		return nil, err
	}

	today, err := busday.DateOf(now, tz, cfg.DayStartHour)
	if err != nil {
		return nil, err
	}
	if today == res.BusinessDate && now.Before(rangeEnd) {
		rangeEnd = now
	}
	if !rangeEnd.After(rangeStart) {
		return nil, nil
	}

	covered := coverage(res.Timeline, rangeStart, rangeEnd)

	minGap := time.Duration(cfg.MinGapMinutes) * time.Minute
	var out []Gap
	cursor := rangeStart
	for _, iv := range covered {
		appendGap(&out, cursor, iv.start, minGap, loc)
		if iv.end.After(cursor) {
			cursor = iv.end
		}
	}
	appendGap(&out, cursor, rangeEnd, minGap, loc)

	return out, nil
}

type interval struct {
	start, end time.Time
}

// coverage clips entries to the observation range, repairs inverted bounds
// and merges overlaps into a sorted, disjoint interval set.
func coverage(entries []timeline.Entry, rangeStart, rangeEnd time.Time) []interval {
	var ivs []interval
	for _, e := range entries {
		start, end := e.Start, e.End
		if end.Before(start) {
			start, end = end, start
		}
		if start.Before(rangeStart) {
			start = rangeStart
		}
		if end.After(rangeEnd) {
			end = rangeEnd
		}
		if !end.After(start) {
			continue
		}
		ivs = append(ivs, interval{start: start, end: end})
	}

	sort.Slice(ivs, func(i, j int) bool { return ivs[i].start.Before(ivs[j].start) })

	var merged []interval
	for _, iv := range ivs {
		if n := len(merged); n > 0 && !iv.start.After(merged[n-1].end) {
			if iv.end.After(merged[n-1].end) {
				merged[n-1].end = iv.end
			}
			continue
		}
		merged = append(merged, iv)
	}
	return merged
}

// appendGap emits [start, end) unless it is shorter than the minimum. Gaps
// below the threshold are discarded outright, never merged into neighbors.
func appendGap(out *[]Gap, start, end time.Time, minGap time.Duration, loc *time.Location) {
	d := end.Sub(start)
	if d < minGap {
		return
	}
	*out = append(*out, Gap{
		Start:           start,
		End:             end,
		StartLocal:      start.In(loc),
		EndLocal:        end.In(loc),
		DurationMinutes: int(d.Minutes()),
	})
}
