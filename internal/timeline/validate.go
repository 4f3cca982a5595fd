package timeline

import (
	"fmt"
	"sort"
	"time"
)

// Window is a local-time observation range, e.g. 07:30–18:30.
type Window struct {
	StartHour   int
	StartMinute int
	EndHour     int
	EndMinute   int
}

func DefaultWindow() Window {
	return Window{StartHour: 7, StartMinute: 30, EndHour: 18, EndMinute: 30}
}

// Bounds returns the window's concrete instants on the given business date.
func (w Window) Bounds(businessDate string, loc *time.Location) (time.Time, time.Time, error) {
	day, err := time.ParseInLocation("2006-01-02", businessDate, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parsing business date: %w", err)
	}
	start := day.Add(time.Duration(w.StartHour)*time.Hour + time.Duration(w.StartMinute)*time.Minute)
	end := day.Add(time.Duration(w.EndHour)*time.Hour + time.Duration(w.EndMinute)*time.Minute)
	return start, end, nil
}

const (
	reversalTolerance    = time.Minute
	implausibleDuration  = 12 * time.Hour
	overlapWarnThreshold = time.Minute
)

// Validate checks a business date's entries for time-consistency problems and
// returns human-readable warnings. It never drops or mutates entries; every
// check is independent and non-fatal. Entries are expected in note-input
// order, which is what the reversal check keys on.
func Validate(entries []Entry, businessDate string, loc *time.Location, window Window) []string {
	var warnings []string
	if len(entries) == 0 {
		return warnings
	}

	rangeStart, rangeEnd, err := window.Bounds(businessDate, loc)
	windowKnown := err == nil

	for _, e := range entries {
		if d := e.Duration(); d <= 0 || d > implausibleDuration {
			warnings = append(warnings, fmt.Sprintf(
				"implausible duration of %s for %q entry at %s",
				d.Truncate(time.Minute), e.Category, e.Start.In(loc).Format("15:04")))
		}
		if windowKnown && (e.End.Before(rangeStart) || e.Start.After(rangeEnd)) {
			warnings = append(warnings, fmt.Sprintf(
				"%q entry at %s is outside working hours",
				e.Category, e.Start.In(loc).Format("15:04")))
		}
	}

	// A later note whose window starts before the previous note's end, beyond
	// a small tolerance, means the extracted order contradicts the input order.
	for i := 1; i < len(entries); i++ {
		prev, cur := entries[i-1], entries[i]
		if cur.SourceNoteID == prev.SourceNoteID {
			continue
		}
		if cur.Start.Add(reversalTolerance).Before(prev.End) {
			warnings = append(warnings, fmt.Sprintf(
				"time reversal: %q starts %s before the previous note ends",
				cur.Category, prev.End.Sub(cur.Start).Truncate(time.Minute)))
		}
	}

	// Overlap is measured on the time-sorted view. Entries from the same note
	// with identical bounds are a declared parallel split and never warn.
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start.Before(sorted[j].Start) })

	for i := 1; i < len(sorted); i++ {
		prev, cur := sorted[i-1], sorted[i]
		declaredSplit := prev.SourceNoteID == cur.SourceNoteID &&
			prev.Start.Equal(cur.Start) && prev.End.Equal(cur.End)
		if declaredSplit {
			continue
		}
		if cur.Start.Before(prev.End) {
			overlap := prev.End.Sub(cur.Start)
			if cur.End.Before(prev.End) {
				overlap = cur.Duration()
			}
			if overlap > overlapWarnThreshold {
				warnings = append(warnings, fmt.Sprintf(
					"unexpected overlap of %dm between %q and %q",
					int(overlap.Minutes()), prev.Category, cur.Category))
			}
		}
	}

	return warnings
}
