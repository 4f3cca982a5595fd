package timeline

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustLoc(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	require.NoError(t, err)
	return loc
}

func entryAt(t *testing.T, loc *time.Location, noteID, category, start, end string) Entry {
	t.Helper()
	s, err := time.ParseInLocation("2006-01-02 15:04", "2025-03-10 "+start, loc)
	require.NoError(t, err)
	e, err := time.ParseInLocation("2006-01-02 15:04", "2025-03-10 "+end, loc)
	require.NoError(t, err)
	return Entry{
		Start:        s,
		End:          e,
		Category:     category,
		SourceNoteID: noteID,
		Method:       MethodExplicit,
		Confidence:   0.9,
		Minutes:      int(e.Sub(s).Minutes()),
	}
}

func TestValidate_CleanTimeline(t *testing.T) {
	loc := mustLoc(t, "Europe/Stockholm")
	entries := []Entry{
		entryAt(t, loc, "n1", "coding", "09:00", "10:00"),
		entryAt(t, loc, "n2", "meeting", "10:00", "11:00"),
	}
	warnings := Validate(entries, "2025-03-10", loc, DefaultWindow())
	assert.Empty(t, warnings)
}

func TestValidate_UnexpectedOverlap(t *testing.T) {
	loc := mustLoc(t, "Europe/Stockholm")
	entries := []Entry{
		entryAt(t, loc, "n1", "coding", "09:00", "10:30"),
		entryAt(t, loc, "n2", "meeting", "10:00", "11:00"),
	}
	warnings := Validate(entries, "2025-03-10", loc, DefaultWindow())
	require.NotEmpty(t, warnings)
	assert.Contains(t, strings.Join(warnings, "\n"), "unexpected overlap of 30m")
}

func TestValidate_DeclaredSplitDoesNotWarn(t *testing.T) {
	loc := mustLoc(t, "Europe/Stockholm")
	// Two entries from the same note sharing bounds: a declared parallel split.
	a := entryAt(t, loc, "n1", "coding", "09:00", "11:00")
	a.Minutes = 72
	b := entryAt(t, loc, "n1", "review", "09:00", "11:00")
	b.Minutes = 48
	warnings := Validate([]Entry{a, b}, "2025-03-10", loc, DefaultWindow())
	for _, w := range warnings {
		assert.NotContains(t, w, "unexpected overlap")
	}
}

func TestValidate_TimeReversal(t *testing.T) {
	loc := mustLoc(t, "Europe/Stockholm")
	entries := []Entry{
		entryAt(t, loc, "n1", "meeting", "10:00", "11:00"),
		entryAt(t, loc, "n2", "coding", "09:00", "09:45"),
	}
	warnings := Validate(entries, "2025-03-10", loc, DefaultWindow())
	assert.Contains(t, strings.Join(warnings, "\n"), "time reversal")
}

func TestValidate_OutsideWorkingHours(t *testing.T) {
	loc := mustLoc(t, "Europe/Stockholm")
	entries := []Entry{
		entryAt(t, loc, "n1", "coding", "22:00", "23:00"),
	}
	warnings := Validate(entries, "2025-03-10", loc, DefaultWindow())
	assert.Contains(t, strings.Join(warnings, "\n"), "outside working hours")
}

func TestValidate_ImplausibleDuration(t *testing.T) {
	loc := mustLoc(t, "Europe/Stockholm")
	zero := entryAt(t, loc, "n1", "coding", "09:00", "09:00")
	warnings := Validate([]Entry{zero}, "2025-03-10", loc, DefaultWindow())
	assert.Contains(t, strings.Join(warnings, "\n"), "implausible duration")

	long := entryAt(t, loc, "n2", "coding", "06:00", "19:30")
	long.End = long.End.Add(3 * time.Hour) // 16.5h
	warnings = Validate([]Entry{long}, "2025-03-10", loc, DefaultWindow())
	assert.Contains(t, strings.Join(warnings, "\n"), "implausible duration")
}

func TestValidate_NeverMutatesEntries(t *testing.T) {
	loc := mustLoc(t, "Europe/Stockholm")
	entries := []Entry{
		entryAt(t, loc, "n2", "meeting", "10:00", "11:00"),
		entryAt(t, loc, "n1", "coding", "09:00", "10:30"),
	}
	before := make([]Entry, len(entries))
	copy(before, entries)
	Validate(entries, "2025-03-10", loc, DefaultWindow())
	assert.Equal(t, before, entries)
}

func TestAggregateConfidence_DurationWeighted(t *testing.T) {
	loc := mustLoc(t, "Europe/Stockholm")
	long := entryAt(t, loc, "n1", "coding", "09:00", "13:00") // 240m
	long.Confidence = 0.9
	short := entryAt(t, loc, "n2", "break", "13:00", "13:30") // 30m
	short.Confidence = 0.3

	got := AggregateConfidence([]Entry{long, short}, 0)
	want := (0.9*240 + 0.3*30) / 270
	assert.InDelta(t, want, got, 1e-9)
}

func TestAggregateConfidence_WarningsOnlyReduce(t *testing.T) {
	loc := mustLoc(t, "Europe/Stockholm")
	e := entryAt(t, loc, "n1", "coding", "09:00", "10:00")
	e.Confidence = 0.8

	clean := AggregateConfidence([]Entry{e}, 0)
	warned := AggregateConfidence([]Entry{e}, 3)
	assert.Less(t, warned, clean)

	// Heavy warning counts bottom out at the floor instead of going to zero.
	floor := AggregateConfidence([]Entry{e}, 1000)
	assert.InDelta(t, 0.2, floor, 1e-9)
}

func TestAggregateConfidence_Empty(t *testing.T) {
	assert.Zero(t, AggregateConfidence(nil, 0))
}
