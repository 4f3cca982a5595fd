package extract

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkarlsen/daylog/internal/ai"
	"github.com/mkarlsen/daylog/internal/timeline"
)

func refTime(t *testing.T) (time.Time, *time.Location) {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Stockholm")
	require.NoError(t, err)
	return time.Date(2025, 3, 10, 14, 0, 0, 0, loc), loc
}

func TestExtract_ExplicitRange(t *testing.T) {
	ref, loc := refTime(t)

	r := Extract("10:00–11:00 meeting with the platform team", ref, loc, Context{})

	assert.Equal(t, timeline.MethodExplicit, r.Method)
	assert.GreaterOrEqual(t, r.Confidence, 0.9)
	assert.Equal(t, time.Date(2025, 3, 10, 10, 0, 0, 0, loc), r.Start)
	assert.Equal(t, time.Date(2025, 3, 10, 11, 0, 0, 0, loc), r.End)
}

func TestExtract_ExplicitRangeASCIIDash(t *testing.T) {
	ref, loc := refTime(t)

	r := Extract("standup 9.15-9.30", ref, loc, Context{})

	assert.Equal(t, timeline.MethodExplicit, r.Method)
	assert.Equal(t, time.Date(2025, 3, 10, 9, 15, 0, 0, loc), r.Start)
	assert.Equal(t, time.Date(2025, 3, 10, 9, 30, 0, 0, loc), r.End)
}

func TestExtract_SingleClockTime(t *testing.T) {
	ref, loc := refTime(t)

	r := Extract("lunch at 12:15", ref, loc, Context{})

	assert.Equal(t, timeline.MethodExplicit, r.Method)
	assert.InDelta(t, 0.90, r.Confidence, 1e-9)
	assert.Equal(t, time.Date(2025, 3, 10, 12, 15, 0, 0, loc), r.End)
	assert.Equal(t, DefaultDuration, r.End.Sub(r.Start))
}

func TestExtract_RangeCrossingMidnight(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Stockholm")
	require.NoError(t, err)
	// Note written shortly after midnight about late-evening work.
	ref := time.Date(2025, 3, 11, 0, 30, 0, 0, loc)

	r := Extract("deploy window 23:00-23:45", ref, loc, Context{})

	assert.Equal(t, timeline.MethodExplicit, r.Method)
	assert.Equal(t, time.Date(2025, 3, 10, 23, 0, 0, 0, loc), r.Start)
	assert.Equal(t, time.Date(2025, 3, 10, 23, 45, 0, 0, loc), r.End)
}

func TestExtract_RelativeAgo(t *testing.T) {
	ref, loc := refTime(t)

	r := Extract("finished the migration review 2 hours ago", ref, loc, Context{})

	assert.Equal(t, timeline.MethodRelative, r.Method)
	assert.GreaterOrEqual(t, r.Confidence, 0.7)
	assert.LessOrEqual(t, r.Confidence, 0.9)
	assert.Equal(t, ref.Add(-2*time.Hour), r.Start)
	assert.Equal(t, ref, r.End)
}

func TestExtract_JustNowWithDuration(t *testing.T) {
	ref, loc := refTime(t)

	r := Extract("pair debugging just now for 30 min", ref, loc, Context{})

	assert.Equal(t, timeline.MethodRelative, r.Method)
	assert.Equal(t, ref.Add(-30*time.Minute), r.Start)
	assert.Equal(t, ref, r.End)
}

func TestExtract_InferredFromPreviousNote(t *testing.T) {
	ref, loc := refTime(t)
	prevEnd := ref.Add(-90 * time.Minute)

	r := Extract("kept working on the importer", ref, loc, Context{PreviousEnd: prevEnd})

	assert.Equal(t, timeline.MethodInferred, r.Method)
	assert.GreaterOrEqual(t, r.Confidence, 0.5)
	assert.LessOrEqual(t, r.Confidence, 0.7)
	assert.Equal(t, prevEnd, r.Start)
	assert.Equal(t, ref, r.End)
}

func TestExtract_ContextualFallback(t *testing.T) {
	ref, loc := refTime(t)

	r := Extract("misc admin stuff", ref, loc, Context{})

	assert.Equal(t, timeline.MethodContextual, r.Method)
	assert.GreaterOrEqual(t, r.Confidence, 0.4)
	assert.LessOrEqual(t, r.Confidence, 0.6)
	assert.Equal(t, ref, r.End)
	assert.Equal(t, DefaultDuration, r.End.Sub(r.Start))
	assert.Empty(t, r.Warnings)
}

func TestExtract_ContextualUsesHintDuration(t *testing.T) {
	ref, loc := refTime(t)

	r := Extract("helped onboarding", ref, loc, Context{
		Hints: &ai.TimeHints{DurationMinutes: 45, Confidence: 0.6},
	})

	assert.Equal(t, timeline.MethodContextual, r.Method)
	assert.Equal(t, 45*time.Minute, r.End.Sub(r.Start))
}

func TestExtract_DegradedFallback(t *testing.T) {
	ref, loc := refTime(t)

	r := Extract("misc admin stuff", ref, loc, Context{Degraded: true})

	assert.Equal(t, timeline.MethodContextual, r.Method)
	assert.InDelta(t, 0.40, r.Confidence, 1e-9)
	require.Len(t, r.Warnings, 1)
	assert.Contains(t, r.Warnings[0], "text understanding unavailable")
}

func TestExtract_HintedExplicitClocks(t *testing.T) {
	ref, loc := refTime(t)

	// No parseable clock in the text, but the collaborator found one.
	r := Extract("morning sync from ten to eleven", ref, loc, Context{
		Hints: &ai.TimeHints{StartClock: "10:00", EndClock: "11:00", Confidence: 0.8},
	})

	assert.Equal(t, timeline.MethodExplicit, r.Method)
	assert.Equal(t, time.Date(2025, 3, 10, 10, 0, 0, 0, loc), r.Start)
	assert.Equal(t, time.Date(2025, 3, 10, 11, 0, 0, 0, loc), r.End)
}

func TestExtract_StrategyOrderExplicitWins(t *testing.T) {
	ref, loc := refTime(t)

	// Explicit clock range outranks the relative phrase in the same text.
	r := Extract("wrapped up 10:00-11:00 code review an hour ago", ref, loc, Context{
		PreviousEnd: ref.Add(-3 * time.Hour),
	})

	assert.Equal(t, timeline.MethodExplicit, r.Method)
}
