// Package extract derives time bounds for a single note from natural-language
// cues. Strategies are ordered guards, first applicable wins: explicit clock
// times, relative phrases anchored to the note's timestamp, a window inferred
// from the previous note, and finally a contextual fallback.
package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/tj/go-naturaldate"

	"github.com/mkarlsen/daylog/internal/ai"
	"github.com/mkarlsen/daylog/internal/timeline"
)

// Confidence priors per strategy. Tunable defaults, not contract.
const (
	confidenceExplicitRange  = 0.95
	confidenceExplicitSingle = 0.90
	confidenceRelative       = 0.80
	confidenceInferred       = 0.60
	confidenceContextual     = 0.50
	confidenceDegraded       = 0.40
)

// DefaultDuration is assumed when a note states a single point in time or no
// time at all.
const DefaultDuration = 60 * time.Minute

// Context carries what the extractor may use beyond the note text itself.
type Context struct {
	// PreviousEnd is the end of the prior note's window on the same business
	// date, zero for the first note of the day.
	PreviousEnd time.Time
	// Hints is the text-understanding output for this note, nil when the
	// collaborator was unavailable or skipped.
	Hints *ai.TimeHints
	// Degraded is set when the collaborator failed; the contextual fallback
	// then reports the bottom of its confidence range.
	Degraded bool
}

// Result is the extraction outcome for one note.
type Result struct {
	Start      time.Time
	End        time.Time
	Method     timeline.Method
	Confidence float64
	Warnings   []string
}

var (
	clockRangeRe = regexp.MustCompile(`(?i)\b(\d{1,2})[:.](\d{2})\s*(?:-|–|—|~|to|until)\s*(\d{1,2})[:.](\d{2})\b`)
	clockOnceRe  = regexp.MustCompile(`\b(\d{1,2}):(\d{2})\b`)
	durationRe   = regexp.MustCompile(`(?i)\b(\d+(?:\.\d+)?)\s*(hours?|hrs?|h|minutes?|mins?|min|m)\b`)
	relPhraseRe  = regexp.MustCompile(`(?i)\b((?:a|an|half an|\d+)\s+(?:hours?|minutes?|mins?)\s+ago|just now|earlier today|this morning|this afternoon|yesterday evening|at noon)\b`)
)

// Extract selects the first applicable strategy for the note text. It is pure
// with respect to its inputs; the collaborator call happens upstream and
// arrives here as Context.Hints.
func Extract(text string, reference time.Time, loc *time.Location, c Context) Result {
	ref := reference.In(loc)

	if r, ok := explicitFromText(text, ref); ok {
		return r
	}
	if r, ok := explicitFromHints(c.Hints, ref); ok {
		return r
	}
	if r, ok := relative(text, ref); ok {
		return r
	}
	if r, ok := inferred(c.PreviousEnd, ref); ok {
		return r
	}
	return contextual(text, ref, c)
}

// explicitFromText handles "10:00–11:00" ranges and single clock times like
// "lunch at 12:15" (end-anchored to the default duration).
func explicitFromText(text string, ref time.Time) (Result, bool) {
	if m := clockRangeRe.FindStringSubmatch(text); m != nil {
		start, okS := clockOnDay(ref, m[1], m[2])
		end, okE := clockOnDay(ref, m[3], m[4])
		if okS && okE {
			if !end.After(start) {
				end = end.Add(24 * time.Hour)
			}
			start, end = rebaseToPast(start, end, ref)
			return Result{Start: start, End: end, Method: timeline.MethodExplicit, Confidence: confidenceExplicitRange}, true
		}
	}

	if m := clockOnceRe.FindStringSubmatch(text); m != nil {
		end, ok := clockOnDay(ref, m[1], m[2])
		if ok {
			start := end.Add(-DefaultDuration)
			start, end = rebaseToPast(start, end, ref)
			return Result{Start: start, End: end, Method: timeline.MethodExplicit, Confidence: confidenceExplicitSingle}, true
		}
	}

	return Result{}, false
}

// explicitFromHints promotes collaborator clock evidence that the local
// regexes missed (spelled-out times, other languages). Still the explicit
// strategy, at the bottom of its confidence range.
func explicitFromHints(hints *ai.TimeHints, ref time.Time) (Result, bool) {
	if hints == nil || hints.StartClock == "" || hints.EndClock == "" || hints.Confidence < 0.5 {
		return Result{}, false
	}
	start, okS := clockFromString(ref, hints.StartClock)
	end, okE := clockFromString(ref, hints.EndClock)
	if !okS || !okE {
		return Result{}, false
	}
	if !end.After(start) {
		end = end.Add(24 * time.Hour)
	}
	start, end = rebaseToPast(start, end, ref)
	return Result{Start: start, End: end, Method: timeline.MethodExplicit, Confidence: confidenceExplicitSingle}, true
}

// relative anchors phrases like "2 hours ago" or "just now for 30 min" to the
// note's timestamp.
func relative(text string, ref time.Time) (Result, bool) {
	phrase := strings.ToLower(relPhraseRe.FindString(text))
	if phrase == "" {
		return Result{}, false
	}
	// naturaldate's grammar knows "now" but not the colloquial "just now".
	phrase = strings.TrimPrefix(phrase, "just ")

	anchor, err := naturaldate.Parse(phrase, ref, naturaldate.WithDirection(naturaldate.Past))
	if err != nil {
		return Result{}, false
	}

	dur, hasDur := durationFromText(text)

	switch {
	case anchor.Before(ref):
		end := ref
		if hasDur {
			end = anchor.Add(dur)
			if end.After(ref) {
				end = ref
			}
		}
		if !end.After(anchor) {
			return Result{}, false
		}
		return Result{Start: anchor, End: end, Method: timeline.MethodRelative, Confidence: confidenceRelative}, true
	case anchor.Equal(ref) && hasDur:
		// "just now for 30 min": the activity ran up to the note.
		return Result{Start: ref.Add(-dur), End: ref, Method: timeline.MethodRelative, Confidence: confidenceRelative}, true
	default:
		return Result{}, false
	}
}

// inferred fills the window between the previous note's end and this note.
func inferred(previousEnd, ref time.Time) (Result, bool) {
	if previousEnd.IsZero() || !previousEnd.Before(ref) {
		return Result{}, false
	}
	if ref.Sub(previousEnd) < time.Minute {
		return Result{}, false
	}
	return Result{Start: previousEnd, End: ref, Method: timeline.MethodInferred, Confidence: confidenceInferred}, true
}

// contextual is the last resort: a window ending at the note's timestamp,
// sized by collaborator hints when present, the default duration otherwise.
func contextual(text string, ref time.Time, c Context) Result {
	dur := DefaultDuration
	if c.Hints != nil && c.Hints.DurationMinutes > 0 {
		dur = time.Duration(c.Hints.DurationMinutes) * time.Minute
	} else if d, ok := durationFromText(text); ok {
		dur = d
	}

	r := Result{
		Start:      ref.Add(-dur),
		End:        ref,
		Method:     timeline.MethodContextual,
		Confidence: confidenceContextual,
	}
	if c.Degraded {
		r.Confidence = confidenceDegraded
		r.Warnings = append(r.Warnings, "text understanding unavailable, low-confidence time window assumed")
	}
	return r
}

func durationFromText(text string) (time.Duration, bool) {
	m := durationRe.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	n, err := strconv.ParseFloat(m[1], 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	unit := strings.ToLower(m[2])
	if strings.HasPrefix(unit, "h") {
		return time.Duration(n * float64(time.Hour)), true
	}
	return time.Duration(n * float64(time.Minute)), true
}

// clockOnDay places HH:MM on the reference's local calendar day.
func clockOnDay(ref time.Time, hh, mm string) (time.Time, bool) {
	h, err := strconv.Atoi(hh)
	if err != nil || h > 23 {
		return time.Time{}, false
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m > 59 {
		return time.Time{}, false
	}
	return time.Date(ref.Year(), ref.Month(), ref.Day(), h, m, 0, 0, ref.Location()), true
}

func clockFromString(ref time.Time, clock string) (time.Time, bool) {
	hh, mm, ok := strings.Cut(clock, ":")
	if !ok {
		return time.Time{}, false
	}
	return clockOnDay(ref, hh, mm)
}

// rebaseToPast shifts a window back one day when it lands ahead of the note's
// timestamp: a note written after midnight about "23:00 to 23:45" means the
// previous calendar day.
func rebaseToPast(start, end, ref time.Time) (time.Time, time.Time) {
	if start.After(ref.Add(5 * time.Minute)) {
		return start.AddDate(0, 0, -1), end.AddDate(0, 0, -1)
	}
	return start, end
}
