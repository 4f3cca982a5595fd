// Package analyzer orchestrates per-note analysis into a day's timeline:
// time extraction and content analysis per note, validation over the merged
// entry list, confidence aggregation and cache read/write. Each merge step
// takes the prior result by value and returns a new one, so a full-day replay
// and incremental merges agree by construction.
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/mkarlsen/daylog/internal/ai"
	"github.com/mkarlsen/daylog/internal/busday"
	"github.com/mkarlsen/daylog/internal/cache"
	"github.com/mkarlsen/daylog/internal/content"
	"github.com/mkarlsen/daylog/internal/extract"
	"github.com/mkarlsen/daylog/internal/store"
	"github.com/mkarlsen/daylog/internal/timeline"
)

const inferTimeout = 30 * time.Second

// NoteStore is the raw-note collaborator; the sqlite store satisfies it.
type NoteStore interface {
	AddNote(n *store.Note) error
	ListNotes(userID, businessDate string) ([]store.Note, error)
	Revision(userID, businessDate string) (int64, error)
}

// Options are the scalar settings the analyzer honors.
type Options struct {
	Timezone     string
	DayStartHour int
	Window       timeline.Window
}

func DefaultOptions() Options {
	return Options{
		Timezone:     "Local",
		DayStartHour: busday.DefaultDayStartHour,
		Window:       timeline.DefaultWindow(),
	}
}

type Analyzer struct {
	notes    NoteStore
	provider ai.Provider
	cache    *cache.Service
	opts     Options
	logger   *slog.Logger
	now      func() time.Time
}

// New wires the analyzer. provider may be nil: every note then takes the
// degraded path. c may be nil to disable caching entirely.
func New(notes NoteStore, provider ai.Provider, c *cache.Service, opts Options, logger *slog.Logger) *Analyzer {
	if opts.Timezone == "" {
		opts.Timezone = "Local"
	}
	if opts.DayStartHour == 0 {
		opts.DayStartHour = busday.DefaultDayStartHour
	}
	if opts.Window == (timeline.Window{}) {
		opts.Window = timeline.DefaultWindow()
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Analyzer{
		notes:    notes,
		provider: provider,
		cache:    c,
		opts:     opts,
		logger:   logger,
		now:      time.Now,
	}
}

// MergeNote folds one note into the prior daily result and returns the new
// result. The prior value is never mutated. Extraction and content analysis
// run concurrently; neither reads the other's output.
func (a *Analyzer) MergeNote(ctx context.Context, prior timeline.DailyResult, note store.Note) (timeline.DailyResult, error) {
	loc, err := busday.Location(a.opts.Timezone)
	if err != nil {
		return timeline.DailyResult{}, err
	}

	hints, degraded := a.infer(ctx, note)

	var prevEnd time.Time
	if n := len(prior.Timeline); n > 0 {
		prevEnd = prior.Timeline[n-1].End
	}

	exCh := make(chan extract.Result, 1)
	anCh := make(chan content.Analysis, 1)
	go func() {
		var th *ai.TimeHints
		if hints != nil {
			th = &hints.Time
		}
		exCh <- extract.Extract(note.Text, note.InputTimestamp, loc, extract.Context{
			PreviousEnd: prevEnd,
			Hints:       th,
			Degraded:    degraded,
		})
	}()
	go func() {
		var ch *ai.CategoryHints
		if hints != nil {
			ch = &hints.Category
		}
		anCh <- content.Analyze(note.Text, ch)
	}()
	ex, an := <-exCh, <-anCh

	next := cloneResult(prior)
	next.Warnings = append(next.Warnings, ex.Warnings...)
	next.Warnings = append(next.Warnings, an.Warnings...)

	totalMinutes := ex.End.Sub(ex.Start).Minutes()
	for _, split := range an.Splits {
		category := content.Categorize(split.Label)
		if category == "other" && len(an.Splits) == 1 {
			category = an.Category
		}
		next.Timeline = append(next.Timeline, timeline.Entry{
			Start:        ex.Start,
			End:          ex.End,
			Category:     category,
			SubCategory:  an.SubCategory,
			SourceNoteID: note.ID,
			Method:       ex.Method,
			Confidence:   ex.Confidence,
			Minutes:      int(math.Round(totalMinutes * split.Fraction)),
		})
	}

	next.Warnings = dedupe(append(next.Warnings,
		timeline.Validate(next.Timeline, prior.BusinessDate, loc, a.opts.Window)...))
	next.TotalMinutes = timeline.SumMinutes(next.Timeline)
	next.Confidence = timeline.AggregateConfidence(next.Timeline, len(next.Warnings))
	next.GeneratedAt = a.now()

	return next, nil
}

// AnalyzeDaily produces the full daily result for a (user, business date),
// from cache when fresh, otherwise by replaying all non-deleted notes in
// input-timestamp order. forceRefresh bypasses the cache read but still
// writes back.
func (a *Analyzer) AnalyzeDaily(ctx context.Context, userID, businessDate string, forceRefresh bool) (timeline.DailyResult, error) {
	if a.cache != nil && !forceRefresh {
		if res, ok := a.cache.Get(userID, businessDate); ok {
			a.logger.Debug("analysis cache hit", "user", userID, "date", businessDate)
			return res, nil
		}
	}

	notes, err := a.notes.ListNotes(userID, businessDate)
	if err != nil {
		return timeline.DailyResult{}, fmt.Errorf("listing notes: %w", err)
	}
	rev, err := a.notes.Revision(userID, businessDate)
	if err != nil {
		return timeline.DailyResult{}, fmt.Errorf("reading note revision: %w", err)
	}

	// The store orders by input timestamp already; sorting again keeps the
	// replay deterministic even for stores that don't.
	sort.SliceStable(notes, func(i, j int) bool {
		if notes[i].InputTimestamp.Equal(notes[j].InputTimestamp) {
			return notes[i].ID < notes[j].ID
		}
		return notes[i].InputTimestamp.Before(notes[j].InputTimestamp)
	})

	res := timeline.DailyResult{
		UserID:       userID,
		BusinessDate: businessDate,
		NoteVersion:  rev,
	}
	for _, note := range notes {
		res, err = a.MergeNote(ctx, res, note)
		if err != nil {
			return timeline.DailyResult{}, err
		}
	}
	res.UserID = userID
	res.BusinessDate = businessDate
	res.NoteVersion = rev
	res.GeneratedAt = a.now()

	if a.cache != nil {
		a.cache.Put(userID, businessDate, res)
	}

	a.logger.Debug("daily analysis computed",
		"user", userID,
		"date", businessDate,
		"entries", len(res.Timeline),
		"warnings", len(res.Warnings),
		"confidence", res.Confidence,
	)
	return res, nil
}

// IngestNote stores a new note and returns the updated daily result. The
// cached day is invalidated first; when a fresh prior result exists the note
// is merged incrementally, otherwise the day is replayed.
func (a *Analyzer) IngestNote(ctx context.Context, userID, text string, at time.Time) (timeline.DailyResult, error) {
	info, err := busday.InfoFor(at, a.opts.Timezone, a.opts.DayStartHour)
	if err != nil {
		return timeline.DailyResult{}, err
	}

	prior, havePrior := timeline.DailyResult{}, false
	if a.cache != nil {
		prior, havePrior = a.cache.Get(userID, info.BusinessDate)
	}

	note := store.Note{
		UserID:         userID,
		Text:           text,
		InputTimestamp: at,
		BusinessDate:   info.BusinessDate,
	}
	if err := a.notes.AddNote(&note); err != nil {
		return timeline.DailyResult{}, fmt.Errorf("storing note: %w", err)
	}
	if a.cache != nil {
		a.cache.Invalidate(userID, info.BusinessDate)
	}

	if havePrior {
		next, err := a.MergeNote(ctx, prior, note)
		if err != nil {
			return timeline.DailyResult{}, err
		}
		rev, err := a.notes.Revision(userID, info.BusinessDate)
		if err != nil {
			return timeline.DailyResult{}, fmt.Errorf("reading note revision: %w", err)
		}
		next.UserID = userID
		next.BusinessDate = info.BusinessDate
		next.NoteVersion = rev
		if a.cache != nil {
			a.cache.Put(userID, info.BusinessDate, next)
		}
		return next, nil
	}

	return a.AnalyzeDaily(ctx, userID, info.BusinessDate, true)
}

// infer calls the text-understanding collaborator once for the note. Any
// failure degrades to nil hints; it is never surfaced as an error.
func (a *Analyzer) infer(ctx context.Context, note store.Note) (*ai.Inference, bool) {
	if a.provider == nil {
		return nil, true
	}

	inferCtx, cancel := context.WithTimeout(ctx, inferTimeout)
	defer cancel()

	inf, err := a.provider.Infer(inferCtx, note.Text, note.InputTimestamp)
	if err != nil {
		if !errors.Is(err, ai.ErrUnavailable) {
			a.logger.Error("text understanding failed", "note", note.ID, "error", err)
		} else {
			a.logger.Debug("text understanding unavailable, degrading", "note", note.ID)
		}
		return nil, true
	}
	return inf, false
}

func cloneResult(r timeline.DailyResult) timeline.DailyResult {
	next := r
	next.Timeline = make([]timeline.Entry, len(r.Timeline))
	copy(next.Timeline, r.Timeline)
	next.Warnings = make([]string, len(r.Warnings))
	copy(next.Warnings, r.Warnings)
	return next
}

// dedupe drops repeated warnings while preserving first-seen order; the
// validator re-examines the whole timeline on every merge and would
// otherwise repeat earlier findings.
func dedupe(warnings []string) []string {
	seen := make(map[string]bool, len(warnings))
	var out []string
	for _, w := range warnings {
		if seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
	}
	return out
}
