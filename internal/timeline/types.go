// Package timeline holds the derived data model: entries, daily results and
// the consistency validator. Everything here is recomputable from raw notes;
// nothing is a source of truth.
package timeline

import (
	"math"
	"time"
)

// Method identifies the strategy that produced a note's time bounds.
type Method string

const (
	MethodExplicit   Method = "explicit"
	MethodRelative   Method = "relative"
	MethodInferred   Method = "inferred"
	MethodContextual Method = "contextual"
)

// Entry is one contiguous inferred activity interval. Entries produced from a
// percentage split share the same bounds and source note; Minutes carries each
// entry's accounted share of the window.
type Entry struct {
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`
	Category     string    `json:"category"`
	SubCategory  string    `json:"sub_category,omitempty"`
	SourceNoteID string    `json:"source_note_id"`
	Method       Method    `json:"method"`
	Confidence   float64   `json:"confidence"`
	Minutes      int       `json:"minutes"`
}

// Duration returns the span of the entry's bounds, which for split entries is
// larger than the accounted Minutes.
func (e Entry) Duration() time.Duration {
	return e.End.Sub(e.Start)
}

// DailyResult is the cached view of one user's business day.
type DailyResult struct {
	UserID       string    `json:"user_id"`
	BusinessDate string    `json:"business_date"`
	Timeline     []Entry   `json:"timeline"`
	TotalMinutes int       `json:"total_minutes"`
	Confidence   float64   `json:"confidence"`
	Warnings     []string  `json:"warnings,omitempty"`
	NoteVersion  int64     `json:"note_version"`
	GeneratedAt  time.Time `json:"generated_at"`
}

// warningPenalty is applied once per warning to the aggregate confidence.
// Warnings reduce trust, they never increase it.
const (
	warningPenalty  = 0.97
	confidenceFloor = 0.2
)

// AggregateConfidence computes the duration-weighted mean of per-entry
// confidences, discounted per warning. Long entries dominate the score.
func AggregateConfidence(entries []Entry, warningCount int) float64 {
	if len(entries) == 0 {
		return 0
	}
	var weighted, total float64
	for _, e := range entries {
		w := float64(e.Minutes)
		if w <= 0 {
			w = 1
		}
		weighted += e.Confidence * w
		total += w
	}
	score := weighted / total
	score *= math.Pow(warningPenalty, float64(warningCount))
	if score < confidenceFloor {
		score = confidenceFloor
	}
	return score
}

// SumMinutes totals the accounted minutes across entries.
func SumMinutes(entries []Entry) int {
	sum := 0
	for _, e := range entries {
		sum += e.Minutes
	}
	return sum
}
