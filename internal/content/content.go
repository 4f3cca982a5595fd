// Package content labels a note's activity and parses concurrent-activity
// percentage splits like "60% coding, 30% review, 10% other".
package content

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/mkarlsen/daylog/internal/ai"
)

// Split is one labelled share of a note's duration. Fractions across a note
// sum to 1 after normalization.
type Split struct {
	Label    string
	Fraction float64
}

// Analysis is the categorization outcome for one note. A note without
// declared splits gets a single implicit 100% split.
type Analysis struct {
	Category    string
	SubCategory string
	Splits      []Split
	Warnings    []string
}

const splitTolerance = 0.01

var splitRe = regexp.MustCompile(`(\d{1,3})\s*%\s*([\p{L}][\p{L}\d /&_-]*)`)

// categoryKeywords maps lowercase substrings to category labels, checked in
// order so the more specific labels win.
var categoryKeywords = []struct {
	keyword  string
	category string
}{
	{"standup", "meeting"},
	{"retro", "meeting"},
	{"1:1", "meeting"},
	{"sync", "meeting"},
	{"meeting", "meeting"},
	{"demo", "meeting"},
	{"call", "meeting"},
	{"interview", "meeting"},
	{"pull request", "review"},
	{"code review", "review"},
	{"review", "review"},
	{"refactor", "coding"},
	{"debug", "coding"},
	{"bugfix", "coding"},
	{"implement", "coding"},
	{"coding", "coding"},
	{"code", "coding"},
	{"deploy", "coding"},
	{"migration", "coding"},
	{"design doc", "planning"},
	{"planning", "planning"},
	{"plan", "planning"},
	{"estimate", "planning"},
	{"incident", "support"},
	{"on-call", "support"},
	{"oncall", "support"},
	{"support", "support"},
	{"email", "email"},
	{"mail", "email"},
	{"admin", "admin"},
	{"expense", "admin"},
	{"invoice", "admin"},
	{"paperwork", "admin"},
	{"lunch", "break"},
	{"coffee", "break"},
	{"break", "break"},
}

// Categorize maps free text to a category label, "other" when nothing matches.
func Categorize(text string) string {
	lower := strings.ToLower(text)
	for _, kc := range categoryKeywords {
		if strings.Contains(lower, kc.keyword) {
			return kc.category
		}
	}
	return "other"
}

// Analyze labels the note and extracts declared splits. Collaborator hints
// take precedence over the keyword table when they are confident enough;
// split fractions off by more than 1% are normalized with a warning.
func Analyze(text string, hints *ai.CategoryHints) Analysis {
	a := Analysis{}

	a.Splits, a.Warnings = parseSplits(text)
	if len(a.Splits) == 0 && hints != nil && len(hints.Splits) > 0 {
		a.Splits, a.Warnings = normalizeHintSplits(hints.Splits)
	}

	if hints != nil && hints.Category != "" && hints.Confidence >= 0.5 {
		a.Category = strings.ToLower(hints.Category)
		a.SubCategory = strings.ToLower(hints.SubCategory)
	} else {
		a.Category = Categorize(text)
	}

	// No declared splits: the whole note is one implicit 100% share.
	if len(a.Splits) == 0 {
		a.Splits = []Split{{Label: a.Category, Fraction: 1}}
	}

	return a
}

func parseSplits(text string) ([]Split, []string) {
	matches := splitRe.FindAllStringSubmatch(text, -1)
	if len(matches) < 2 {
		// A single percentage is not a concurrent-activity declaration.
		return nil, nil
	}

	var splits []Split
	sum := 0.0
	for _, m := range matches {
		pct, err := strconv.Atoi(m[1])
		if err != nil || pct <= 0 {
			continue
		}
		label := cleanLabel(m[2])
		if label == "" {
			continue
		}
		f := float64(pct) / 100
		splits = append(splits, Split{Label: label, Fraction: f})
		sum += f
	}
	if len(splits) < 2 {
		return nil, nil
	}

	var warnings []string
	if math.Abs(sum-1) > splitTolerance {
		for i := range splits {
			splits[i].Fraction /= sum
		}
		warnings = append(warnings, fmt.Sprintf(
			"declared splits sum to %d%%, normalized to 100%%", int(math.Round(sum*100))))
	}
	return splits, warnings
}

func normalizeHintSplits(hinted []ai.Split) ([]Split, []string) {
	var splits []Split
	sum := 0.0
	for _, s := range hinted {
		if s.Fraction <= 0 || s.Label == "" {
			continue
		}
		splits = append(splits, Split{Label: strings.ToLower(s.Label), Fraction: s.Fraction})
		sum += s.Fraction
	}
	if len(splits) < 2 {
		return nil, nil
	}

	var warnings []string
	if math.Abs(sum-1) > splitTolerance {
		for i := range splits {
			splits[i].Fraction /= sum
		}
		warnings = append(warnings, fmt.Sprintf(
			"hinted splits sum to %d%%, normalized to 100%%", int(math.Round(sum*100))))
	}
	return splits, warnings
}

func cleanLabel(raw string) string {
	label := strings.ToLower(strings.TrimSpace(raw))
	label = strings.TrimSuffix(label, " and")
	// The label pattern can swallow the leading digits of the next
	// percentage when splits are not comma-separated; drop them.
	return strings.TrimRight(strings.Trim(label, " ,;-"), "0123456789 ")
}
