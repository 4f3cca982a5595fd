package content

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkarlsen/daylog/internal/ai"
)

func TestAnalyze_SingleActivity(t *testing.T) {
	a := Analyze("sprint planning with the team", nil)

	assert.Equal(t, "planning", a.Category)
	require.Len(t, a.Splits, 1)
	assert.InDelta(t, 1.0, a.Splits[0].Fraction, 1e-9)
	assert.Empty(t, a.Warnings)
}

func TestAnalyze_DeclaredSplits(t *testing.T) {
	a := Analyze("60% coding, 30% review, 10% admin", nil)

	require.Len(t, a.Splits, 3)
	assert.Equal(t, "coding", a.Splits[0].Label)
	assert.InDelta(t, 0.6, a.Splits[0].Fraction, 1e-9)
	assert.Equal(t, "review", a.Splits[1].Label)
	assert.InDelta(t, 0.3, a.Splits[1].Fraction, 1e-9)
	assert.Equal(t, "admin", a.Splits[2].Label)
	assert.InDelta(t, 0.1, a.Splits[2].Fraction, 1e-9)
	assert.Empty(t, a.Warnings)
}

func TestAnalyze_SplitsNormalizedWithWarning(t *testing.T) {
	a := Analyze("70% coding, 40% review", nil)

	require.Len(t, a.Splits, 2)
	sum := a.Splits[0].Fraction + a.Splits[1].Fraction
	assert.InDelta(t, 1.0, sum, 1e-9)
	assert.InDelta(t, 70.0/110, a.Splits[0].Fraction, 1e-9)
	require.Len(t, a.Warnings, 1)
	assert.Contains(t, a.Warnings[0], "normalized")
}

func TestAnalyze_SinglePercentageIsNotASplit(t *testing.T) {
	a := Analyze("finished about 80% of the importer", nil)

	require.Len(t, a.Splits, 1)
	assert.InDelta(t, 1.0, a.Splits[0].Fraction, 1e-9)
}

func TestAnalyze_HintsWinOverKeywords(t *testing.T) {
	a := Analyze("worked with Sara on the thing", &ai.CategoryHints{
		Category:    "Pairing",
		SubCategory: "Onboarding",
		Confidence:  0.8,
	})

	assert.Equal(t, "pairing", a.Category)
	assert.Equal(t, "onboarding", a.SubCategory)
}

func TestAnalyze_LowConfidenceHintsIgnored(t *testing.T) {
	a := Analyze("code review for the billing PR", &ai.CategoryHints{
		Category:   "mystery",
		Confidence: 0.2,
	})

	assert.Equal(t, "review", a.Category)
}

func TestAnalyze_HintedSplits(t *testing.T) {
	a := Analyze("half coding half helping support", &ai.CategoryHints{
		Category:   "coding",
		Confidence: 0.7,
		Splits: []ai.Split{
			{Label: "coding", Fraction: 0.5},
			{Label: "support", Fraction: 0.5},
		},
	})

	require.Len(t, a.Splits, 2)
	assert.Equal(t, "coding", a.Splits[0].Label)
	assert.Equal(t, "support", a.Splits[1].Label)
}

func TestCategorize(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"daily standup", "meeting"},
		{"reviewed the auth PR", "review"},
		{"debugging the flaky test", "coding"},
		{"answered emails", "email"},
		{"lunch with the team", "break"},
		{"incident response for the outage", "support"},
		{"wrote the Q3 design doc", "planning"},
		{"stared at the wall", "other"},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, Categorize(tt.text))
		})
	}
}
