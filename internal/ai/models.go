package ai

// Inference is the structured output of the text-understanding call: optional
// time hints plus category hints for one note. Fields the model cannot ground
// in the text are left empty rather than guessed.
type Inference struct {
	Time     TimeHints     `json:"time"`
	Category CategoryHints `json:"category"`
}

// TimeHints carries clock evidence found in the note text. Clock values are
// local "HH:MM" strings; zero values mean the model found nothing.
type TimeHints struct {
	StartClock      string  `json:"start_clock,omitempty" jsonschema_description:"Activity start as HH:MM local time, empty if not stated"`
	EndClock        string  `json:"end_clock,omitempty" jsonschema_description:"Activity end as HH:MM local time, empty if not stated"`
	DurationMinutes int     `json:"duration_minutes,omitempty" jsonschema_description:"Stated or strongly implied duration in minutes, 0 if unknown"`
	Confidence      float64 `json:"confidence" jsonschema_description:"How certain the time evidence is, 0 to 1"`
}

// CategoryHints labels what the note describes. Splits are present only when
// the text itself declares concurrent activities with percentages.
type CategoryHints struct {
	Category    string  `json:"category" jsonschema_description:"Primary activity category, e.g. meeting, coding, review, admin"`
	SubCategory string  `json:"sub_category,omitempty"`
	Splits      []Split `json:"splits,omitempty"`
	Confidence  float64 `json:"confidence"`
}

// Split is one labelled share of a concurrent-activity note.
type Split struct {
	Label    string  `json:"label"`
	Fraction float64 `json:"fraction" jsonschema_description:"Share of the note's duration, 0 to 1"`
}
