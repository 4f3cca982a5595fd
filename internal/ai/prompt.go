package ai

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/invopop/jsonschema"
)

// inferenceSchema reflects the Inference type into a JSON schema, used both
// as the OpenAI structured-output format and as the claude CLI --json-schema
// argument. Reflection keeps the schema in lockstep with the Go type.
func inferenceSchema() *jsonschema.Schema {
	r := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	return r.Reflect(&Inference{})
}

func inferenceSchemaJSON() string {
	data, err := json.Marshal(inferenceSchema())
	if err != nil {
		// The schema is reflected from a static type; marshaling cannot fail
		// at runtime unless the type itself is broken.
		panic(fmt.Sprintf("marshaling inference schema: %v", err))
	}
	return string(data)
}

func buildSystemPrompt(reference time.Time) string {
	return fmt.Sprintf(`You are a time-tracking assistant. You read one free-text activity note and extract structured time and category hints.

The note was written at %s (local time %s).

Rules:
- Only report clock times the text actually states or strongly implies; leave them empty otherwise
- start_clock and end_clock are HH:MM in the author's local time
- duration_minutes is the stated or implied length of the activity, 0 if unknown
- category is a short lowercase label such as meeting, coding, review, email, admin, break, support, planning, other
- If the text declares concurrent activities with percentages (e.g. "60%% coding, 40%% review"), report them as splits with fractions summing to 1
- Set confidence between 0 and 1 for each hint group based on how directly the text supports it
- Never invent times or categories that the text does not support

Return valid JSON matching the required schema.`,
		reference.Format(time.RFC3339), reference.Format("15:04"))
}

func buildUserPrompt(text string) string {
	return fmt.Sprintf("Activity note: %s", text)
}
