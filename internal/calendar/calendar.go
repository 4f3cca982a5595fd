// Package calendar imports iCalendar events as explicit timeline entries:
// a confirmed meeting on the calendar is stronger evidence than anything
// inferred from note text.
package calendar

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	ical "github.com/emersion/go-ical"

	"github.com/mkarlsen/daylog/internal/busday"
	"github.com/mkarlsen/daylog/internal/timeline"
)

// Event is a parsed calendar event.
type Event struct {
	Summary   string
	StartTime time.Time
	EndTime   time.Time
}

const entryConfidence = 0.95

var httpClient = &http.Client{Timeout: 30 * time.Second}

// Fetch retrieves and parses iCalendar events from a URL or file path,
// returning events that overlap with the given time window.
func Fetch(ctx context.Context, source string, windowStart, windowEnd time.Time) ([]Event, error) {
	r, err := openSource(ctx, source)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	return Decode(r, windowStart, windowEnd)
}

func openSource(ctx context.Context, source string) (io.ReadCloser, error) {
	if !strings.HasPrefix(source, "http://") && !strings.HasPrefix(source, "https://") {
		f, err := os.Open(source)
		if err != nil {
			return nil, fmt.Errorf("opening calendar file: %w", err)
		}
		return f, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching calendar: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("calendar fetch returned status %d", resp.StatusCode)
	}
	return resp.Body, nil
}

// Decode parses iCalendar data from r, keeping events overlapping the window.
func Decode(r io.Reader, windowStart, windowEnd time.Time) ([]Event, error) {
	dec := ical.NewDecoder(r)
	var events []Event

	for {
		cal, err := dec.Decode()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parsing calendar: %w", err)
		}

		for _, component := range cal.Children {
			if component.Name != ical.CompEvent {
				continue
			}
			event := ical.Event{Component: component}

			start, err := event.DateTimeStart(nil)
			if err != nil {
				continue // skip malformed events
			}
			end, err := event.DateTimeEnd(nil)
			if err != nil {
				continue
			}

			if start.Before(windowEnd) && end.After(windowStart) {
				summary, _ := event.Props.Text(ical.PropSummary)
				if summary != "" {
					events = append(events, Event{
						Summary:   summary,
						StartTime: start,
						EndTime:   end,
					})
				}
			}
		}
	}

	return events, nil
}

// Entries converts events into explicit timeline entries for the given
// business date; events on other business dates are dropped.
func Entries(events []Event, businessDate, tz string, dayStartHour int) ([]timeline.Entry, error) {
	var entries []timeline.Entry
	for _, ev := range events {
		date, err := busday.DateOf(ev.StartTime, tz, dayStartHour)
		if err != nil {
			return nil, err
		}
		if date != businessDate || !ev.EndTime.After(ev.StartTime) {
			continue
		}
		entries = append(entries, timeline.Entry{
			Start:        ev.StartTime,
			End:          ev.EndTime,
			Category:     "meeting",
			SubCategory:  strings.ToLower(ev.Summary),
			SourceNoteID: "calendar:" + ev.Summary,
			Method:       timeline.MethodExplicit,
			Confidence:   entryConfidence,
			Minutes:      int(ev.EndTime.Sub(ev.StartTime).Minutes()),
		})
	}
	return entries, nil
}
