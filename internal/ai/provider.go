package ai

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable marks provider failures the caller should degrade on rather
// than surface: transport errors, timeouts, unparseable output.
var ErrUnavailable = errors.New("text understanding unavailable")

// Provider is the external text-understanding collaborator: one blocking,
// idempotent call per note. Callers own timeouts via ctx and must not issue
// concurrent calls for the same note.
type Provider interface {
	Infer(ctx context.Context, text string, reference time.Time) (*Inference, error)
}
