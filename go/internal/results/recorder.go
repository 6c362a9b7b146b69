// Package results fans finished games out to the persistence and ranking
// backends. Recording is best-effort: a backend failure is logged and never
// blocks or fails game resolution.
package results

import (
	"context"

	"github.com/hectoclash/server/go/internal/models"
)

// Recorder receives the terminal record of every finished game
type Recorder interface {
	Record(ctx context.Context, record models.GameRecord) error
}

// NopRecorder discards records. Used when no backend is configured.
type NopRecorder struct{}

func (NopRecorder) Record(context.Context, models.GameRecord) error { return nil }

// MultiRecorder forwards each record to every backend. Failures are collected
// per-backend by the caller's logging; the first error is returned.
type MultiRecorder []Recorder

func (m MultiRecorder) Record(ctx context.Context, record models.GameRecord) error {
	var first error
	for _, r := range m {
		if err := r.Record(ctx, record); err != nil && first == nil {
			first = err
		}
	}
	return first
}
