package indexer

import (
	"context"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/Retrieval-Engine/pkg/kafka"
)

// BuildEvent is published on the index.complete topic after Export.
type BuildEvent struct {
	Summary
	OutputDir string `json:"output_dir"`
	Segment   string `json:"segment,omitempty"`
}

type Publisher interface {
	Publish(ctx context.Context, event kafka.Event) error
}

// Announce publishes a BuildEvent keyed by build id.
func (e *Engine) Announce(ctx context.Context, p Publisher, outputDir string, a Artifacts) error {
	ev := BuildEvent{Summary: e.summary, OutputDir: outputDir, Segment: a.Segment}
	if err := p.Publish(ctx, kafka.Event{Key: ev.BuildID, Value: ev}); err != nil {
		return fmt.Errorf("announcing build %s: %w", ev.BuildID, err)
	}
	e.logger.Info("build announced", "build_id", ev.BuildID)
	return nil
}
