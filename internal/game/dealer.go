// Package game wires pair selection and rendering into the artifact source
// used by rounds.
package game

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"github.com/face-hh/spotai/internal/game/catalog"
	"github.com/face-hh/spotai/internal/model"
)

// DefaultWorkers is the number of concurrent renders when none is configured.
const DefaultWorkers = 4

// Compositor renders a pair with the AI image in aiSlot.
type Compositor interface {
	Render(ctx context.Context, pair catalog.Pair, aiSlot int) (*model.Artifact, error)
}

// Dealer selects a pair and a side and renders them. Renders run on a
// bounded number of workers; callers wait for a free worker or for ctx.
type Dealer struct {
	selector   *catalog.Selector
	compositor Compositor
	workers    *semaphore.Weighted
}

// NewDealer creates a dealer allowing workers concurrent renders.
func NewDealer(selector *catalog.Selector, compositor Compositor, workers int) *Dealer {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Dealer{
		selector:   selector,
		compositor: compositor,
		workers:    semaphore.NewWeighted(int64(workers)),
	}
}

// Deal draws one artifact for level; an empty level accepts any pair.
// catalog.ErrNoMatchingPairs is returned unwrapped.
func (d *Dealer) Deal(ctx context.Context, level string) (*model.Artifact, error) {
	pair, err := d.selector.SelectPair(level)
	if err != nil {
		return nil, err
	}
	side := d.selector.SelectSide()

	if err := d.workers.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("failed to acquire render worker: %w", err)
	}
	defer d.workers.Release(1)

	start := time.Now()
	art, err := d.compositor.Render(ctx, pair, side)
	if err != nil {
		log.Error().Err(err).
			Str("level", pair.Level).
			Str("ai_path", pair.AIPath).
			Msg("Failed to render pair")
		return nil, fmt.Errorf("failed to render pair: %w", err)
	}

	log.Debug().
		Str("level", art.Level).
		Int("ai_slot", side).
		Dur("took", time.Since(start)).
		Msg("Pair rendered")

	return art, nil
}
