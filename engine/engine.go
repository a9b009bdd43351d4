// Package engine owns the single authoritative CellGrid and advances it on
// a paced loop, publishing each resulting world version to the broadcast
// bus and rotating a lock-free "last world" handle for late subscribers.
package engine

import (
	"context"
	"sync/atomic"
	"time"

	channerics "github.com/niceyeti/channerics/channels"
	"go.uber.org/zap"

	"wireworld/broadcast"
	"wireworld/cellgrid"
)

// Engine is the Tick Engine: the sole mutator of a CellGrid.
type Engine struct {
	grid     *cellgrid.CellGrid
	edits    *EditQueue
	bus      *broadcast.Bus[*cellgrid.Snapshot]
	interval time.Duration
	logger   *zap.SugaredLogger

	lastWorld atomic.Pointer[cellgrid.Snapshot]
	version   uint64
}

// New returns an Engine seeded with the given initial grid. grid becomes
// exclusively engine-owned; callers must not mutate it afterward.
func New(
	grid *cellgrid.CellGrid,
	edits *EditQueue,
	bus *broadcast.Bus[*cellgrid.Snapshot],
	interval time.Duration,
	logger *zap.SugaredLogger,
) *Engine {
	e := &Engine{
		grid:     grid,
		edits:    edits,
		bus:      bus,
		interval: interval,
		logger:   logger,
	}
	e.lastWorld.Store(grid.Snapshot(0))
	return e
}

// LastWorld returns the most recently published snapshot without touching
// the live grid, safe for any goroutine to call concurrently.
func (e *Engine) LastWorld() *cellgrid.Snapshot {
	return e.lastWorld.Load()
}

// Run paces itself against interval until ctx is cancelled. Each tick:
// drain the edit queue non-blockingly, publish the current grid state as a
// new world version (never blocking on slow subscribers), then step the
// grid. Run returns when ctx is done.
func (e *Engine) Run(ctx context.Context) {
	ticker := channerics.NewTicker(ctx.Done(), e.interval)
	for range ticker {
		e.tick()
	}
}

func (e *Engine) tick() {
	start := time.Now()

	edits := e.edits.Drain()
	for _, ed := range edits {
		e.grid.Set(ed.Point, ed.State)
	}

	e.version++
	snap := e.grid.Snapshot(e.version)
	e.lastWorld.Store(snap)
	e.bus.Publish(e.version, snap)

	e.grid.Step()

	elapsed := time.Since(start)
	if e.logger != nil {
		e.logger.Debugw("tick complete",
			"version", e.version,
			"edits", len(edits),
			"duration", elapsed,
		)
		if elapsed > e.interval {
			e.logger.Warnw("tick overran its interval",
				"version", e.version,
				"duration", elapsed,
				"interval", e.interval,
			)
		}
	}
}
