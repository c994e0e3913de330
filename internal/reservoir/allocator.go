package reservoir

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// runAllocator produces exactly one slab by calling spawn-one sequentially
// slab-size times, then posts the result to the core. It is the sole
// caller of factory.SpawnOne and never touches core state directly: every
// effect it has on the reservoir arrives as an event through the core's
// inbox, so the core remains the sole mutator of its own content.
//
// A context cancellation (the core shutting down) during spawn-one is not
// a factory violation and is handled by returning silently; anything else
// spawn-one returns that is not a live worker is treated as a fatal
// programmer error in the factory and reported as an allocatorFailed event.
func runAllocator(ctx context.Context, c *Core) {
	log := c.allocLog
	start := time.Now()
	log.Debug("allocator started", zap.Int("slab_size", c.slabSize))
	workers := make([]Worker, 0, c.slabSize)

	for i := 0; i < c.slabSize; i++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return
		}

		w, err := c.factory.SpawnOne(ctx, c)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Error("spawn-one failed, allocator aborting",
				zap.Error(err), zap.Int("workers_spawned", len(workers)))
			c.postAllocatorFailed(newInvariantError("spawn-one failed: %v", err))
			return
		}
		if w == nil {
			log.Error("factory returned a nil worker, allocator aborting",
				zap.Int("workers_spawned", len(workers)))
			c.postAllocatorFailed(newInvariantError("factory returned a nil worker from spawn-one"))
			return
		}
		workers = append(workers, w)
	}

	slab := Slab{
		ID:            uuid.New(),
		Workers:       workers,
		ElapsedMicros: float64(time.Since(start).Microseconds()),
	}
	log.Debug("slab produced",
		zap.String("slab_id", slab.ID.String()),
		zap.Int("size", len(slab.Workers)),
		zap.Float64("elapsed_micros", slab.ElapsedMicros),
	)
	c.postSlab(slab)
}
