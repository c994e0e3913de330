// Package statusmirror optionally republishes a Fount's status snapshot to
// Redis on an interval, for cross-process (not cross-host distribution of
// reservoir state) visibility — e.g. a second process in the same
// deployment wanting to read a sidecar's fill level without an HTTP hop.
package statusmirror

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/fountkit/fount"
)

// Source is the subset of *fount.Fount this package depends on.
type Source interface {
	Status(ctx context.Context) (fount.Status, error)
}

type snapshot struct {
	State      string    `json:"state"`
	FountCount int       `json:"fount_count"`
	NumSlabs   int       `json:"num_slabs"`
	PidCount   int       `json:"pid_count"`
	MaxPids    int       `json:"max_pids"`
	ObservedAt time.Time `json:"observed_at"`
}

// Mirror periodically writes src's Status() snapshot to key on rdb, until
// ctx is done. It never returns an error to the caller directly; publish
// failures are logged and the loop keeps retrying on the next tick, since
// a missed snapshot is not worth aborting observability for.
func Mirror(ctx context.Context, rdb *redis.Client, key string, interval time.Duration, src Source, log *zap.Logger) {
	log = log.Named("statusmirror")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			publishOnce(ctx, rdb, key, now, src, log)
		}
	}
}

func publishOnce(ctx context.Context, rdb *redis.Client, key string, now time.Time, src Source, log *zap.Logger) {
	status, err := src.Status(ctx)
	if err != nil {
		log.Warn("status query failed, skipping publish", zap.Error(err))
		return
	}

	data, err := json.Marshal(snapshot{
		State:      status.State.String(),
		FountCount: status.FountCount,
		NumSlabs:   status.NumSlabs,
		PidCount:   status.PidCount,
		MaxPids:    status.MaxPids,
		ObservedAt: now,
	})
	if err != nil {
		log.Error("snapshot marshal failed", zap.Error(err))
		return
	}

	if err := rdb.Set(ctx, key, data, 0).Err(); err != nil {
		log.Warn("snapshot publish failed", zap.Error(err))
	}
}
