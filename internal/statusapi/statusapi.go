// Package statusapi exposes a Fount's read-only status and spawn-rate
// snapshot over a single gin.Engine route, for a sidecar health page. It
// does not expose any dispense operation — observability only, and it
// mirrors a read-only snapshot the way a log line would, never distributing
// reservoir state across hosts.
package statusapi

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fountkit/fount"
)

// Source is the subset of *fount.Fount this package depends on, letting
// tests supply a stub instead of a live reservoir.
type Source interface {
	Status(ctx context.Context) (fount.Status, error)
	SpawnRatePerSlab(ctx context.Context) (float64, error)
	SpawnRatePerProcess(ctx context.Context) (float64, error)
}

type statusResponse struct {
	State               string  `json:"state"`
	FountCount          int     `json:"fount_count"`
	NumSlabs            int     `json:"num_slabs"`
	SlabSize            int     `json:"slab_size"`
	Depth               int     `json:"depth"`
	MaxPids             int     `json:"max_pids"`
	PidCount            int     `json:"pid_count"`
	SpawnRatePerSlab    float64 `json:"spawn_rate_per_slab"`
	SpawnRatePerProcess float64 `json:"spawn_rate_per_process"`
}

// Register mounts GET /status on r, reading snapshots from src. log is
// named "statusapi" off the caller's logger, matching the per-subsystem
// naming used throughout this module.
func Register(r gin.IRouter, src Source, log *zap.Logger) {
	log = log.Named("statusapi")

	r.GET("/status", func(c *gin.Context) {
		ctx := c.Request.Context()

		status, err := src.Status(ctx)
		if err != nil {
			log.Warn("status query failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		perSlab, err := src.SpawnRatePerSlab(ctx)
		if err != nil {
			log.Warn("spawn-rate-per-slab query failed", zap.Error(err))
		}
		perProcess, err := src.SpawnRatePerProcess(ctx)
		if err != nil {
			log.Warn("spawn-rate-per-process query failed", zap.Error(err))
		}

		c.JSON(http.StatusOK, statusResponse{
			State:               status.State.String(),
			FountCount:          status.FountCount,
			NumSlabs:            status.NumSlabs,
			SlabSize:            status.SlabSize,
			Depth:               status.Depth,
			MaxPids:             status.MaxPids,
			PidCount:            status.PidCount,
			SpawnRatePerSlab:    perSlab,
			SpawnRatePerProcess: perProcess,
		})
	})
}
