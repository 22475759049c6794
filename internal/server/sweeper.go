package server

import (
	"context"
	"time"

	"mediagate/pkg/logger"
	"mediagate/pkg/progress"
	"mediagate/pkg/storage"
)

// Sweeper periodically removes finished files older than the retention
// period and forgets their progress topics
type Sweeper struct {
	library   *storage.Manager
	hub       *progress.Hub
	retention time.Duration
	interval  time.Duration
	logger    logger.Logger
}

func NewSweeper(library *storage.Manager, hub *progress.Hub, retention time.Duration, log logger.Logger) *Sweeper {
	interval := retention / 5
	if interval < time.Second {
		interval = time.Second
	}
	if interval > time.Minute {
		interval = time.Minute
	}
	return &Sweeper{
		library:   library,
		hub:       hub,
		retention: retention,
		interval:  interval,
		logger:    log.WithField("component", "sweeper"),
	}
}

// Run sweeps until ctx is done. A zero retention disables it.
func (sw *Sweeper) Run(ctx context.Context) {
	if sw.retention <= 0 {
		return
	}
	logger.LogComponentStart(sw.logger, "sweeper", map[string]interface{}{
		"retention": sw.retention.String(),
		"interval":  sw.interval.String(),
	})

	ticker := time.NewTicker(sw.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.LogComponentStop(sw.logger, "sweeper", ctx.Err().Error())
			return
		case <-ticker.C:
			sw.SweepOnce()
		}
	}
}

// SweepOnce runs a single pass
func (sw *Sweeper) SweepOnce() {
	removed, err := sw.library.Sweep(sw.retention)
	if err != nil {
		sw.logger.WithError(err).Warn("Failed to remove expired files")
	}
	forgotten := sw.hub.Forget(sw.retention)

	if removed > 0 || forgotten > 0 {
		sw.logger.InfoWithFields("Expired downloads removed", map[string]interface{}{
			"files":     removed,
			"downloads": forgotten,
		})
	}
}
