// Package snapshot runs the periodic full-state persistence sweep. The
// write-through event subscriber keeps the store current in normal
// operation; this job re-persists every live node on a cron schedule as a
// safety net against dropped events.
package snapshot

import (
	"context"
	"fmt"
	"time"

	"github.com/adhocore/gronx"

	"nodechat/pkg/chat"
	"nodechat/pkg/config"
	"nodechat/pkg/logger"
	"nodechat/pkg/store"
)

// Start launches the scheduler if enabled. Returns a cancel func.
func Start(ctx context.Context, cfg config.SnapshotConfig, reg *chat.Registry, st *store.Store) (context.CancelFunc, error) {
	if !cfg.Enabled {
		logger.Info("snapshot_disabled")
		return func() {}, nil
	}
	cronExpr := cfg.Cron
	if cronExpr == "" {
		cronExpr = "0 * * * *"
	}
	if !gronx.IsValid(cronExpr) {
		logger.Error("snapshot_invalid_cron", "cron", cronExpr)
		return nil, fmt.Errorf("invalid snapshot cron expression: %s", cronExpr)
	}

	ctx2, cancel := context.WithCancel(ctx)
	go runScheduler(ctx2, cronExpr, reg, st)
	logger.Info("snapshot_scheduler_started", "cron", cronExpr)
	return cancel, nil
}

// runScheduler computes the next cron tick and sleeps until then.
func runScheduler(ctx context.Context, cronExpr string, reg *chat.Registry, st *store.Store) {
	for {
		select {
		case <-ctx.Done():
			logger.Info("snapshot_scheduler_stopping")
			return
		default:
		}

		now := time.Now().UTC()
		next, err := gronx.NextTickAfter(cronExpr, now, false)
		if err != nil {
			logger.Error("snapshot_nexttick_failed", "cron", cronExpr, "error", err)
			select {
			case <-time.After(30 * time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}

		select {
		case <-time.After(time.Until(next)):
			RunOnce(reg, st)
		case <-ctx.Done():
			logger.Info("snapshot_scheduler_stopping")
			return
		}
	}
}

// RunOnce persists every live node. Exported so admin triggers and tests
// can force a sweep.
func RunOnce(reg *chat.Registry, st *store.Store) {
	start := time.Now()
	saved := 0
	for _, id := range reg.LiveIDs() {
		data, err := reg.Snapshot(id)
		if err != nil {
			// node deleted between listing and snapshot; skip
			continue
		}
		if err := st.SaveNode(id, data); err != nil {
			logger.Error("snapshot_save_failed", "node", id, "error", err)
			continue
		}
		saved++
	}
	logger.Info("snapshot_sweep_complete", "nodes", saved, "elapsed", time.Since(start).String())
}
