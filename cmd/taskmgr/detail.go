package main

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/ja7ad/taskmgr/pkg/config"
	"github.com/ja7ad/taskmgr/pkg/monitor"
	"github.com/ja7ad/taskmgr/pkg/system/guard"
	"github.com/ja7ad/taskmgr/pkg/system/util"
)

func runDetail(ctx context.Context, cfg *config.Config, args []string) error {
	pids, err := util.ParsePIDs(args)
	if err != nil {
		return err
	}

	logs, err := setupLogging(cfg, false)
	if err != nil {
		return err
	}
	defer logs.Release()

	m, err := openMonitor(cfg, guard.NewRecorder(guard.LogReporter{}))
	if err != nil {
		return err
	}
	defer m.Close()

	// two snapshots give the CPU column a value
	for i := 0; i < 2; i++ {
		if _, err := m.Snapshot(ctx); err != nil {
			return err
		}
		if i == 0 && sleep(ctx, primeDelay) != nil {
			return ctx.Err()
		}
	}

	var missing int
	for _, pid := range pids {
		det, err := m.Detail(ctx, pid)
		if errors.Is(err, monitor.ErrNoProcess) {
			slog.Warn("no such process", "pid", pid)
			missing++
			continue
		}
		if err != nil {
			return err
		}
		sortConnections(det.Connections)
		renderDetail(os.Stdout, det)
	}
	if missing == len(pids) {
		return monitor.ErrNoProcess
	}
	return nil
}
