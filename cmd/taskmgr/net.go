package main

import (
	"cmp"
	"context"
	"os"
	"slices"

	"github.com/ja7ad/taskmgr/pkg/config"
	"github.com/ja7ad/taskmgr/pkg/system/guard"
	"github.com/ja7ad/taskmgr/pkg/types"
)

func runNet(ctx context.Context, cfg *config.Config, withPIDs bool) error {
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

	conns, res, err := m.Network(ctx, withPIDs)
	if err != nil {
		return err
	}
	sortConnections(conns)
	renderConnections(os.Stdout, conns, withPIDs)
	if withPIDs && res.Pending > 0 {
		renderCorrelation(os.Stdout, res)
	}
	return nil
}

func sortConnections(conns []types.ConnectionRecord) {
	slices.SortStableFunc(conns, func(a, b types.ConnectionRecord) int {
		return cmp.Or(
			cmp.Compare(a.Protocol, b.Protocol),
			cmp.Compare(a.State, b.State),
			cmp.Compare(a.Local.Port, b.Local.Port),
			a.Local.Addr.Compare(b.Local.Addr),
		)
	})
}
