package monitor

import (
	"context"

	"github.com/ja7ad/taskmgr/pkg/types"
)

// Source is one OS introspection backend. A process that exits between Pids
// and a per-pid call makes that call fail; the monitor drops the pid.
type Source interface {
	Name() string

	Pids(ctx context.Context) ([]int32, error)
	Status(ctx context.Context, pid int32) (types.Status, error)
	CPUTimes(ctx context.Context, pid int32) (types.CPUSample, error)
	Cmdline(ctx context.Context, pid int32) (string, error)
	Modules(ctx context.Context, pid int32) ([]types.ModuleRecord, error)
	Connections(ctx context.Context) ([]types.ConnectionRecord, error)

	// SystemTicks is the global clock, in the tick unit of CPUTimes.
	SystemTicks(ctx context.Context) (float64, error)
	MemTotal(ctx context.Context) (types.Bytes, error)

	Close() error
}
