// Package monitor assembles one refresh cycle of process telemetry from a
// Source: it reads the clock, enumerates processes, samples each one,
// computes CPU usage and returns a sorted table. It also serves the
// on-demand process detail and the network view.
package monitor

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/ja7ad/taskmgr/pkg/accounting"
	"github.com/ja7ad/taskmgr/pkg/correlate"
	"github.com/ja7ad/taskmgr/pkg/system/guard"
	"github.com/ja7ad/taskmgr/pkg/system/util"
	"github.com/ja7ad/taskmgr/pkg/types"
)

// SortKey orders the process table.
type SortKey string

const (
	SortPID  SortKey = "pid"
	SortCPU  SortKey = "cpu"
	SortMem  SortKey = "mem"
	SortName SortKey = "name"
)

// ParseSortKey validates a sort key; "" means pid.
func ParseSortKey(s string) (SortKey, error) {
	switch k := SortKey(strings.ToLower(s)); k {
	case "":
		return SortPID, nil
	case SortPID, SortCPU, SortMem, SortName:
		return k, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrBadSort, s)
	}
}

// Options tunes a Monitor.
type Options struct {
	// Sort orders the table: pid and name ascending, cpu and mem descending.
	Sort SortKey
	// Reverse flips the natural order of Sort.
	Reverse bool
	// Cmdline makes Snapshot read command lines too. Detail always does.
	Cmdline bool
	// CPU overrides the usage coefficients.
	CPU *accounting.Config
	// Recorder collects release faults; Snapshot drains it into Table.Faults.
	Recorder *guard.Recorder
	Logger   *slog.Logger
}

// Monitor runs refresh cycles against one Source. Cycles must not overlap:
// a Monitor is not safe for concurrent use.
type Monitor struct {
	src  Source
	fds  correlate.DescriptorSource
	acct *accounting.Accountant
	opt  Options
	log  *slog.Logger

	cycle uint64
	last  map[int32]types.Percent
}

// New returns a Monitor reading from src. If src also implements
// correlate.DescriptorSource, its pending connection owners are resolved
// by inode.
func New(src Source, opt Options) *Monitor {
	if opt.Sort == "" {
		opt.Sort = SortPID
	}
	if opt.Logger == nil {
		opt.Logger = slog.Default()
	}
	m := &Monitor{
		src:  src,
		acct: accounting.New(src, opt.CPU),
		opt:  opt,
		log:  opt.Logger,
		last: make(map[int32]types.Percent),
	}
	if fds, ok := src.(correlate.DescriptorSource); ok {
		m.fds = fds
	}
	return m
}

// Backend returns the name of the underlying Source.
func (m *Monitor) Backend() string { return m.src.Name() }

// Close releases the Source.
func (m *Monitor) Close() error { return m.src.Close() }

// Snapshot runs one cycle. Processes that vanish or cannot be read while the
// cycle runs are left out. Only a failed enumeration (or a cancelled ctx)
// returns an error.
func (m *Monitor) Snapshot(ctx context.Context) (types.Table, error) {
	m.cycle++
	tbl := types.Table{Cycle: m.cycle}

	if err := m.acct.RefreshClock(ctx); err != nil {
		m.log.Warn("cpu usage unavailable this cycle", "err", err)
	}
	tbl.ClockValid = m.acct.Valid()

	pids, err := m.src.Pids(ctx)
	if err != nil {
		tbl.Faults = m.drainFaults()
		return tbl, fmt.Errorf("%w: %w", ErrEnumerate, err)
	}

	total := m.memTotal(ctx)
	last := make(map[int32]types.Percent, len(pids))
	tbl.Processes = make([]types.ProcessRecord, 0, len(pids))
	for _, pid := range pids {
		if err := ctx.Err(); err != nil {
			return tbl, err
		}
		rec, sample, err := m.record(ctx, pid, total, m.opt.Cmdline)
		if err != nil {
			m.log.Debug("process dropped", "pid", pid, "err", err)
			continue
		}
		rec.CPU = m.acct.Usage(pid, sample)
		last[pid] = rec.CPU
		tbl.Processes = append(tbl.Processes, rec)
	}

	m.acct.Retain(pids)
	m.last = last
	sortRecords(tbl.Processes, m.opt.Sort, m.opt.Reverse)
	tbl.Faults = m.drainFaults()
	return tbl, nil
}

// record reads one process without touching the CPU cache.
func (m *Monitor) record(ctx context.Context, pid int32, total types.Bytes, cmdline bool) (types.ProcessRecord, types.CPUSample, error) {
	st, err := m.src.Status(ctx, pid)
	if err != nil {
		return types.ProcessRecord{}, types.CPUSample{}, err
	}
	sample, err := m.src.CPUTimes(ctx, pid)
	if err != nil {
		return types.ProcessRecord{}, types.CPUSample{}, err
	}

	rec := types.ProcessRecord{
		PID:        pid,
		Name:       st.Name,
		User:       st.User,
		RSS:        st.RSS,
		MemPercent: memPercent(st.RSS, total),
		CPU:        types.Unknown,
	}
	if cmdline {
		// kernel threads and zombies have none; the row falls back to the name
		rec.Cmdline, _ = m.src.Cmdline(ctx, pid)
	}
	return rec, sample, nil
}

func (m *Monitor) memTotal(ctx context.Context) types.Bytes {
	total, err := m.src.MemTotal(ctx)
	if err != nil {
		m.log.Debug("memory total unavailable", "err", err)
		return 0
	}
	return total
}

func (m *Monitor) drainFaults() int {
	if m.opt.Recorder == nil {
		return 0
	}
	return len(m.opt.Recorder.Drain())
}

func memPercent(rss, total types.Bytes) types.Percent {
	return types.Percent(util.Clamp01(util.SafeDiv(float64(rss), float64(total))) * 100)
}

// Detail returns pid's record, its loaded modules and the connections it
// owns. The CPU value is the one computed by the latest Snapshot.
func (m *Monitor) Detail(ctx context.Context, pid int32) (types.Detail, error) {
	rec, _, err := m.record(ctx, pid, m.memTotal(ctx), true)
	if err != nil {
		return types.Detail{}, fmt.Errorf("%w: %d: %w", ErrNoProcess, pid, err)
	}
	if u, ok := m.last[pid]; ok {
		rec.CPU = u
	}

	mods, err := m.src.Modules(ctx, pid)
	if err != nil {
		m.log.Debug("modules unavailable", "pid", pid, "err", err)
	}

	conns, err := m.src.Connections(ctx)
	if err != nil {
		m.log.Warn("connections unavailable", "err", err)
	}
	if m.fds != nil && len(conns) > 0 {
		if _, err := correlate.Resolve(ctx, conns, []int32{pid}, m.fds); err != nil {
			return types.Detail{}, err
		}
	}

	return types.Detail{
		Process:     rec,
		Modules:     mods,
		Connections: correlate.Owned(conns, pid),
	}, nil
}

// Network lists every connection. With resolve set, pending owners are
// resolved by scanning the descriptors of all processes; otherwise they are
// left as reported by the backend.
func (m *Monitor) Network(ctx context.Context, resolve bool) ([]types.ConnectionRecord, correlate.Result, error) {
	conns, err := m.src.Connections(ctx)
	if err != nil {
		return nil, correlate.Result{}, err
	}
	if !resolve || m.fds == nil {
		return conns, correlate.Result{}, nil
	}

	pids, err := m.src.Pids(ctx)
	if err != nil {
		return conns, correlate.Result{}, fmt.Errorf("%w: %w", ErrEnumerate, err)
	}
	res, err := correlate.Resolve(ctx, conns, pids, m.fds)
	if err != nil {
		return conns, res, err
	}
	m.log.Debug("sockets correlated",
		"pending", res.Pending, "resolved", res.Resolved,
		"conflicts", res.Conflicts, "skipped", res.Skipped)
	return conns, res, nil
}

func sortRecords(recs []types.ProcessRecord, key SortKey, reverse bool) {
	var by func(a, b types.ProcessRecord) int
	switch key {
	case SortCPU:
		by = func(a, b types.ProcessRecord) int { return cmp.Compare(b.CPU, a.CPU) }
	case SortMem:
		by = func(a, b types.ProcessRecord) int { return cmp.Compare(b.RSS, a.RSS) }
	case SortName:
		by = func(a, b types.ProcessRecord) int { return strings.Compare(a.Name, b.Name) }
	default:
		by = func(a, b types.ProcessRecord) int { return 0 }
	}

	slices.SortFunc(recs, func(a, b types.ProcessRecord) int {
		c := by(a, b)
		if c == 0 {
			c = cmp.Compare(a.PID, b.PID)
		}
		if reverse {
			return -c
		}
		return c
	})
}
