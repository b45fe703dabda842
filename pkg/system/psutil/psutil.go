// Package psutil is the query-API backend built on gopsutil. It works on
// every OS gopsutil supports and reports connection owners directly, so its
// records never need inode correlation.
package psutil

import (
	"context"
	"fmt"
	"log/slog"
	"net/netip"
	"strings"
	"syscall"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/net"
	"github.com/shirou/gopsutil/v4/process"

	"github.com/ja7ad/taskmgr/pkg/types"
)

// Hz is the tick rate this backend converts CPU seconds to. gopsutil
// reports seconds, so any rate works as long as the clock uses the same one.
const Hz = 100

// Source reads telemetry through gopsutil.
type Source struct {
	log *slog.Logger
}

// New returns a gopsutil backed Source.
func New(log *slog.Logger) *Source {
	if log == nil {
		log = slog.Default()
	}
	return &Source{log: log}
}

// Name identifies the backend.
func (s *Source) Name() string { return "psutil" }

// Close is a no-op.
func (s *Source) Close() error { return nil }

// Pids lists live process ids.
func (s *Source) Pids(ctx context.Context) ([]int32, error) {
	return process.PidsWithContext(ctx)
}

// Status returns the name, owner and resident memory of pid.
func (s *Source) Status(ctx context.Context, pid int32) (types.Status, error) {
	p, err := process.NewProcessWithContext(ctx, pid)
	if err != nil {
		return types.Status{}, err
	}
	name, err := p.NameWithContext(ctx)
	if err != nil {
		return types.Status{}, fmt.Errorf("psutil: name %d: %w", pid, err)
	}
	mi, err := p.MemoryInfoWithContext(ctx)
	if err != nil {
		return types.Status{}, fmt.Errorf("psutil: memory %d: %w", pid, err)
	}

	st := types.Status{Name: name, RSS: types.Bytes(mi.RSS)}
	if uids, err := p.UidsWithContext(ctx); err == nil && len(uids) > 0 {
		st.UID = uids[0]
	}
	// Username fails for some system accounts; the column then shows "?".
	st.User, err = p.UsernameWithContext(ctx)
	if err != nil || st.User == "" {
		st.User = "?"
	}
	return st, nil
}

// CPUTimes returns cumulative user and system time in Hz ticks. The creation
// time (ms since epoch) identifies the process instance.
func (s *Source) CPUTimes(ctx context.Context, pid int32) (types.CPUSample, error) {
	p, err := process.NewProcessWithContext(ctx, pid)
	if err != nil {
		return types.CPUSample{}, err
	}
	t, err := p.TimesWithContext(ctx)
	if err != nil {
		return types.CPUSample{}, fmt.Errorf("psutil: times %d: %w", pid, err)
	}
	created, err := p.CreateTimeWithContext(ctx)
	if err != nil {
		return types.CPUSample{}, fmt.Errorf("psutil: create time %d: %w", pid, err)
	}
	return types.CPUSample{
		User:   secondsToTicks(t.User),
		Kernel: secondsToTicks(t.System),
		Start:  uint64(created),
	}, nil
}

// Cmdline returns the space joined argument vector.
func (s *Source) Cmdline(ctx context.Context, pid int32) (string, error) {
	p, err := process.NewProcessWithContext(ctx, pid)
	if err != nil {
		return "", err
	}
	return p.CmdlineWithContext(ctx)
}

// Modules returns the distinct mapped files of pid. Unreadable maps give an
// empty table.
func (s *Source) Modules(ctx context.Context, pid int32) ([]types.ModuleRecord, error) {
	p, err := process.NewProcessWithContext(ctx, pid)
	if err != nil {
		return []types.ModuleRecord{}, nil
	}
	maps, err := p.MemoryMapsWithContext(ctx, false)
	if err != nil || maps == nil {
		s.log.Debug("modules unavailable", "pid", pid, "err", err)
		return []types.ModuleRecord{}, nil
	}

	paths := make([]string, 0, len(*maps))
	for _, m := range *maps {
		paths = append(paths, m.Path)
	}
	return types.Modules(paths), nil
}

// Connections lists IPv4 and IPv6 sockets with their owning pid.
func (s *Source) Connections(ctx context.Context) ([]types.ConnectionRecord, error) {
	stats, err := net.ConnectionsWithContext(ctx, "inet")
	if err != nil {
		return nil, fmt.Errorf("psutil: connections: %w", err)
	}
	out := make([]types.ConnectionRecord, 0, len(stats))
	for _, c := range stats {
		rec, ok := convert(c)
		if ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

func convert(c net.ConnectionStat) (types.ConnectionRecord, bool) {
	var proto types.Protocol
	switch c.Type {
	case syscall.SOCK_STREAM:
		proto = types.TCP
	case syscall.SOCK_DGRAM:
		proto = types.UDP
	default:
		return types.ConnectionRecord{}, false
	}

	owner := types.Owner{PID: types.NoPID}
	if c.Pid > 0 {
		owner.PID = c.Pid
	}
	return types.ConnectionRecord{
		Protocol: proto,
		State:    StateFromString(c.Status),
		Local:    endpoint(c.Laddr),
		Remote:   endpoint(c.Raddr),
		Owner:    owner,
	}, true
}

func endpoint(a net.Addr) types.Endpoint {
	addr, err := netip.ParseAddr(a.IP)
	if err != nil {
		addr = netip.Addr{}
	}
	return types.Endpoint{Addr: addr.Unmap(), Port: uint16(a.Port)}
}

// StateFromString maps gopsutil status names. Anything the monitor does not
// distinguish is StateUnknown.
func StateFromString(s string) types.State {
	switch strings.ToUpper(s) {
	case "LISTEN", "LISTENING":
		return types.StateListening
	case "ESTABLISHED":
		return types.StateEstablished
	case "TIME_WAIT":
		return types.StateTimeWait
	case "CLOSE_WAIT":
		return types.StateCloseWait
	default:
		return types.StateUnknown
	}
}

// SystemTicks returns wall-equivalent time in Hz ticks: the aggregate CPU
// time across all logical cores divided by the core count.
func (s *Source) SystemTicks(ctx context.Context) (float64, error) {
	ts, err := cpu.TimesWithContext(ctx, false)
	if err != nil {
		return 0, fmt.Errorf("psutil: cpu times: %w", err)
	}
	if len(ts) == 0 {
		return 0, fmt.Errorf("psutil: cpu times: empty")
	}
	n, err := cpu.CountsWithContext(ctx, true)
	if err != nil || n <= 0 {
		n = 1
	}
	return totalSeconds(ts[0]) / float64(n) * Hz, nil
}

// totalSeconds sums the time buckets. Guest time is already part of User.
func totalSeconds(t cpu.TimesStat) float64 {
	return t.User + t.System + t.Idle + t.Nice + t.Iowait +
		t.Irq + t.Softirq + t.Steal
}

// MemTotal returns installed physical memory.
func (s *Source) MemTotal(ctx context.Context) (types.Bytes, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("psutil: memory: %w", err)
	}
	return types.Bytes(vm.Total), nil
}

func secondsToTicks(sec float64) uint64 {
	if sec <= 0 {
		return 0
	}
	return uint64(sec*Hz + 0.5)
}
