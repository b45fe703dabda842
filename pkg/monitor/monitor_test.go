package monitor

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ja7ad/taskmgr/pkg/accounting"
	"github.com/ja7ad/taskmgr/pkg/system/guard"
	"github.com/ja7ad/taskmgr/pkg/types"
)

type fakeProc struct {
	status  types.Status
	cpu     types.CPUSample
	cmdline string
	modules []types.ModuleRecord
	fds     []uint64
}

// fakeSource serves a mutable process table. Pids listed in vanish are
// enumerated but fail every per-pid read, like a process that exits mid-cycle.
type fakeSource struct {
	procs    map[int32]*fakeProc
	order    []int32
	vanish   map[int32]bool
	clock    float64
	clockErr error
	pidsErr  error
	conns    []types.ConnectionRecord
	total    types.Bytes
	rep      guard.Reporter

	cmdlineCalls int
	closed       bool
}

func newFakeSource() *fakeSource {
	return &fakeSource{procs: map[int32]*fakeProc{}, vanish: map[int32]bool{}, total: 1000}
}

func (f *fakeSource) add(pid int32, name string, rss types.Bytes, ticks uint64) *fakeProc {
	p := &fakeProc{
		status:  types.Status{Name: name, User: "root", RSS: rss},
		cpu:     types.CPUSample{User: ticks, Start: 1},
		cmdline: "/bin/" + name,
	}
	f.procs[pid] = p
	f.order = append(f.order, pid)
	return p
}

func (f *fakeSource) get(pid int32) (*fakeProc, error) {
	p, ok := f.procs[pid]
	if !ok || f.vanish[pid] {
		return nil, os.ErrNotExist
	}
	return p, nil
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) Pids(context.Context) ([]int32, error) {
	if f.rep != nil {
		// simulate a handle whose close failed during the listing
		g := guard.New("dir", 1, 0, func(int) error { return errors.New("EIO") }, f.rep)
		_ = g.Release()
	}
	if f.pidsErr != nil {
		return nil, f.pidsErr
	}
	return append([]int32(nil), f.order...), nil
}

func (f *fakeSource) Status(_ context.Context, pid int32) (types.Status, error) {
	p, err := f.get(pid)
	if err != nil {
		return types.Status{}, err
	}
	return p.status, nil
}

func (f *fakeSource) CPUTimes(_ context.Context, pid int32) (types.CPUSample, error) {
	p, err := f.get(pid)
	if err != nil {
		return types.CPUSample{}, err
	}
	return p.cpu, nil
}

func (f *fakeSource) Cmdline(_ context.Context, pid int32) (string, error) {
	f.cmdlineCalls++
	p, err := f.get(pid)
	if err != nil {
		return "", err
	}
	return p.cmdline, nil
}

func (f *fakeSource) Modules(_ context.Context, pid int32) ([]types.ModuleRecord, error) {
	p, err := f.get(pid)
	if err != nil {
		return []types.ModuleRecord{}, nil
	}
	return p.modules, nil
}

func (f *fakeSource) Connections(context.Context) ([]types.ConnectionRecord, error) {
	return append([]types.ConnectionRecord(nil), f.conns...), nil
}

func (f *fakeSource) SystemTicks(context.Context) (float64, error) {
	if f.clockErr != nil {
		return 0, f.clockErr
	}
	return f.clock, nil
}

func (f *fakeSource) MemTotal(context.Context) (types.Bytes, error) { return f.total, nil }

func (f *fakeSource) Close() error { f.closed = true; return nil }

// fdSource adds inode lookups, like the procfs backend.
type fdSource struct{ *fakeSource }

func (f fdSource) SocketInodes(_ context.Context, pid int32) ([]uint64, error) {
	p, err := f.get(pid)
	if err != nil {
		return nil, err
	}
	return p.fds, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func byPID(tbl types.Table) map[int32]types.ProcessRecord {
	out := make(map[int32]types.ProcessRecord, len(tbl.Processes))
	for _, r := range tbl.Processes {
		out[r.PID] = r
	}
	return out
}

func TestSnapshot_UsageAcrossCycles(t *testing.T) {
	src := newFakeSource()
	src.add(1, "init", 100, 0)
	src.add(2, "busy", 500, 0)
	m := New(src, Options{Logger: quietLogger(), CPU: &accounting.Config{K: 100}})
	ctx := context.Background()

	src.clock = 1000
	tbl, err := m.Snapshot(ctx)
	require.NoError(t, err)
	assert.True(t, tbl.ClockValid)
	assert.Equal(t, uint64(1), tbl.Cycle)
	require.Len(t, tbl.Processes, 2)
	for _, r := range tbl.Processes {
		assert.Equal(t, types.Unknown, r.CPU, "first observation of pid %d", r.PID)
	}

	src.clock = 1100
	src.procs[2].cpu.User = 50
	tbl, err = m.Snapshot(ctx)
	require.NoError(t, err)
	got := byPID(tbl)
	assert.InDelta(t, 0.0, float64(got[1].CPU), 1e-9)
	assert.InDelta(t, 50.0, float64(got[2].CPU), 1e-9)
	assert.InDelta(t, 50.0, float64(got[2].MemPercent), 1e-9)
	assert.Equal(t, "root", got[2].User)
}

func TestSnapshot_VanishedPidDropped(t *testing.T) {
	src := newFakeSource()
	src.add(1, "init", 1, 0)
	src.add(2, "short", 1, 0)
	src.add(3, "other", 1, 0)
	m := New(src, Options{Logger: quietLogger()})
	ctx := context.Background()

	_, err := m.Snapshot(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, m.acct.Len())

	src.vanish[2] = true
	tbl, err := m.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, tbl.Processes, 2)
	assert.NotContains(t, byPID(tbl), int32(2))

	// gone from enumeration too: the cached sample is pruned
	src.order = []int32{1, 3}
	_, err = m.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, m.acct.Len())
}

func TestSnapshot_EnumerationFailure(t *testing.T) {
	src := newFakeSource()
	src.pidsErr = os.ErrPermission
	m := New(src, Options{Logger: quietLogger()})

	_, err := m.Snapshot(context.Background())
	require.ErrorIs(t, err, ErrEnumerate)
	assert.ErrorIs(t, err, os.ErrPermission)
}

func TestSnapshot_ClockFailure(t *testing.T) {
	src := newFakeSource()
	src.add(1, "init", 1, 10)
	m := New(src, Options{Logger: quietLogger()})
	ctx := context.Background()

	src.clock = 100
	_, err := m.Snapshot(ctx)
	require.NoError(t, err)

	src.clockErr = errors.New("uptime unreadable")
	src.procs[1].cpu.User = 20
	tbl, err := m.Snapshot(ctx)
	require.NoError(t, err, "a clock failure does not fail the cycle")
	assert.False(t, tbl.ClockValid)
	require.Len(t, tbl.Processes, 1)
	assert.Equal(t, types.Unknown, tbl.Processes[0].CPU)

	src.clockErr = nil
	src.clock = 200
	tbl, err = m.Snapshot(ctx)
	require.NoError(t, err)
	assert.True(t, tbl.ClockValid)
	assert.InDelta(t, 10.0, float64(tbl.Processes[0].CPU), 1e-9, "delta against the pre-failure sample")
}

func TestSnapshot_Sort(t *testing.T) {
	src := newFakeSource()
	src.add(30, "bravo", 300, 0)
	src.add(10, "charlie", 100, 0)
	src.add(20, "alpha", 200, 0)
	ctx := context.Background()

	pids := func(tbl types.Table) []int32 {
		var out []int32
		for _, r := range tbl.Processes {
			out = append(out, r.PID)
		}
		return out
	}

	cases := []struct {
		key     SortKey
		reverse bool
		want    []int32
	}{
		{SortPID, false, []int32{10, 20, 30}},
		{SortPID, true, []int32{30, 20, 10}},
		{SortMem, false, []int32{30, 20, 10}},
		{SortName, false, []int32{20, 30, 10}},
		{SortCPU, false, []int32{10, 20, 30}}, // all unknown: ties by pid
	}
	for _, tc := range cases {
		t.Run(string(tc.key), func(t *testing.T) {
			m := New(src, Options{Sort: tc.key, Reverse: tc.reverse, Logger: quietLogger()})
			tbl, err := m.Snapshot(ctx)
			require.NoError(t, err)
			assert.Equal(t, tc.want, pids(tbl))
		})
	}
}

func TestSnapshot_CmdlineOnlyWhenAsked(t *testing.T) {
	src := newFakeSource()
	src.add(1, "init", 1, 0)
	ctx := context.Background()

	tbl, err := New(src, Options{Logger: quietLogger()}).Snapshot(ctx)
	require.NoError(t, err)
	assert.Zero(t, src.cmdlineCalls)
	assert.Empty(t, tbl.Processes[0].Cmdline)

	tbl, err = New(src, Options{Cmdline: true, Logger: quietLogger()}).Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, src.cmdlineCalls)
	assert.Equal(t, "/bin/init", tbl.Processes[0].Cmdline)
}

func TestSnapshot_FaultsCounted(t *testing.T) {
	src := newFakeSource()
	src.add(1, "init", 1, 0)
	rec := guard.NewRecorder(nil)
	src.rep = rec
	m := New(src, Options{Recorder: rec, Logger: quietLogger()})

	tbl, err := m.Snapshot(context.Background())
	require.NoError(t, err, "release faults never fail a cycle")
	assert.Equal(t, 1, tbl.Faults)
	assert.Len(t, tbl.Processes, 1)
}

func TestSnapshot_Cancelled(t *testing.T) {
	src := newFakeSource()
	src.add(1, "init", 1, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(src, Options{Logger: quietLogger()}).Snapshot(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDetail(t *testing.T) {
	base := newFakeSource()
	p := base.add(7, "sshd", 10, 0)
	p.modules = []types.ModuleRecord{{Path: "/usr/sbin/sshd"}, {Path: "/usr/lib/libc.so.6"}}
	p.fds = []uint64{500}
	q := base.add(8, "nginx", 10, 0)
	q.fds = []uint64{600}
	base.conns = []types.ConnectionRecord{
		{Protocol: types.TCP, State: types.StateListening, Owner: types.Owner{PID: types.NoPID, Inode: 500}},
		{Protocol: types.TCP, State: types.StateListening, Owner: types.Owner{PID: types.NoPID, Inode: 600}},
		{Protocol: types.UDP, Owner: types.Owner{PID: types.NoPID}},
	}
	src := fdSource{base}
	m := New(src, Options{Logger: quietLogger()})
	ctx := context.Background()

	det, err := m.Detail(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "sshd", det.Process.Name)
	assert.Equal(t, "/bin/sshd", det.Process.Cmdline)
	assert.Equal(t, types.Unknown, det.Process.CPU)
	assert.Len(t, det.Modules, 2)
	require.Len(t, det.Connections, 1)
	assert.Equal(t, uint64(500), det.Connections[0].Owner.Inode)
	assert.Equal(t, int32(7), det.Connections[0].Owner.PID)

	_, err = m.Detail(ctx, 99)
	assert.ErrorIs(t, err, ErrNoProcess)
}

func TestDetail_DoesNotDisturbUsage(t *testing.T) {
	src := newFakeSource()
	src.add(1, "init", 1, 0)
	m := New(src, Options{Logger: quietLogger()})
	ctx := context.Background()

	src.clock = 100
	_, err := m.Snapshot(ctx)
	require.NoError(t, err)
	src.clock = 200
	src.procs[1].cpu.User = 30
	_, err = m.Snapshot(ctx)
	require.NoError(t, err)

	det, err := m.Detail(ctx, 1)
	require.NoError(t, err)
	assert.InDelta(t, 30.0, float64(det.Process.CPU), 1e-9, "latest snapshot value")
	assert.Equal(t, 1, m.acct.Len())
}

func TestNetwork(t *testing.T) {
	base := newFakeSource()
	base.add(7, "sshd", 10, 0).fds = []uint64{500}
	base.add(8, "nginx", 10, 0).fds = []uint64{600}
	base.vanish[8] = true
	base.conns = []types.ConnectionRecord{
		{Owner: types.Owner{PID: types.NoPID, Inode: 500}},
		{Owner: types.Owner{PID: types.NoPID, Inode: 600}},
	}
	ctx := context.Background()

	t.Run("plain", func(t *testing.T) {
		m := New(fdSource{base}, Options{Logger: quietLogger()})
		conns, res, err := m.Network(ctx, false)
		require.NoError(t, err)
		assert.Equal(t, 0, res.Pending)
		for _, c := range conns {
			assert.Equal(t, types.NoPID, c.Owner.PID)
		}
	})

	t.Run("resolved", func(t *testing.T) {
		m := New(fdSource{base}, Options{Logger: quietLogger()})
		conns, res, err := m.Network(ctx, true)
		require.NoError(t, err)
		assert.Equal(t, 2, res.Pending)
		assert.Equal(t, 1, res.Resolved)
		assert.Equal(t, 1, res.Skipped)
		assert.Equal(t, int32(7), conns[0].Owner.PID)
		assert.Equal(t, types.NoPID, conns[1].Owner.PID)
	})

	t.Run("tagging backend", func(t *testing.T) {
		m := New(base, Options{Logger: quietLogger()})
		_, res, err := m.Network(ctx, true)
		require.NoError(t, err)
		assert.Equal(t, 0, res.Pending, "no descriptor source, no scan")
	})
}

func TestClose(t *testing.T) {
	src := newFakeSource()
	m := New(src, Options{})
	require.NoError(t, m.Close())
	assert.True(t, src.closed)
	assert.Equal(t, "fake", m.Backend())
}

func TestParseSortKeyAndBackend(t *testing.T) {
	k, err := ParseSortKey("")
	require.NoError(t, err)
	assert.Equal(t, SortPID, k)
	k, err = ParseSortKey("CPU")
	require.NoError(t, err)
	assert.Equal(t, SortCPU, k)
	_, err = ParseSortKey("rss")
	assert.ErrorIs(t, err, ErrBadSort)

	b, err := ParseBackend("")
	require.NoError(t, err)
	assert.Equal(t, BackendAuto, b)
	b, err = ParseBackend("psutil")
	require.NoError(t, err)
	assert.Equal(t, BackendPsutil, b)
	_, err = ParseBackend("wmi")
	assert.ErrorIs(t, err, ErrBadBackend)
}

func TestOpenSource_Psutil(t *testing.T) {
	src, err := OpenSource(OpenOptions{Backend: BackendPsutil, Logger: quietLogger()})
	require.NoError(t, err)
	assert.Equal(t, "psutil", src.Name())
	require.NoError(t, src.Close())

	_, err = OpenSource(OpenOptions{Backend: "bogus"})
	assert.ErrorIs(t, err, ErrBadBackend)
}
