package types

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPercent_Known(t *testing.T) {
	assert.False(t, Unknown.Known())
	assert.Equal(t, "-", Unknown.String())

	assert.True(t, Percent(0).Known())
	assert.Equal(t, "0.0", Percent(0).String())
	assert.Equal(t, "12.3", Percent(12.34).String())
}

func TestCPUSample_Total(t *testing.T) {
	s := CPUSample{User: 7, Kernel: 5, Start: 99}
	assert.Equal(t, uint64(12), s.Total())
}

func TestProcessRecord_Label(t *testing.T) {
	r := ProcessRecord{Name: "kworker/0:1"}
	assert.Equal(t, "kworker/0:1", r.Label(false))
	assert.Equal(t, "[kworker/0:1]", r.Label(true))

	r = ProcessRecord{Name: "bash", Cmdline: "/bin/bash -l"}
	assert.Equal(t, "/bin/bash -l", r.Label(true))
}

func TestStateFromTable_Guarded(t *testing.T) {
	table := []State{StateUnknown, StateEstablished, StateListening}

	assert.Equal(t, StateEstablished, StateFromTable(table, 1))
	assert.Equal(t, StateListening, StateFromTable(table, 2))

	for _, code := range []int{-1, 3, 255, 1 << 20} {
		assert.Equal(t, StateUnknown, StateFromTable(table, code), "code=%d", code)
	}
	assert.Equal(t, StateUnknown, StateFromTable(nil, 0))
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "LISTENING", StateListening.String())
	assert.Equal(t, "ESTABLISHED", StateEstablished.String())
	assert.Equal(t, "TIME_WAIT", StateTimeWait.String())
	assert.Equal(t, "CLOSE_WAIT", StateCloseWait.String())
	assert.Equal(t, "UNKNOWN", StateUnknown.String())
	assert.Equal(t, "UNKNOWN", State(42).String())
}

func TestEndpoint_String(t *testing.T) {
	v4 := Endpoint{Addr: netip.MustParseAddr("127.0.0.1"), Port: 8080}
	assert.Equal(t, "127.0.0.1:8080", v4.String())

	v6 := Endpoint{Addr: netip.MustParseAddr("::1"), Port: 443}
	assert.Equal(t, "[::1]:443", v6.String())

	assert.Equal(t, "*:0", Endpoint{}.String())
}

func TestOwner(t *testing.T) {
	pending := Owner{PID: NoPID, Inode: 1234}
	assert.True(t, pending.Pending())
	assert.False(t, pending.Resolved())
	assert.Equal(t, "-", pending.String())

	orphan := Owner{PID: NoPID}
	assert.False(t, orphan.Pending(), "inode 0 can never be resolved")

	owned := Owner{PID: 42, Inode: 1234}
	assert.True(t, owned.Resolved())
	assert.False(t, owned.Pending())
	assert.Equal(t, "42", owned.String())
}

func TestModules_Dedup(t *testing.T) {
	const k = 5
	var paths []string
	for range k {
		paths = append(paths, "/usr/lib/libc.so.6")
	}
	paths = append(paths, "/usr/bin/bash", "[heap]", "", "[vdso]", "/usr/lib/libc.so.6 (deleted)")

	got := Modules(paths)
	require.Len(t, got, 2)
	assert.Equal(t, []ModuleRecord{{Path: "/usr/bin/bash"}, {Path: "/usr/lib/libc.so.6"}}, got)
}

func TestModules_Empty(t *testing.T) {
	assert.Empty(t, Modules(nil))
}
