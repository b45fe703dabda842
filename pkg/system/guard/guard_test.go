package guard

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuard_ReleaseAtMostOnce(t *testing.T) {
	calls := 0
	g := New("counter", 7, 0, func(v int) error {
		calls++
		assert.Equal(t, 7, v)
		return nil
	}, nil)

	require.True(t, g.Valid())
	assert.Equal(t, 7, g.Get())

	require.NoError(t, g.Release())
	require.NoError(t, g.Release())
	require.NoError(t, g.Close())

	assert.Equal(t, 1, calls)
	assert.False(t, g.Valid())
	assert.Equal(t, 0, g.Get())
}

func TestGuard_EmptyNeverReleased(t *testing.T) {
	called := false
	g := New("empty", 0, 0, func(int) error { called = true; return nil }, nil)
	require.NoError(t, g.Release())
	assert.False(t, called)
}

func TestGuard_ResetReleasesPrevious(t *testing.T) {
	var released []int
	g := New("slot", 1, 0, func(v int) error {
		released = append(released, v)
		return nil
	}, nil)

	require.NoError(t, g.Reset(2))
	assert.Equal(t, []int{1}, released)
	assert.Equal(t, 2, g.Get())

	require.NoError(t, g.Release())
	assert.Equal(t, []int{1, 2}, released)
}

func TestGuard_ReleaseFailureIsReported(t *testing.T) {
	boom := errors.New("boom")
	rec := NewRecorder(nil)
	g := New("socket", 3, 0, func(int) error { return boom }, rec)

	err := g.Release()
	require.Error(t, err)

	var re *ReleaseError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "socket", re.Kind)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "release socket")

	// The resource is gone even though release failed.
	assert.False(t, g.Valid())
	require.NoError(t, g.Release())

	faults := rec.Drain()
	require.Len(t, faults, 1)
	assert.Same(t, re, faults[0])
	assert.Empty(t, rec.Drain())
}

func TestOpen_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x")
	require.NoError(t, os.WriteFile(path, []byte("hi"), 0o600))

	g, err := Open(path, nil)
	require.NoError(t, err)
	f := g.Get()
	require.NotNil(t, f)

	require.NoError(t, g.Release())
	_, err = f.Read(make([]byte, 1))
	assert.ErrorIs(t, err, os.ErrClosed)

	_, err = Open(filepath.Join(t.TempDir(), "missing"), nil)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestFile_DoubleCloseReported(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x")
	require.NoError(t, os.WriteFile(path, nil, 0o600))
	f, err := os.Open(path)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	rec := NewRecorder(nil)
	g := File(f, rec)
	err = g.Release()
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrClosed)
	assert.Len(t, rec.Drain(), 1)
}

func TestFunc(t *testing.T) {
	n := 0
	g := Func("terminal", func() error { n++; return nil }, nil)
	require.True(t, g.Valid())
	require.NoError(t, g.Release())
	require.NoError(t, g.Release())
	assert.Equal(t, 1, n)
}

func TestLogReporter(t *testing.T) {
	var buf bytes.Buffer
	lg := slog.New(slog.NewTextHandler(&buf, nil))
	rec := NewRecorder(LogReporter{Logger: lg})

	rec.Report(&ReleaseError{Kind: "dir", Err: errors.New("EBADF")})
	assert.Contains(t, buf.String(), "release failed")
	assert.Contains(t, buf.String(), "kind=dir")
	assert.Len(t, rec.Drain(), 1)
}
