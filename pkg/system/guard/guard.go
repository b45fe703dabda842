// Package guard provides scoped ownership of OS resources (file and
// directory handles, terminal state) with at-most-once release.
//
// A Guard is acquired with a value and a release function. Release runs the
// function once and forgets the value, so later calls are no-ops. A failing
// release is handed to a Reporter and returned as a *ReleaseError; it never
// aborts the caller, and the resource is treated as gone either way.
//
//	g, err := guard.Open("/proc/1/stat", rep)
//	if err != nil {
//	    return err
//	}
//	defer g.Release()
package guard

import "os"

// Guard owns at most one value of T at a time. The zero value of T passed as
// empty means "nothing held". A Guard is not safe for concurrent use.
type Guard[T comparable] struct {
	kind    string
	v       T
	empty   T
	release func(T) error
	rep     Reporter
}

// New acquires v. release is called exactly once for every non-empty value
// the guard ends up holding.
func New[T comparable](kind string, v, empty T, release func(T) error, r Reporter) *Guard[T] {
	if r == nil {
		r = Discard
	}
	return &Guard[T]{kind: kind, v: v, empty: empty, release: release, rep: r}
}

// Get returns the held value, or the empty value after release.
func (g *Guard[T]) Get() T { return g.v }

// Valid reports whether a value is held.
func (g *Guard[T]) Valid() bool { return g.v != g.empty }

// Reset releases the current value (if any) and takes ownership of v.
func (g *Guard[T]) Reset(v T) error {
	err := g.Release()
	g.v = v
	return err
}

// Release gives the value back to the OS. Calling it again is a no-op.
func (g *Guard[T]) Release() error {
	if !g.Valid() {
		return nil
	}
	v := g.v
	g.v = g.empty

	if err := g.release(v); err != nil {
		re := &ReleaseError{Kind: g.kind, Err: err}
		g.rep.Report(re)
		return re
	}
	return nil
}

// Close is Release, so a Guard satisfies io.Closer.
func (g *Guard[T]) Close() error { return g.Release() }

// File guards an already opened file or directory.
func File(f *os.File, r Reporter) *Guard[*os.File] {
	return New("file", f, nil, (*os.File).Close, r)
}

// Open opens path read-only and guards the handle.
func Open(path string, r Reporter) (*Guard[*os.File], error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return File(f, r), nil
}

// Func guards an arbitrary undo action, e.g. restoring terminal state.
func Func(kind string, undo func() error, r Reporter) *Guard[bool] {
	return New(kind, true, false, func(bool) error { return undo() }, r)
}
