package monitor

import "errors"

var (
	// ErrEnumerate indicates that the process listing itself failed; no
	// table can be produced for the cycle.
	ErrEnumerate = errors.New("monitor: enumerate processes")

	// ErrNoProcess indicates that a pid asked for in detail is gone.
	ErrNoProcess = errors.New("monitor: no such process")

	// ErrUnsupported indicates a backend not available on this OS.
	ErrUnsupported = errors.New("monitor: backend unsupported on this platform")

	// ErrBadBackend indicates an unknown backend name.
	ErrBadBackend = errors.New("monitor: unknown backend")

	// ErrBadSort indicates an unknown sort key.
	ErrBadSort = errors.New("monitor: unknown sort key")
)
