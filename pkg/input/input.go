// Package input waits for single key presses with a bounded, cancellable
// wait. A blocking read cannot be interrupted, so at most one reader
// goroutine exists at a time; it hands exactly one key over a channel and
// exits. The caller never shares any other state with it.
package input

import (
	"context"
	"io"
	"sync"
	"time"
)

// Key is a decoded key press.
type Key int

const (
	KeyNone Key = iota
	KeyUp
	KeyDown
	KeyQuit
	KeyOther
)

func (k Key) String() string {
	switch k {
	case KeyUp:
		return "up"
	case KeyDown:
		return "down"
	case KeyQuit:
		return "quit"
	case KeyOther:
		return "other"
	default:
		return "none"
	}
}

// Decode maps one read from a raw-mode terminal to a Key.
func Decode(b []byte) Key {
	switch string(b) {
	case "":
		return KeyNone
	case "\x1b[A", "\x1bOA", "k":
		return KeyUp
	case "\x1b[B", "\x1bOB", "j":
		return KeyDown
	case "\x1b", "q", "Q", "\x03":
		return KeyQuit
	default:
		return KeyOther
	}
}

// Listener reads keys from r.
type Listener struct {
	r    io.Reader
	keys chan Key

	mu      sync.Mutex
	running bool
	done    chan struct{}
	err     error
}

// NewListener returns a Listener reading from r (usually a raw-mode stdin).
func NewListener(r io.Reader) *Listener {
	done := make(chan struct{})
	close(done)
	return &Listener{r: r, keys: make(chan Key, 1), done: done}
}

// Wait returns the next key, or false once d elapses or ctx is done. After
// the reader hits an error (e.g. EOF) Wait only sleeps out its bound.
func (l *Listener) Wait(ctx context.Context, d time.Duration) (Key, bool) {
	l.start()

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case k := <-l.keys:
		return k, true
	case <-t.C:
		return KeyNone, false
	case <-ctx.Done():
		return KeyNone, false
	}
}

// Running reports whether a reader goroutine is blocked in a read.
func (l *Listener) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}

// Done is closed when the current reader (if any) has exited.
func (l *Listener) Done() <-chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.done
}

// Err returns the error that stopped reading, if any.
func (l *Listener) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

func (l *Listener) start() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running || l.err != nil {
		return
	}
	l.running = true
	l.done = make(chan struct{})
	go l.read(l.done)
}

func (l *Listener) read(done chan struct{}) {
	var buf [8]byte
	n, err := l.r.Read(buf[:])

	var k Key
	if n > 0 {
		k = Decode(buf[:n])
	}
	if k != KeyNone {
		// the buffer holds one key; a second waits here for its reader
		l.keys <- k
	}

	l.mu.Lock()
	if err != nil {
		l.err = err
	}
	l.running = false
	l.mu.Unlock()
	close(done)
}
