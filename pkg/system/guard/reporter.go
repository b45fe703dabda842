package guard

import (
	"log/slog"
	"sync"
)

// Reporter receives release faults. Implementations must not panic.
type Reporter interface {
	Report(err *ReleaseError)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(err *ReleaseError)

func (f ReporterFunc) Report(err *ReleaseError) { f(err) }

// Discard drops every fault.
var Discard Reporter = ReporterFunc(func(*ReleaseError) {})

// LogReporter logs faults at warn level.
type LogReporter struct {
	Logger *slog.Logger
}

func (l LogReporter) Report(err *ReleaseError) {
	lg := l.Logger
	if lg == nil {
		lg = slog.Default()
	}
	lg.Warn("release failed", "kind", err.Kind, "err", err.Err)
}

// Recorder keeps faults until drained and forwards each to Next.
type Recorder struct {
	Next Reporter

	mu     sync.Mutex
	faults []*ReleaseError
}

// NewRecorder returns a Recorder forwarding to next (may be nil).
func NewRecorder(next Reporter) *Recorder { return &Recorder{Next: next} }

func (r *Recorder) Report(err *ReleaseError) {
	r.mu.Lock()
	r.faults = append(r.faults, err)
	r.mu.Unlock()

	if r.Next != nil {
		r.Next.Report(err)
	}
}

// Drain returns and forgets the recorded faults.
func (r *Recorder) Drain() []*ReleaseError {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.faults
	r.faults = nil
	return out
}
