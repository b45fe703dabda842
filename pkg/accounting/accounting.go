// Package accounting turns cumulative per-process CPU tick counters into
// usage percentages.
//
// Each cycle the caller refreshes the system clock once, then asks for the
// usage of every sampled pid, then retains only the pids that are still
// alive:
//
//	acc.RefreshClock(ctx)
//	for _, pid := range pids {
//	    rec.CPU = acc.Usage(pid, sample)
//	}
//	acc.Retain(pids)
//
// usage = (ticks_now - ticks_prev) × K / (elapsed × Cores)
//
// The first observation of a pid has no delta and yields types.Unknown.
package accounting

import (
	"context"
	"fmt"

	"github.com/ja7ad/taskmgr/pkg/types"
)

// Clock reads a monotonic system time in the same tick unit as the samples.
type Clock interface {
	SystemTicks(ctx context.Context) (float64, error)
}

// Accountant owns the per-pid sample cache. It is not safe for concurrent use.
type Accountant struct {
	cfg   *Config
	clock Clock

	prevClock float64
	scale     float64
	valid     bool

	cache map[int32]types.CPUSample
}

// New creates an accountant with the given config.
// Fields > 0 in cfg override defaults.
func New(clock Clock, cfg *Config) *Accountant {
	base := _defaultConfig()
	a := &Accountant{clock: clock, cache: make(map[int32]types.CPUSample)}

	// No user cfg: use defaults as-is.
	if cfg == nil {
		a.cfg = base
		return a
	}

	merged := *base
	if cfg.K > 0 {
		merged.K = cfg.K
	}
	if cfg.Cores > 0 {
		merged.Cores = cfg.Cores
	}
	if cfg.MinElapsed > 0 {
		merged.MinElapsed = cfg.MinElapsed
	}
	if cfg.Epsilon > 0 {
		merged.Epsilon = cfg.Epsilon
	}

	a.cfg = &merged
	return a
}

// Config returns the effective configuration.
func (a *Accountant) Config() Config { return *a.cfg }

// RefreshClock reads the clock once and fixes the scale for this cycle. On
// failure the cycle is invalid and the cache is left untouched.
func (a *Accountant) RefreshClock(ctx context.Context) error {
	now, err := a.clock.SystemTicks(ctx)
	if err != nil {
		a.valid = false
		return fmt.Errorf("%w: %w", ErrClock, err)
	}

	elapsed := now - a.prevClock
	if elapsed <= a.cfg.MinElapsed {
		elapsed = a.cfg.Epsilon
	}
	a.scale = a.cfg.K / (elapsed * float64(a.cfg.Cores))
	a.prevClock = now
	a.valid = true
	return nil
}

// Valid reports whether the last RefreshClock succeeded.
func (a *Accountant) Valid() bool { return a.valid }

// Scale returns the factor applied to tick deltas this cycle.
func (a *Accountant) Scale() float64 { return a.scale }

// Usage records s for pid and returns the usage since the previous sample.
// It returns types.Unknown on first sight, when the pid now belongs to a
// different process (start tick changed), when counters went backwards, and
// for every pid of a cycle whose clock read failed.
func (a *Accountant) Usage(pid int32, s types.CPUSample) types.Percent {
	if !a.valid {
		return types.Unknown
	}

	prev, seen := a.cache[pid]
	a.cache[pid] = s

	if !seen || prev.Start != s.Start || s.Total() < prev.Total() {
		return types.Unknown
	}
	return types.Percent(float64(s.Total()-prev.Total()) * a.scale)
}

// Retain drops cached samples of pids not in live.
func (a *Accountant) Retain(live []int32) {
	keep := make(map[int32]struct{}, len(live))
	for _, pid := range live {
		keep[pid] = struct{}{}
	}
	for pid := range a.cache {
		if _, ok := keep[pid]; !ok {
			delete(a.cache, pid)
		}
	}
}

// Len returns the number of cached pids.
func (a *Accountant) Len() int { return len(a.cache) }
