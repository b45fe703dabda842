package types

import "strconv"

// Percent is a share of one logical core (CPU) or of physical memory.
type Percent float64

// Unknown marks a usage value that could not be computed this cycle, such as
// the first observation of a pid.
const Unknown Percent = -1

// Known reports whether p carries a computed value.
func (p Percent) Known() bool { return p >= 0 }

func (p Percent) String() string {
	if !p.Known() {
		return "-"
	}
	return strconv.FormatFloat(float64(p), 'f', 1, 64)
}

// Status is the identity and memory part of a process read from the OS.
type Status struct {
	Name string
	UID  uint32
	User string
	RSS  Bytes
}

// CPUSample is a cumulative CPU time reading for one pid, in clock ticks.
// Start identifies the process instance so a reused pid is not mistaken for
// the previous owner.
type CPUSample struct {
	User   uint64
	Kernel uint64
	Start  uint64
}

// Total returns user plus kernel ticks.
func (s CPUSample) Total() uint64 { return s.User + s.Kernel }

// ProcessRecord is one row of the process table. It is rebuilt every cycle.
type ProcessRecord struct {
	PID        int32
	Name       string
	User       string
	RSS        Bytes
	MemPercent Percent
	CPU        Percent
	Cmdline    string
}

// Label returns the command line when present, else the bracketed name
// (kernel threads have no command line).
func (r ProcessRecord) Label(cmdline bool) string {
	if !cmdline {
		return r.Name
	}
	if r.Cmdline == "" {
		return "[" + r.Name + "]"
	}
	return r.Cmdline
}

// Table is the result of one refresh cycle.
type Table struct {
	Processes  []ProcessRecord
	Cycle      uint64
	ClockValid bool
	// Faults counts handle release failures reported during the cycle.
	Faults int
}

// Detail is the on-demand view of a single process.
type Detail struct {
	Process     ProcessRecord
	Modules     []ModuleRecord
	Connections []ConnectionRecord
}
