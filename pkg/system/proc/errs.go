package proc

import "errors"

var (
	// ErrNoStat indicates that /proc/<pid>/stat was empty or malformed.
	ErrNoStat = errors.New("proc: malformed or empty stat")

	// ErrShortStat indicates that /proc/<pid>/stat had fewer fields than expected.
	ErrShortStat = errors.New("proc: short stat")

	// ErrNoStatus indicates that /proc/<pid>/status had no Name line.
	ErrNoStatus = errors.New("proc: malformed status")

	// ErrNoUptime indicates that /proc/uptime could not be parsed.
	ErrNoUptime = errors.New("proc: malformed uptime")

	// ErrNoMemTotal indicates that /proc/meminfo had no MemTotal line.
	ErrNoMemTotal = errors.New("proc: no MemTotal")
)
