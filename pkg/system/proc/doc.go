// Package proc reads process, module and socket telemetry from a Linux
// procfs tree using plain text parsing.
//
// Overview
//
//   - FS is the text-record backend. It implements the monitor Source
//     (Pids, Status, CPUTimes, Cmdline, Modules, Connections, SystemTicks,
//     MemTotal) and the correlator's DescriptorSource (SocketInodes).
//
//   - Files read per pid:
//     status   : Name, real Uid, VmRSS (statm × page size as fallback)
//     stat     : utime, stime, starttime (after the last ") ")
//     cmdline  : NUL separated argv
//     maps     : file-backed mappings, deduplicated by path
//     fd/*     : "socket:[N]" links, read into a bounded buffer
//
//   - System files:
//     uptime        : seconds since boot, scaled by Hz to ticks
//     meminfo       : MemTotal
//     net/tcp,tcp6,udp,udp6 : socket tables, states mapped through TCPStates
//
//   - Errors (errs.go):
//     ErrNoStat, ErrShortStat : unparsable stat line
//     ErrNoStatus             : status without a Name line
//     ErrNoUptime, ErrNoMemTotal
//
// Every handle is opened through pkg/system/guard and released before the
// call returns; nothing is kept open between cycles. The uid to name map is
// the only state (a bounded LRU).
//
// The root is configurable (Options.Root) so tests can point FS at a
// synthetic tree.
//
// Package import path: github.com/ja7ad/taskmgr/pkg/system/proc
package proc
