package types

import (
	"net/netip"
	"strconv"
)

// Protocol is the transport of a connection.
type Protocol uint8

const (
	TCP Protocol = iota + 1
	UDP
)

func (p Protocol) String() string {
	switch p {
	case TCP:
		return "TCP"
	case UDP:
		return "UDP"
	default:
		return "?"
	}
}

// State is the normalized socket state. Platform codes that have no entry
// here collapse to StateUnknown.
type State uint8

const (
	StateUnknown State = iota
	StateListening
	StateEstablished
	StateTimeWait
	StateCloseWait
)

func (s State) String() string {
	switch s {
	case StateListening:
		return "LISTENING"
	case StateEstablished:
		return "ESTABLISHED"
	case StateTimeWait:
		return "TIME_WAIT"
	case StateCloseWait:
		return "CLOSE_WAIT"
	default:
		return "UNKNOWN"
	}
}

// StateFromTable maps a raw platform state code through a positional table.
// Codes outside the table yield StateUnknown.
func StateFromTable(table []State, code int) State {
	if code < 0 || code >= len(table) {
		return StateUnknown
	}
	return table[code]
}

// Endpoint is one side of a connection.
type Endpoint struct {
	Addr netip.Addr
	Port uint16
}

func (e Endpoint) String() string {
	if !e.Addr.IsValid() {
		return "*:" + strconv.Itoa(int(e.Port))
	}
	return netip.AddrPortFrom(e.Addr, e.Port).String()
}

// NoPID is the owner pid of a connection whose process is not known (yet).
const NoPID int32 = -1

// Owner identifies the process holding a socket. Backends that report the pid
// directly fill PID; the others leave PID at NoPID and set Inode so the
// correlator can resolve it.
type Owner struct {
	PID   int32
	Inode uint64
}

// Resolved reports whether the owning pid is known.
func (o Owner) Resolved() bool { return o.PID != NoPID }

// Pending reports whether the owner can still be resolved by inode.
// Inode 0 belongs to sockets no process holds (e.g. TIME_WAIT).
func (o Owner) Pending() bool { return o.PID == NoPID && o.Inode != 0 }

func (o Owner) String() string {
	if !o.Resolved() {
		return "-"
	}
	return strconv.Itoa(int(o.PID))
}

// ConnectionRecord is one row of the network table.
type ConnectionRecord struct {
	Protocol Protocol
	State    State
	Local    Endpoint
	Remote   Endpoint
	Owner    Owner
}
