//go:build linux

package proc

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"net/netip"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ja7ad/taskmgr/pkg/types"
)

// TCPStates maps the kernel's st column (include/net/tcp_states.h) to the
// states the monitor distinguishes. Codes past the end are unknown.
var TCPStates = []types.State{
	types.StateUnknown,     // 0
	types.StateEstablished, // 1 ESTABLISHED
	types.StateUnknown,     // 2 SYN_SENT
	types.StateUnknown,     // 3 SYN_RECV
	types.StateUnknown,     // 4 FIN_WAIT1
	types.StateUnknown,     // 5 FIN_WAIT2
	types.StateTimeWait,    // 6 TIME_WAIT
	types.StateUnknown,     // 7 CLOSE
	types.StateCloseWait,   // 8 CLOSE_WAIT
	types.StateUnknown,     // 9 LAST_ACK
	types.StateListening,   // 10 LISTEN
	types.StateUnknown,     // 11 CLOSING
}

type netTable struct {
	name  string
	proto types.Protocol
}

var netTables = []netTable{
	{"tcp", types.TCP},
	{"tcp6", types.TCP},
	{"udp", types.UDP},
	{"udp6", types.UDP},
}

// Connections parses /proc/net/{tcp,tcp6,udp,udp6}. Owners are left pending
// with the socket inode; see pkg/correlate for resolving them. A missing
// table (e.g. IPv6 disabled) is skipped.
func (fs *FS) Connections(ctx context.Context) ([]types.ConnectionRecord, error) {
	var out []types.ConnectionRecord
	for _, t := range netTables {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		recs, err := fs.readNetTable(filepath.Join(fs.root, "net", t.name), t.proto)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("proc: net/%s: %w", t.name, err)
		}
		out = append(out, recs...)
	}
	return out, nil
}

func (fs *FS) readNetTable(path string, proto types.Protocol) ([]types.ConnectionRecord, error) {
	var (
		out    []types.ConnectionRecord
		header = true
	)
	err := fs.scanLines(path, func(line string) bool {
		if header {
			header = false
			return true
		}
		rec, ok := parseNetLine(line, proto)
		if ok {
			out = append(out, rec)
		}
		return true
	})
	return out, err
}

// parseNetLine decodes one row:
//
//	sl local_address rem_address st tx_queue:rx_queue tr:tm->when retrnsmt uid timeout inode
func parseNetLine(line string, proto types.Protocol) (types.ConnectionRecord, bool) {
	f := strings.Fields(line)
	if len(f) < 10 {
		return types.ConnectionRecord{}, false
	}
	local, err := parseEndpoint(f[1])
	if err != nil {
		return types.ConnectionRecord{}, false
	}
	remote, err := parseEndpoint(f[2])
	if err != nil {
		return types.ConnectionRecord{}, false
	}
	code, err := strconv.ParseUint(f[3], 16, 8)
	if err != nil {
		return types.ConnectionRecord{}, false
	}
	inode, err := strconv.ParseUint(f[9], 10, 64)
	if err != nil {
		return types.ConnectionRecord{}, false
	}

	return types.ConnectionRecord{
		Protocol: proto,
		State:    types.StateFromTable(TCPStates, int(code)),
		Local:    local,
		Remote:   remote,
		Owner:    types.Owner{PID: types.NoPID, Inode: inode},
	}, true
}

// parseEndpoint decodes "0100007F:0050" style addresses. The address is
// printed as host-order (little-endian) 32-bit words; the port is plain hex.
func parseEndpoint(s string) (types.Endpoint, error) {
	addrHex, portHex, ok := strings.Cut(s, ":")
	if !ok {
		return types.Endpoint{}, fmt.Errorf("proc: bad endpoint %q", s)
	}
	port, err := strconv.ParseUint(portHex, 16, 16)
	if err != nil {
		return types.Endpoint{}, err
	}
	raw, err := hex.DecodeString(addrHex)
	if err != nil {
		return types.Endpoint{}, err
	}
	if len(raw) != 4 && len(raw) != 16 {
		return types.Endpoint{}, fmt.Errorf("proc: bad address length %d", len(raw))
	}
	for w := 0; w < len(raw); w += 4 {
		raw[w], raw[w+1], raw[w+2], raw[w+3] = raw[w+3], raw[w+2], raw[w+1], raw[w]
	}

	addr, _ := netip.AddrFromSlice(raw)
	return types.Endpoint{Addr: addr.Unmap(), Port: uint16(port)}, nil
}
