//go:build linux

package proc

import (
	"context"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// linkBufSize bounds a descriptor link read. Socket targets ("socket:[N]")
// are far shorter; anything that fills the buffer is not a socket.
const linkBufSize = 64

// SocketInodes returns the socket inodes referenced by /proc/<pid>/fd.
// Opening the fd directory fails for vanished processes and for processes
// owned by other users when unprivileged; the caller skips those.
func (fs *FS) SocketInodes(ctx context.Context, pid int32) ([]uint64, error) {
	dir := fs.pidPath(pid, "fd")
	names, err := fs.readDirNames(dir)
	if err != nil {
		return nil, err
	}

	var (
		buf    [linkBufSize]byte
		inodes []uint64
	)
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := unix.Readlink(dir+"/"+name, buf[:])
		if err != nil || n >= len(buf) {
			// closed meanwhile, or truncated
			continue
		}
		if ino, ok := socketInode(string(buf[:n])); ok {
			inodes = append(inodes, ino)
		}
	}
	return inodes, nil
}

// socketInode extracts N from "socket:[N]" or "[0000]:N".
func socketInode(target string) (uint64, bool) {
	var digits string
	switch {
	case strings.HasPrefix(target, "socket:[") && strings.HasSuffix(target, "]"):
		digits = target[len("socket:[") : len(target)-1]
	case strings.HasPrefix(target, "[0000]:"):
		digits = target[len("[0000]:"):]
	default:
		return 0, false
	}
	ino, err := strconv.ParseUint(digits, 10, 64)
	if err != nil || ino == 0 {
		return 0, false
	}
	return ino, true
}
