//go:build linux

package proc

import (
	"context"
	"strings"

	"github.com/ja7ad/taskmgr/pkg/types"
)

// Modules lists the file-backed mappings of /proc/<pid>/maps. A process
// whose maps cannot be opened (exited, or not ours to read) yields an empty
// table rather than an error.
func (fs *FS) Modules(ctx context.Context, pid int32) ([]types.ModuleRecord, error) {
	var paths []string
	err := fs.scanLines(fs.pidPath(pid, "maps"), func(line string) bool {
		// address perms offset dev inode pathname
		f := strings.Fields(line)
		if len(f) < 6 || !strings.HasPrefix(f[5], "/") {
			return true
		}
		// the first five fields never contain '/', so the path runs from
		// the first slash to the end of line, inner spacing intact
		paths = append(paths, line[strings.IndexByte(line, '/'):])
		return true
	})
	if err != nil {
		fs.log.Debug("modules unavailable", "pid", pid, "err", err)
		return []types.ModuleRecord{}, nil
	}
	return types.Modules(paths), nil
}
