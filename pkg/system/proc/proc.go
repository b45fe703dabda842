//go:build linux

package proc

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"os"
	"os/user"
	"path/filepath"
	"strconv"

	"github.com/tklauser/go-sysconf"
	"golang.org/x/sys/unix"

	"github.com/ja7ad/taskmgr/pkg/system/guard"
)

// DefaultRoot is where the kernel mounts procfs.
const DefaultRoot = "/proc"

// ClockTicks returns the number of jiffies (clock ticks) per second.
// The CLK_TCK env var wins (useful for testing), then sysconf(_SC_CLK_TCK),
// then the common default of 100.
func ClockTicks() int {
	if v, _ := strconv.Atoi(os.Getenv("CLK_TCK")); v > 0 {
		return v
	}
	if v, err := sysconf.Sysconf(sysconf.SC_CLK_TCK); err == nil && v > 0 {
		return int(v)
	}
	return 100
}

// PageSize returns the system memory page size in bytes.
// Like ClockTicks, it first checks an env override (PAGE_SIZE).
func PageSize() int {
	if v, _ := strconv.Atoi(os.Getenv("PAGE_SIZE")); v > 0 {
		return v
	}
	return unix.Getpagesize()
}

// Options configures an FS.
type Options struct {
	// Root is the procfs mount point. Defaults to DefaultRoot.
	Root string
	// Hz is the tick rate of the counters under Root. Defaults to ClockTicks().
	Hz int
	// PageSize is used for the statm fallback. Defaults to PageSize().
	PageSize int
	// UserCacheSize bounds the uid to name cache. Defaults to 256.
	UserCacheSize int
	// LookupUser resolves a numeric uid. Defaults to os/user.
	LookupUser func(uid string) (string, error)
	// Reporter receives handle release faults.
	Reporter guard.Reporter
	Logger   *slog.Logger
}

// FS reads process telemetry from a procfs tree. It holds no handles between
// calls; every file or directory it opens is released before returning.
type FS struct {
	root  string
	hz    float64
	page  uint64
	rep   guard.Reporter
	log   *slog.Logger
	users *userCache
}

// New returns an FS reading from opt.Root.
func New(opt Options) (*FS, error) {
	if opt.Root == "" {
		opt.Root = DefaultRoot
	}
	if opt.Hz <= 0 {
		opt.Hz = ClockTicks()
	}
	if opt.PageSize <= 0 {
		opt.PageSize = PageSize()
	}
	if opt.UserCacheSize <= 0 {
		opt.UserCacheSize = 256
	}
	if opt.LookupUser == nil {
		opt.LookupUser = lookupUser
	}
	if opt.Reporter == nil {
		opt.Reporter = guard.Discard
	}
	if opt.Logger == nil {
		opt.Logger = slog.Default()
	}

	users, err := newUserCache(opt.UserCacheSize, opt.LookupUser)
	if err != nil {
		return nil, err
	}

	return &FS{
		root:  opt.Root,
		hz:    float64(opt.Hz),
		page:  uint64(opt.PageSize),
		rep:   opt.Reporter,
		log:   opt.Logger,
		users: users,
	}, nil
}

// Name identifies the backend.
func (fs *FS) Name() string { return "procfs" }

// Hz returns the tick rate used for CPU samples and the system clock.
func (fs *FS) Hz() float64 { return fs.hz }

// Close is a no-op; FS keeps no handles open.
func (fs *FS) Close() error { return nil }

// Available reports whether root looks like a mounted procfs.
func Available(root string) bool {
	if root == "" {
		root = DefaultRoot
	}
	_, err := os.Stat(filepath.Join(root, "self", "stat"))
	return err == nil
}

// Exists reports whether a given PID currently exists under the root.
func (fs *FS) Exists(pid int32) bool {
	_, err := os.Stat(fs.pidPath(pid))
	return err == nil
}

// Pids lists the numeric entries of the root directory.
func (fs *FS) Pids(ctx context.Context) ([]int32, error) {
	names, err := fs.readDirNames(fs.root)
	if err != nil {
		return nil, err
	}

	pids := make([]int32, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		id, err := strconv.ParseInt(name, 10, 32)
		if err != nil || id <= 0 {
			continue
		}
		pids = append(pids, int32(id))
	}
	return pids, nil
}

func (fs *FS) pidPath(pid int32, elem ...string) string {
	return filepath.Join(append([]string{fs.root, strconv.Itoa(int(pid))}, elem...)...)
}

// readDirNames lists a directory through a guarded handle.
func (fs *FS) readDirNames(path string) ([]string, error) {
	g, err := guard.Open(path, fs.rep)
	if err != nil {
		return nil, err
	}
	defer g.Release()

	return g.Get().Readdirnames(-1)
}

// readFile reads a whole (small) procfs file through a guarded handle.
func (fs *FS) readFile(path string) ([]byte, error) {
	g, err := guard.Open(path, fs.rep)
	if err != nil {
		return nil, err
	}
	defer g.Release()

	return io.ReadAll(g.Get())
}

// scanLines calls fn for every line of path until fn returns false.
func (fs *FS) scanLines(path string, fn func(line string) bool) error {
	g, err := guard.Open(path, fs.rep)
	if err != nil {
		return err
	}
	defer g.Release()

	sc := bufio.NewScanner(g.Get())
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		if !fn(sc.Text()) {
			break
		}
	}
	return sc.Err()
}

func lookupUser(uid string) (string, error) {
	u, err := user.LookupId(uid)
	if err != nil {
		return "", err
	}
	return u.Username, nil
}
