//go:build linux

package proc

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ja7ad/taskmgr/pkg/types"
)

// Status parses /proc/<pid>/status for Name, the real Uid and VmRSS.
// A missing or unparsable Name or Uid is ErrNoStatus. Kernel threads have no
// VmRSS; statm is tried before settling on zero.
func (fs *FS) Status(ctx context.Context, pid int32) (types.Status, error) {
	var (
		st      types.Status
		hasName bool
		hasUID  bool
		hasRSS  bool
		uid     uint64
	)
	err := fs.scanLines(fs.pidPath(pid, "status"), func(line string) bool {
		key, val, ok := strings.Cut(line, ":")
		if !ok {
			return true
		}
		val = strings.TrimSpace(val)
		switch key {
		case "Name":
			st.Name, hasName = val, true
		case "Uid":
			if f := strings.Fields(val); len(f) > 0 {
				v, err := strconv.ParseUint(f[0], 10, 32)
				uid, hasUID = v, err == nil
			}
		case "VmRSS":
			if f := strings.Fields(val); len(f) > 0 {
				if kb, err := strconv.ParseUint(f[0], 10, 64); err == nil {
					st.RSS, hasRSS = types.KiB(kb), true
				}
			}
		}
		return true
	})
	if err != nil {
		return types.Status{}, err
	}
	if !hasName || !hasUID {
		return types.Status{}, fmt.Errorf("%w: pid %d", ErrNoStatus, pid)
	}
	if !hasRSS {
		st.RSS = fs.rssFromStatm(pid)
	}

	st.UID = uint32(uid)
	st.User = fs.users.Name(st.UID)
	return st, nil
}

// rssFromStatm returns resident pages × page size, or 0.
func (fs *FS) rssFromStatm(pid int32) types.Bytes {
	b, err := fs.readFile(fs.pidPath(pid, "statm"))
	if err != nil {
		return 0
	}
	f := strings.Fields(string(b))
	if len(f) < 2 {
		return 0
	}
	pages, _ := strconv.ParseUint(f[1], 10, 64)
	return types.Bytes(pages * fs.page)
}

// CPUTimes parses /proc/<pid>/stat and extracts utime, stime and starttime.
//
// The comm field (2nd) is in parens and may contain spaces or ") ", so the
// numeric fields are taken after the last ") ".
func (fs *FS) CPUTimes(ctx context.Context, pid int32) (types.CPUSample, error) {
	b, err := fs.readFile(fs.pidPath(pid, "stat"))
	if err != nil {
		return types.CPUSample{}, err
	}
	return parseStat(string(b))
}

func parseStat(line string) (types.CPUSample, error) {
	i := strings.LastIndex(line, ") ")
	if i < 0 {
		return types.CPUSample{}, ErrNoStat
	}
	fields := strings.Fields(line[i+2:])

	// Relative to fields: utime (14th overall) => [11],
	// stime (15th) => [12], starttime (22nd) => [19].
	if len(fields) < 20 {
		return types.CPUSample{}, ErrShortStat
	}
	var (
		s   types.CPUSample
		err error
	)
	if s.User, err = strconv.ParseUint(fields[11], 10, 64); err != nil {
		return types.CPUSample{}, fmt.Errorf("%w: utime: %w", ErrNoStat, err)
	}
	if s.Kernel, err = strconv.ParseUint(fields[12], 10, 64); err != nil {
		return types.CPUSample{}, fmt.Errorf("%w: stime: %w", ErrNoStat, err)
	}
	if s.Start, err = strconv.ParseUint(fields[19], 10, 64); err != nil {
		return types.CPUSample{}, fmt.Errorf("%w: starttime: %w", ErrNoStat, err)
	}
	return s, nil
}

// Cmdline returns /proc/<pid>/cmdline with NUL separators turned into spaces.
// Kernel threads yield an empty string.
func (fs *FS) Cmdline(ctx context.Context, pid int32) (string, error) {
	b, err := fs.readFile(fs.pidPath(pid, "cmdline"))
	if err != nil {
		return "", err
	}
	b = bytes.TrimRight(b, "\x00")
	return string(bytes.ReplaceAll(b, []byte{0}, []byte{' '})), nil
}

// SystemTicks returns seconds since boot from /proc/uptime scaled to ticks,
// the same unit as CPUTimes.
func (fs *FS) SystemTicks(ctx context.Context) (float64, error) {
	b, err := fs.readFile(filepath.Join(fs.root, "uptime"))
	if err != nil {
		return 0, err
	}
	f := strings.Fields(string(b))
	if len(f) == 0 {
		return 0, ErrNoUptime
	}
	sec, err := strconv.ParseFloat(f[0], 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrNoUptime, err)
	}
	return sec * fs.hz, nil
}

// MemTotal returns MemTotal from /proc/meminfo.
func (fs *FS) MemTotal(ctx context.Context) (types.Bytes, error) {
	var (
		total types.Bytes
		found bool
	)
	err := fs.scanLines(filepath.Join(fs.root, "meminfo"), func(line string) bool {
		val, ok := strings.CutPrefix(line, "MemTotal:")
		if !ok {
			return true
		}
		if f := strings.Fields(val); len(f) > 0 {
			kb, err := strconv.ParseUint(f[0], 10, 64)
			total, found = types.KiB(kb), err == nil
		}
		return false
	})
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, ErrNoMemTotal
	}
	return total, nil
}
