// Package correlate attributes pending sockets to processes by matching the
// socket inode of each connection against the descriptors every process
// holds.
//
// The scan costs O(processes × descriptors) per call and keeps nothing
// between calls.
package correlate

import (
	"context"

	"github.com/ja7ad/taskmgr/pkg/types"
)

// DescriptorSource lists the socket inodes a process currently holds.
type DescriptorSource interface {
	SocketInodes(ctx context.Context, pid int32) ([]uint64, error)
}

// Result summarizes one correlation pass.
type Result struct {
	// Pending is the number of records that were resolvable by inode.
	Pending int
	// Resolved is the number of those that got an owner.
	Resolved int
	// Conflicts counts inodes claimed by more than one pid (shared after
	// fork, or pid reuse mid-scan). The later pid in scan order wins.
	Conflicts int
	// Skipped is the number of pids whose descriptors could not be read.
	Skipped int
}

// Resolve sets Owner.PID on every pending record in conns whose inode is held
// by one of pids. Unmatched records keep types.NoPID. Only a cancelled ctx
// stops the scan early; per-pid failures are counted in Result.Skipped.
func Resolve(ctx context.Context, conns []types.ConnectionRecord, pids []int32, src DescriptorSource) (Result, error) {
	var res Result

	byInode := make(map[uint64][]int)
	for i := range conns {
		if !conns[i].Owner.Pending() {
			continue
		}
		res.Pending++
		ino := conns[i].Owner.Inode
		byInode[ino] = append(byInode[ino], i)
	}
	if len(byInode) == 0 {
		return res, nil
	}

	for _, pid := range pids {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		inodes, err := src.SocketInodes(ctx, pid)
		if err != nil {
			res.Skipped++
			continue
		}
		for _, ino := range inodes {
			for _, i := range byInode[ino] {
				owner := &conns[i].Owner
				switch owner.PID {
				case types.NoPID:
					res.Resolved++
				case pid:
				default:
					res.Conflicts++
				}
				owner.PID = pid
			}
		}
	}
	return res, nil
}

// Owned returns the records of conns owned by pid.
func Owned(conns []types.ConnectionRecord, pid int32) []types.ConnectionRecord {
	var out []types.ConnectionRecord
	for _, c := range conns {
		if c.Owner.PID == pid {
			out = append(out, c)
		}
	}
	return out
}
