package main

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/ja7ad/taskmgr/pkg/correlate"
	"github.com/ja7ad/taskmgr/pkg/system/util"
	"github.com/ja7ad/taskmgr/pkg/types"
)

const userWidth = 8

type view struct {
	// Limit caps the rows; 0 falls back to Rows, and 0 Rows shows all.
	Limit   int
	Rows    int
	Offset  int
	Cmdline bool
	Backend string
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

// renderProcesses prints the header and one window of rows starting at
// v.Offset. It returns the offset actually used after clamping.
func renderProcesses(w io.Writer, tbl types.Table, v view) int {
	rows := v.Limit
	if rows == 0 {
		rows = v.Rows
	}
	n := len(tbl.Processes)
	if rows <= 0 || rows > n {
		rows = n
	}
	off := min(max(v.Offset, 0), n-rows)

	fmt.Fprintf(w, "taskmgr  backend=%s  processes=%d  cycle=%d", v.Backend, n, tbl.Cycle)
	if !tbl.ClockValid {
		fmt.Fprint(w, "  cpu=n/a")
	}
	if tbl.Faults > 0 {
		fmt.Fprintf(w, "  release-faults=%d", tbl.Faults)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w)

	tw := newTable(w)
	fmt.Fprintln(tw, "PID\tUSER\tRSS\t%CPU\t%MEM\tNAME")
	for _, r := range tbl.Processes[off : off+rows] {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			r.PID, util.Truncate(r.User, userWidth), r.RSS.Compact(),
			r.CPU, r.MemPercent, r.Label(v.Cmdline),
		)
	}
	tw.Flush()
	return off
}

func renderConnections(w io.Writer, conns []types.ConnectionRecord, withPIDs bool) {
	tw := newTable(w)
	if withPIDs {
		fmt.Fprintln(tw, "PROTO\tLOCAL\tREMOTE\tSTATE\tPID")
	} else {
		fmt.Fprintln(tw, "PROTO\tLOCAL\tREMOTE\tSTATE")
	}
	for _, c := range conns {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s", c.Protocol, c.Local, c.Remote, c.State)
		if withPIDs {
			fmt.Fprintf(tw, "\t%s", c.Owner)
		}
		fmt.Fprintln(tw)
	}
	tw.Flush()
}

func renderCorrelation(w io.Writer, res correlate.Result) {
	fmt.Fprintf(w, "\nresolved %d of %d sockets", res.Resolved, res.Pending)
	if res.Skipped > 0 {
		fmt.Fprintf(w, " (%d processes unreadable)", res.Skipped)
	}
	if res.Conflicts > 0 {
		fmt.Fprintf(w, " (%d shared)", res.Conflicts)
	}
	fmt.Fprintln(w)
}

func renderDetail(w io.Writer, d types.Detail) {
	p := d.Process
	fmt.Fprintf(w, "PID %d  %s\n", p.PID, p.Name)
	tw := newTable(w)
	fmt.Fprintf(tw, "  user:\t%s\n", p.User)
	fmt.Fprintf(tw, "  rss:\t%s (%s%%)\n", p.RSS.Humanized(), p.MemPercent)
	fmt.Fprintf(tw, "  cpu:\t%s%%\n", p.CPU)
	fmt.Fprintf(tw, "  cmdline:\t%s\n", p.Label(true))
	tw.Flush()

	fmt.Fprintf(w, "\n  modules (%d):\n", len(d.Modules))
	for _, m := range d.Modules {
		fmt.Fprintf(w, "    %s\n", m.Path)
	}

	fmt.Fprintf(w, "\n  connections (%d):\n", len(d.Connections))
	if len(d.Connections) > 0 {
		var buf bytes.Buffer
		renderConnections(&buf, d.Connections, false)
		for _, line := range strings.SplitAfter(buf.String(), "\n") {
			if line != "" {
				fmt.Fprint(w, "    "+line)
			}
		}
	}
	fmt.Fprintln(w)
}
