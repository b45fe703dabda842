package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ja7ad/taskmgr/pkg/config"
	"github.com/ja7ad/taskmgr/pkg/monitor"
	"github.com/ja7ad/taskmgr/pkg/system/guard"
)

// primeDelay separates the priming snapshot from the first displayed one so
// CPU usage has a delta to work with.
const primeDelay = 150 * time.Millisecond

type opts struct {
	configPath string

	// overrides, applied only when the flag was given
	interval time.Duration
	limit    int
	sort     string
	reverse  bool
	backend  string
	procRoot string
	cmdline  bool
	logLevel string
	logFile  string

	once     bool
	withPIDs bool
}

func main() {
	var o opts

	root := &cobra.Command{
		Use:   "taskmgr",
		Short: "Live process and connection monitor",
		Long: `taskmgr shows running processes with their CPU and memory usage,
refreshing in place. Use the arrow keys (or j/k) to scroll, q or Esc to quit.

Backends:
  procfs  reads /proc directly (Linux)
  psutil  queries the OS through gopsutil (Linux, macOS, Windows, BSD)

Examples:
  taskmgr -s cpu
  taskmgr --once -c -n 20
  taskmgr net -p
  taskmgr detail 1 4000..4010`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load(cmd, o)
			if err != nil {
				return err
			}
			return runTop(cmd.Context(), cfg, o.once)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&o.configPath, "config", "", "YAML config file")
	pf.StringVar(&o.backend, "backend", "auto", "telemetry backend: auto, procfs or psutil")
	pf.StringVar(&o.procRoot, "proc-root", "/proc", "procfs mount point")
	pf.StringVar(&o.logLevel, "log-level", "info", "log level: debug, info, warn or error")
	pf.StringVar(&o.logFile, "log-file", "", "write logs to this file (the live view otherwise discards them)")

	f := root.Flags()
	f.DurationVarP(&o.interval, "interval", "i", 1500*time.Millisecond, "refresh interval (e.g. 1s, 500ms)")
	f.IntVarP(&o.limit, "limit", "n", 0, "max rows to show (0 = fit the terminal)")
	f.StringVarP(&o.sort, "sort", "s", "pid", "sort by pid, cpu, mem or name")
	f.BoolVarP(&o.reverse, "reverse", "r", false, "reverse the sort order")
	f.BoolVarP(&o.cmdline, "cmdline", "c", false, "show the command line instead of the name")
	f.BoolVar(&o.once, "once", false, "print one table and exit")

	netCmd := &cobra.Command{
		Use:   "net",
		Short: "List TCP and UDP connections",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load(cmd, o)
			if err != nil {
				return err
			}
			return runNet(cmd.Context(), cfg, o.withPIDs)
		},
	}
	netCmd.Flags().BoolVarP(&o.withPIDs, "pids", "p", false, "resolve and show the owning process of each socket")

	detailCmd := &cobra.Command{
		Use:   "detail PID|PID..PID...",
		Short: "Show modules and connections of processes",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load(cmd, o)
			if err != nil {
				return err
			}
			return runDetail(cmd.Context(), cfg, args)
		},
	}

	root.AddCommand(netCmd, detailCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

// load builds the effective config: defaults, then the file, then the flags
// the user actually set.
func load(cmd *cobra.Command, o opts) (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}

	set := func(name string, apply func()) {
		if fl := cmd.Flags().Lookup(name); fl != nil && fl.Changed {
			apply()
		}
	}
	set("interval", func() { cfg.Interval = o.interval })
	set("limit", func() { cfg.Limit = o.limit })
	set("sort", func() { cfg.Sort = o.sort })
	set("reverse", func() { cfg.Reverse = o.reverse })
	set("cmdline", func() { cfg.Cmdline = o.cmdline })
	set("backend", func() { cfg.Backend = o.backend })
	set("proc-root", func() { cfg.ProcRoot = o.procRoot })
	set("log-level", func() { cfg.LogLevel = o.logLevel })
	set("log-file", func() { cfg.LogFile = o.logFile })

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setupLogging installs the default slog logger. The returned guard closes
// the log file, if one was opened.
func setupLogging(cfg *config.Config, interactive bool) (*guard.Guard[*os.File], error) {
	level, err := cfg.Level()
	if err != nil {
		return nil, err
	}

	var (
		w  io.Writer = os.Stderr
		lf           = guard.File(nil, nil)
	)
	switch {
	case cfg.LogFile != "":
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("log file: %w", err)
		}
		lf = guard.File(f, nil)
		w = f
	case interactive:
		w = io.Discard
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
	return lf, nil
}

// openMonitor opens the configured backend.
func openMonitor(cfg *config.Config, rec *guard.Recorder) (*monitor.Monitor, error) {
	so := cfg.Source()
	so.Reporter = rec
	so.Logger = slog.Default()

	src, err := monitor.OpenSource(so)
	if err != nil {
		return nil, fmt.Errorf("backend %s: %w", so.Backend, err)
	}

	mo := cfg.Monitor()
	mo.Recorder = rec
	mo.Logger = slog.Default()
	m := monitor.New(src, mo)
	slog.Debug("monitor ready", "backend", m.Backend())
	return m, nil
}

// sleep waits d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
