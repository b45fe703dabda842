package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/ja7ad/taskmgr/pkg/config"
	"github.com/ja7ad/taskmgr/pkg/input"
	"github.com/ja7ad/taskmgr/pkg/system/guard"
)

const (
	enterAltScreen = "\x1b[?1049h\x1b[?25l"
	leaveAltScreen = "\x1b[?25h\x1b[?1049l"
	clearScreen    = "\x1b[H\x1b[2J"

	// header lines above the table rows
	chromeLines = 3
)

func runTop(ctx context.Context, cfg *config.Config, once bool) error {
	fd := int(os.Stdin.Fd())
	interactive := !once && term.IsTerminal(fd) && term.IsTerminal(int(os.Stdout.Fd()))

	defer slog.SetDefault(slog.Default())
	logs, err := setupLogging(cfg, interactive)
	if err != nil {
		return err
	}
	defer logs.Release()

	rec := guard.NewRecorder(guard.LogReporter{})
	m, err := openMonitor(cfg, rec)
	if err != nil {
		return err
	}
	defer m.Close()

	// The first snapshot only primes the CPU cache.
	if _, err := m.Snapshot(ctx); err != nil {
		return err
	}
	if sleep(ctx, primeDelay) != nil {
		return nil
	}

	v := view{Limit: cfg.Limit, Cmdline: cfg.Cmdline, Backend: m.Backend()}

	if !interactive {
		tbl, err := m.Snapshot(ctx)
		if err != nil {
			return err
		}
		renderProcesses(os.Stdout, tbl, v)
		return nil
	}

	screen, err := enterScreen(fd, rec)
	if err != nil {
		return err
	}
	defer screen.Release()

	keys := input.NewListener(os.Stdin)
	var buf bytes.Buffer
	for {
		tbl, err := m.Snapshot(ctx)
		switch {
		case ctx.Err() != nil:
			return nil
		case err != nil:
			slog.Warn("snapshot failed", "err", err)
		default:
			if v.Limit == 0 {
				v.Rows = fitRows(int(os.Stdout.Fd()))
			}
			buf.Reset()
			v.Offset = renderProcesses(&buf, tbl, v)
			draw(buf.String())
		}

		k, _ := keys.Wait(ctx, cfg.Interval)
		if ctx.Err() != nil {
			return nil
		}
		switch k {
		case input.KeyQuit:
			return nil
		case input.KeyUp:
			v.Offset = max(0, v.Offset-1)
		case input.KeyDown:
			v.Offset++
		}
	}
}

// enterScreen switches the terminal to raw mode on the alternate screen. The
// returned guard restores both.
func enterScreen(fd int, rep guard.Reporter) (*guard.Guard[bool], error) {
	state, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("raw terminal: %w", err)
	}
	fmt.Fprint(os.Stdout, enterAltScreen)

	return guard.Func("terminal", func() error {
		_, werr := fmt.Fprint(os.Stdout, leaveAltScreen)
		return errors.Join(term.Restore(fd, state), werr)
	}, rep), nil
}

// draw repaints the screen. Raw mode does not translate "\n".
func draw(frame string) {
	fmt.Fprint(os.Stdout, clearScreen+strings.ReplaceAll(frame, "\n", "\r\n"))
}

func fitRows(fd int) int {
	_, h, err := term.GetSize(fd)
	if err != nil || h <= chromeLines {
		return 20
	}
	return h - chromeLines
}
