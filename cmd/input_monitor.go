package cmd

import (
	"context"
	"os"

	"github.com/vtcode-go/vtcode/cmd/ui"
	"github.com/vtcode-go/vtcode/internal/logging"
	"github.com/vtcode-go/vtcode/internal/turn"

	"github.com/muesli/cancelreader"
	"golang.org/x/term"
)

func hitlDebugEnabled() bool {
	v := os.Getenv("HITL_DEBUG")
	return v != "" && v != "0" && v != "false"
}

// monitorEscapeKey puts the terminal in raw mode and listens for ESC
// bytes for the duration of ctx, calling onEscape each time one arrives.
// It returns a cleanup function that must be called to restore terminal
// mode. Grounded on teacher cmd/input_monitor.go's monitorCancellation,
// generalized from a single cancel() call to an onEscape callback so the
// caller (here, turn_loop.go's monitorCancellation) can report which
// turn.CancelLevel the signal escalated to.
func monitorEscapeKey(ctx context.Context, onEscape func() turn.CancelLevel) func() {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return func() {}
	}

	oldState, err := term.MakeRaw(fd)
	if err != nil {
		if hitlDebugEnabled() {
			logging.WarnCtx("hitl", "failed to enable raw mode for cancellation", map[string]any{"err": err.Error()})
		}
		return func() {}
	}
	ui.IsRawMode = true
	if hitlDebugEnabled() {
		logging.InfoCtx("hitl", "monitorEscapeKey enabled", map[string]any{"fd": fd})
	}

	cr, err := cancelreader.NewReader(os.Stdin)
	if err != nil {
		_ = term.Restore(fd, oldState)
		ui.IsRawMode = false
		if hitlDebugEnabled() {
			logging.InfoCtx("hitl", "monitorEscapeKey failed to create cancelreader", map[string]any{"err": err.Error()})
		}
		return func() {}
	}

	stopCh := make(chan struct{})
	cleanup := func() {
		close(stopCh)
		cr.Cancel()
		_ = term.Restore(fd, oldState)
		ui.IsRawMode = false
		if hitlDebugEnabled() {
			logging.InfoCtx("hitl", "monitorEscapeKey cleanup called")
		}
	}

	go func() {
		buf := make([]byte, 1)
		for {
			select {
			case <-ctx.Done():
				return
			case <-stopCh:
				return
			default:
			}

			n, err := cr.Read(buf)
			if err != nil || n == 0 {
				return
			}

			select {
			case <-stopCh:
				return
			default:
			}

			if buf[0] != 27 {
				continue
			}
			if hitlDebugEnabled() {
				logging.InfoCtx("hitl", "ESC byte read by cancellation monitor")
			}
			if level := onEscape(); level >= turn.CancelSession {
				return
			}
		}
	}()

	return cleanup
}
