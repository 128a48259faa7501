package cmd

import (
	"context"
	"fmt"

	"github.com/vtcode-go/vtcode/cmd/ui"
	"github.com/vtcode-go/vtcode/internal/turn"
)

// runOneTurn drives a single RunTurn call, wiring a cancellation
// monitor (per internal/turn.CancelController, a first ESC cancels the
// running tool, a second within the window cancels the turn, and a
// third cancels the session) and an event
// printer over the engine's synchronous OnEvent callback. Grounded on
// teacher cmd/turn_loop.go's runTurnWithApprovals/consumeEventStream,
// generalized from the teacher's async event-stream-plus-Resume
// protocol into a direct call against turn.Engine.RunTurn, since this
// module's Executor already blocks on approval internally.
func runOneTurn(ctx context.Context, eng *turn.Engine, message string) (turn.DoneReason, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cleanup := monitorCancellation(ctx, eng)
	defer cleanup()

	p := newTurnPrinter()
	eng.OnEvent = p.onEvent

	stopSpinner, spinnerDone := ui.StartLoading("Thinking...")
	p.onFirstEvent = func() {
		select {
		case <-stopSpinner:
		default:
			close(stopSpinner)
		}
		<-spinnerDone
	}
	defer func() {
		select {
		case <-stopSpinner:
		default:
			close(stopSpinner)
		}
		<-spinnerDone
	}()

	reason, err := eng.RunTurn(ctx, message)
	p.finish()
	return reason, err
}

// turnPrinter renders turn.Event values to stdout, matching the
// teacher's scrolling tool-argument display and delta-prefix handling.
type turnPrinter struct {
	prefixPrinted bool
	firstEvent    bool
	toolArgBuffer string
	onFirstEvent  func()

	inlineStop chan struct{}
	inlineDone chan struct{}
}

// stopInlineSpinner blocks until a running per-tool-call spinner (see
// EventToolCall below) has cleared its line, if one is active.
func (p *turnPrinter) stopInlineSpinner() {
	if p.inlineStop == nil {
		return
	}
	select {
	case <-p.inlineStop:
	default:
		close(p.inlineStop)
	}
	<-p.inlineDone
	p.inlineStop, p.inlineDone = nil, nil
}

func newTurnPrinter() *turnPrinter {
	return &turnPrinter{firstEvent: true}
}

func (p *turnPrinter) onEvent(e turn.Event) {
	if p.firstEvent {
		p.firstEvent = false
		if p.onFirstEvent != nil {
			p.onFirstEvent()
		}
	}

	switch e.Type {
	case turn.EventDelta:
		if e.Delta == nil || e.Delta.Text == "" {
			return
		}
		switch e.Delta.Source {
		case turn.DeltaToolArg:
			p.toolArgBuffer += e.Delta.Text
			display := p.toolArgBuffer
			if len(display) > 80 {
				display = "..." + display[len(display)-77:]
			}
			ui.Printf("\r\033[90m   %s\033[0m\033[K", display)
		case turn.DeltaThink:
			ui.Printf("\n🤔 %s\n", e.Delta.Text)
		default:
			if p.toolArgBuffer != "" {
				ui.Print("\r\033[K")
				p.toolArgBuffer = ""
			}
			if !p.prefixPrinted {
				ui.Print("\n🤖 Agent: ")
				p.prefixPrinted = true
			}
			ui.Print(e.Delta.Text)
		}

	case turn.EventToolCall:
		if e.ToolCall == nil {
			return
		}
		if p.toolArgBuffer != "" {
			ui.Print("\r\033[K")
			p.toolArgBuffer = ""
		}
		p.stopInlineSpinner()
		p.inlineStop, p.inlineDone = ui.StartInlineSpinner(e.ToolCall.Name)

	case turn.EventToolResult:
		if e.ToolResult == nil {
			return
		}
		p.stopInlineSpinner()
		status := "ok"
		if !e.ToolResult.Success {
			status = "error"
		}
		ui.Printf("\n🔧 tool_result %s (%s)\n", e.ToolResult.Name, status)
		if !e.ToolResult.Success && e.ToolResult.Error != "" {
			ui.Printf("Error: %s\n", e.ToolResult.Error)
		}

	case turn.EventDiagnostic:
		ui.Printf("\nℹ %s\n", e.Diagnostic)

	case turn.EventError:
		if e.Error != nil {
			ui.Printf("\n❌ %s: %s\n", e.Error.Kind, e.Error.Message)
		}
	}
}

func (p *turnPrinter) finish() {
	p.stopInlineSpinner()
	if p.prefixPrinted {
		ui.Print("\n")
	}
}

// monitorCancellation wraps the shared raw-mode ESC monitor (defined in
// input_monitor.go) around eng.Cancel, so a double-ESC escalates from
// tool-cancel to turn-cancel per spec.md §4.1.
func monitorCancellation(ctx context.Context, eng *turn.Engine) func() {
	return monitorEscapeKey(ctx, func() turn.CancelLevel {
		level := eng.Cancel()
		switch level {
		case turn.CancelTool:
			fmt.Print("\r\n⚠️  Cancelling current tool...\r\n")
		case turn.CancelTurn:
			fmt.Print("\r\n⚠️  Cancelling turn...\r\n")
		case turn.CancelSession:
			fmt.Print("\r\n🛑 Cancelling session...\r\n")
		}
		return level
	})
}
