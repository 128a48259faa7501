package tools

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/vtcode-go/vtcode/internal/model"
	"github.com/vtcode-go/vtcode/internal/safety"
	"github.com/vtcode-go/vtcode/internal/sandbox"
	"github.com/vtcode-go/vtcode/internal/textcall"
)

// ShellTool executes a shell command after argv tokenization and a
// command-safety pass. Grounded on teacher pkg/engine/tools/shell.go;
// the safety evaluation itself is internal/safety's responsibility, not
// reimplemented here.
type ShellTool struct {
	BaseTool
	guard          *sandbox.Guard
	threshold      safety.Threshold
	maxTimeout     time.Duration
	maxOutputBytes int
}

func NewShellTool(guard *sandbox.Guard) *ShellTool {
	return &ShellTool{
		BaseTool: NewBaseTool(
			"shell",
			"Execute a shell command in the workspace. Use for running build commands, tests, git operations, or any CLI tools.",
			[]ParamDef{
				{Name: "command", Type: "string", Description: "Shell command to execute", Required: true},
				{Name: "timeout_secs", Type: "integer", Description: "Timeout in seconds (default: 120)"},
			},
			model.PolicyPrompt,
			true,
		),
		guard:          guard,
		threshold:      safety.DefaultPolicyThreshold(),
		maxTimeout:     300 * time.Second,
		maxOutputBytes: 100 * 1024,
	}
}

func (t *ShellTool) Execute(ctx context.Context, args model.Args) (Result, error) {
	command := GetString(args, "command", "")
	if command == "" {
		return Failuref("command is required"), nil
	}

	argv, err := textcall.SplitShellTokens(command)
	if err != nil || len(argv) == 0 {
		return Failuref("could not parse command: %v", err), nil
	}

	decision, err := safety.Evaluate(t.threshold, t.guard, t.guard.Root(), argv)
	if err != nil {
		return Failure(err), nil
	}
	if decision.Disposition == safety.DispositionBlocked {
		return Failuref("command blocked by safety policy: %s (%s/%s)", decision.Reason, decision.Severity, decision.Category), nil
	}

	timeoutSecs := GetInt(args, "timeout_secs", 120)
	timeout := time.Duration(timeoutSecs) * time.Second
	if timeout <= 0 || timeout > t.maxTimeout {
		timeout = t.maxTimeout
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, argv[0], argv[1:]...)
	cmd.Dir = t.guard.Root()

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()

	var output strings.Builder
	if stdout.Len() > 0 {
		stdoutStr := stdout.String()
		if len(stdoutStr) > t.maxOutputBytes {
			stdoutStr = stdoutStr[:t.maxOutputBytes] + "\n\n... (stdout truncated)"
		}
		output.WriteString(stdoutStr)
	}
	if stderr.Len() > 0 {
		stderrStr := stderr.String()
		if len(stderrStr) > t.maxOutputBytes/2 {
			stderrStr = stderrStr[:t.maxOutputBytes/2] + "\n\n... (stderr truncated)"
		}
		for _, line := range strings.Split(strings.TrimSpace(stderrStr), "\n") {
			output.WriteString("[stderr] " + line + "\n")
		}
	}

	if runCtx.Err() == context.DeadlineExceeded {
		return Result{
			Content: output.String() + fmt.Sprintf("\n\nError: command timed out after %d seconds", timeoutSecs),
			IsError: true,
			Error:   "timeout",
		}, nil
	}

	if runErr != nil {
		exitCode := -1
		if exitErr, ok := runErr.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		}
		return Result{
			Content: output.String() + fmt.Sprintf("\n\nExit code: %d", exitCode),
			IsError: true,
			Error:   fmt.Sprintf("exit code %d", exitCode),
		}, nil
	}

	if output.Len() == 0 {
		return Success("<command completed with no output>"), nil
	}
	return Success(output.String()), nil
}

func (t *ShellTool) Preview(_ context.Context, args model.Args) (*Preview, error) {
	command := GetString(args, "command", "")
	timeoutSecs := GetInt(args, "timeout_secs", 120)

	return &Preview{
		Kind:     "command",
		Summary:  "Execute shell command",
		Content:  command,
		Affected: []string{t.guard.Root()},
		RiskHint: fmt.Sprintf("Timeout: %d seconds", timeoutSecs),
	}, nil
}
