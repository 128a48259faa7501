package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vtcode-go/vtcode/internal/prompts"
)

// runCmd runs a saved custom prompt non-interactively, printing the
// turn's response and exiting. Grounded on teacher cmd/run.go's
// runSkill (a non-interactive wrapper around chat that starts a
// skill-activated session), generalized from the teacher's skill
// system to this module's slash-command prompt registry (spec.md
// §4.11): there is no skill concept here, but the "run this named
// thing with key=value args, non-interactively" shape carries over
// directly.
var runCmd = &cobra.Command{
	Use:   "run <prompt-name> [--arg key=value ...]",
	Short: "Run a saved prompt non-interactively and print the result",
	Args:  cobra.ExactArgs(1),
	Run:   runPrompt,
}

func init() {
	runCmd.Flags().StringArrayP("arg", "a", []string{}, "Prompt arguments (key=value)")
	rootCmd.AddCommand(runCmd)
}

func runPrompt(cmd *cobra.Command, args []string) {
	name := args[0]

	workspaceRoot, err := resolveWorkspaceRoot()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	sc, err := newSessionComponents(workspaceRoot)
	if err != nil {
		fmt.Printf("Error initializing session: %v\n", err)
		return
	}
	defer sc.MCP.Close()

	p, err := sc.Prompts.Get(name)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	argFlags, _ := cmd.Flags().GetStringArray("arg")
	inv, err := prompts.ParseInvocation(name, buildRunArgv(argFlags))
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	expanded, err := prompts.Expand(p, inv)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	sc.Engine.SessionID = "run-" + name
	if _, err := runOneTurn(context.Background(), sc.Engine, expanded); err != nil {
		fmt.Printf("\n❌ Error: %v\n", err)
	}
}

// buildRunArgv renders --arg key=value flags back into the
// $NAME=value argv form prompts.ParseInvocation expects.
func buildRunArgv(flags []string) string {
	parts := make([]string, 0, len(flags))
	for _, f := range flags {
		k, v, ok := strings.Cut(f, "=")
		if !ok {
			parts = append(parts, f)
			continue
		}
		parts = append(parts, fmt.Sprintf("%s=%s", k, v))
	}
	return strings.Join(parts, " ")
}
