package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vtcode-go/vtcode/internal/config"
)

var (
	modelFlag       string
	agentFlag       string
	autoApproveFlag bool
	enableToolsFlag bool
)

var rootCmd = &cobra.Command{
	Use:   "vtcode",
	Short: "vtcode - an interactive terminal coding agent",
	Long: `vtcode is an interactive terminal coding agent: a turn loop over a
multi-provider LLM abstraction, a sandboxed file/search/shell tool set
with human-in-the-loop approval, and a session archive you can resume.

Global Flags:
  --model         LLM model to use (provider-specific id)
  --agent         Persona/config namespace (default: "default")
  --auto-approve  Skip approval prompts (trust level: full)
  --enable-tools  Enable the built-in file/search/shell tools

Smart Invocation:
  If the binary is renamed or symlinked to "chat", running it with no
  subcommand starts an interactive session directly.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&modelFlag, "model", "", "LLM model to use (e.g., claude-sonnet-4-5, gpt-4o)")
	rootCmd.PersistentFlags().StringVar(&agentFlag, "agent", "default", "Persona/config namespace")
	rootCmd.PersistentFlags().BoolVar(&autoApproveFlag, "auto-approve", false, "Skip approval prompts")
	rootCmd.PersistentFlags().BoolVar(&enableToolsFlag, "enable-tools", true, "Enable built-in tools (ls, read, write, edit, glob, grep, shell)")
}

// Execute runs the root command with smart program-name detection.
func Execute() {
	config.LoadDotEnv(".env")
	initLogging()

	progName := filepath.Base(os.Args[0])
	progName = strings.TrimSuffix(progName, ".exe")

	switch progName {
	case "chat":
		runSmartChat()
	default:
		if len(os.Args) == 1 {
			runSmartChat()
			return
		}
		if err := rootCmd.Execute(); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
}

// runSmartChat injects "chat" as the subcommand and executes.
func runSmartChat() {
	os.Args = append([]string{os.Args[0], "chat"}, os.Args[1:]...)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
