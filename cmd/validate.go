package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vtcode-go/vtcode/internal/prompts"
)

// validateCmd checks that every prompt visible to the registry parses:
// it loads with well-formed YAML frontmatter and its required-argument
// list has no empty entries. Grounded on teacher cmd/validate.go's runValidate (walk a
// directory of definitions, report a pass/fail count per file),
// generalized from SKILL.md files (no longer a concept here) to this
// module's custom prompt files (spec.md §4.11).
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate custom prompts visible to this workspace",
	Run:   runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) {
	workspaceRoot, err := resolveWorkspaceRoot()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	registry := prompts.NewRegistry(promptRoots(workspaceRoot)...)
	names := registry.List()
	if len(names) == 0 {
		fmt.Println("No custom prompts found.")
		return
	}

	errorsCount := 0
	for _, name := range names {
		p, err := registry.Get(name)
		if err != nil {
			fmt.Printf("❌ %s: %v\n", name, err)
			errorsCount++
			continue
		}
		valid := true
		for _, req := range p.Frontmatter.Required {
			if req == "" {
				fmt.Printf("❌ %s: empty entry in required-argument list\n", name)
				valid = false
			}
		}
		if !valid {
			errorsCount++
			continue
		}
		fmt.Printf("✅ %s (%s)\n", name, p.Source)
	}

	if errorsCount == 0 {
		fmt.Printf("✅ All %d prompt(s) are valid.\n", len(names))
		return
	}
	fmt.Printf("❌ %d/%d prompt(s) have validation errors.\n", errorsCount, len(names))
	os.Exit(1)
}
