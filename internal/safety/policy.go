package safety

import (
	"github.com/vtcode-go/vtcode/internal/errkind"
	"github.com/vtcode-go/vtcode/internal/sandbox"
)

// Disposition is the outcome of evaluating a shell invocation.
type Disposition string

const (
	DispositionAllowed Disposition = "allowed"
	DispositionBlocked Disposition = "blocked"
)

// Decision records why a command was allowed or blocked.
type Decision struct {
	Disposition Disposition
	Severity    Severity
	Category    Category
	Reason      string
}

// Threshold gates which severities are allowed to run unrestricted
// (spec.md §6: "a global threshold (default: only Low is unrestricted)
// determines auto-block").
type Threshold struct {
	MinBlocked Severity
}

// DefaultPolicyThreshold returns the default threshold: severities at or
// above Medium are auto-blocked.
func DefaultPolicyThreshold() Threshold {
	return Threshold{MinBlocked: DefaultThreshold}
}

// Evaluate decides whether command may execute. For commands in
// AllowListed, it also validates command's argument shape against that
// command's grammar, resolving any path operands through guard relative
// to workDir. For commands found in the severity database but not
// allow-listed, the decision is driven purely by severity against
// threshold. Commands that are neither allow-listed nor in the database
// default to Medium/ProcessManagement, matching the conservative posture
// of treating unknown commands as needing scrutiny.
func Evaluate(threshold Threshold, guard *sandbox.Guard, workDir string, command []string) (Decision, error) {
	if len(command) == 0 {
		return Decision{}, errkind.New(errkind.InvalidArgs, "command cannot be empty")
	}
	name := command[0]

	if AllowListed[name] {
		if err := ValidateAllowListed(guard, workDir, command); err != nil {
			return Decision{
				Disposition: DispositionBlocked,
				Severity:    SeverityLow,
				Reason:      err.Error(),
			}, err
		}
		return Decision{Disposition: DispositionAllowed, Severity: SeverityLow}, nil
	}

	info, known := Lookup(name)
	if !known {
		info = CommandInfo{Name: name, Severity: SeverityMedium, Category: CategoryProcessManagement}
	}

	if info.Severity.AtOrAbove(threshold.MinBlocked) {
		return Decision{
			Disposition: DispositionBlocked,
			Severity:    info.Severity,
			Category:    info.Category,
			Reason:      "command " + name + " has severity " + info.Severity.String() + ", at or above the block threshold",
		}, errkind.New(errkind.Blocked, "command %q is blocked by execution policy (severity %s)", name, info.Severity)
	}

	return Decision{Disposition: DispositionAllowed, Severity: info.Severity, Category: info.Category}, nil
}
