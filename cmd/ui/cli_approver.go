package ui

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/vtcode-go/vtcode/internal/model"
	"github.com/vtcode-go/vtcode/internal/tools"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"
)

// CLIApprover implements executor.Approver for terminal interaction.
// Grounded on the same file's teacher form (a bubbletea selection
// model with a non-interactive fallback), retargeted from the
// teacher's ApprovalPayload/Decision shape to this module's
// model.Args/tools.Preview/model.ApprovalState.
type CLIApprover struct {
	Reader *bufio.Reader

	mu         sync.Mutex
	autoAccept bool
}

// NewCLIApprover creates a new CLI approver reading from stdin.
func NewCLIApprover() *CLIApprover {
	return &CLIApprover{Reader: bufio.NewReader(os.Stdin)}
}

// SetAutoAccept latches (or clears) the sticky auto-approve state, for
// wiring --auto-approve/config.AutoApprove in ahead of any prompting.
func (c *CLIApprover) SetAutoAccept(v bool) {
	c.mu.Lock()
	c.autoAccept = v
	c.mu.Unlock()
}

// RequestApproval prompts the user with an interactive selection UI,
// falling back to a line-based prompt on non-terminal stdin. Once the
// user picks "Auto-approve all", every later call on this Approver
// returns Approved without prompting again.
func (c *CLIApprover) RequestApproval(ctx context.Context, name string, args model.Args, preview *tools.Preview) (model.ApprovalState, error) {
	c.mu.Lock()
	auto := c.autoAccept
	c.mu.Unlock()
	if auto {
		return model.ApprovalApproved, nil
	}

	fmt.Println()
	fmt.Println("\033[33m╭──────────────────────────────────────────────────────────╮\033[0m")
	fmt.Println("\033[33m│\033[0m  \033[1;33m⚠️  Tool Action Requires Approval\033[0m                        \033[33m│\033[0m")
	fmt.Println("\033[33m╰──────────────────────────────────────────────────────────╯\033[0m")
	fmt.Println()

	if preview != nil {
		fmt.Printf("\033[1mPreview:\033[0m %s\n", preview.Summary)
		if preview.RiskHint != "" {
			fmt.Printf("\033[1mRisk:\033[0m %s\n", preview.RiskHint)
		}
		if len(preview.Affected) > 0 {
			fmt.Printf("\033[1mAffected:\033[0m %s\n", strings.Join(preview.Affected, ", "))
		}
		if preview.Content != "" {
			fmt.Println()
			fmt.Println(preview.Content)
		}
	} else {
		fmt.Printf("\033[1mTool:\033[0m %s\n", name)
		if len(args) > 0 {
			fmt.Println("\033[1mArguments:\033[0m")
			for k, v := range args {
				vStr := fmt.Sprintf("%v", v)
				if len(vStr) > 100 {
					vStr = vStr[:100] + "..."
				}
				fmt.Printf("  %s: %s\n", k, vStr)
			}
		}
	}
	fmt.Println()

	var state model.ApprovalState
	var err error
	if term.IsTerminal(int(os.Stdin.Fd())) {
		state, err = c.interactiveApproval()
	} else {
		state, err = c.simpleApproval()
	}
	if err != nil {
		return model.ApprovalDenied, err
	}

	// interactiveApproval/simpleApproval signal "auto-approve all" by
	// returning ApprovalPreApproved instead of ApprovalApproved; latch
	// the sticky flag and normalize the return value here.
	if state == model.ApprovalPreApproved {
		c.mu.Lock()
		c.autoAccept = true
		c.mu.Unlock()
		state = model.ApprovalApproved
	}
	return state, nil
}

// interactiveApproval uses bubbletea for selection. Returns
// ApprovalPreApproved (rather than ApprovalApproved) to signal "also
// latch auto-approve", which RequestApproval translates.
func (c *CLIApprover) interactiveApproval() (model.ApprovalState, error) {
	m := initialApprovalModel()
	p := tea.NewProgram(m)

	finalModel, err := p.Run()
	if err != nil {
		return c.simpleApproval()
	}

	result, ok := finalModel.(approvalModel)
	if !ok || result.cancelled {
		return model.ApprovalDenied, nil
	}
	return c.decision(result.selected), nil
}

// approvalModel is the bubbletea model for the approval prompt.
type approvalModel struct {
	options   []string
	selected  int
	cancelled bool
	chosen    bool
}

func initialApprovalModel() approvalModel {
	return approvalModel{
		options:  []string{"Approve", "Reject", "Auto-approve all"},
		selected: 0,
	}
}

func (m approvalModel) Init() tea.Cmd {
	return nil
}

func (m approvalModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.cancelled = true
			return m, tea.Quit
		case "up", "k":
			if m.selected > 0 {
				m.selected--
			} else {
				m.selected = len(m.options) - 1
			}
		case "down", "j":
			if m.selected < len(m.options)-1 {
				m.selected++
			} else {
				m.selected = 0
			}
		case "enter":
			m.chosen = true
			return m, tea.Quit
		case "a", "A":
			m.selected = 0
			m.chosen = true
			return m, tea.Quit
		case "r", "R":
			m.selected = 1
			m.chosen = true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m approvalModel) View() string {
	s := strings.Builder{}
	for i, opt := range m.options {
		cursor := " "
		if m.selected == i {
			cursor = "❯"
		}
		checked := "☐"
		if m.selected == i {
			checked = "☑"
		}

		var line string
		if m.selected == i {
			switch i {
			case 0:
				line = fmt.Sprintf("%s \033[1;32m%s %s\033[0m", cursor, checked, opt)
			case 1:
				line = fmt.Sprintf("%s \033[1;31m%s %s\033[0m", cursor, checked, opt)
			case 2:
				line = fmt.Sprintf("%s \033[1;34m%s %s\033[0m", cursor, checked, opt)
			default:
				line = fmt.Sprintf("%s %s %s", cursor, checked, opt)
			}
		} else {
			line = fmt.Sprintf("  \033[2m%s %s\033[0m", checked, opt)
		}
		s.WriteString(line + "\n")
	}
	return s.String()
}

func (c *CLIApprover) decision(selected int) model.ApprovalState {
	switch selected {
	case 0:
		fmt.Println("\033[32m✓ Approved\033[0m")
		return model.ApprovalApproved
	case 1:
		fmt.Println("\033[31m✗ Rejected\033[0m")
		return model.ApprovalDenied
	case 2:
		fmt.Println("\033[34m✓ Auto-approving all future actions\033[0m")
		return model.ApprovalPreApproved
	default:
		return model.ApprovalDenied
	}
}

// simpleApproval is the fallback prompt for non-interactive terminals.
func (c *CLIApprover) simpleApproval() (model.ApprovalState, error) {
	fmt.Println("  (A)pprove  |  (R)eject  |  Auto-approve (all)")
	fmt.Print("\nChoice [A/r/all]: ")

	input, err := c.Reader.ReadString('\n')
	if err != nil {
		return model.ApprovalDenied, err
	}
	input = strings.TrimSpace(strings.ToLower(input))

	switch input {
	case "", "a", "approve", "y", "yes":
		fmt.Println("\033[32m✓ Approved\033[0m")
		return model.ApprovalApproved, nil
	case "r", "reject", "n", "no":
		fmt.Println("\033[31m✗ Rejected\033[0m")
		return model.ApprovalDenied, nil
	case "all", "auto":
		fmt.Println("\033[34m✓ Auto-approving all future actions\033[0m")
		return model.ApprovalPreApproved, nil
	default:
		fmt.Println("\033[33m? Defaulting to Approve\033[0m")
		return model.ApprovalApproved, nil
	}
}
