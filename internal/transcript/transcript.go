// Package transcript is the append-only scroll model the TUI renders
// from (spec.md §4.10): lines are appended once and never mutated;
// wrapping to a viewport width is computed lazily and cached per width,
// with only the most recent line's cache invalidated by a new append.
//
// Grounded on teacher cmd/ui's bubbletea View conventions (spinner.go's
// lipgloss.NewStyle().Foreground usage, cli_approver.go's View-returns-
// a-string pattern), generalized from one-shot modal rendering into a
// persistent, re-wrappable line buffer.
package transcript

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/vtcode-go/vtcode/internal/model"
)

// styles maps a model.StyleTag to the lipgloss treatment the renderer
// applies. Kept here (not in model) so the model package stays free of
// any rendering-library dependency.
var styles = map[model.StyleTag]lipgloss.Style{
	model.StyleBold:    lipgloss.NewStyle().Bold(true),
	model.StyleDim:      lipgloss.NewStyle().Faint(true),
	model.StyleAccent:   lipgloss.NewStyle().Foreground(lipgloss.Color("205")),
	model.StyleWarning:  lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
	model.StyleError:    lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
	model.StyleCode:     lipgloss.NewStyle().Foreground(lipgloss.Color("86")),
}

// renderSegment applies a segment's style tag, falling back to plain
// text for StyleNone or any tag without a registered treatment.
func renderSegment(s model.Segment) string {
	style, ok := styles[s.Style]
	if !ok || s.Style == model.StyleNone {
		return s.Text
	}
	return style.Render(s.Text)
}

// wrapCache holds one logical line's wrapped physical rows for one
// viewport width.
type wrapCache struct {
	width int
	rows  []string
}

// entry pairs a logical line with its current wrap cache.
type entry struct {
	line  model.TranscriptLine
	cache wrapCache
}

// Scroll is the append-only line buffer plus wrap/offset state for one
// session's transcript.
type Scroll struct {
	entries []entry

	// offsetFromBottom is how many physical rows up from the bottom the
	// viewport's top edge currently sits (spec.md §4.10 "Scroll offset is
	// measured from the bottom").
	offsetFromBottom int
}

// New returns an empty Scroll.
func New() *Scroll {
	return &Scroll{}
}

// Append adds a line to the end of the transcript. Only this line needs
// wrapping; every earlier line's cache (if already computed for the
// current viewport width) remains valid, per §4.10's "appending new
// content invalidates only the tail."
func (s *Scroll) Append(line model.TranscriptLine) {
	s.entries = append(s.entries, entry{line: line})
}

// Len returns the number of logical lines appended so far.
func (s *Scroll) Len() int {
	return len(s.entries)
}

// Lines returns the logical lines in append order, for callers (session
// archive, search) that need the unwrapped content.
func (s *Scroll) Lines() []model.TranscriptLine {
	out := make([]model.TranscriptLine, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.line
	}
	return out
}

// isDiffLine reports whether a line should have its physical rows
// padded to the full viewport width to preserve a background color
// across the row. A line counts as a diff line when it is a block line
// whose first glyph is '+', '-', or a space; segment styles (and whether
// they carry a background) are not consulted.
func isDiffLine(line model.TranscriptLine) bool {
	if line.Kind != model.LineBlock {
		return false
	}
	text := line.PlainText()
	if text == "" {
		return false
	}
	switch text[0] {
	case '+', '-', ' ':
		return true
	default:
		return false
	}
}

// wrapLine renders a logical line's segments and wraps the result to
// width, padding diff lines to the full width so their background
// color spans the row.
func wrapLine(line model.TranscriptLine, width int) []string {
	if width <= 0 {
		width = 80
	}
	var b strings.Builder
	for _, seg := range line.Segments {
		b.WriteString(renderSegment(seg))
	}
	rendered := b.String()
	if rendered == "" {
		return []string{""}
	}

	wrapped := lipgloss.NewStyle().Width(width).Render(rendered)
	rows := strings.Split(wrapped, "\n")

	if isDiffLine(line) {
		for i, r := range rows {
			pad := width - lipgloss.Width(r)
			if pad > 0 {
				rows[i] = r + strings.Repeat(" ", pad)
			}
		}
	} else {
		// lipgloss pads every row to width; only diff lines keep that.
		for i, r := range rows {
			rows[i] = strings.TrimRight(r, " ")
		}
	}
	return rows
}

// rowsFor returns entry i's physical rows for width, computing and
// caching them if the cache is stale or missing.
func (s *Scroll) rowsFor(i int, width int) []string {
	e := &s.entries[i]
	if e.cache.width == width && e.cache.rows != nil {
		return e.cache.rows
	}
	rows := wrapLine(e.line, width)
	e.cache = wrapCache{width: width, rows: rows}
	return rows
}

// TotalRows returns the total physical row count across every logical
// line at the given viewport width.
func (s *Scroll) TotalRows(width int) int {
	total := 0
	for i := range s.entries {
		total += len(s.rowsFor(i, width))
	}
	return total
}

// ScrollUp moves the viewport's bottom-relative offset up by n rows
// (toward older content), clamped to the available history.
func (s *Scroll) ScrollUp(n, width int) {
	s.offsetFromBottom += n
	maxOffset := s.TotalRows(width)
	if s.offsetFromBottom > maxOffset {
		s.offsetFromBottom = maxOffset
	}
}

// ScrollDown moves the viewport's bottom-relative offset down by n rows
// (toward newer content), clamped at the live bottom.
func (s *Scroll) ScrollDown(n int) {
	s.offsetFromBottom -= n
	if s.offsetFromBottom < 0 {
		s.offsetFromBottom = 0
	}
}

// ScrollToBottom resets the viewport to track the most recent content.
func (s *Scroll) ScrollToBottom() {
	s.offsetFromBottom = 0
}

// AtBottom reports whether the viewport is currently tracking live
// content (no manual scroll-back in effect).
func (s *Scroll) AtBottom() bool {
	return s.offsetFromBottom == 0
}

// Window returns the physical rows visible in a viewport of the given
// width and row count, per §4.10: "the renderer requests a window
// [top_offset, top_offset + viewport_rows)" measured from the bottom.
func (s *Scroll) Window(width, viewportRows int) []string {
	total := s.TotalRows(width)
	if viewportRows <= 0 || total == 0 {
		return nil
	}

	bottomIdx := total - s.offsetFromBottom
	if bottomIdx > total {
		bottomIdx = total
	}
	topIdx := bottomIdx - viewportRows
	if topIdx < 0 {
		topIdx = 0
	}

	all := make([]string, 0, total)
	for i := range s.entries {
		all = append(all, s.rowsFor(i, width)...)
	}
	if topIdx >= len(all) {
		return nil
	}
	if bottomIdx > len(all) {
		bottomIdx = len(all)
	}
	return all[topIdx:bottomIdx]
}
