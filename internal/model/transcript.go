package model

// LineKind classifies a rendered transcript line (spec.md §3).
type LineKind string

const (
	LineUser    LineKind = "user"
	LineAgent   LineKind = "agent"
	LineTool    LineKind = "tool"
	LinePty     LineKind = "pty"
	LineInfo    LineKind = "info"
	LineError   LineKind = "error"
	LineDivider LineKind = "divider"
	LineBlock   LineKind = "block"
)

// StyleTag names a visual treatment applied to a Segment; the transcript
// and TUI packages map tags to concrete colors/attributes so this package
// stays independent of any rendering library.
type StyleTag string

const (
	StyleNone     StyleTag = ""
	StyleBold     StyleTag = "bold"
	StyleDim      StyleTag = "dim"
	StyleAccent   StyleTag = "accent"
	StyleWarning  StyleTag = "warning"
	StyleError    StyleTag = "error"
	StyleCode     StyleTag = "code"
)

// Segment is one styled run of text within a TranscriptLine.
type Segment struct {
	Text  string
	Style StyleTag
}

// TranscriptLine is a single logical line in the scroll model (spec.md §3):
// an ordered sequence of styled segments plus wrap/continuation metadata.
// A logical line may render as several physical rows once wrapped to
// terminal width; Metadata carries enough state (e.g. a stable line id,
// continuation depth) for the scroll model to re-wrap on resize without
// re-deriving content.
type TranscriptLine struct {
	Kind     LineKind
	Segments []Segment
	Metadata map[string]any
}

// PlainText concatenates every segment's text, ignoring style.
func (l TranscriptLine) PlainText() string {
	out := ""
	for _, s := range l.Segments {
		out += s.Text
	}
	return out
}

// NewLine builds a TranscriptLine from a kind and a single unstyled segment.
func NewLine(kind LineKind, text string) TranscriptLine {
	return TranscriptLine{Kind: kind, Segments: []Segment{{Text: text}}}
}

// WithStyle returns a copy of the line with every segment tagged style.
func (l TranscriptLine) WithStyle(style StyleTag) TranscriptLine {
	segs := make([]Segment, len(l.Segments))
	for i, s := range l.Segments {
		s.Style = style
		segs[i] = s
	}
	l.Segments = segs
	return l
}
