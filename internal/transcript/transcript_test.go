package transcript

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vtcode-go/vtcode/internal/model"
)

func TestScroll_AppendAndWindow(t *testing.T) {
	s := New()
	s.Append(model.NewLine(model.LineUser, "hello there"))
	s.Append(model.NewLine(model.LineAgent, "hi, how can I help?"))

	assert.Equal(t, 2, s.Len())
	window := s.Window(80, 10)
	assert.Len(t, window, 2)
	assert.Equal(t, "hello there", window[0])
}

func TestScroll_WrapsToViewportWidth(t *testing.T) {
	s := New()
	s.Append(model.NewLine(model.LineAgent, "one two three four five six seven"))

	rows := s.TotalRows(10)
	assert.Greater(t, rows, 1)
}

func TestScroll_ScrollUpAndDownClampAndTrackBottom(t *testing.T) {
	s := New()
	for i := 0; i < 5; i++ {
		s.Append(model.NewLine(model.LineInfo, "line"))
	}
	assert.True(t, s.AtBottom())

	s.ScrollUp(2, 80)
	assert.False(t, s.AtBottom())

	s.ScrollUp(100, 80)
	total := s.TotalRows(80)
	assert.LessOrEqual(t, s.offsetFromBottom, total)

	s.ScrollToBottom()
	assert.True(t, s.AtBottom())
}

func TestScroll_DiffLinePaddedToWidth(t *testing.T) {
	s := New()
	line := model.TranscriptLine{
		Kind:     model.LineBlock,
		Segments: []model.Segment{{Text: "+added line", Style: model.StyleNone}},
	}
	s.Append(line)

	window := s.Window(40, 5)
	assert.Len(t, window, 1)
	assert.Equal(t, 40, len([]rune(window[0])))
}

func TestScroll_TailInvalidationOnlyRewrapsNewLine(t *testing.T) {
	s := New()
	s.Append(model.NewLine(model.LineUser, "first"))
	_ = s.rowsFor(0, 80)
	cachedWidth := s.entries[0].cache.width
	assert.Equal(t, 80, cachedWidth)

	s.Append(model.NewLine(model.LineUser, "second"))
	assert.Nil(t, s.entries[1].cache.rows)
	assert.Equal(t, 80, s.entries[0].cache.width)
}
