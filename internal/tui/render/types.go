package render

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Rect 表示矩形区域。
type Rect struct {
	X, Y          int
	Width, Height int
}

// Span 表示一段文本及其样式。
type Span struct {
	Text  string
	Style lipgloss.Style
}

// Line 由多个 Span 组成，可选整体样式。
type Line struct {
	Spans []Span
	Style lipgloss.Style
}

// Plain 返回去掉样式的文本。
func (l Line) Plain() string {
	var b strings.Builder
	for _, sp := range l.Spans {
		b.WriteString(sp.Text)
	}
	return b.String()
}

// Buffer 收集渲染结果，按行存储。
type Buffer struct {
	Lines []Line
}

// WriteLine 追加单行。
func (b *Buffer) WriteLine(line Line) {
	if b == nil {
		return
	}
	b.Lines = append(b.Lines, line)
}

// LinesToStrings 将样式化的行转换为字符串列表。
func LinesToStrings(lines []Line) []string {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		segments := make([]string, 0, len(line.Spans))
		for _, sp := range line.Spans {
			segments = append(segments, sp.Style.Render(sp.Text))
		}
		out = append(out, line.Style.Render(strings.Join(segments, "")))
	}
	return out
}
