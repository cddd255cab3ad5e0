package render

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	dimStyle     = lipgloss.NewStyle().Faint(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#E06C75")).Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#E5C07B"))
	headerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4")).Bold(true)
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#98C379"))
)

// LineClass 是日志行的分类。
type LineClass int

const (
	ClassPlain LineClass = iota
	ClassCommand
	ClassHeader
	ClassWarning
	ClassError
	ClassOK
)

// ClassifyLogLine 用轻量规则识别 verilator / iverilog / yosys 输出中的错误与警告。
func ClassifyLogLine(line string) LineClass {
	trimmed := strings.TrimSpace(line)
	lower := strings.ToLower(trimmed)
	switch {
	case trimmed == "":
		return ClassPlain
	case strings.HasPrefix(trimmed, "$ "):
		return ClassCommand
	case strings.HasPrefix(trimmed, "--- ") || strings.HasPrefix(trimmed, "[... "):
		return ClassHeader
	case strings.HasPrefix(trimmed, "%Error"),
		strings.HasPrefix(trimmed, "ERROR:"),
		strings.Contains(lower, ": error:"),
		strings.Contains(lower, "syntax error"),
		strings.HasPrefix(trimmed, "[") && strings.Contains(trimmed, " failed: "):
		return ClassError
	case strings.HasPrefix(trimmed, "%Warning"),
		strings.HasPrefix(trimmed, "Warning:"),
		strings.Contains(lower, ": warning:"):
		return ClassWarning
	case strings.HasPrefix(trimmed, "Linting successful"),
		strings.HasPrefix(trimmed, "Simulation finished"),
		strings.HasPrefix(trimmed, "Synthesis finished"):
		return ClassOK
	default:
		return ClassPlain
	}
}

func (c LineClass) style() lipgloss.Style {
	switch c {
	case ClassCommand:
		return dimStyle
	case ClassHeader:
		return headerStyle
	case ClassWarning:
		return warningStyle
	case ClassError:
		return errorStyle
	case ClassOK:
		return okStyle
	default:
		return lipgloss.Style{}
	}
}

// HighlightLogToLines 按行着色工具输出，width>0 时按显示宽度硬换行。
func HighlightLogToLines(text string, width int) []Line {
	if text == "" {
		return []Line{{}}
	}
	raw := strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	lines := make([]Line, 0, len(raw))
	for _, l := range raw {
		style := ClassifyLogLine(l).style()
		for _, part := range wrapWidth(expandTabs(l), width) {
			lines = append(lines, Line{Spans: []Span{{Text: part, Style: style}}})
		}
	}
	return lines
}

func expandTabs(s string) string {
	if !strings.Contains(s, "\t") {
		return s
	}
	return strings.ReplaceAll(s, "\t", "    ")
}
