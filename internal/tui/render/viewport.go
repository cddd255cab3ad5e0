package render

import (
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

// LogViewport 包装 bubbles viewport：内容未变时跳过重绘，位于底部时自动跟随新输出。
type LogViewport struct {
	viewport.Model
	lastLines []string
}

// NewLogViewport 创建视口。
func NewLogViewport(width, height int) LogViewport {
	return LogViewport{Model: viewport.New(width, height)}
}

// Resize 更新宽高；宽度变化时丢弃缓存。
func (v *LogViewport) Resize(width, height int) {
	if v == nil {
		return
	}
	if v.Width != width {
		v.lastLines = nil
	}
	v.Width = width
	v.Height = height
}

// HandleUpdate 代理 bubbles 的 Update。
func (v *LogViewport) HandleUpdate(msg tea.Msg) tea.Cmd {
	if v == nil {
		return nil
	}
	var cmd tea.Cmd
	v.Model, cmd = v.Model.Update(msg)
	return cmd
}

// SetLines 更新内容；此前停在底部时继续跟随。
func (v *LogViewport) SetLines(lines []string) {
	if v == nil || slices.Equal(lines, v.lastLines) {
		return
	}
	stickToBottom := v.AtBottom() || len(v.lastLines) == 0
	v.lastLines = append([]string(nil), lines...)
	v.SetContent(strings.Join(lines, "\n"))
	if stickToBottom {
		v.GotoBottom()
	}
}

// Reset 清空内容并回到顶部，用于新一次调用开始时。
func (v *LogViewport) Reset() {
	if v == nil {
		return
	}
	v.lastLines = nil
	v.SetContent("")
	v.GotoTop()
}
