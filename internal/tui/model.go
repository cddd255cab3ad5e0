package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"rtl-cli/internal/events"
	"rtl-cli/internal/logger"
	"rtl-cli/internal/session"
	"rtl-cli/internal/tools"
	"rtl-cli/internal/tui/render"
	"rtl-cli/internal/view"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Session 是 TUI 需要的会话能力，*session.Session 实现了它。
type Session interface {
	view.Commander
	Subscribe() <-chan events.Event
}

type Options struct {
	Session Session
	// Path 为空时编辑未命名缓冲区，Ctrl+S 不可用。
	Path    string
	Source  string
	Backend string
	// Clipboard 默认写入系统剪贴板。
	Clipboard func(string) error
	// Animations 控制状态行 spinner 是否动画。
	Animations bool
}

type sessionEventMsg struct {
	Event events.Event
}

type sessionClosedMsg struct{}

type Model struct {
	editor  textarea.Model
	logView render.LogViewport
	spin    spinner.Model
	status  *StatusIndicatorWidget
	palette *Palette

	adapter *view.Adapter
	sub     <-chan events.Event
	props   view.Props
	shownID tools.InvocationID

	path     string
	saved    string
	backend  string
	copy     func(string) error
	notice   string
	logFocus bool
	width    int
	height   int
	log      *logger.LogEntry
}

func New(opts Options) *Model {
	ed := textarea.New()
	ed.Placeholder = "module top(input clk); endmodule"
	ed.ShowLineNumbers = true
	ed.CharLimit = 0
	ed.SetWidth(90)
	ed.SetHeight(12)
	ed.SetValue(opts.Source)
	ed.Focus()

	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4"))

	copyFn := opts.Clipboard
	if copyFn == nil {
		copyFn = clipboard.WriteAll
	}
	backend := opts.Backend
	if backend == "" {
		backend = "local"
	}

	m := &Model{
		editor:  ed,
		logView: render.NewLogViewport(90, 8),
		spin:    spin,
		status:  NewStatusIndicatorWidget(opts.Animations, nil),
		palette: NewPalette(),
		path:    opts.Path,
		saved:   opts.Source,
		backend: backend,
		copy:    copyFn,
		width:   100,
		height:  32,
		log:     logger.Named("tui"),
	}
	if opts.Session != nil {
		m.adapter = view.NewAdapter(opts.Session, func() string { return m.editor.Value() })
		m.sub = opts.Session.Subscribe()
	}
	m.resize(m.width, m.height)
	m.refresh()
	return m
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.listenSession(), m.spin.Tick, textarea.Blink)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		m.refresh()
		return m, nil
	case sessionEventMsg:
		m.refresh()
		return m, m.listenSession()
	case sessionClosedMsg:
		m.sub = nil
		m.refresh()
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		// 事件可能因慢消费被丢弃，按 tick 兜底刷新。
		m.refresh()
		return m, cmd
	case tea.MouseMsg:
		return m, m.logView.HandleUpdate(msg)
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if m.palette.IsOpen() {
			chosen, cmd := m.palette.Update(msg)
			if chosen != nil {
				cmds = append(cmds, m.execute(*chosen))
			}
			cmds = append(cmds, cmd)
			return m, tea.Batch(cmds...)
		}
		if cmd, handled := m.handleKey(msg); handled {
			return m, cmd
		}
	}

	if m.logFocus {
		return m, m.logView.HandleUpdate(msg)
	}
	var cmd tea.Cmd
	m.editor, cmd = m.editor.Update(msg)
	return m, cmd
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch msg.String() {
	case "f5", "ctrl+r":
		return m.run(tools.KindSimulate), true
	case "f6", "ctrl+l":
		return m.run(tools.KindLint), true
	case "f7", "ctrl+g":
		return m.run(tools.KindSynthesize), true
	case "esc":
		m.cancel()
		return nil, true
	case "ctrl+p":
		return m.palette.Open(), true
	case "ctrl+s":
		m.save()
		return nil, true
	case "ctrl+y":
		m.copyOutput()
		return nil, true
	case "tab":
		m.toggleFocus()
		return nil, true
	case "pgup":
		m.logView.PageUp()
		return nil, true
	case "pgdown":
		m.logView.PageDown()
		return nil, true
	}
	return nil, false
}

func (m *Model) execute(c PaletteCommand) tea.Cmd {
	switch c.Action {
	case ActionRunTool:
		return m.run(c.Kind)
	case ActionCancel:
		m.cancel()
	case ActionCopyOutput:
		m.copyOutput()
	case ActionSave:
		m.save()
	case ActionQuit:
		return tea.Quit
	}
	return nil
}

func (m *Model) run(kind tools.Kind) tea.Cmd {
	if m.adapter == nil {
		return nil
	}
	id, err := m.adapter.OnRunClicked(kind)
	if err != nil {
		m.notice = err.Error()
		m.log.WithError(err).Error("start rejected")
	} else if id == 0 {
		m.notice = "cancelling, wait for the tool to stop"
	} else {
		m.notice = ""
	}
	m.refresh()
	return nil
}

func (m *Model) cancel() {
	if m.adapter == nil {
		return
	}
	m.adapter.OnCancelClicked()
	m.refresh()
}

func (m *Model) save() {
	if m.path == "" {
		m.notice = "no file to save to; start with rtl-cli <file>"
		return
	}
	value := m.editor.Value()
	if err := os.WriteFile(m.path, []byte(value), 0o644); err != nil {
		m.notice = fmt.Sprintf("save failed: %v", err)
		m.log.WithError(err).WithField("path", m.path).Warn("save failed")
		return
	}
	m.saved = value
	m.notice = "saved " + filepath.Base(m.path)
}

func (m *Model) copyOutput() {
	text := m.props.VisibleOutput
	if text == "" {
		m.notice = "nothing to copy"
		return
	}
	if err := m.copy(text); err != nil {
		m.notice = fmt.Sprintf("copy failed: %v", err)
		return
	}
	m.notice = fmt.Sprintf("copied %d bytes", len(text))
}

func (m *Model) toggleFocus() {
	m.logFocus = !m.logFocus
	if m.logFocus {
		m.editor.Blur()
	} else {
		m.editor.Focus()
	}
}

// Source 返回编辑器内容。
func (m *Model) Source() string { return m.editor.Value() }

// Dirty 报告缓冲区是否有未保存的修改。
func (m *Model) Dirty() bool { return m.editor.Value() != m.saved }

// Props 返回最近一次渲染的属性。
func (m *Model) Props() view.Props { return m.props }

func (m *Model) listenSession() tea.Cmd {
	sub := m.sub
	if sub == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-sub
		if !ok {
			return sessionClosedMsg{}
		}
		return sessionEventMsg{Event: ev}
	}
}

// refresh 从会话重新读取快照；输出面板只显示当前调用的内容。
func (m *Model) refresh() {
	if m.adapter == nil {
		return
	}
	m.props = m.adapter.Props()
	m.status.Sync(m.props)
	if m.props.InvocationID != m.shownID {
		m.shownID = m.props.InvocationID
		m.logView.Reset()
	}
	if m.props.Empty() {
		m.logView.SetLines([]string{hintStyle.Render(view.EmptyPlaceholder)})
		return
	}
	lines := render.HighlightLogToLines(m.props.VisibleOutput, m.logView.Width)
	m.logView.SetLines(render.LinesToStrings(lines))
}

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height
	inner := maxInt(10, width-4)
	// 头部、工具栏、状态行、提示行各一行；两个面板各有边框与标题三行。
	body := maxInt(6, height-4-6)
	editorHeight := maxInt(3, body*55/100)
	logHeight := maxInt(3, body-editorHeight)
	m.editor.SetWidth(inner)
	m.editor.SetHeight(editorHeight)
	m.logView.Resize(inner, logHeight)
}

func (m *Model) View() string {
	header := renderHeader(m.path, m.Dirty(), m.backend, m.width)
	toolbar := renderToolbar(m.props, m.spin.View(), m.width)
	editorPane := renderPane("Editor", m.editor.View(), m.width, m.editor.Height(), !m.logFocus)
	logPane := renderPane("Output Logs", m.logView.View(), m.width, m.logView.Height, m.logFocus)
	status := m.renderStatus()
	hints := renderHints(m.width)
	content := lipgloss.JoinVertical(lipgloss.Left, header, toolbar, editorPane, logPane, status, hints)
	if m.palette.IsOpen() {
		return lipgloss.JoinVertical(lipgloss.Left, content, m.palette.View(m.width))
	}
	return content
}

func (m *Model) renderStatus() string {
	buf := render.Buffer{}
	m.status.Render(render.Rect{Width: maxInt(10, m.width-2), Height: 1}, &buf)
	line := strings.Join(render.LinesToStrings(buf.Lines), "")
	if m.notice != "" {
		line += "  " + hintStyle.Render(m.notice)
	}
	return lipgloss.NewStyle().Padding(0, 1).Render(line)
}

var (
	accent        = lipgloss.Color("#7D56F4")
	muted         = lipgloss.Color("#7D7A85")
	buttonStyle   = lipgloss.NewStyle().Padding(0, 1).Background(lipgloss.Color("#3B3F4A"))
	primaryStyle  = buttonStyle.Background(accent).Foreground(lipgloss.Color("#FFFFFF"))
	disabledStyle = lipgloss.NewStyle().Padding(0, 1).Foreground(muted).Faint(true)
	modalStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(accent).Padding(0, 1)
)

func renderHeader(path string, dirty bool, backend string, width int) string {
	name := path
	if name == "" {
		name = "[unsaved buffer]"
	}
	if dirty {
		name += " [+]"
	}
	left := lipgloss.NewStyle().Bold(true).Foreground(accent).Render("RTL Editor")
	right := lipgloss.NewStyle().Foreground(muted).Render(name + " • backend: " + backend)
	line := left + "  " + right
	return lipgloss.NewStyle().Padding(0, 1).Width(maxInt(20, width)).Render(line)
}

func renderToolbar(p view.Props, spin string, width int) string {
	busy := p.Phase == session.PhaseRunning || p.Phase == session.PhaseCancelling
	parts := make([]string, 0, len(tools.Kinds)+2)
	for i, k := range tools.Kinds {
		label := fmt.Sprintf("F%d %s", 5+i, k.Title())
		style := buttonStyle
		switch {
		case !p.CanRun:
			style = disabledStyle
		case k == tools.KindSimulate:
			style = primaryStyle
		}
		if busy && p.Kind == k {
			label = spin + " " + label
		}
		parts = append(parts, style.Render(label))
	}
	cancel := disabledStyle.Render("Esc Cancel")
	if p.CanCancel {
		cancel = buttonStyle.Render("Esc Cancel")
	}
	parts = append(parts, cancel)
	return lipgloss.NewStyle().Padding(0, 1).Width(maxInt(20, width)).Render(strings.Join(parts, " "))
}

func renderPane(title string, body string, width int, height int, focused bool) string {
	border := lipgloss.Color("#5E6472")
	if focused {
		border = accent
	}
	titleText := lipgloss.NewStyle().Bold(true).Foreground(accent).Render(title)
	style := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Padding(0, 1)
	if width > 2 {
		style = style.Width(width - 2)
	}
	if height > 0 {
		style = style.Height(height + 1)
	}
	return style.Render(lipgloss.JoinVertical(lipgloss.Left, titleText, body))
}

func renderHints(width int) string {
	hint := "F5 Run • F6 Lint • F7 Synthesize • Esc Cancel • Ctrl+P Commands • Ctrl+S Save • Ctrl+Y Copy • Tab Focus • Ctrl+C Quit"
	return lipgloss.NewStyle().
		Foreground(muted).
		Padding(0, 1).
		Width(maxInt(20, width)).
		Render(render.TruncateToWidth(hint, maxInt(10, width-2)))
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
