package tui

import (
	"strings"

	"rtl-cli/internal/tools"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"
)

// PaletteAction 是命令面板条目触发的动作。
type PaletteAction int

const (
	ActionRunTool PaletteAction = iota
	ActionCancel
	ActionCopyOutput
	ActionSave
	ActionQuit
)

// PaletteCommand 是命令面板中的一项。
type PaletteCommand struct {
	Name        string
	Description string
	Action      PaletteAction
	Kind        tools.Kind
}

func defaultCommands() []PaletteCommand {
	cmds := make([]PaletteCommand, 0, len(tools.Kinds)+4)
	for _, k := range tools.Kinds {
		cmds = append(cmds, PaletteCommand{Name: string(k), Description: k.Title() + " the current design", Action: ActionRunTool, Kind: k})
	}
	return append(cmds,
		PaletteCommand{Name: "cancel", Description: "Cancel the running tool", Action: ActionCancel},
		PaletteCommand{Name: "copy", Description: "Copy output logs to clipboard", Action: ActionCopyOutput},
		PaletteCommand{Name: "save", Description: "Write the editor buffer to disk", Action: ActionSave},
		PaletteCommand{Name: "quit", Description: "Exit", Action: ActionQuit},
	)
}

type commandSource []PaletteCommand

func (s commandSource) String(i int) string { return s[i].Name }
func (s commandSource) Len() int            { return len(s) }

// Palette 是 ctrl+p 打开的模糊命令面板。
type Palette struct {
	input    textinput.Model
	commands []PaletteCommand
	matches  []PaletteCommand
	selected int
	open     bool
}

// NewPalette 构造命令面板。
func NewPalette() *Palette {
	in := textinput.New()
	in.Prompt = ": "
	in.Placeholder = "run, lint, synthesize…"
	p := &Palette{input: in, commands: defaultCommands()}
	p.refilter()
	return p
}

// IsOpen 返回面板是否展示。
func (p *Palette) IsOpen() bool { return p != nil && p.open }

// Open 清空输入并展示面板。
func (p *Palette) Open() tea.Cmd {
	p.open = true
	p.selected = 0
	p.input.SetValue("")
	p.refilter()
	return p.input.Focus()
}

// Close 关闭面板。
func (p *Palette) Close() {
	p.open = false
	p.input.Blur()
}

// Matches 返回当前过滤结果。
func (p *Palette) Matches() []PaletteCommand { return p.matches }

// Update 处理按键；Enter 返回被选中的命令并关闭面板。
func (p *Palette) Update(msg tea.KeyMsg) (*PaletteCommand, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		p.Close()
		return nil, nil
	case tea.KeyEnter:
		if len(p.matches) == 0 {
			return nil, nil
		}
		chosen := p.matches[p.selected]
		p.Close()
		return &chosen, nil
	case tea.KeyUp, tea.KeyCtrlP:
		if p.selected > 0 {
			p.selected--
		}
		return nil, nil
	case tea.KeyDown, tea.KeyCtrlN, tea.KeyTab:
		if p.selected < len(p.matches)-1 {
			p.selected++
		}
		return nil, nil
	}
	var cmd tea.Cmd
	p.input, cmd = p.input.Update(msg)
	p.refilter()
	return nil, cmd
}

func (p *Palette) refilter() {
	query := strings.TrimSpace(p.input.Value())
	if query == "" {
		p.matches = append(p.matches[:0], p.commands...)
	} else {
		found := fuzzy.FindFrom(query, commandSource(p.commands))
		p.matches = p.matches[:0]
		for _, m := range found {
			p.matches = append(p.matches, p.commands[m.Index])
		}
	}
	if p.selected >= len(p.matches) {
		p.selected = 0
	}
}

var (
	paletteStyle  = modalStyle
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4")).Bold(true)
)

// View 渲染面板。
func (p *Palette) View(width int) string {
	lines := []string{p.input.View()}
	if len(p.matches) == 0 {
		lines = append(lines, hintStyle.Render("no matching command"))
	}
	for i, c := range p.matches {
		row := c.Name + "  " + hintStyle.Render(c.Description)
		if i == p.selected {
			row = selectedStyle.Render("› "+c.Name) + "  " + hintStyle.Render(c.Description)
		} else {
			row = "  " + row
		}
		lines = append(lines, row)
	}
	style := paletteStyle
	if width > 4 {
		style = style.Width(minInt(width-4, 60))
	}
	return style.Render(strings.Join(lines, "\n"))
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
