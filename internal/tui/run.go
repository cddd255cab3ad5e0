package tui

import (
	"errors"

	tea "github.com/charmbracelet/bubbletea"
)

// Result 返回 TUI 运行后的必要信息。
type Result struct {
	Source string
	Dirty  bool
}

// Run 封装 Bubble Tea 入口，返回最终的编辑器状态。
func Run(opts Options) (Result, error) {
	program := tea.NewProgram(New(opts), tea.WithAltScreen(), tea.WithMouseCellMotion())
	m, err := program.Run()
	if err != nil {
		return Result{}, err
	}
	tuiModel, ok := m.(*Model)
	if !ok {
		return Result{}, errors.New("unexpected tui model")
	}
	return Result{Source: tuiModel.Source(), Dirty: tuiModel.Dirty()}, nil
}
