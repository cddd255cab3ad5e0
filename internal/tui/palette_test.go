package tui

import (
	"testing"

	"rtl-cli/internal/tools"

	tea "github.com/charmbracelet/bubbletea"
)

func typeInto(p *Palette, s string) {
	for _, r := range s {
		p.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
}

func TestPaletteFuzzyFilter(t *testing.T) {
	p := NewPalette()
	p.Open()
	if len(p.Matches()) != len(defaultCommands()) {
		t.Fatalf("empty query should list all commands, got %d", len(p.Matches()))
	}
	typeInto(p, "syn")
	m := p.Matches()
	if len(m) == 0 || m[0].Kind != tools.KindSynthesize {
		t.Fatalf("matches for syn = %+v", m)
	}
	chosen, _ := p.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if chosen == nil || chosen.Action != ActionRunTool || chosen.Kind != tools.KindSynthesize {
		t.Fatalf("chosen = %+v", chosen)
	}
	if p.IsOpen() {
		t.Fatal("palette should close after enter")
	}
}

func TestPaletteNavigationAndEscape(t *testing.T) {
	p := NewPalette()
	p.Open()
	p.Update(tea.KeyMsg{Type: tea.KeyDown})
	chosen, _ := p.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if chosen == nil || chosen.Kind != tools.Kinds[1] {
		t.Fatalf("second entry = %+v", chosen)
	}

	p.Open()
	typeInto(p, "zzzz")
	if len(p.Matches()) != 0 {
		t.Fatalf("expected no matches, got %+v", p.Matches())
	}
	if chosen, _ := p.Update(tea.KeyMsg{Type: tea.KeyEnter}); chosen != nil {
		t.Fatalf("enter with no matches should choose nothing, got %+v", chosen)
	}
	p.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if p.IsOpen() {
		t.Fatal("esc should close the palette")
	}
}
