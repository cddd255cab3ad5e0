package tui

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"rtl-cli/internal/session"
	"rtl-cli/internal/tools"

	tea "github.com/charmbracelet/bubbletea"
)

type heldCall struct {
	req     tools.Request
	cb      tools.Callbacks
	aborted bool
}

type holdingInvoker struct {
	mu    sync.Mutex
	calls []*heldCall
}

func (h *holdingInvoker) Invoke(_ context.Context, req tools.Request, cb tools.Callbacks) (tools.Handle, error) {
	c := &heldCall{req: req, cb: cb}
	h.mu.Lock()
	h.calls = append(h.calls, c)
	h.mu.Unlock()
	return tools.HandleFunc(func() {
		h.mu.Lock()
		c.aborted = true
		h.mu.Unlock()
	}), nil
}

func (h *holdingInvoker) last(t *testing.T) *heldCall {
	t.Helper()
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.calls) == 0 {
		t.Fatal("no invocation recorded")
	}
	return h.calls[len(h.calls)-1]
}

func newTestModel(t *testing.T, opts Options) (*Model, *holdingInvoker, *session.Session) {
	t.Helper()
	inv := &holdingInvoker{}
	sess, err := session.New(session.Options{Invoker: inv})
	if err != nil {
		t.Fatalf("session.New: %v", err)
	}
	t.Cleanup(sess.Close)
	opts.Session = sess
	return New(opts), inv, sess
}

func press(m *Model, msg tea.KeyMsg) {
	m.Update(msg)
}

func TestModelShowsPlaceholderWhenIdle(t *testing.T) {
	m, _, _ := newTestModel(t, Options{Source: "module a; endmodule"})
	if !m.Props().Empty() {
		t.Fatalf("expected empty props, got %+v", m.Props())
	}
	if !strings.Contains(m.View(), "Run simulation to view results here.") {
		t.Fatal("placeholder not rendered")
	}
}

func TestModelRunsLintWithEditorSource(t *testing.T) {
	m, inv, sess := newTestModel(t, Options{Source: "module a; endmodule"})
	press(m, tea.KeyMsg{Type: tea.KeyF6})

	call := inv.last(t)
	if call.req.Kind != tools.KindLint || call.req.Source != "module a; endmodule" {
		t.Fatalf("request = %+v", call.req)
	}
	if m.Props().Phase != session.PhaseRunning || m.Props().Label != "Linting..." {
		t.Fatalf("props = %+v", m.Props())
	}

	call.cb.OnChunk(call.req.ID, "%Warning-UNUSED: a.sv:1: signal x\n")
	m.Update(sessionEventMsg{})
	if !strings.Contains(m.View(), "Warning-UNUSED") {
		t.Fatal("chunk not rendered in output pane")
	}

	call.cb.OnComplete(call.req.ID, tools.Outcome{Success: true, Summary: "Linting successful!"})
	m.Update(sessionEventMsg{})
	if got := sess.Status().Phase; got != session.PhaseCompleted {
		t.Fatalf("phase = %v", got)
	}
	if !strings.Contains(m.View(), "Linting successful!") {
		t.Fatal("summary not rendered")
	}
}

func TestModelEscCancels(t *testing.T) {
	m, inv, _ := newTestModel(t, Options{})
	press(m, tea.KeyMsg{Type: tea.KeyF5})
	press(m, tea.KeyMsg{Type: tea.KeyEsc})

	if m.Props().Phase != session.PhaseCancelling {
		t.Fatalf("phase = %v, want Cancelling", m.Props().Phase)
	}
	call := inv.last(t)
	inv.mu.Lock()
	aborted := call.aborted
	inv.mu.Unlock()
	if !aborted {
		t.Fatal("handle not aborted")
	}

	// Run 在 Cancelling 期间被忽略。
	press(m, tea.KeyMsg{Type: tea.KeyF7})
	if n := len(inv.calls); n != 1 {
		t.Fatalf("invocations = %d, want 1", n)
	}

	call.cb.OnError(call.req.ID, context.Canceled)
	m.Update(sessionEventMsg{})
	if p := m.Props(); p.Phase != session.PhaseIdle || p.Label != "Cancelled" {
		t.Fatalf("props = %+v", p)
	}
}

func TestModelCopyUsesClipboard(t *testing.T) {
	var copied string
	m, inv, _ := newTestModel(t, Options{Clipboard: func(s string) error {
		copied = s
		return nil
	}})

	press(m, tea.KeyMsg{Type: tea.KeyCtrlY})
	if copied != "" {
		t.Fatal("nothing should be copied while output is empty")
	}

	press(m, tea.KeyMsg{Type: tea.KeyF5})
	call := inv.last(t)
	call.cb.OnChunk(call.req.ID, "VCD info: dumpfile wave.vcd opened\n")
	m.Update(sessionEventMsg{})
	press(m, tea.KeyMsg{Type: tea.KeyCtrlY})
	if copied != "VCD info: dumpfile wave.vcd opened\n" {
		t.Fatalf("copied = %q", copied)
	}
}

func TestModelPaletteRunsSynthesize(t *testing.T) {
	m, inv, _ := newTestModel(t, Options{})
	press(m, tea.KeyMsg{Type: tea.KeyCtrlP})
	if !m.palette.IsOpen() {
		t.Fatal("palette not open")
	}
	for _, r := range "synth" {
		press(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	press(m, tea.KeyMsg{Type: tea.KeyEnter})

	if got := inv.last(t).req.Kind; got != tools.KindSynthesize {
		t.Fatalf("kind = %v", got)
	}
	if m.palette.IsOpen() {
		t.Fatal("palette should close after choosing")
	}
}

func TestModelSaveWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "top.sv")
	m, _, _ := newTestModel(t, Options{Path: path, Source: "module top; endmodule"})
	if m.Dirty() {
		t.Fatal("fresh buffer should not be dirty")
	}
	press(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})
	if !m.Dirty() {
		t.Fatal("typing should mark the buffer dirty")
	}
	press(m, tea.KeyMsg{Type: tea.KeyCtrlS})

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read saved file: %v", err)
	}
	if string(data) != m.Source() {
		t.Fatalf("saved %q, editor has %q", data, m.Source())
	}
	if m.Dirty() {
		t.Fatal("buffer should be clean after save")
	}
}

func TestModelSaveWithoutPath(t *testing.T) {
	m, _, _ := newTestModel(t, Options{})
	press(m, tea.KeyMsg{Type: tea.KeyCtrlS})
	if !strings.Contains(m.notice, "no file") {
		t.Fatalf("notice = %q", m.notice)
	}
}
