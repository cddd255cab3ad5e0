package tui

import (
	"fmt"
	"time"

	"rtl-cli/internal/session"
	"rtl-cli/internal/tools"
	"rtl-cli/internal/tui/render"
	"rtl-cli/internal/view"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

var (
	hintStyle      = lipgloss.NewStyle().Faint(true)
	failedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#E06C75")).Bold(true)
	completedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#98C379"))
	reportedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#E5C07B"))
)

// StatusIndicatorWidget 渲染状态行：spinner/图标 + 标签 + 计时与取消提示。
// 计时从调用开始累加，进入终止阶段后冻结。
type StatusIndicatorWidget struct {
	label             string
	phase             session.Phase
	success           bool
	invocation        tools.InvocationID
	animationsEnabled bool

	startedAt time.Time
	stoppedAt time.Time
	running   bool

	clock func() time.Time
}

// NewStatusIndicatorWidget 构造空闲状态的指示器；clock 为空时使用 time.Now。
func NewStatusIndicatorWidget(animations bool, clock func() time.Time) *StatusIndicatorWidget {
	if clock == nil {
		clock = time.Now
	}
	return &StatusIndicatorWidget{label: "Ready", animationsEnabled: animations, clock: clock}
}

// Sync 根据渲染属性更新阶段与计时。新的调用 id 重新开始计时。
func (w *StatusIndicatorWidget) Sync(p view.Props) {
	if w == nil {
		return
	}
	now := w.clock()
	if p.InvocationID != w.invocation && (p.Phase == session.PhaseRunning || p.Phase == session.PhaseCancelling) {
		w.invocation = p.InvocationID
		w.startedAt = now
		w.running = true
	}
	busy := p.Phase == session.PhaseRunning || p.Phase == session.PhaseCancelling
	if !busy && w.running {
		w.stoppedAt = now
		w.running = false
	}
	w.phase = p.Phase
	w.label = p.Label
	w.success = p.Success
}

// ElapsedSeconds 返回当前调用的累计秒数。
func (w *StatusIndicatorWidget) ElapsedSeconds() uint64 {
	if w == nil || w.startedAt.IsZero() {
		return 0
	}
	end := w.stoppedAt
	if w.running {
		end = w.clock()
	}
	if end.Before(w.startedAt) {
		return 0
	}
	return uint64(end.Sub(w.startedAt).Seconds())
}

// Render 绘制单行状态。
func (w *StatusIndicatorWidget) Render(area render.Rect, buf *render.Buffer) {
	if w == nil || buf == nil || area.Height <= 0 || area.Width <= 0 {
		return
	}
	now := w.clock()
	spans := []render.Span{w.icon(now)}
	if w.label != "" {
		spans = append(spans, render.Span{Text: " "}, render.Span{Text: w.label})
	}
	if !w.startedAt.IsZero() {
		hint := formatHint(fmtElapsedCompact(w.ElapsedSeconds()), w.phase == session.PhaseRunning)
		spans = append(spans, render.Span{Text: " "}, render.Span{Text: hint, Style: hintStyle})
	}
	clamped := clampSpans(spans, area.Width)
	if len(clamped) == 0 {
		return
	}
	buf.WriteLine(render.Line{Spans: clamped})
}

func (w *StatusIndicatorWidget) icon(now time.Time) render.Span {
	switch w.phase {
	case session.PhaseRunning:
		if w.animationsEnabled {
			frames := []string{"-", "\\", "|", "/"}
			return render.Span{Text: frames[int(now.UnixMilli()/120)%len(frames)]}
		}
		return render.Span{Text: "•"}
	case session.PhaseCancelling:
		return render.Span{Text: "||"}
	case session.PhaseCompleted:
		if w.success {
			return render.Span{Text: "✓", Style: completedStyle}
		}
		return render.Span{Text: "!", Style: reportedStyle}
	case session.PhaseFailed:
		return render.Span{Text: "✗", Style: failedStyle}
	default:
		return render.Span{Text: "·", Style: hintStyle}
	}
}

func formatHint(elapsed string, cancellable bool) string {
	if cancellable {
		return fmt.Sprintf("(%s • esc to cancel)", elapsed)
	}
	return fmt.Sprintf("(%s)", elapsed)
}

// fmtElapsedCompact 将秒数格式化为友好字符串。
func fmtElapsedCompact(elapsedSecs uint64) string {
	switch {
	case elapsedSecs < 60:
		return fmt.Sprintf("%ds", elapsedSecs)
	case elapsedSecs < 3600:
		return fmt.Sprintf("%dm %02ds", elapsedSecs/60, elapsedSecs%60)
	default:
		return fmt.Sprintf("%dh %02dm %02ds", elapsedSecs/3600, (elapsedSecs%3600)/60, elapsedSecs%60)
	}
}

func clampSpans(spans []render.Span, width int) []render.Span {
	if width <= 0 {
		return nil
	}
	remaining := width
	out := make([]render.Span, 0, len(spans))
	for _, sp := range spans {
		if remaining <= 0 {
			break
		}
		tw := runewidth.StringWidth(sp.Text)
		if tw <= remaining {
			out = append(out, sp)
			remaining -= tw
			continue
		}
		if text := render.TruncateToWidth(sp.Text, remaining); text != "" {
			sp.Text = text
			out = append(out, sp)
		}
		remaining = 0
	}
	return out
}
