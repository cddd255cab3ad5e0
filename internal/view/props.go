package view

import (
	"fmt"
	"strings"

	"rtl-cli/internal/session"
	"rtl-cli/internal/tools"
)

// EmptyPlaceholder 在尚无输出时显示于日志面板。
const EmptyPlaceholder = "Run simulation to view results here."

// Props 是日志面板与工具栏的渲染输入。
type Props struct {
	Phase         session.Phase
	Kind          tools.Kind
	InvocationID  tools.InvocationID
	Label         string
	VisibleOutput string
	Dropped       int
	// Success 仅在 Completed 且工具报告成功时为 true。
	Success       bool
	CanRun        bool
	CanCancel     bool
}

// Empty 报告是否应显示占位文字。
func (p Props) Empty() bool {
	return p.VisibleOutput == ""
}

// PropsFrom 把会话快照翻译为渲染属性。
func PropsFrom(snap session.Snapshot) Props {
	st := snap.Status
	p := Props{
		Phase:        st.Phase,
		Kind:         st.Kind,
		InvocationID: st.ID,
		Label:        label(st),
		Dropped:      snap.Dropped,
		Success:      st.Phase == session.PhaseCompleted && st.Outcome.Success,
		CanRun:       st.Phase != session.PhaseCancelling,
		CanCancel:    st.Phase == session.PhaseRunning,
	}

	var b strings.Builder
	if snap.Dropped > 0 {
		fmt.Fprintf(&b, "[... %d bytes truncated ...]\n", snap.Dropped)
	}
	b.WriteString(snap.Output)
	if st.Phase == session.PhaseFailed {
		if b.Len() > 0 && !strings.HasSuffix(b.String(), "\n") {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "[%s failed: %s]", st.Kind, st.Failure.Detail)
	}
	p.VisibleOutput = b.String()
	return p
}

func label(st session.Status) string {
	switch st.Phase {
	case session.PhaseRunning:
		return progressive(st.Kind)
	case session.PhaseCancelling:
		return "Cancelling..."
	case session.PhaseCompleted:
		if st.Outcome.Summary != "" {
			return st.Outcome.Summary
		}
		if st.Outcome.Success {
			return st.Kind.Title() + " finished"
		}
		return st.Kind.Title() + " reported errors"
	case session.PhaseFailed:
		if st.Failure.Kind == session.FailureTimedOut {
			return st.Kind.Title() + " timed out"
		}
		return st.Kind.Title() + " failed"
	default:
		if st.Cancelled {
			return "Cancelled"
		}
		return "Ready"
	}
}

func progressive(k tools.Kind) string {
	switch k {
	case tools.KindSimulate:
		return "Simulating..."
	case tools.KindLint:
		return "Linting..."
	case tools.KindSynthesize:
		return "Synthesizing..."
	default:
		return "Running..."
	}
}
