package session

import (
	"errors"

	"rtl-cli/internal/tools"
)

// Phase 是会话状态机的阶段。
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseRunning
	PhaseCancelling
	PhaseCompleted
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseRunning:
		return "running"
	case PhaseCancelling:
		return "cancelling"
	case PhaseCompleted:
		return "completed"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// FailureKind 区分失败来源，便于诊断。
type FailureKind string

const (
	FailureToolExecution FailureKind = "tool_execution_failed"
	FailureTimedOut      FailureKind = "timed_out"
)

// Failure 描述 Failed 阶段携带的错误。
type Failure struct {
	Kind   FailureKind
	Detail string
}

// ErrInvocationRejected 表示 Start 违反调用约定（会话已关闭或 Kind 未知）。
var ErrInvocationRejected = errors.New("invocation rejected")

// Status 是会话的唯一事实来源。ID 始终是最近一次 Start 分配的 id（Idle 初始为 0）。
type Status struct {
	Phase   Phase
	Kind    tools.Kind
	ID      tools.InvocationID
	Outcome tools.Outcome
	Failure Failure
	// Cancelled 仅在取消确认后回到 Idle 时为 true。
	Cancelled bool
}

// Busy 报告是否有调用在途（Running 或 Cancelling）。
func (s Status) Busy() bool {
	return s.Phase == PhaseRunning || s.Phase == PhaseCancelling
}

// Snapshot 是渲染层读取的不可变快照。
type Snapshot struct {
	SessionID string
	Status    Status
	Output    string
	Dropped   int
}
