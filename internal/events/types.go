package events

import (
	"time"

	"rtl-cli/internal/tools"
)

// EventType 描述 EQ 中分发的事件类型。
type EventType string

const (
	EventInvocationStarted   EventType = "invocation.started"
	EventOutputChunk         EventType = "output.chunk"
	EventInvocationCompleted EventType = "invocation.completed"
	EventInvocationFailed    EventType = "invocation.failed"
	// EventCancelRequested 在 Cancel 被接受、等待工具确认时发出。
	EventCancelRequested EventType = "invocation.cancel_requested"
	// EventInvocationCancelled 在取消得到确认（或宽限期到期）回到 Idle 时发出。
	EventInvocationCancelled EventType = "invocation.cancelled"
	EventInvocationSuperseded EventType = "invocation.superseded"
	EventSessionClosed        EventType = "session.closed"
)

// Event 是 EQ 中传递的唯一消息格式；Payload 的具体结构由 Type 决定：
//   - output.chunk: string
//   - invocation.completed: tools.Outcome
//   - invocation.failed: string（失败详情）
type Event struct {
	Type         EventType
	SessionID    string
	InvocationID tools.InvocationID
	Kind         tools.Kind
	Timestamp    time.Time
	Payload      any
}
