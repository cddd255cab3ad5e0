package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"rtl-cli/internal/events"
	"rtl-cli/internal/logger"
	"rtl-cli/internal/tools"

	"github.com/google/uuid"
)

// DefaultCancelGrace 是 Cancelling 等待工具确认的最长时间。
const DefaultCancelGrace = 5 * time.Second

// Options 配置 Session。
type Options struct {
	Invoker tools.Invoker
	// Timeouts 为每种 Kind 设置超时；0 或缺省表示不限时。
	Timeouts       map[tools.Kind]time.Duration
	CancelGrace    time.Duration
	MaxOutputBytes int
	FileName       string
	EventBuffer    int
	Logger         *logger.LogEntry
	EventLog       *logger.LogEntry
}

// Session 是一个编辑器对应的工具调用状态机。所有变更经由 Start/Cancel/回调串行化；
// 过期 id 的回调（被取代、已取消或超时的调用）一律静默丢弃。
type Session struct {
	id          string
	invoker     tools.Invoker
	timeouts    map[tools.Kind]time.Duration
	cancelGrace time.Duration
	fileName    string
	events      *events.EventQueue
	log         *logger.LogEntry

	mu       sync.Mutex
	status   Status
	lastID   tools.InvocationID
	accepted tools.InvocationID
	handle   tools.Handle
	timer    *time.Timer
	sink     *Sink
	closed   bool
}

// New 创建会话。Invoker 为必填项。
func New(opts Options) (*Session, error) {
	if opts.Invoker == nil {
		return nil, fmt.Errorf("session: invoker required")
	}
	grace := opts.CancelGrace
	if grace <= 0 {
		grace = DefaultCancelGrace
	}
	timeouts := make(map[tools.Kind]time.Duration, len(opts.Timeouts))
	for k, d := range opts.Timeouts {
		timeouts[k] = d
	}
	id := uuid.NewString()
	log := opts.Logger
	if log == nil {
		log = logger.Named("session")
	}
	log = log.WithField("session_id", id)

	queue := events.NewEventQueue(opts.EventBuffer)
	if opts.EventLog != nil {
		queue.SetLogger(opts.EventLog)
	}
	return &Session{
		id:          id,
		invoker:     opts.Invoker,
		timeouts:    timeouts,
		cancelGrace: grace,
		fileName:    opts.FileName,
		events:      queue,
		log:         log,
		sink:        NewSink(opts.MaxOutputBytes),
	}, nil
}

// ID 返回会话 id。
func (s *Session) ID() string { return s.id }

// Subscribe 订阅会话事件；慢订阅者会丢事件，收到事件后应重新读取 Snapshot。
func (s *Session) Subscribe() <-chan events.Event {
	return s.events.Subscribe()
}

// Snapshot 返回当前状态与可见输出的副本。
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		SessionID: s.id,
		Status:    s.status,
		Output:    s.sink.VisibleText(s.status.ID),
		Dropped:   s.sink.Dropped(s.status.ID),
	}
}

// Status 返回当前状态。
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Start 开始一次新调用并返回其 id。在途调用被取代：其 id 不再被接受，句柄被中止。
// 仅在会话已关闭或 kind 未知时返回 ErrInvocationRejected；Invoke 的同步错误
// 会使本次调用进入 Failed，Start 仍返回 id。
func (s *Session) Start(kind tools.Kind, source string) (tools.InvocationID, error) {
	if !kind.Valid() {
		s.log.WithField("kind", kind).Error("start rejected: unknown tool kind")
		return 0, fmt.Errorf("%w: unknown tool kind %q", ErrInvocationRejected, kind)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.log.WithField("kind", kind).Error("start rejected: session closed")
		return 0, fmt.Errorf("%w: session closed", ErrInvocationRejected)
	}
	prev := s.status
	prevHandle := s.handle
	s.stopTimerLocked()
	s.lastID++
	id := s.lastID
	s.accepted = id
	s.handle = nil
	s.status = Status{Phase: PhaseRunning, Kind: kind, ID: id}
	s.sink.Reset(id, kind)
	if prev.Busy() {
		s.log.WithFields(logger.Fields{"invocation": prev.ID, "superseded_by": id}).Info("invocation superseded")
		s.publishLocked(events.EventInvocationSuperseded, prev.ID, prev.Kind, id)
	}
	if d := s.timeouts[kind]; d > 0 {
		s.timer = time.AfterFunc(d, func() { s.onTimeout(id, d) })
	}
	s.log.WithFields(logger.Fields{"invocation": id, "kind": kind, "source_bytes": len(source)}).Info("invocation started")
	s.publishLocked(events.EventInvocationStarted, id, kind, nil)
	s.mu.Unlock()

	if prevHandle != nil {
		prevHandle.Abort()
	}

	req := tools.Request{ID: id, Kind: kind, Source: source, FileName: s.fileName}
	h, err := s.invoker.Invoke(context.Background(), req, s)

	s.mu.Lock()
	if err != nil {
		if s.acceptingLocked(id) {
			s.failLocked(id, FailureToolExecution, err.Error())
		}
		s.mu.Unlock()
		return id, nil
	}
	if s.acceptingLocked(id) {
		s.handle = h
		s.mu.Unlock()
		return id, nil
	}
	// Invoke 返回前已被取消/取代/超时或同步结束；中止对已结束的调用无副作用。
	s.mu.Unlock()
	if h != nil {
		h.Abort()
	}
	return id, nil
}

// Cancel 请求中止 Running 的调用：立即停止接受其输出，等待工具确认或宽限期到期后回到 Idle。
// 其他阶段为 no-op，重复调用等同一次。
func (s *Session) Cancel() {
	s.mu.Lock()
	if s.status.Phase != PhaseRunning {
		s.mu.Unlock()
		return
	}
	id := s.status.ID
	h := s.handle
	s.handle = nil
	s.accepted = 0
	s.stopTimerLocked()
	s.sink.Freeze(id)
	s.status.Phase = PhaseCancelling
	s.timer = time.AfterFunc(s.cancelGrace, func() { s.finishCancel(id, "grace expired") })
	s.log.WithField("invocation", id).Info("cancel requested")
	s.publishLocked(events.EventCancelRequested, id, s.status.Kind, nil)
	s.mu.Unlock()

	if h != nil {
		h.Abort()
	}
}

// OnChunk 实现 tools.Callbacks：仅当 id 为当前接受的 id 时追加。
func (s *Session) OnChunk(id tools.InvocationID, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.acceptingLocked(id) {
		s.logStale(id, "chunk")
		return
	}
	s.sink.Append(id, text)
	s.publishLocked(events.EventOutputChunk, id, s.status.Kind, text)
}

// OnComplete 实现 tools.Callbacks。对 Cancelling 中的 id 视为中止确认，结果被忽略。
func (s *Session) OnComplete(id tools.InvocationID, outcome tools.Outcome) {
	s.mu.Lock()
	if s.cancellingLocked(id) {
		s.mu.Unlock()
		s.finishCancel(id, "acknowledged")
		return
	}
	defer s.mu.Unlock()
	if !s.acceptingLocked(id) {
		s.logStale(id, "complete")
		return
	}
	s.endLocked(id)
	s.status = Status{Phase: PhaseCompleted, Kind: s.status.Kind, ID: id, Outcome: outcome}
	s.log.WithFields(logger.Fields{"invocation": id, "success": outcome.Success, "summary": outcome.Summary}).Info("invocation completed")
	s.publishLocked(events.EventInvocationCompleted, id, s.status.Kind, outcome)
}

// OnError 实现 tools.Callbacks。
func (s *Session) OnError(id tools.InvocationID, err error) {
	s.mu.Lock()
	if s.cancellingLocked(id) {
		s.mu.Unlock()
		s.finishCancel(id, "acknowledged")
		return
	}
	defer s.mu.Unlock()
	if !s.acceptingLocked(id) {
		s.logStale(id, "error")
		return
	}
	detail := "unknown error"
	if err != nil {
		detail = err.Error()
	}
	s.failLocked(id, FailureToolExecution, detail)
}

// Close 结束会话：中止在途调用、停止计时器并关闭事件流。之后的 Start 被拒绝。
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	h := s.handle
	s.handle = nil
	s.accepted = 0
	s.stopTimerLocked()
	if s.status.Busy() {
		s.sink.Freeze(s.status.ID)
		s.status = Status{Phase: PhaseIdle, Kind: s.status.Kind, ID: s.status.ID, Cancelled: true}
	}
	s.publishLocked(events.EventSessionClosed, s.status.ID, s.status.Kind, nil)
	s.mu.Unlock()

	if h != nil {
		h.Abort()
	}
	s.events.Close()
	s.log.Info("session closed")
}

func (s *Session) onTimeout(id tools.InvocationID, d time.Duration) {
	s.mu.Lock()
	if !s.acceptingLocked(id) {
		s.mu.Unlock()
		return
	}
	h := s.handle
	s.failLocked(id, FailureTimedOut, fmt.Sprintf("timed out after %s", d))
	s.mu.Unlock()

	if h != nil {
		h.Abort()
	}
}

func (s *Session) finishCancel(id tools.InvocationID, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.cancellingLocked(id) {
		return
	}
	s.stopTimerLocked()
	s.status = Status{Phase: PhaseIdle, Kind: s.status.Kind, ID: id, Cancelled: true}
	s.log.WithFields(logger.Fields{"invocation": id, "reason": reason}).Info("invocation cancelled")
	s.publishLocked(events.EventInvocationCancelled, id, s.status.Kind, reason)
}

// failLocked 把接受中的调用转入 Failed；调用方持有锁。
func (s *Session) failLocked(id tools.InvocationID, kind FailureKind, detail string) {
	s.endLocked(id)
	s.status = Status{Phase: PhaseFailed, Kind: s.status.Kind, ID: id, Failure: Failure{Kind: kind, Detail: detail}}
	s.log.WithFields(logger.Fields{"invocation": id, "failure": kind, "detail": detail}).Warn("invocation failed")
	s.publishLocked(events.EventInvocationFailed, id, s.status.Kind, detail)
}

func (s *Session) endLocked(id tools.InvocationID) {
	s.stopTimerLocked()
	s.handle = nil
	s.accepted = 0
	s.sink.Freeze(id)
}

func (s *Session) acceptingLocked(id tools.InvocationID) bool {
	return id != 0 && id == s.accepted && s.status.Phase == PhaseRunning && s.status.ID == id
}

func (s *Session) cancellingLocked(id tools.InvocationID) bool {
	return id != 0 && s.status.Phase == PhaseCancelling && s.status.ID == id
}

func (s *Session) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Session) logStale(id tools.InvocationID, what string) {
	s.log.WithFields(logger.Fields{"invocation": id, "callback": what}).Debug("stale callback ignored")
}

// publishLocked 在锁内发布，保证事件顺序与状态变更一致；EventQueue.Publish 不阻塞。
func (s *Session) publishLocked(typ events.EventType, id tools.InvocationID, kind tools.Kind, payload any) {
	_ = s.events.Publish(context.Background(), events.Event{
		Type:         typ,
		SessionID:    s.id,
		InvocationID: id,
		Kind:         kind,
		Timestamp:    time.Now(),
		Payload:      payload,
	})
}
