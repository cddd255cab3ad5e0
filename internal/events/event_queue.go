package events

import (
	"context"
	"errors"
	"sync"

	"rtl-cli/internal/logger"
)

var (
	// ErrEventQueueClosed 表示事件队列已关闭。
	ErrEventQueueClosed = errors.New("event queue closed")
	// ErrEventDropped 表示事件被慢消费者丢弃。
	ErrEventDropped = errors.New("event dropped by slow subscriber")
)

// Publisher 抽象 EQ，便于会话与队列解耦。
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// EventQueue 是 EQ，负责事件广播。Publish 从不阻塞：订阅者缓冲满时丢弃该事件。
type EventQueue struct {
	mu     sync.Mutex
	subs   []chan Event
	buffer int
	closed bool
	log    *logger.LogEntry
}

// NewEventQueue 创建事件队列，buffer 是每个订阅者的缓存大小。
func NewEventQueue(buffer int) *EventQueue {
	if buffer <= 0 {
		buffer = 64
	}
	return &EventQueue{buffer: buffer}
}

// SetLogger 设置发布日志；nil 表示不记录。
func (q *EventQueue) SetLogger(entry *logger.LogEntry) {
	q.mu.Lock()
	q.log = entry
	q.mu.Unlock()
}

// Subscribe 订阅事件流。通道会在 Close 时关闭。
func (q *EventQueue) Subscribe() <-chan Event {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		ch := make(chan Event)
		close(ch)
		return ch
	}
	ch := make(chan Event, q.buffer)
	q.subs = append(q.subs, ch)
	return ch
}

// Publish 发布事件到所有订阅者。若存在丢弃，则返回 ErrEventDropped。
// 发送在锁内以非阻塞方式完成，避免与 Close 竞争已关闭的通道。
func (q *EventQueue) Publish(ctx context.Context, event Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrEventQueueClosed
	}
	dropped := false
	for _, ch := range q.subs {
		select {
		case ch <- event:
		default:
			dropped = true
		}
	}
	log := q.log
	q.mu.Unlock()

	logEvent(log, event, dropped)
	if dropped {
		return ErrEventDropped
	}
	return nil
}

// Close 关闭事件队列和所有订阅通道。
func (q *EventQueue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	subs := q.subs
	q.subs = nil
	q.mu.Unlock()

	for _, ch := range subs {
		close(ch)
	}
}

// SubscriberCount 返回当前订阅者数量。
func (q *EventQueue) SubscriberCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.subs)
}
