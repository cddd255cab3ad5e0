package session

import (
	"strings"
	"unicode/utf8"

	"rtl-cli/internal/tools"
)

// DefaultMaxOutputBytes 是单次调用可保留的输出上限。
const DefaultMaxOutputBytes = 1 << 20

type segment struct {
	kind    tools.Kind
	chunks  []string
	head    int
	size    int
	dropped int
	frozen  bool
}

// Sink 按调用 id 累积输出块。每种 Kind 只保留最近一次调用的段，超出上限时从最早的块开始丢弃。
// Sink 本身不加锁，由 Session 独占持有。
type Sink struct {
	maxBytes int
	segments map[tools.InvocationID]*segment
}

// NewSink 创建 Sink；maxBytes<=0 时使用 DefaultMaxOutputBytes。
func NewSink(maxBytes int) *Sink {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxOutputBytes
	}
	return &Sink{maxBytes: maxBytes, segments: map[tools.InvocationID]*segment{}}
}

// Reset 为 id 开启新的空段，并丢弃同一 Kind 的旧段。
func (s *Sink) Reset(id tools.InvocationID, kind tools.Kind) {
	for old, seg := range s.segments {
		if seg.kind == kind || old == id {
			delete(s.segments, old)
		}
	}
	s.segments[id] = &segment{kind: kind}
}

// Append 追加一块输出；id 未知或已冻结时忽略。
func (s *Sink) Append(id tools.InvocationID, text string) {
	seg, ok := s.segments[id]
	if !ok || seg.frozen || text == "" {
		return
	}
	seg.chunks = append(seg.chunks, text)
	seg.size += len(text)
	for seg.size > s.maxBytes && seg.head < len(seg.chunks)-1 {
		n := len(seg.chunks[seg.head])
		seg.chunks[seg.head] = ""
		seg.head++
		seg.size -= n
		seg.dropped += n
	}
	if seg.size > s.maxBytes {
		// 单块即超限：只保留尾部。
		last := seg.chunks[len(seg.chunks)-1]
		cut := len(last) - s.maxBytes
		for cut < len(last) && !utf8.RuneStart(last[cut]) {
			cut++
		}
		seg.chunks[len(seg.chunks)-1] = last[cut:]
		seg.size -= cut
		seg.dropped += cut
	}
	if seg.head > 64 && seg.head*2 > len(seg.chunks) {
		seg.chunks = append([]string(nil), seg.chunks[seg.head:]...)
		seg.head = 0
	}
}

// Freeze 冻结 id 的段，之后的 Append 被忽略。
func (s *Sink) Freeze(id tools.InvocationID) {
	if seg, ok := s.segments[id]; ok {
		seg.frozen = true
	}
}

// VisibleText 按追加顺序拼接 id 的保留块；纯函数，可被渲染层反复调用。
func (s *Sink) VisibleText(id tools.InvocationID) string {
	seg, ok := s.segments[id]
	if !ok {
		return ""
	}
	var b strings.Builder
	b.Grow(seg.size)
	for _, c := range seg.chunks[seg.head:] {
		b.WriteString(c)
	}
	return b.String()
}

// Dropped 返回 id 因上限被丢弃的字节数。
func (s *Sink) Dropped(id tools.InvocationID) int {
	if seg, ok := s.segments[id]; ok {
		return seg.dropped
	}
	return 0
}

// Retained 返回当前保留的调用 id 数量。
func (s *Sink) Retained() int {
	return len(s.segments)
}
