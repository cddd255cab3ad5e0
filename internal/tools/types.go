package tools

import (
	"context"
	"fmt"
	"strconv"
)

// Kind 标识要调用的 EDA 能力。
type Kind string

const (
	KindSimulate   Kind = "simulate"
	KindLint       Kind = "lint"
	KindSynthesize Kind = "synthesize"
)

// Kinds 按工具栏顺序列出全部 Kind。
var Kinds = []Kind{KindSimulate, KindLint, KindSynthesize}

// Valid 报告 k 是否为已知 Kind。
func (k Kind) Valid() bool {
	switch k {
	case KindSimulate, KindLint, KindSynthesize:
		return true
	default:
		return false
	}
}

// Title 返回工具栏上的按钮文字。
func (k Kind) Title() string {
	switch k {
	case KindSimulate:
		return "Run"
	case KindLint:
		return "Lint"
	case KindSynthesize:
		return "Synthesize"
	default:
		return string(k)
	}
}

// InvocationID 由会话分配，严格递增；0 表示无。
type InvocationID uint64

func (id InvocationID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// Request 是一次调用的输入。
type Request struct {
	ID       InvocationID
	Kind     Kind
	Source   string
	FileName string
}

// Outcome 是工具正常结束时的结果；Success=false 表示设计本身有问题（例如 lint 报错），
// 而非执行失败。
type Outcome struct {
	Success bool
	Summary string
}

// Callbacks 接收一次调用的输出。同一调用的回调按发送顺序、在同一 goroutine 中触发。
type Callbacks interface {
	OnChunk(id InvocationID, text string)
	OnComplete(id InvocationID, outcome Outcome)
	OnError(id InvocationID, err error)
}

// Handle 代表进行中的调用。Abort 是尽力而为的，可能与最终的 OnComplete 竞争。
type Handle interface {
	Abort()
}

// Invoker 是外部工具执行服务的边界。Invoke 不得长时间阻塞；它可以同步触发回调。
type Invoker interface {
	Invoke(ctx context.Context, req Request, cb Callbacks) (Handle, error)
}

// ExecutionError 表示工具未能执行完毕（找不到二进制、进程崩溃、连接中断等）。
type ExecutionError struct {
	Kind   Kind
	Detail string
	Err    error
}

func (e *ExecutionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// HandleFunc 让函数实现 Handle。
type HandleFunc func()

func (f HandleFunc) Abort() {
	if f != nil {
		f()
	}
}
