// Package toolserver 通过 websocket 暴露 tools.Invoker，并提供对应的远程客户端。
package toolserver

import "rtl-cli/internal/tools"

// 客户端 → 服务端
const (
	TypeInvoke = "invoke"
	TypeAbort  = "abort"
)

// 服务端 → 客户端
const (
	TypeChunk = "chunk"
	TypeDone  = "done"
	TypeError = "error"
)

// InvokePath 是 websocket 端点。
const InvokePath = "/v1/invoke"

// BaseMessage 是所有消息的公共字段。
type BaseMessage struct {
	Type string             `json:"type"`
	ID   tools.InvocationID `json:"id"`
}

// InvokeMessage 在连接建立后由客户端首先发送，每个连接只承载一次调用。
type InvokeMessage struct {
	BaseMessage
	Kind     tools.Kind `json:"kind"`
	Source   string     `json:"source"`
	FileName string     `json:"file_name,omitempty"`
}

// AbortMessage 请求中止进行中的调用。
type AbortMessage struct {
	BaseMessage
}

// ChunkMessage 携带一段工具输出。
type ChunkMessage struct {
	BaseMessage
	Text string `json:"text"`
}

// DoneMessage 是正常结束的终止消息。
type DoneMessage struct {
	BaseMessage
	Success bool   `json:"success"`
	Summary string `json:"summary"`
}

// ErrorMessage 是执行失败的终止消息。
type ErrorMessage struct {
	BaseMessage
	Message string `json:"message"`
}
