package toolserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"rtl-cli/internal/logger"
	"rtl-cli/internal/tools"
)

// abortDrain 是发出 abort 后等待服务端终止消息的上限。
const abortDrain = 2 * time.Second

// Client 是远程 tools.Invoker：每次调用建立一条 websocket 连接。
type Client struct {
	url    string
	dialer *websocket.Dialer
	log    *logger.LogEntry
}

// NewClient 解析服务地址；http(s) 会被改写为 ws(s)，缺省路径补为 /v1/invoke。
func NewClient(serviceURL string) (*Client, error) {
	raw := strings.TrimSpace(serviceURL)
	if raw == "" {
		return nil, errors.New("service url is empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse service url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return nil, fmt.Errorf("unsupported service url scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("service url %q has no host", raw)
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = InvokePath
	}
	return &Client{
		url:    u.String(),
		dialer: &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		log:    logger.Named("toolserver.client"),
	}, nil
}

// URL 返回实际拨号地址。
func (c *Client) URL() string { return c.url }

// Invoke 在后台拨号并流式接收结果，立即返回句柄。
func (c *Client) Invoke(ctx context.Context, req tools.Request, cb tools.Callbacks) (tools.Handle, error) {
	if !req.Kind.Valid() {
		return nil, fmt.Errorf("unknown tool kind %q", req.Kind)
	}
	if cb == nil {
		return nil, errors.New("callbacks required")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	runCtx, cancel := context.WithCancel(ctx)
	inv := &remoteInvocation{
		client: c,
		req:    req,
		cb:     cb,
		cancel: cancel,
		log:    c.log.WithFields(logger.Fields{"invocation": req.ID, "kind": req.Kind}),
	}
	go inv.run(runCtx)
	return tools.HandleFunc(inv.abort), nil
}

type remoteInvocation struct {
	client *Client
	req    tools.Request
	cb     tools.Callbacks
	cancel context.CancelFunc
	log    *logger.LogEntry

	mu      sync.Mutex
	conn    *websocket.Conn
	aborted bool
}

func (r *remoteInvocation) run(ctx context.Context) {
	defer r.cancel()
	id := r.req.ID

	conn, _, err := r.client.dialer.DialContext(ctx, r.client.url, nil)
	if err != nil {
		if r.isAborted() {
			r.cb.OnError(id, context.Canceled)
			return
		}
		r.cb.OnError(id, &tools.ExecutionError{Kind: r.req.Kind, Detail: "connect to tool service", Err: err})
		return
	}
	defer conn.Close()

	r.mu.Lock()
	if r.aborted {
		r.mu.Unlock()
		r.cb.OnError(id, context.Canceled)
		return
	}
	r.conn = conn
	err = conn.WriteJSON(InvokeMessage{
		BaseMessage: BaseMessage{Type: TypeInvoke, ID: id},
		Kind:        r.req.Kind,
		Source:      r.req.Source,
		FileName:    r.req.FileName,
	})
	r.mu.Unlock()
	if err != nil {
		r.cb.OnError(id, &tools.ExecutionError{Kind: r.req.Kind, Detail: "send invoke", Err: err})
		return
	}
	r.log.Debug("remote invocation sent")

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if r.isAborted() {
				r.cb.OnError(id, context.Canceled)
				return
			}
			r.cb.OnError(id, &tools.ExecutionError{Kind: r.req.Kind, Detail: "connection closed before result", Err: err})
			return
		}
		var base BaseMessage
		if err := json.Unmarshal(data, &base); err != nil {
			r.log.WithError(err).Warn("invalid message from tool service")
			continue
		}
		if base.ID != id && base.Type != TypeError {
			continue
		}
		switch base.Type {
		case TypeChunk:
			var msg ChunkMessage
			if json.Unmarshal(data, &msg) == nil {
				r.cb.OnChunk(id, msg.Text)
			}
		case TypeDone:
			var msg DoneMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				r.cb.OnError(id, &tools.ExecutionError{Kind: r.req.Kind, Detail: "invalid done message", Err: err})
				return
			}
			r.cb.OnComplete(id, tools.Outcome{Success: msg.Success, Summary: msg.Summary})
			return
		case TypeError:
			var msg ErrorMessage
			_ = json.Unmarshal(data, &msg)
			if r.isAborted() {
				r.cb.OnError(id, fmt.Errorf("%w: %s", context.Canceled, msg.Message))
				return
			}
			r.cb.OnError(id, &tools.ExecutionError{Kind: r.req.Kind, Detail: msg.Message})
			return
		default:
			r.log.WithField("type", base.Type).Debug("ignoring unknown message type")
		}
	}
}

func (r *remoteInvocation) isAborted() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.aborted
}

// abort 通知服务端中止；连接尚未建立时直接取消拨号。重复调用无副作用。
func (r *remoteInvocation) abort() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.aborted {
		return
	}
	r.aborted = true
	if r.conn == nil {
		r.cancel()
		return
	}
	r.conn.SetWriteDeadline(time.Now().Add(time.Second))
	if err := r.conn.WriteJSON(AbortMessage{BaseMessage: BaseMessage{Type: TypeAbort, ID: r.req.ID}}); err != nil {
		r.log.WithError(err).Debug("send abort failed")
	}
	r.conn.SetReadDeadline(time.Now().Add(abortDrain))
	r.log.Info("remote abort sent")
}
