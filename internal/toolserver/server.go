package toolserver

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"rtl-cli/internal/logger"
	"rtl-cli/internal/tools"
)

const (
	maxMessageSize = 4 << 20
	writeTimeout   = 10 * time.Second
)

// Server 把一个本地 Invoker 挂到 websocket 上。
type Server struct {
	echo     *echo.Echo
	backend  tools.Invoker
	upgrader websocket.Upgrader
	log      *logger.LogEntry
	active   atomic.Int64
	served   atomic.Int64
}

// NewServer 创建服务并注册路由。
func NewServer(backend tools.Invoker) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:    e,
		backend: backend,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		log: logger.Named("toolserver"),
	}

	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:    true,
		LogStatus: true,
		LogMethod: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			s.log.WithFields(logger.Fields{"method": v.Method, "uri": v.URI, "status": v.Status}).Debug("request")
			return nil
		},
	}))

	e.GET("/health", s.handleHealth)
	e.GET(InvokePath, s.handleInvoke)
	return s
}

// Handler 返回底层 http.Handler，便于嵌入或测试。
func (s *Server) Handler() http.Handler { return s.echo }

// Start 在 addr 上监听，直到 Shutdown。
func (s *Server) Start(addr string) error {
	s.log.WithField("addr", addr).Info("tool service listening")
	return s.echo.Start(addr)
}

// Shutdown 优雅关闭。
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":      "healthy",
		"connections": s.active.Load(),
		"served":      s.served.Load(),
	})
}

// wsConn 串行化写入；gorilla 只允许一个并发写者。
type wsConn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

func (c *wsConn) send(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.ws.WriteJSON(v)
}

func (c *wsConn) closeNormal() {
	c.mu.Lock()
	defer c.mu.Unlock()
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
}

// connCallbacks 把一次调用的回调写回连接；终止消息只发送一次。
type connCallbacks struct {
	conn *wsConn
	log  *logger.LogEntry
	once sync.Once
	done chan struct{}
}

func (cb *connCallbacks) OnChunk(id tools.InvocationID, text string) {
	if err := cb.conn.send(ChunkMessage{BaseMessage: BaseMessage{Type: TypeChunk, ID: id}, Text: text}); err != nil {
		cb.log.WithError(err).Debug("write chunk failed")
	}
}

func (cb *connCallbacks) OnComplete(id tools.InvocationID, outcome tools.Outcome) {
	cb.finish(DoneMessage{BaseMessage: BaseMessage{Type: TypeDone, ID: id}, Success: outcome.Success, Summary: outcome.Summary})
}

func (cb *connCallbacks) OnError(id tools.InvocationID, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	cb.finish(ErrorMessage{BaseMessage: BaseMessage{Type: TypeError, ID: id}, Message: msg})
}

func (cb *connCallbacks) finish(msg any) {
	cb.once.Do(func() {
		if err := cb.conn.send(msg); err != nil {
			cb.log.WithError(err).Debug("write terminal message failed")
		}
		close(cb.done)
	})
}

func (s *Server) handleInvoke(c echo.Context) error {
	ws, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		s.log.WithError(err).Warn("websocket upgrade failed")
		return err
	}
	defer ws.Close()
	ws.SetReadLimit(maxMessageSize)

	s.active.Add(1)
	defer s.active.Add(-1)
	log := s.log.WithField("conn", uuid.NewString())
	conn := &wsConn{ws: ws}

	_, data, err := ws.ReadMessage()
	if err != nil {
		log.WithError(err).Debug("connection closed before invoke")
		return nil
	}
	var msg InvokeMessage
	if err := json.Unmarshal(data, &msg); err != nil || msg.Type != TypeInvoke {
		conn.send(ErrorMessage{BaseMessage: BaseMessage{Type: TypeError}, Message: "expected invoke message"})
		conn.closeNormal()
		return nil
	}
	if !msg.Kind.Valid() {
		conn.send(ErrorMessage{BaseMessage: BaseMessage{Type: TypeError, ID: msg.ID}, Message: "unknown tool kind: " + string(msg.Kind)})
		conn.closeNormal()
		return nil
	}

	log = log.WithFields(logger.Fields{"invocation": msg.ID, "kind": msg.Kind})
	log.Info("remote invocation started")
	s.served.Add(1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cb := &connCallbacks{conn: conn, log: log, done: make(chan struct{})}
	req := tools.Request{ID: msg.ID, Kind: msg.Kind, Source: msg.Source, FileName: msg.FileName}
	h, err := s.backend.Invoke(ctx, req, cb)
	if err != nil {
		cb.OnError(msg.ID, err)
		conn.closeNormal()
		return nil
	}
	if h == nil {
		h = tools.HandleFunc(cancel)
	}

	// 读循环只关心 abort 与断连；两者都中止后端调用。
	go func() {
		for {
			_, data, err := ws.ReadMessage()
			if err != nil {
				h.Abort()
				return
			}
			var base BaseMessage
			if json.Unmarshal(data, &base) == nil && base.Type == TypeAbort && base.ID == msg.ID {
				log.Info("abort requested by client")
				h.Abort()
			}
		}
	}()

	<-cb.done
	conn.closeNormal()
	log.Info("remote invocation finished")
	return nil
}
