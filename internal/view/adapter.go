package view

import (
	"rtl-cli/internal/logger"
	"rtl-cli/internal/session"
	"rtl-cli/internal/tools"
)

// Commander 是适配器需要的会话命令集合，*session.Session 实现了它。
type Commander interface {
	Start(kind tools.Kind, source string) (tools.InvocationID, error)
	Cancel()
	Snapshot() session.Snapshot
}

// Adapter 把按钮意图翻译为会话命令，把会话快照翻译为 Props。它不持有任何状态副本。
type Adapter struct {
	sess   Commander
	source func() string
	log    *logger.LogEntry
}

// NewAdapter 创建适配器；source 在每次 Run 时读取编辑器当前内容。
func NewAdapter(sess Commander, source func() string) *Adapter {
	if source == nil {
		source = func() string { return "" }
	}
	return &Adapter{sess: sess, source: source, log: logger.Named("view")}
}

// OnRunClicked 启动 kind；按钮被禁用（Cancelling）时忽略并返回 0。
func (a *Adapter) OnRunClicked(kind tools.Kind) (tools.InvocationID, error) {
	if !a.Props().CanRun {
		a.log.WithField("kind", kind).Debug("run ignored while cancelling")
		return 0, nil
	}
	return a.sess.Start(kind, a.source())
}

// OnCancelClicked 请求取消；不可取消时 Session 自身即为 no-op。
func (a *Adapter) OnCancelClicked() {
	a.sess.Cancel()
}

// Props 返回当前渲染属性。
func (a *Adapter) Props() Props {
	return PropsFrom(a.sess.Snapshot())
}
