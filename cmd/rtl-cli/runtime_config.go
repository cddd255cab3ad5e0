package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"rtl-cli/internal/config"
	"rtl-cli/internal/events"
	"rtl-cli/internal/logger"
	"rtl-cli/internal/session"
	"rtl-cli/internal/tools"
	"rtl-cli/internal/toolserver"
)

// loadConfig 读取配置文件，再依次叠加全局与子命令的 -c 覆盖。
func loadConfig(root rootArgs, overrides []string) (config.Config, error) {
	cfg, err := config.Load(root.cfgPath)
	if err != nil {
		return cfg, fmt.Errorf("load config: %w", err)
	}
	cfg = config.ApplyKVOverrides(cfg, prependOverrides(root.overrides, overrides))
	logger.Configure(cfg.LogLevel)
	return cfg, nil
}

// buildInvoker 按配置选择远程工具服务或本地工具链。
func buildInvoker(cfg config.Config) (tools.Invoker, string, error) {
	if url := strings.TrimSpace(cfg.ServiceURL); url != "" {
		client, err := toolserver.NewClient(url)
		if err != nil {
			return nil, "", err
		}
		return client, client.URL(), nil
	}
	return tools.NewProcessInvoker(cfg.Toolchain(), cfg.FileName), "local", nil
}

type sessionSetup struct {
	timeoutOverride time.Duration
	eventLogPath    string
	eventBuffer     int
}

// buildSession 组装会话；返回的 closer 负责事件日志文件。
func buildSession(cfg config.Config, inv tools.Invoker, setup sessionSetup) (*session.Session, io.Closer, error) {
	timeouts := cfg.TimeoutMap()
	if setup.timeoutOverride > 0 {
		for _, k := range tools.Kinds {
			timeouts[k] = setup.timeoutOverride
		}
	}
	var eventLog *logger.LogEntry
	var closer io.Closer
	if setup.eventLogPath != "" {
		eventLog, closer = events.NewLogger(setup.eventLogPath)
	}
	sess, err := session.New(session.Options{
		Invoker:        inv,
		Timeouts:       timeouts,
		CancelGrace:    cfg.CancelGrace(),
		MaxOutputBytes: cfg.MaxOutputBytes,
		FileName:       cfg.FileName,
		EventBuffer:    setup.eventBuffer,
		EventLog:       eventLog,
	})
	if err != nil {
		if closer != nil {
			_ = closer.Close()
		}
		return nil, nil, err
	}
	return sess, closer, nil
}
