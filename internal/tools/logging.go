package tools

import (
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"rtl-cli/internal/logger"
)

// DefaultToolsLogPath 工具调用日志的默认路径。
const DefaultToolsLogPath = "logs/tools.log"

var (
	toolsLog           = logger.Named("tools")
	toolsLogConfigured bool
	toolsLogMu         sync.Mutex
	toolsLogCloser     io.Closer
	toolsLogPath       string
)

// SetupToolsLog 配置工具调用专用日志，返回文件 closer 及实际路径。
// 多次调用只会在首次生效。
func SetupToolsLog(logPath string) (io.Closer, string, error) {
	toolsLogMu.Lock()
	defer toolsLogMu.Unlock()

	if toolsLogConfigured {
		return toolsLogCloser, toolsLogPath, nil
	}
	if logPath == "" {
		logPath = DefaultToolsLogPath
	}

	entry, closer, resolved, err := logger.SetupComponentFile("tools", logPath)
	toolsLogConfigured = true
	toolsLogPath = resolved
	if err != nil {
		return nil, resolved, err
	}
	toolsLog = entry
	toolsLogCloser = closer
	return closer, resolved, nil
}

// CloseToolsLog 关闭工具日志文件句柄（如已初始化）。
func CloseToolsLog() {
	toolsLogMu.Lock()
	defer toolsLogMu.Unlock()
	if toolsLogCloser != nil {
		_ = toolsLogCloser.Close()
		toolsLogCloser = nil
	}
}

func currentToolsLog() *logger.LogEntry {
	toolsLogMu.Lock()
	defer toolsLogMu.Unlock()
	return toolsLog
}

func logToolStart(req Request) {
	currentToolsLog().WithFields(logger.Fields{
		"invocation":   req.ID,
		"kind":         req.Kind,
		"file":         req.FileName,
		"source_bytes": len(req.Source),
	}).Info("tool started")
}

func logToolResult(req Request, outcome Outcome, err error, elapsed time.Duration) {
	entry := currentToolsLog().WithFields(logger.Fields{
		"invocation": req.ID,
		"kind":       req.Kind,
		"elapsed":    elapsed.Round(time.Millisecond),
	})
	if err != nil {
		var execErr *ExecutionError
		if errors.As(err, &execErr) && execErr.Detail == "aborted" {
			entry.Info("tool aborted")
			return
		}
		entry.WithField("error", sanitizeForLog(err.Error())).Warn("tool failed")
		return
	}
	entry.WithFields(logger.Fields{
		"success": outcome.Success,
		"summary": sanitizeForLog(outcome.Summary),
	}).Info("tool finished")
}

func sanitizeForLog(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return "(empty)"
	}
	text = strings.ReplaceAll(text, "\n", `\n`)
	text = strings.ReplaceAll(text, "\r", `\r`)
	return text
}
