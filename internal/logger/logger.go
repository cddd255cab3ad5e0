package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Logger/LogEntry/Fields 暴露底层类型，调用方无需直接依赖 logrus。
type Logger = logrus.Logger
type LogEntry = logrus.Entry
type Fields = logrus.Fields

// DefaultLogPath 主日志文件路径。
const DefaultLogPath = "logs/rtl-cli.log"

// DefaultSessionLogPath 会话事件日志路径。
const DefaultSessionLogPath = "logs/session.log"

var rootLogger = logrus.StandardLogger()

// Configure 设置全局格式与 caller 输出；level 为空时保持 Info。
func Configure(level string) {
	root().SetReportCaller(true)
	root().SetFormatter(PlainFormatter{})
	if strings.TrimSpace(level) == "" {
		return
	}
	if lvl, err := logrus.ParseLevel(level); err == nil {
		root().SetLevel(lvl)
	}
}

// SetupFile 将全局日志输出重定向到 logPath，返回文件 closer 与实际路径。
func SetupFile(logPath string) (io.Closer, string, error) {
	f, resolved, err := openLogFile(logPath)
	if err != nil {
		return nil, "", err
	}
	root().SetOutput(f)
	return f, resolved, nil
}

// SetupComponentFile 为单个组件创建独立 logger，写入 logPath。
func SetupComponentFile(component, logPath string) (*LogEntry, io.Closer, string, error) {
	f, resolved, err := openLogFile(logPath)
	if err != nil {
		return nil, nil, "", err
	}
	l := logrus.New()
	l.SetReportCaller(true)
	l.SetFormatter(PlainFormatter{})
	l.SetOutput(f)
	l.SetLevel(root().GetLevel())

	entry := logrus.NewEntry(l)
	if component != "" {
		entry = entry.WithField("component", component)
	}
	return entry, f, resolved, nil
}

// Root 返回全局 logger。
func Root() *Logger {
	return root()
}

// SetRoot 覆盖全局 logger，nil 重置为标准 logger。
func SetRoot(l *Logger) {
	if l == nil {
		l = logrus.StandardLogger()
	}
	rootLogger = l
}

// Named 返回带 component 字段的入口。
func Named(component string) *LogEntry {
	entry := logrus.NewEntry(root())
	if component != "" {
		entry = entry.WithField("component", component)
	}
	return entry
}

// Discard 返回丢弃所有输出的入口，测试用。
func Discard() *LogEntry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func Infof(format string, args ...any) {
	root().Infof(format, args...)
}

func Warnf(format string, args ...any) {
	root().Warnf(format, args...)
}

func Fatalf(format string, args ...any) {
	root().Fatalf(format, args...)
}

func root() *logrus.Logger {
	if rootLogger == nil {
		rootLogger = logrus.StandardLogger()
	}
	return rootLogger
}

// PlainFormatter 输出格式：caller [timestamp] [LEVEL] [component] [inv=N] message fields。
type PlainFormatter struct{}

// Format 实现 logrus.Formatter。
func (PlainFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	if entry == nil {
		return []byte{}, nil
	}
	parts := make([]string, 0, 7)
	if caller := formatCaller(entry); caller != "" {
		parts = append(parts, caller)
	}
	parts = append(parts, fmt.Sprintf("[%s]", entry.Time.UTC().Format(time.RFC3339Nano)))
	parts = append(parts, fmt.Sprintf("[%s]", strings.ToUpper(entry.Level.String())))
	if val, ok := entry.Data["component"].(string); ok && val != "" {
		parts = append(parts, fmt.Sprintf("[%s]", val))
	}
	if inv, ok := entry.Data["invocation"]; ok {
		parts = append(parts, fmt.Sprintf("[inv=%v]", inv))
	}
	parts = append(parts, entry.Message)
	if fields := formatFields(entry.Data); fields != "" {
		parts = append(parts, fields)
	}
	return []byte(strings.Join(parts, " ") + "\n"), nil
}

var reservedFields = map[string]struct{}{
	"component":  {},
	"caller":     {},
	"invocation": {},
}

func formatCaller(entry *logrus.Entry) string {
	if entry.HasCaller() && entry.Caller != nil {
		return fmt.Sprintf("%s:%d", shortenFilePath(entry.Caller.File), entry.Caller.Line)
	}
	if caller, ok := entry.Data["caller"].(string); ok && caller != "" {
		return caller
	}
	return ""
}

func formatFields(fields logrus.Fields) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		if _, skip := reservedFields[k]; skip {
			continue
		}
		keys = append(keys, k)
	}
	if len(keys) == 0 {
		return ""
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, fields[k]))
	}
	return strings.Join(parts, " ")
}

func shortenFilePath(file string) string {
	file = filepath.ToSlash(file)
	for _, marker := range []string{"/internal/", "/cmd/"} {
		if idx := strings.Index(file, marker); idx != -1 {
			return file[idx+1:]
		}
	}
	return filepath.Base(file)
}

func openLogFile(logPath string) (*os.File, string, error) {
	if logPath == "" {
		logPath = DefaultLogPath
	}
	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return nil, "", err
	}
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, "", err
	}
	return f, logPath, nil
}
