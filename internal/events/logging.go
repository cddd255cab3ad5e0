package events

import (
	"fmt"
	"io"

	"rtl-cli/internal/logger"
	"rtl-cli/internal/tools"
)

// NewLogger 为 EQ 创建专用日志；path 为空或打开失败时回落到全局 logger。
func NewLogger(path string) (*logger.LogEntry, io.Closer) {
	if path == "" {
		return logger.Named("eq"), nil
	}
	entry, closer, _, err := logger.SetupComponentFile("eq", path)
	if err != nil {
		logger.Named("events").Warnf("failed to set up eq log file (%s): %v", path, err)
		return logger.Named("eq"), nil
	}
	return entry, closer
}

func logEvent(log *logger.LogEntry, event Event, dropped bool) {
	if log == nil {
		return
	}
	fields := logger.Fields{
		"type": event.Type,
	}
	if event.InvocationID != 0 {
		fields["invocation"] = event.InvocationID
	}
	if event.Kind != "" {
		fields["kind"] = event.Kind
	}
	if event.SessionID != "" {
		fields["session_id"] = event.SessionID
	}
	if payload := encodePayload(event.Payload); payload != "" {
		fields["payload"] = payload
	}
	if dropped {
		fields["dropped"] = true
	}
	entry := log.WithFields(fields)
	if event.Type == EventOutputChunk {
		entry.Debug("published event into EQ")
		return
	}
	entry.Info("published event into EQ")
}

func encodePayload(payload any) string {
	switch v := payload.(type) {
	case nil:
		return ""
	case string:
		if len(v) > 120 {
			return fmt.Sprintf("%q... (%d bytes)", v[:120], len(v))
		}
		return fmt.Sprintf("%q", v)
	case tools.Outcome:
		return fmt.Sprintf("success=%t summary=%q", v.Success, v.Summary)
	default:
		return fmt.Sprintf("%v", v)
	}
}
