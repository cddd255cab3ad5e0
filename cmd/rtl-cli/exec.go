package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rtl-cli/internal/events"
	"rtl-cli/internal/logger"
	"rtl-cli/internal/session"
	"rtl-cli/internal/tools"
	"rtl-cli/internal/view"
)

// exec 的退出码。
const (
	exitOK        = 0
	exitFailed    = 1
	exitUsage     = 2
	exitCancelled = 130
)

type jsonEvent struct {
	Type         string `json:"type"`
	SessionID    string `json:"session_id,omitempty"`
	InvocationID uint64 `json:"invocation_id,omitempty"`
	Kind         string `json:"kind,omitempty"`
	Text         string `json:"text,omitempty"`
	Success      *bool  `json:"success,omitempty"`
	Summary      string `json:"summary,omitempty"`
	Error        string `json:"error,omitempty"`
}

type execOptions struct {
	kind     tools.Kind
	source   string
	json     bool
	out      io.Writer
	errOut   io.Writer
	pollTick time.Duration
}

func execMain(root rootArgs, args []string) {
	fs := flag.NewFlagSet("exec", flag.ExitOnError)
	var kindName string
	var timeoutSeconds int
	var jsonOutput bool
	var configOverrides stringSlice
	fs.StringVar(&kindName, "kind", "simulate", "Tool to run (simulate|lint|synthesize)")
	fs.StringVar(&kindName, "k", "simulate", "Alias for --kind")
	fs.IntVar(&timeoutSeconds, "timeout", 0, "Timeout seconds (default from config)")
	fs.BoolVar(&jsonOutput, "json", false, "Print events to stdout as JSONL")
	fs.Var(&configOverrides, "c", "Override config value key=value (repeatable)")
	if err := fs.Parse(args); err != nil {
		log.Fatalf("parse exec args: %v", err)
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: rtl-cli exec -kind <simulate|lint|synthesize> [-timeout N] <file|->")
		os.Exit(exitUsage)
	}
	kind, err := tools.ParseKind(kindName)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitUsage)
	}
	source, err := readSource(fs.Arg(0), os.Stdin)
	if err != nil {
		log.Fatalf("read source: %v", err)
	}

	cfg, err := loadConfig(root, []string(configOverrides))
	if err != nil {
		log.Fatalf("%v", err)
	}
	inv, backend, err := buildInvoker(cfg)
	if err != nil {
		log.Fatalf("build invoker: %v", err)
	}
	sess, closer, err := buildSession(cfg, inv, sessionSetup{
		timeoutOverride: time.Duration(timeoutSeconds) * time.Second,
		eventLogPath:    logger.DefaultSessionLogPath,
		eventBuffer:     1024,
	})
	if err != nil {
		log.Fatalf("create session: %v", err)
	}
	if closer != nil {
		defer closer.Close()
	}
	defer sess.Close()
	log.WithFields(logger.Fields{"kind": kind, "backend": backend}).Info("exec")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	code := runExec(ctx, sess, execOptions{
		kind:   kind,
		source: source,
		json:   jsonOutput,
		out:    os.Stdout,
		errOut: os.Stderr,
	})
	if code != exitOK {
		sess.Close()
		if closer != nil {
			_ = closer.Close()
		}
		os.Exit(code)
	}
}

func readSource(arg string, stdin io.Reader) (string, error) {
	if arg == "-" {
		data, err := io.ReadAll(stdin)
		return string(data), err
	}
	data, err := os.ReadFile(arg)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

type execSession interface {
	view.Commander
	Subscribe() <-chan events.Event
}

// runExec 执行一次调用并把可见输出流式写到 out。ctx 结束时请求取消，并等待会话确认。
func runExec(ctx context.Context, sess execSession, opts execOptions) int {
	if opts.pollTick <= 0 {
		opts.pollTick = 200 * time.Millisecond
	}
	sub := sess.Subscribe()
	id, err := sess.Start(opts.kind, opts.source)
	if err != nil {
		fmt.Fprintf(opts.errOut, "error: %v\n", err)
		return exitFailed
	}

	st := execStream{id: id, opts: opts}
	if !opts.json {
		fmt.Fprintf(opts.errOut, "%s...\n", opts.kind.Title())
	}
	ticker := time.NewTicker(opts.pollTick)
	defer ticker.Stop()
	done := ctx.Done()
	for {
		snap := sess.Snapshot()
		if snap.Status.ID == id {
			st.flush(snap)
			if code, finished := st.finish(snap); finished {
				return code
			}
		}
		select {
		case ev, ok := <-sub:
			if !ok {
				sub = nil
			} else if opts.json {
				st.emitEvent(ev)
			}
		case <-done:
			done = nil
			log.WithField("invocation", id).Info("interrupt, cancelling")
			sess.Cancel()
		case <-ticker.C:
		}
	}
}

// execStream 根据快照增量输出；Dropped 记录被环形缓冲丢弃的字节数，用来换算偏移。
type execStream struct {
	id      tools.InvocationID
	opts    execOptions
	printed int
}

func (s *execStream) flush(snap session.Snapshot) {
	total := snap.Dropped + len(snap.Output)
	if total <= s.printed {
		return
	}
	start := s.printed - snap.Dropped
	if start < 0 {
		if !s.opts.json {
			fmt.Fprintf(s.opts.errOut, "[... %d bytes truncated ...]\n", -start)
		}
		start = 0
	}
	text := snap.Output[start:]
	s.printed = total
	if s.opts.json {
		s.encode(jsonEvent{Type: "output", InvocationID: uint64(s.id), Kind: string(s.opts.kind), Text: text})
		return
	}
	_, _ = io.WriteString(s.opts.out, text)
}

func (s *execStream) finish(snap session.Snapshot) (int, bool) {
	st := snap.Status
	switch st.Phase {
	case session.PhaseCompleted:
		success := st.Outcome.Success
		if s.opts.json {
			s.encode(jsonEvent{Type: "completed", InvocationID: uint64(s.id), Kind: string(st.Kind), Success: &success, Summary: st.Outcome.Summary})
		} else {
			props := view.PropsFrom(snap)
			fmt.Fprintln(s.opts.errOut, props.Label)
		}
		if success {
			return exitOK, true
		}
		return exitFailed, true
	case session.PhaseFailed:
		if s.opts.json {
			s.encode(jsonEvent{Type: "failed", InvocationID: uint64(s.id), Kind: string(st.Kind), Error: st.Failure.Detail})
		} else {
			fmt.Fprintf(s.opts.errOut, "%s: %s\n", view.PropsFrom(snap).Label, st.Failure.Detail)
		}
		return exitFailed, true
	case session.PhaseIdle:
		if !st.Cancelled {
			return 0, false
		}
		if s.opts.json {
			s.encode(jsonEvent{Type: "cancelled", InvocationID: uint64(s.id), Kind: string(st.Kind)})
		} else {
			fmt.Fprintln(s.opts.errOut, "Cancelled")
		}
		return exitCancelled, true
	}
	return 0, false
}

// emitEvent 在 JSON 模式下转发生命周期事件；输出与终止结果由快照驱动。
func (s *execStream) emitEvent(ev events.Event) {
	if ev.InvocationID != s.id {
		return
	}
	switch ev.Type {
	case events.EventInvocationStarted, events.EventCancelRequested:
		s.encode(jsonEvent{Type: string(ev.Type), SessionID: ev.SessionID, InvocationID: uint64(ev.InvocationID), Kind: string(ev.Kind)})
	}
}

func (s *execStream) encode(ev jsonEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		log.WithError(err).Warn("encode event")
		return
	}
	fmt.Fprintln(s.opts.out, string(data))
}
