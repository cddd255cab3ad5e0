package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"rtl-cli/internal/session"
	"rtl-cli/internal/tools"
)

// scriptInvoker 在 Invoke 内同步回放脚本；hold 为 true 时不发送终止事件。
type scriptInvoker struct {
	chunks  []string
	outcome *tools.Outcome
	err     error
	hold    bool
	aborted chan struct{}
	cb      tools.Callbacks
	id      tools.InvocationID
}

func (s *scriptInvoker) Invoke(_ context.Context, req tools.Request, cb tools.Callbacks) (tools.Handle, error) {
	s.cb, s.id = cb, req.ID
	for _, c := range s.chunks {
		cb.OnChunk(req.ID, c)
	}
	switch {
	case s.hold:
	case s.err != nil:
		cb.OnError(req.ID, s.err)
	case s.outcome != nil:
		cb.OnComplete(req.ID, *s.outcome)
	}
	return tools.HandleFunc(func() {
		if s.aborted != nil {
			close(s.aborted)
		}
		go cb.OnError(req.ID, context.Canceled)
	}), nil
}

func newExecSession(t *testing.T, inv tools.Invoker, maxOutput int) *session.Session {
	t.Helper()
	sess, err := session.New(session.Options{Invoker: inv, MaxOutputBytes: maxOutput, CancelGrace: time.Second})
	if err != nil {
		t.Fatalf("session.New: %v", err)
	}
	t.Cleanup(sess.Close)
	return sess
}

func TestRunExecStreamsOutput(t *testing.T) {
	inv := &scriptInvoker{
		chunks:  []string{"compiling...\n", "done\n"},
		outcome: &tools.Outcome{Success: true, Summary: "Simulation finished"},
	}
	var out, errOut bytes.Buffer
	code := runExec(context.Background(), newExecSession(t, inv, 0), execOptions{
		kind: tools.KindSimulate, source: "module t; endmodule", out: &out, errOut: &errOut, pollTick: 10 * time.Millisecond,
	})
	if code != exitOK {
		t.Fatalf("code = %d, stderr=%q", code, errOut.String())
	}
	if out.String() != "compiling...\ndone\n" {
		t.Fatalf("stdout = %q", out.String())
	}
	if !strings.Contains(errOut.String(), "Simulation finished") {
		t.Fatalf("stderr = %q", errOut.String())
	}
}

func TestRunExecUnsuccessfulOutcomeExitsNonZero(t *testing.T) {
	inv := &scriptInvoker{
		chunks:  []string{"%Error: top.sv:3: syntax error\n"},
		outcome: &tools.Outcome{Success: false},
	}
	var out, errOut bytes.Buffer
	code := runExec(context.Background(), newExecSession(t, inv, 0), execOptions{
		kind: tools.KindLint, out: &out, errOut: &errOut, pollTick: 10 * time.Millisecond,
	})
	if code != exitFailed {
		t.Fatalf("code = %d", code)
	}
	if !strings.Contains(errOut.String(), "Lint reported errors") {
		t.Fatalf("stderr = %q", errOut.String())
	}
}

func TestRunExecToolFailure(t *testing.T) {
	inv := &scriptInvoker{err: errors.New("yosys: not found")}
	var out, errOut bytes.Buffer
	code := runExec(context.Background(), newExecSession(t, inv, 0), execOptions{
		kind: tools.KindSynthesize, out: &out, errOut: &errOut, pollTick: 10 * time.Millisecond,
	})
	if code != exitFailed {
		t.Fatalf("code = %d", code)
	}
	if !strings.Contains(errOut.String(), "Synthesize failed: yosys: not found") {
		t.Fatalf("stderr = %q", errOut.String())
	}
}

func TestRunExecInterruptCancels(t *testing.T) {
	inv := &scriptInvoker{chunks: []string{"running\n"}, hold: true, aborted: make(chan struct{})}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var out, errOut bytes.Buffer
	code := runExec(ctx, newExecSession(t, inv, 0), execOptions{
		kind: tools.KindSimulate, out: &out, errOut: &errOut, pollTick: 10 * time.Millisecond,
	})
	if code != exitCancelled {
		t.Fatalf("code = %d, stderr=%q", code, errOut.String())
	}
	select {
	case <-inv.aborted:
	default:
		t.Fatal("handle was not aborted")
	}
	if out.String() != "running\n" {
		t.Fatalf("stdout = %q", out.String())
	}
}

func TestRunExecReportsTruncation(t *testing.T) {
	chunks := make([]string, 0, 20)
	for i := 0; i < 20; i++ {
		chunks = append(chunks, "0123456789")
	}
	inv := &scriptInvoker{chunks: chunks, outcome: &tools.Outcome{Success: true}}
	var out, errOut bytes.Buffer
	code := runExec(context.Background(), newExecSession(t, inv, 50), execOptions{
		kind: tools.KindSimulate, out: &out, errOut: &errOut, pollTick: 10 * time.Millisecond,
	})
	if code != exitOK {
		t.Fatalf("code = %d", code)
	}
	if out.Len() != 50 {
		t.Fatalf("stdout has %d bytes, want the 50 retained", out.Len())
	}
	if !strings.Contains(errOut.String(), "[... 150 bytes truncated ...]") {
		t.Fatalf("stderr = %q", errOut.String())
	}
}

func TestRunExecJSON(t *testing.T) {
	inv := &scriptInvoker{chunks: []string{"ok\n"}, outcome: &tools.Outcome{Success: true, Summary: "Linting successful!"}}
	var out, errOut bytes.Buffer
	code := runExec(context.Background(), newExecSession(t, inv, 0), execOptions{
		kind: tools.KindLint, json: true, out: &out, errOut: &errOut, pollTick: 10 * time.Millisecond,
	})
	if code != exitOK {
		t.Fatalf("code = %d", code)
	}
	var types []string
	var last jsonEvent
	sc := bufio.NewScanner(&out)
	for sc.Scan() {
		var ev jsonEvent
		if err := json.Unmarshal(sc.Bytes(), &ev); err != nil {
			t.Fatalf("invalid json line %q: %v", sc.Text(), err)
		}
		types = append(types, ev.Type)
		last = ev
	}
	if last.Type != "completed" || last.Success == nil || !*last.Success || last.Summary != "Linting successful!" {
		t.Fatalf("last event = %+v (all: %v)", last, types)
	}
	found := false
	for _, typ := range types {
		if typ == "output" {
			found = true
		}
	}
	if !found {
		t.Fatalf("no output event in %v", types)
	}
}

func TestReadSourceFromStdin(t *testing.T) {
	got, err := readSource("-", strings.NewReader("module m; endmodule\n"))
	if err != nil || got != "module m; endmodule\n" {
		t.Fatalf("readSource = %q, %v", got, err)
	}
	if _, err := readSource("/nonexistent/top.sv", nil); err == nil {
		t.Fatal("expected error for missing file")
	}
}
