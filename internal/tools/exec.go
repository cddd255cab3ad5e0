package tools

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/creack/pty"
)

// StreamCommand 在 pty 中运行 argv，每读到一块输出即回调 onChunk（已去除 \r）。
// 返回进程退出码；只有无法启动、等待失败或 ctx 取消时才返回 error。
// onChunk 在内部读取 goroutine 中调用，StreamCommand 返回前保证全部回调已结束。
func StreamCommand(ctx context.Context, workdir string, argv []string, onChunk func(string)) (int, error) {
	if len(argv) == 0 || strings.TrimSpace(argv[0]) == "" {
		return -1, fmt.Errorf("empty command")
	}
	if onChunk == nil {
		onChunk = func(string) {}
	}
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	if workdir != "" {
		cmd.Dir = workdir
	}
	cmd.Env = withToolEnv(os.Environ())
	cmd.Cancel = func() error { return killProcessGroup(cmd) }

	ptmx, err := pty.Start(cmd)
	if err != nil {
		return -1, fmt.Errorf("start %s: %w", argv[0], err)
	}
	defer ptmx.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		readChunks(ptmx, onChunk)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		// 进程组已被 Cancel 杀掉；给读循环一点时间排空，再强制关闭 pty。
		select {
		case <-done:
		case <-time.After(500 * time.Millisecond):
			_ = ptmx.Close()
			<-done
		}
	}

	err = cmd.Wait()
	if ctx.Err() != nil {
		return -1, ctx.Err()
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode(), nil
		}
		return -1, fmt.Errorf("wait %s: %w", argv[0], err)
	}
	return 0, nil
}

func readChunks(r io.Reader, onChunk func(string)) {
	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			if text := strings.ReplaceAll(string(buf[:n]), "\r", ""); text != "" {
				onChunk(text)
			}
		}
		if err != nil {
			return
		}
	}
}

func withToolEnv(base []string) []string {
	env := append([]string{}, base...)
	env = setEnv(env, "NO_COLOR", "1")
	env = setEnv(env, "TERM", "dumb")
	env = setEnv(env, "LANG", "C")
	env = setEnv(env, "LC_ALL", "C")
	return env
}

func setEnv(env []string, key, value string) []string {
	prefix := key + "="
	for i, kv := range env {
		if strings.HasPrefix(kv, prefix) {
			env[i] = prefix + value
			return env
		}
	}
	return append(env, prefix+value)
}
