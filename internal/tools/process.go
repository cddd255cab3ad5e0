package tools

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// DefaultFileName 是写入临时目录的源文件名。
const DefaultFileName = "design.sv"

// Toolchain 记录各个 EDA 可执行文件（名称或路径）。
type Toolchain struct {
	Verilator string
	Yosys     string
	Iverilog  string
	Vvp       string
}

// DefaultToolchain 返回依赖 $PATH 查找的默认工具链。
func DefaultToolchain() Toolchain {
	return Toolchain{
		Verilator: "verilator",
		Yosys:     "yosys",
		Iverilog:  "iverilog",
		Vvp:       "vvp",
	}
}

// ProcessInvoker 在本机临时目录中运行 verilator / yosys / iverilog+vvp。
type ProcessInvoker struct {
	Toolchain Toolchain
	FileName  string
	// ScratchDir 为空时使用 os.TempDir()。
	ScratchDir string
}

// NewProcessInvoker 创建本地调用器；空字段回落到默认值。
func NewProcessInvoker(tc Toolchain, fileName string) *ProcessInvoker {
	def := DefaultToolchain()
	if tc.Verilator == "" {
		tc.Verilator = def.Verilator
	}
	if tc.Yosys == "" {
		tc.Yosys = def.Yosys
	}
	if tc.Iverilog == "" {
		tc.Iverilog = def.Iverilog
	}
	if tc.Vvp == "" {
		tc.Vvp = def.Vvp
	}
	if strings.TrimSpace(fileName) == "" {
		fileName = DefaultFileName
	}
	return &ProcessInvoker{Toolchain: tc, FileName: fileName}
}

// Invoke 在后台 goroutine 中运行工具链并立即返回；Abort 取消 ctx 并杀掉进程组。
func (p *ProcessInvoker) Invoke(ctx context.Context, req Request, cb Callbacks) (Handle, error) {
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
	go func() {
		defer cancel()
		started := time.Now()
		logToolStart(req)
		outcome, err := p.run(runCtx, req, func(text string) {
			cb.OnChunk(req.ID, text)
		})
		logToolResult(req, outcome, err, time.Since(started))
		if err != nil {
			cb.OnError(req.ID, err)
			return
		}
		cb.OnComplete(req.ID, outcome)
	}()
	return HandleFunc(cancel), nil
}

func (p *ProcessInvoker) run(ctx context.Context, req Request, emit func(string)) (Outcome, error) {
	dir, err := os.MkdirTemp(p.ScratchDir, "rtl-"+string(req.Kind)+"-")
	if err != nil {
		return Outcome{}, &ExecutionError{Kind: req.Kind, Detail: "create scratch dir", Err: err}
	}
	defer os.RemoveAll(dir)

	name := req.FileName
	if strings.TrimSpace(name) == "" {
		name = p.FileName
	}
	name = filepath.Base(name)
	if err := os.WriteFile(filepath.Join(dir, name), []byte(req.Source), 0o644); err != nil {
		return Outcome{}, &ExecutionError{Kind: req.Kind, Detail: "write source", Err: err}
	}

	switch req.Kind {
	case KindLint:
		return p.lint(ctx, dir, name, emit)
	case KindSynthesize:
		return p.synthesize(ctx, dir, name, emit)
	default:
		return p.simulate(ctx, dir, name, emit)
	}
}

func (p *ProcessInvoker) lint(ctx context.Context, dir, name string, emit func(string)) (Outcome, error) {
	code, out, err := p.step(ctx, KindLint, dir, emit, p.Toolchain.Verilator, "--lint-only", "-Wno-DECLFILENAME", name)
	if err != nil {
		return Outcome{}, err
	}
	if code != 0 || strings.Contains(out, "%Error") {
		return Outcome{Success: false, Summary: "Linting failed. Check log."}, nil
	}
	if strings.Contains(out, "%Warning") {
		return Outcome{Success: true, Summary: "Linting completed with warnings."}, nil
	}
	return Outcome{Success: true, Summary: "Linting successful!"}, nil
}

const (
	yosysScript = "synth.ys"
	netlistFile = "netlist.v"
)

func (p *ProcessInvoker) synthesize(ctx context.Context, dir, name string, emit func(string)) (Outcome, error) {
	script := fmt.Sprintf("read_verilog -sv %s\nsynth\nwrite_verilog %s\n", name, netlistFile)
	if err := os.WriteFile(filepath.Join(dir, yosysScript), []byte(script), 0o644); err != nil {
		return Outcome{}, &ExecutionError{Kind: KindSynthesize, Detail: "write yosys script", Err: err}
	}
	code, _, err := p.step(ctx, KindSynthesize, dir, emit, p.Toolchain.Yosys, "-s", yosysScript)
	if err != nil {
		return Outcome{}, err
	}
	netlist, readErr := os.ReadFile(filepath.Join(dir, netlistFile))
	if code != 0 || readErr != nil {
		return Outcome{Success: false, Summary: "Synthesis failed. Check log."}, nil
	}
	emit(fmt.Sprintf("\n--- Synthesized Netlist (%s) ---\n%s", netlistFile, netlist))
	return Outcome{Success: true, Summary: "Synthesis successful!"}, nil
}

const (
	simBinary = "sim.vvp"
	vcdFile   = "dump.vcd"
)

func (p *ProcessInvoker) simulate(ctx context.Context, dir, name string, emit func(string)) (Outcome, error) {
	code, _, err := p.step(ctx, KindSimulate, dir, emit, p.Toolchain.Iverilog, "-g2012", "-o", simBinary, name)
	if err != nil {
		return Outcome{}, err
	}
	if code != 0 {
		return Outcome{Success: false, Summary: "Simulation compilation failed. Check log."}, nil
	}
	code, _, err = p.step(ctx, KindSimulate, dir, emit, p.Toolchain.Vvp, simBinary)
	if err != nil {
		return Outcome{}, err
	}
	if code != 0 {
		return Outcome{Success: false, Summary: "Simulation failed. Check log."}, nil
	}
	if f, err := os.Open(filepath.Join(dir, vcdFile)); err == nil {
		summary, perr := SummarizeVCD(f)
		f.Close()
		if perr == nil {
			emit(fmt.Sprintf("\n--- Waveform (%s) ---\n%s\n", vcdFile, summary))
		}
	}
	return Outcome{Success: true, Summary: "Simulation finished."}, nil
}

// step 运行一个子步骤：解析可执行文件、回显命令行、流式输出并收集全文。
func (p *ProcessInvoker) step(ctx context.Context, kind Kind, dir string, emit func(string), bin string, args ...string) (int, string, error) {
	path, err := exec.LookPath(bin)
	if err != nil {
		return -1, "", &ExecutionError{Kind: kind, Detail: fmt.Sprintf("%s not found", bin), Err: err}
	}
	emit("$ " + strings.Join(append([]string{bin}, args...), " ") + "\n")

	var captured strings.Builder
	code, err := StreamCommand(ctx, dir, append([]string{path}, args...), func(text string) {
		captured.WriteString(text)
		emit(text)
	})
	if err != nil {
		if ctx.Err() != nil {
			return -1, captured.String(), &ExecutionError{Kind: kind, Detail: "aborted", Err: ctx.Err()}
		}
		return -1, captured.String(), &ExecutionError{Kind: kind, Detail: fmt.Sprintf("run %s", bin), Err: err}
	}
	return code, captured.String(), nil
}
