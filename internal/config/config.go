package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"rtl-cli/internal/session"
	"rtl-cli/internal/tools"
)

// EnvServiceURL 覆盖配置文件中的 service_url。
const EnvServiceURL = "RTL_SERVICE_URL"

// defaultTimeoutSeconds 与后端命令执行的默认超时一致。
const defaultTimeoutSeconds = 120

// Timeouts 是每种工具的超时（秒）；0 表示不限时。
type Timeouts struct {
	SimulateSeconds   int `toml:"simulate_seconds"`
	LintSeconds       int `toml:"lint_seconds"`
	SynthesizeSeconds int `toml:"synthesize_seconds"`
}

// Tools 是本地工具链的可执行文件。
type Tools struct {
	Verilator string `toml:"verilator"`
	Yosys     string `toml:"yosys"`
	Iverilog  string `toml:"iverilog"`
	Vvp       string `toml:"vvp"`
}

// Config is the only persisted config file schema.
type Config struct {
	// ServiceURL 非空时通过远程工具服务执行，否则在本机运行工具链。
	ServiceURL         string   `toml:"service_url"`
	FileName           string   `toml:"file_name"`
	MaxOutputBytes     int      `toml:"max_output_bytes"`
	CancelGraceSeconds int      `toml:"cancel_grace_seconds"`
	LogLevel           string   `toml:"log_level"`
	Timeouts           Timeouts `toml:"timeouts"`
	Tools              Tools    `toml:"tools"`
	Source             string   `toml:"-"`
}

func Default() Config {
	tc := tools.DefaultToolchain()
	return Config{
		FileName:           tools.DefaultFileName,
		MaxOutputBytes:     session.DefaultMaxOutputBytes,
		CancelGraceSeconds: int(session.DefaultCancelGrace / time.Second),
		LogLevel:           "info",
		Timeouts: Timeouts{
			SimulateSeconds:   defaultTimeoutSeconds,
			LintSeconds:       defaultTimeoutSeconds,
			SynthesizeSeconds: defaultTimeoutSeconds,
		},
		Tools: Tools{
			Verilator: tc.Verilator,
			Yosys:     tc.Yosys,
			Iverilog:  tc.Iverilog,
			Vvp:       tc.Vvp,
		},
	}
}

func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".rtl", "config.toml")
}

func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = DefaultPath()
	}
	if path == "" {
		return cfg, errors.New("config path is empty and $HOME is not set")
	}
	cfg.Source = path

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			applyEnv(&cfg)
			return cfg, nil
		}
		return cfg, err
	}

	if err := toml.Unmarshal(content, &cfg); err != nil {
		return cfg, err
	}
	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if env := strings.TrimSpace(os.Getenv(EnvServiceURL)); env != "" {
		cfg.ServiceURL = env
	}
}

// TimeoutFor 返回 kind 的超时；0 表示不限时。
func (c Config) TimeoutFor(kind tools.Kind) time.Duration {
	var secs int
	switch kind {
	case tools.KindSimulate:
		secs = c.Timeouts.SimulateSeconds
	case tools.KindLint:
		secs = c.Timeouts.LintSeconds
	case tools.KindSynthesize:
		secs = c.Timeouts.SynthesizeSeconds
	}
	if secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// TimeoutMap 生成 session.Options.Timeouts。
func (c Config) TimeoutMap() map[tools.Kind]time.Duration {
	out := make(map[tools.Kind]time.Duration, len(tools.Kinds))
	for _, k := range tools.Kinds {
		if d := c.TimeoutFor(k); d > 0 {
			out[k] = d
		}
	}
	return out
}

// CancelGrace 返回取消宽限期；非正数时由会话使用默认值。
func (c Config) CancelGrace() time.Duration {
	if c.CancelGraceSeconds <= 0 {
		return 0
	}
	return time.Duration(c.CancelGraceSeconds) * time.Second
}

// Toolchain 返回本地工具链配置。
func (c Config) Toolchain() tools.Toolchain {
	return tools.Toolchain{
		Verilator: c.Tools.Verilator,
		Yosys:     c.Tools.Yosys,
		Iverilog:  c.Tools.Iverilog,
		Vvp:       c.Tools.Vvp,
	}
}
