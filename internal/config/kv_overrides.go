package config

import (
	"strconv"
	"strings"
)

// ApplyKVOverrides applies free-form -c key=value overrides.
// 表内的键使用点号，例如 timeouts.lint_seconds=10、tools.yosys=/opt/yosys/bin/yosys。
// 未知键与无法解析的数字被忽略。
func ApplyKVOverrides(cfg Config, overrides []string) Config {
	if len(overrides) == 0 {
		return cfg
	}
	for _, raw := range overrides {
		parts := strings.SplitN(raw, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		val := strings.TrimSpace(parts[1])
		switch key {
		case "service_url":
			cfg.ServiceURL = val
		case "file_name":
			cfg.FileName = val
		case "log_level":
			cfg.LogLevel = val
		case "max_output_bytes":
			setInt(&cfg.MaxOutputBytes, val)
		case "cancel_grace_seconds":
			setInt(&cfg.CancelGraceSeconds, val)
		case "timeouts.simulate_seconds":
			setInt(&cfg.Timeouts.SimulateSeconds, val)
		case "timeouts.lint_seconds":
			setInt(&cfg.Timeouts.LintSeconds, val)
		case "timeouts.synthesize_seconds":
			setInt(&cfg.Timeouts.SynthesizeSeconds, val)
		case "tools.verilator":
			cfg.Tools.Verilator = val
		case "tools.yosys":
			cfg.Tools.Yosys = val
		case "tools.iverilog":
			cfg.Tools.Iverilog = val
		case "tools.vvp":
			cfg.Tools.Vvp = val
		}
	}
	return cfg
}

func setInt(dst *int, val string) {
	n, err := strconv.Atoi(val)
	if err != nil {
		return
	}
	*dst = n
}
