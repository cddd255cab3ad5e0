package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"rtl-cli/internal/tools"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.FileName != "design.sv" {
		t.Fatalf("Default().FileName = %q", cfg.FileName)
	}
	if cfg.TimeoutFor(tools.KindLint) != 120*time.Second {
		t.Fatalf("lint timeout = %s", cfg.TimeoutFor(tools.KindLint))
	}
	if cfg.CancelGrace() != 5*time.Second {
		t.Fatalf("CancelGrace = %s", cfg.CancelGrace())
	}
	if cfg.Toolchain() != tools.DefaultToolchain() {
		t.Fatalf("Toolchain = %+v", cfg.Toolchain())
	}
}

func TestLoad_MissingFile_UsesDefaults(t *testing.T) {
	t.Setenv(EnvServiceURL, "")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Source != path {
		t.Fatalf("cfg.Source = %q, want %q", cfg.Source, path)
	}
	if cfg.ServiceURL != "" || cfg.MaxOutputBytes != Default().MaxOutputBytes {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestLoad_FromTOML(t *testing.T) {
	t.Setenv(EnvServiceURL, "")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(`
service_url = "http://eda.test:8088"
file_name = "top.v"

[timeouts]
lint_seconds = 10
simulate_seconds = 0

[tools]
yosys = "/opt/yosys/bin/yosys"
`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ServiceURL != "http://eda.test:8088" || cfg.FileName != "top.v" {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.TimeoutFor(tools.KindLint) != 10*time.Second {
		t.Fatalf("lint timeout = %s", cfg.TimeoutFor(tools.KindLint))
	}
	if cfg.TimeoutFor(tools.KindSimulate) != 0 {
		t.Fatalf("simulate timeout should be disabled, got %s", cfg.TimeoutFor(tools.KindSimulate))
	}
	if cfg.TimeoutFor(tools.KindSynthesize) != 120*time.Second {
		t.Fatalf("unset synthesize timeout should keep default, got %s", cfg.TimeoutFor(tools.KindSynthesize))
	}
	m := cfg.TimeoutMap()
	if _, ok := m[tools.KindSimulate]; ok || len(m) != 2 {
		t.Fatalf("TimeoutMap = %v", m)
	}
	if cfg.Tools.Yosys != "/opt/yosys/bin/yosys" || cfg.Tools.Vvp != "vvp" {
		t.Fatalf("Tools = %+v", cfg.Tools)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(`service_url = "http://file"`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	t.Setenv(EnvServiceURL, "http://env")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ServiceURL != "http://env" {
		t.Fatalf("ServiceURL = %q", cfg.ServiceURL)
	}
}

func TestLoad_InvalidTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("service_url = ["), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestApplyKVOverrides(t *testing.T) {
	cfg := ApplyKVOverrides(Default(), []string{
		"service_url=ws://remote/v1/invoke",
		"timeouts.lint_seconds=7",
		"timeouts.simulate_seconds=abc",
		"tools.iverilog=/usr/local/bin/iverilog",
		"cancel_grace_seconds=1",
		"no-equals",
		"unknown=1",
	})
	if cfg.ServiceURL != "ws://remote/v1/invoke" {
		t.Fatalf("ServiceURL = %q", cfg.ServiceURL)
	}
	if cfg.Timeouts.LintSeconds != 7 {
		t.Fatalf("LintSeconds = %d", cfg.Timeouts.LintSeconds)
	}
	if cfg.Timeouts.SimulateSeconds != 120 {
		t.Fatalf("invalid number should be ignored, SimulateSeconds = %d", cfg.Timeouts.SimulateSeconds)
	}
	if cfg.Tools.Iverilog != "/usr/local/bin/iverilog" {
		t.Fatalf("Iverilog = %q", cfg.Tools.Iverilog)
	}
	if cfg.CancelGrace() != time.Second {
		t.Fatalf("CancelGrace = %s", cfg.CancelGrace())
	}
}

func TestSave_RoundTrip(t *testing.T) {
	t.Setenv(EnvServiceURL, "")
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	want := Default()
	want.ServiceURL = "http://saved"
	want.Timeouts.LintSeconds = 3
	if err := Save(path, want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	got.Source = ""
	if got != want {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, want)
	}
}
