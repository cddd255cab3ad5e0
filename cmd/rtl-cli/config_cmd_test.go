package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"rtl-cli/internal/config"
)

func TestRunConfigInitWritesDefaults(t *testing.T) {
	t.Setenv(config.EnvServiceURL, "")
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	root := rootArgs{cfgPath: path}

	var out bytes.Buffer
	if err := runConfig(root, []string{"-init"}, &out); err != nil {
		t.Fatalf("runConfig -init: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config not written: %v", err)
	}
	if err := runConfig(root, []string{"-init"}, &out); err == nil {
		t.Fatal("second -init without -force should fail")
	}
	if err := runConfig(root, []string{"-init", "-force"}, &out); err != nil {
		t.Fatalf("-init -force: %v", err)
	}

	loaded, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	def := config.Default()
	if loaded.FileName != def.FileName || loaded.Timeouts != def.Timeouts {
		t.Fatalf("loaded %+v, want defaults %+v", loaded, def)
	}
}

func TestRunConfigPrintsEffectiveConfig(t *testing.T) {
	t.Setenv(config.EnvServiceURL, "http://tools.internal:8088")
	root := rootArgs{cfgPath: filepath.Join(t.TempDir(), "config.toml"), overrides: []string{"file_name=top.sv"}}
	var out bytes.Buffer
	if err := runConfig(root, nil, &out); err != nil {
		t.Fatalf("runConfig: %v", err)
	}
	text := out.String()
	for _, want := range []string{"service_url = 'http://tools.internal:8088'", "file_name = 'top.sv'", "[timeouts]"} {
		if !strings.Contains(text, want) {
			t.Fatalf("output missing %q:\n%s", want, text)
		}
	}
}
