package main

import (
	"reflect"
	"testing"
)

func TestParseRootArgsStopsAtSubcommand(t *testing.T) {
	orig := []string{"exec", "-kind", "lint", "top.sv"}
	root, rest, err := parseRootArgs(orig)
	if err != nil {
		t.Fatalf("parseRootArgs returned error: %v", err)
	}
	if len(root.overrides) != 0 || root.cfgPath != "" {
		t.Fatalf("expected empty root args, got %+v", root)
	}
	if !reflect.DeepEqual(rest, orig) {
		t.Fatalf("expected rest to preserve args %v, got %v", orig, rest)
	}
}

func TestParseRootArgsExtractsOverrides(t *testing.T) {
	args := []string{
		"-c", "service_url=http://127.0.0.1:8088",
		"-config=/tmp/rtl.toml",
		"-c", "timeouts.lint_seconds=5",
		"top.sv",
	}
	root, rest, err := parseRootArgs(args)
	if err != nil {
		t.Fatalf("parseRootArgs returned error: %v", err)
	}
	expectedOverrides := []string{
		"service_url=http://127.0.0.1:8088",
		"timeouts.lint_seconds=5",
	}
	if !reflect.DeepEqual(root.overrides, expectedOverrides) {
		t.Fatalf("unexpected overrides: got %v, want %v", root.overrides, expectedOverrides)
	}
	if root.cfgPath != "/tmp/rtl.toml" {
		t.Fatalf("cfgPath = %q", root.cfgPath)
	}
	if !reflect.DeepEqual(rest, []string{"top.sv"}) {
		t.Fatalf("unexpected rest args: %v", rest)
	}
}

func TestPrependOverridesKeepsOrder(t *testing.T) {
	got := prependOverrides([]string{"a=1"}, []string{"a=2", "b=3"})
	if !reflect.DeepEqual(got, []string{"a=1", "a=2", "b=3"}) {
		t.Fatalf("got %v", got)
	}
}
