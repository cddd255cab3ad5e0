package main

import (
	"flag"
	"io"
)

type rootArgs struct {
	cfgPath   string
	overrides []string
}

// parseRootArgs 只解析全局参数；遇到第一个非 flag 参数（子命令或文件）即停止。
func parseRootArgs(args []string) (rootArgs, []string, error) {
	fs := flag.NewFlagSet("rtl-cli", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	var cfgPath string
	var overrides stringSlice
	fs.StringVar(&cfgPath, "config", "", "Path to config file (default ~/.rtl/config.toml)")
	fs.Var(&overrides, "c", "Override config value key=value (repeatable, applied before subcommand overrides)")
	if err := fs.Parse(args); err != nil {
		return rootArgs{}, nil, err
	}
	return rootArgs{cfgPath: cfgPath, overrides: append([]string{}, overrides...)}, fs.Args(), nil
}

func prependOverrides(root []string, overrides []string) []string {
	merged := append([]string{}, root...)
	return append(merged, overrides...)
}
