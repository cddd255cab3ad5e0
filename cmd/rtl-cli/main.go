package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"rtl-cli/internal/logger"
	"rtl-cli/internal/tools"
	"rtl-cli/internal/tui"
)

func main() {
	logger.Configure("")
	if logFile, _, err := logger.SetupFile(logger.DefaultLogPath); err != nil {
		log.Warnf("failed to initialize log file: %v", err)
	} else {
		defer logFile.Close()
	}
	if toolsCloser, _, err := tools.SetupToolsLog(tools.DefaultToolsLogPath); err != nil {
		log.Warnf("failed to initialize tools log (%s): %v", tools.DefaultToolsLogPath, err)
	} else if toolsCloser != nil {
		defer toolsCloser.Close()
	}

	root, rest, err := parseRootArgs(os.Args[1:])
	if err != nil {
		log.Fatalf("parse args: %v", err)
	}
	if len(rest) > 0 {
		switch rest[0] {
		case "exec":
			execMain(root, rest[1:])
			return
		case "serve":
			serveMain(root, rest[1:])
			return
		case "config":
			configMain(root, rest[1:])
			return
		case "completion":
			completionMain(rest[1:])
			return
		}
	}

	runInteractive(root, rest)
}

func runInteractive(root rootArgs, args []string) {
	fs := flag.NewFlagSet("rtl-cli", flag.ExitOnError)
	var configOverrides stringSlice
	var noAnimations bool
	fs.Var(&configOverrides, "c", "Override config value key=value (repeatable)")
	fs.BoolVar(&noAnimations, "no-animations", false, "Disable the status line spinner")
	if err := fs.Parse(args); err != nil {
		log.Fatalf("parse args: %v", err)
	}

	path := ""
	source := ""
	if fs.NArg() > 0 {
		path = resolvePath(fs.Arg(0))
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			source = string(data)
		case errors.Is(err, os.ErrNotExist):
			log.WithField("path", path).Info("new file")
		default:
			log.Fatalf("read %s: %v", path, err)
		}
	}

	cfg, err := loadConfig(root, []string(configOverrides))
	if err != nil {
		log.Fatalf("%v", err)
	}
	inv, backend, err := buildInvoker(cfg)
	if err != nil {
		log.Fatalf("build invoker: %v", err)
	}
	sess, closer, err := buildSession(cfg, inv, sessionSetup{eventLogPath: logger.DefaultSessionLogPath})
	if err != nil {
		log.Fatalf("create session: %v", err)
	}
	if closer != nil {
		defer closer.Close()
	}
	defer sess.Close()

	result, err := tui.Run(tui.Options{
		Session:    sess,
		Path:       path,
		Source:     source,
		Backend:    backend,
		Animations: !noAnimations,
	})
	if err != nil {
		log.Fatalf("program exit: %v", err)
	}
	if result.Dirty {
		name := path
		if name == "" {
			name = "buffer"
		}
		fmt.Fprintf(os.Stderr, "unsaved changes in %s were discarded\n", name)
	}
}

func resolvePath(input string) string {
	if filepath.IsAbs(input) {
		return input
	}
	wd, err := os.Getwd()
	if err != nil {
		return input
	}
	return filepath.Join(wd, input)
}
