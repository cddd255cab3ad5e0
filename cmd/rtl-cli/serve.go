package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rtl-cli/internal/tools"
	"rtl-cli/internal/toolserver"
)

func serveMain(root rootArgs, args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	var addr string
	var configOverrides stringSlice
	fs.StringVar(&addr, "addr", ":8088", "Listen address")
	fs.Var(&configOverrides, "c", "Override config value key=value (repeatable)")
	if err := fs.Parse(args); err != nil {
		log.Fatalf("parse serve args: %v", err)
	}
	cfg, err := loadConfig(root, []string(configOverrides))
	if err != nil {
		log.Fatalf("%v", err)
	}
	if cfg.ServiceURL != "" {
		log.Warnf("service_url %q is ignored by serve; tools run on this host", cfg.ServiceURL)
	}

	srv := toolserver.NewServer(tools.NewProcessInvoker(cfg.Toolchain(), cfg.FileName))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start(addr) }()
	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("serve: %v", err)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warnf("shutdown: %v", err)
		}
	}
}
