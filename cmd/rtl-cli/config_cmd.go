package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"rtl-cli/internal/config"
)

func configMain(root rootArgs, args []string) {
	if err := runConfig(root, args, os.Stdout); err != nil {
		log.Fatalf("config: %v", err)
	}
}

// runConfig 打印生效的配置；-init 把默认配置写到配置路径（已存在时需要 -force）。
func runConfig(root rootArgs, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	var initFile bool
	var force bool
	fs.BoolVar(&initFile, "init", false, "Write a default config file")
	fs.BoolVar(&force, "force", false, "Overwrite an existing file with -init")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if initFile {
		path := root.cfgPath
		if path == "" {
			path = config.DefaultPath()
		}
		if _, err := os.Stat(path); err == nil && !force {
			return fmt.Errorf("%s already exists (use -force to overwrite)", path)
		} else if err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		if err := config.Save(path, config.Default()); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(out, "wrote %s\n", path)
		return nil
	}

	cfg, err := loadConfig(root, nil)
	if err != nil {
		return err
	}
	data, err := config.Encode(cfg)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(out, "# %s\n%s", cfg.Source, data)
	return nil
}
