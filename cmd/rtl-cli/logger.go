package main

import "rtl-cli/internal/logger"

var log = logger.Named("cli")
