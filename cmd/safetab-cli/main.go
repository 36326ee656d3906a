package main

import (
	"log/slog"
	"os"

	"hermannm.dev/devlog"
	"hermannm.dev/devlog/log"
	"hermannm.dev/safetab/cli"
)

func main() {
	logHandler := devlog.NewHandler(os.Stderr, &devlog.Options{Level: slog.LevelWarn})
	slog.SetDefault(slog.New(logHandler))

	if err := cli.NewRootCommand().Execute(); err != nil {
		log.ErrorCause(err, "command failed")
		os.Exit(1)
	}
}
