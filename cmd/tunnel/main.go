package main

import (
	"context"
	"github.com/bbeck/tunnelurl/internal"
	"github.com/inconshreveable/log15"
	"github.com/joho/godotenv"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	// A missing .env is fine; variables already in the environment win.
	_ = godotenv.Load()

	level := os.Getenv("log_level")
	logger := internal.NewLogger(level)
	verbose := false
	if lvl, err := log15.LvlFromString(level); err == nil {
		verbose = lvl >= log15.LvlDebug
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := internal.Run(ctx, internal.Options{
		Dir:    ".",
		Getenv: os.Getenv,
		Tunneler: internal.NgrokTunneler{
			Logger:  logger,
			Verbose: verbose,
			Getenv:  os.Getenv,
		},
		Logger: logger,
	})
	if err != nil {
		logger.Error("tunnel exited", "err", err)
		stop()
		os.Exit(1)
	}
}
