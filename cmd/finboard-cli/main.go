package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"finboard/internal/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := commands.NewRootCmd(commands.Options{}).ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
