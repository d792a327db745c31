package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"dicto/internal/app"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(app.Execute(ctx, os.Args[1:]))
}
