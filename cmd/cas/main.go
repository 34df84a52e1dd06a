package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/cellannotation/cas/internal/cli"
	"github.com/cellannotation/cas/internal/util"
)

func main() {
	util.LoadEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.New().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
