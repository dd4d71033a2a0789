package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/doodlemint/doodlemint/cmd"
	"github.com/doodlemint/doodlemint/internal/cmdutil"
	"github.com/doodlemint/doodlemint/internal/output"
)

func main() {
	ctx, cancel := context.WithCancelCause(context.Background())
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-signals
		cancel(fmt.Errorf("received %s", sig))
	}()

	err := cmd.ExecuteContext(ctx)
	signal.Stop(signals)
	cancel(nil)
	if err != nil {
		output.Stdio().Error(cmdutil.TranslateError(err))
		os.Exit(1)
	}
}
