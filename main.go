package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"ff/pkg/cli"
	"ff/pkg/display"
)

func main() {
	disp := display.NewConsole()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cli.NewRootCommand(disp).ExecuteContext(ctx)
	stop()
	disp.Close()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
