// Package main is the localplanner command.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.viam.com/localplanner/cli"
	"go.viam.com/localplanner/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cli.NewApp(os.Stdout, os.Stderr).RunContext(ctx, os.Args)
	stop()
	if err != nil {
		logging.NewLogger("localplanner").Fatal(err)
	}
}
