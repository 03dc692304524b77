// Command taskgroup runs a configurable fan-out/fan-in over a structured
// task group.
package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/NetPo4ki/go-taskgroup/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := cli.Execute(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
