// Command fieldkv is the operator CLI for a field-partitioned store: batch
// loads, point reads and writes, diagnostic queries, graph resolution and
// reset.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/roach88/fieldkv/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := cli.NewRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "fieldkv: %v\n", err)
	}
	os.Exit(cli.GetExitCode(err))
}
