package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/momentics/batchsync/cmd/batchsync/commands"
)

const (
	cmdName = "batchsync"

	shortDesc = "Bounded batch producer/consumer toolkit."
	longDesc  = `batchsync pushes integers into a fixed-capacity buffer. A single consumer
sleeps on a condition variable until the buffer is full, reduces the batch
and resets it.

The remaining subcommands demonstrate the synchronization primitives the
pipeline is built from: timed condition waits, timed mutex acquisition and
broadcast turn-taking.
`
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	cmd := commands.NewRootCmd(cmdName, shortDesc, longDesc)

	err := cmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, strings.TrimLeft(err.Error(), "\n"))
		os.Exit(1)
	}
}
