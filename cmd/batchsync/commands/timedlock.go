package commands

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/momentics/batchsync/api"
	"github.com/momentics/batchsync/internal/concurrency"
)

type timedLockArgs struct {
	deadline time.Duration
	hold     time.Duration
}

// NewTimedLockCmd returns the timedlock command.
func NewTimedLockCmd() *cobra.Command {
	args := &timedLockArgs{}

	cmd := &cobra.Command{
		Use:   "timedlock",
		Short: "Worker acquires a held mutex with a deadline",
		Long: `The main goroutine locks a mutex and holds it for --hold. A worker first
tries the lock without blocking, then waits for it until --deadline.`,
		Args: cobra.NoArgs,
		RunE: func(cc *cobra.Command, _ []string) error {
			return timedLock(cc.Context(), args, newPrinter(cc.OutOrStdout()))
		},
	}

	cmd.Flags().DurationVar(&args.deadline, "deadline", 1750*time.Millisecond, "Worker lock deadline")
	cmd.Flags().DurationVar(&args.hold, "hold", 3*time.Second, "How long the main goroutine holds the lock")

	return cmd
}

func timedLock(ctx context.Context, args *timedLockArgs, out *printer) error {
	var mu concurrency.TimedMutex
	mu.Lock()

	out.say("Main", "creating worker")

	done := make(chan error, 1)
	go func() {
		if mu.TryLock() {
			out.sayGood("Worker", "grabbed lock without waiting!")
			mu.Unlock()
			done <- nil
			return
		}
		out.say("Worker", "waiting for lock...")

		waitCtx, cancel := context.WithTimeout(ctx, args.deadline)
		defer cancel()

		err := mu.LockContext(waitCtx)
		switch {
		case err == nil:
			out.sayGood("Worker", "grabbed lock!")
			mu.Unlock()
			done <- nil
		case errors.Is(err, api.ErrWaitTimeout):
			out.sayBad("Worker", "timed out!")
			done <- nil
		default:
			out.sayBad("Worker", "some kind of error")
			done <- err
		}
	}()

	select {
	case <-time.After(args.hold):
	case <-ctx.Done():
	}
	mu.Unlock()
	out.say("Main", "released lock")

	if err := <-done; err != nil {
		return err
	}
	return ctx.Err()
}
