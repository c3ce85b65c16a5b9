package commands

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/momentics/batchsync/api"
	"github.com/momentics/batchsync/internal/concurrency"
)

type timedWaitArgs struct {
	deadline  time.Duration
	hold      time.Duration
	fillAfter time.Duration
	capacity  int
}

// NewTimedWaitCmd returns the timedwait command.
func NewTimedWaitCmd() *cobra.Command {
	args := &timedWaitArgs{}

	cmd := &cobra.Command{
		Use:   "timedwait",
		Short: "Consumer waits for a full batch with a deadline",
		Long: `Starts a consumer that waits for a full batch until --deadline expires,
while the main goroutine holds for --hold. With --fill-after the main
goroutine fills the buffer after that delay, which signals the consumer if
it happens before the deadline.`,
		Args: cobra.NoArgs,
		RunE: func(cc *cobra.Command, _ []string) error {
			return timedWait(cc.Context(), args, newPrinter(cc.OutOrStdout()))
		},
	}

	cmd.Flags().DurationVar(&args.deadline, "deadline", 1750*time.Millisecond, "Consumer wait deadline")
	cmd.Flags().DurationVar(&args.hold, "hold", 3*time.Second, "How long the main goroutine holds before joining")
	cmd.Flags().DurationVar(&args.fillAfter, "fill-after", 0, "Fill the buffer after this delay (0 never fills)")
	cmd.Flags().IntVar(&args.capacity, "capacity", 5, "Values per batch")

	return cmd
}

func timedWait(ctx context.Context, args *timedWaitArgs, out *printer) error {
	buf, err := concurrency.NewBatchBuffer(args.capacity,
		concurrency.WithBufferLogger(slog.Default()))
	if err != nil {
		return err
	}
	defer buf.Close()

	out.say("Main", "creating consumer")

	done := make(chan error, 1)
	go func() {
		out.say("Consumer", "waiting...")
		waitCtx, cancel := context.WithTimeout(ctx, args.deadline)
		defer cancel()

		batch, err := buf.WaitFull(waitCtx)
		switch {
		case err == nil:
			out.sayGood("Consumer", "signaled!")
			out.say("Consumer", "total is %d", concurrency.Sum(batch.Values))
			done <- nil
		case errors.Is(err, api.ErrWaitTimeout):
			out.sayBad("Consumer", "timed out!")
			done <- nil
		default:
			out.sayBad("Consumer", "some kind of error")
			done <- err
		}
	}()

	hold := time.NewTimer(args.hold)
	defer hold.Stop()

	var fill <-chan time.Time
	if args.fillAfter > 0 {
		fill = time.After(args.fillAfter)
	}

	for waiting := true; waiting; {
		select {
		case <-fill:
			fill = nil
			out.say("Main", "filling buffer")
			for v := range args.capacity {
				if err := buf.Push(int64(v + 1)); err != nil {
					return err
				}
			}
		case <-hold.C:
			waiting = false
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return <-done
}
