package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/momentics/batchsync/api"
	"github.com/momentics/batchsync/internal/concurrency"
)

// NewTurnstileCmd returns the turnstile command.
func NewTurnstileCmd() *cobra.Command {
	var workers int

	cmd := &cobra.Command{
		Use:   "turnstile",
		Short: "Workers started in reverse order take turns in ticket order",
		Long: `Starts --workers goroutines with tickets N-1 down to 0. Each waits on a
shared condition until its ticket is served, then serves the next ticket
and broadcasts to every waiter.`,
		Args: cobra.NoArgs,
		RunE: func(cc *cobra.Command, _ []string) error {
			return turnstile(cc.Context(), workers, newPrinter(cc.OutOrStdout()))
		},
	}

	cmd.Flags().IntVar(&workers, "workers", 5, "Number of workers")

	return cmd
}

func turnstile(ctx context.Context, workers int, out *printer) error {
	if workers < 1 {
		return fmt.Errorf("%w: --workers must be at least 1", api.ErrInvalidArgument)
	}

	ts := concurrency.NewTurnstile(0, slog.Default())
	g, gctx := errgroup.WithContext(ctx)

	for id := workers - 1; id >= 0; id-- {
		actor := fmt.Sprintf("Worker %d", id)
		g.Go(func() error {
			out.say(actor, "waiting")
			return ts.Enter(gctx, id, func() {
				out.sayGood(actor, "my turn! Let's go!")
				if id+1 < workers {
					out.say(actor, "signaling worker %d to run", id+1)
				}
			})
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	out.note("%d workers done, %d wake-ups found another worker's turn", workers, ts.StaleWakeups())

	return nil
}
