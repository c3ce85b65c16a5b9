package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/momentics/batchsync/api"
	"github.com/momentics/batchsync/facade"
)

type runArgs struct {
	name      string
	capacity  int
	policy    string
	reducer   string
	journal   string
	producers int
}

// NewRunCmd returns the run command.
func NewRunCmd(root *RootArgs) *cobra.Command {
	args := &runArgs{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Push integers read from stdin through a batch pipeline",
		Long: `Reads one integer per line from stdin and pushes each into the buffer.
Every time the buffer fills, the consumer wakes, prints the batch total and
resets the buffer. Values left over at end of input are flushed as a final
partial batch.`,
		Args: cobra.NoArgs,
		RunE: func(cc *cobra.Command, _ []string) error {
			cfg, err := loadConfig(root)
			if err != nil {
				return err
			}
			args.apply(cc, cfg)

			return runPipeline(cc.Context(), cfg, args.producers,
				cc.InOrStdin(), newPrinter(cc.OutOrStdout()), newPrinter(cc.ErrOrStderr()))
		},
	}

	cmd.Flags().StringVar(&args.name, "name", "", "Pipeline name")
	cmd.Flags().IntVar(&args.capacity, "capacity", 5, "Values per batch")
	cmd.Flags().StringVar(&args.policy, "policy", "block", "Overflow policy (reject, block, drop, spill)")
	cmd.Flags().StringVar(&args.reducer, "reducer", "sum", "Batch reduction (sum, min, max)")
	cmd.Flags().StringVar(&args.journal, "journal", "", "Journal drained batches to this badger directory")
	cmd.Flags().IntVar(&args.producers, "producers", 1, "Concurrent producer goroutines")

	err := cmd.MarkFlagDirname("journal")
	if err != nil {
		panic(err)
	}

	return cmd
}

// apply overrides config values with flags set on the command line.
func (a *runArgs) apply(cc *cobra.Command, cfg *facade.Config) {
	flags := cc.Flags()
	if flags.Changed("name") {
		cfg.Name = a.name
	}
	if flags.Changed("capacity") {
		cfg.Capacity = a.capacity
	}
	if flags.Changed("policy") {
		cfg.Policy = a.policy
	}
	if flags.Changed("reducer") {
		cfg.Reducer = a.reducer
	}
	if flags.Changed("journal") {
		cfg.Journal = a.journal
	}
}

func runPipeline(ctx context.Context, cfg *facade.Config, producers int, in io.Reader, out, errOut *printer) error {
	if producers < 1 {
		return fmt.Errorf("%w: --producers must be at least 1", api.ErrInvalidArgument)
	}

	var batches, rejected atomic.Int64
	hub := facade.NewHub(1,
		facade.WithOnFull(func(uint64) {
			out.say("Main", "signaling consumer")
		}),
		facade.WithOnDrain(func(r api.Result) {
			if r.Outcome != api.OutcomeSignaled {
				return
			}
			batches.Add(1)
			if r.Partial {
				out.say("Consumer", "total is %d (partial batch of %d)", r.Sum, len(r.Values))
				return
			}
			out.say("Consumer", "total is %d", r.Sum)
		}),
	)

	p, err := hub.Create(ctx, cfg)
	if err != nil {
		return err
	}

	values := make(chan int64)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(values)

		sc := bufio.NewScanner(in)
		line := 0
		for sc.Scan() {
			line++
			text := strings.TrimSpace(sc.Text())
			if text == "" {
				continue
			}
			v, err := strconv.ParseInt(text, 10, 64)
			if err != nil {
				errOut.say("Main", "skipping line %d: %q is not an integer", line, text)
				continue
			}
			select {
			case values <- v:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return sc.Err()
	})

	for range producers {
		g.Go(func() error {
			for v := range values {
				err := p.PushContext(gctx, v)
				switch {
				case err == nil:
				case errors.Is(err, api.ErrBufferFull):
					rejected.Add(1)
					errOut.say("Main", "buffer full, rejected %d", v)
				default:
					return err
				}
			}
			return nil
		})
	}

	runErr := g.Wait()
	if err := hub.Shutdown(); err != nil && runErr == nil {
		runErr = err
	}

	stats := p.Control().Stats()
	out.note("%d batches, %v values pushed, %v dropped, %d rejected",
		batches.Load(), stats[facade.MetricValuesPushed], stats[facade.MetricValuesDropped], rejected.Load())

	return runErr
}
