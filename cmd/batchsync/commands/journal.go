package commands

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/momentics/batchsync/api"
	"github.com/momentics/batchsync/internal/sink"
)

type journalArgs struct {
	dir      string
	pipeline string
	output   string
}

// NewJournalCmd returns the journal command.
func NewJournalCmd() *cobra.Command {
	args := &journalArgs{}

	cmd := &cobra.Command{
		Use:   "journal",
		Short: "List batches recorded by run --journal",
		Args:  cobra.NoArgs,
		RunE: func(cc *cobra.Command, _ []string) error {
			switch strings.ToLower(args.output) {
			case OutputYAML, OutputJSON:
			default:
				return fmt.Errorf("%w: %q", ErrInvalidOutput, args.output)
			}

			j, err := sink.OpenBadger(sink.BadgerOptions{Dir: args.dir, Logger: slog.Default()})
			if err != nil {
				return err
			}
			defer j.Close()

			results, err := j.List(cc.Context(), args.pipeline)
			if err != nil {
				return err
			}
			if results == nil {
				results = []api.Result{}
			}

			return encode(cc.OutOrStdout(), args.output, results)
		},
	}

	cmd.Flags().StringVar(&args.dir, "dir", "", "Journal directory")
	cmd.Flags().StringVar(&args.pipeline, "pipeline", "", "Only list this pipeline")
	cmd.Flags().StringVarP(&args.output, "output", "o", OutputYAML, "Output format (yaml, json)")

	err := cmd.MarkFlagRequired("dir")
	if err != nil {
		panic(err)
	}

	err = cmd.MarkFlagDirname("dir")
	if err != nil {
		panic(err)
	}

	return cmd
}
