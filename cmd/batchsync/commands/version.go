package commands

import (
	"github.com/spf13/cobra"

	"github.com/momentics/batchsync/internal/version"
)

// NewVersionCmd returns the version command.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version of the batchsync CLI",
		Run: func(cc *cobra.Command, _ []string) {
			cc.Println(version.String())
		},
	}
}
