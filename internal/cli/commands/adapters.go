package commands

import (
	"github.com/leapstack-labs/dress/pkg/adapter"
	"github.com/spf13/cobra"
)

// NewAdaptersCommand creates the adapters command.
func NewAdaptersCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "adapters",
		Short: "List supported datasources",
		Long:  `List the values accepted by database.datasource.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env := GetEnv(cmd.Context())
			names := adapter.ListAdapters()

			if handled, err := env.Renderer.Data(names); handled {
				return err
			}
			rows := make([][]string, len(names))
			for i, n := range names {
				rows[i] = []string{n}
			}
			env.Renderer.Table([]string{"Datasource"}, rows)
			return nil
		},
	}
}
