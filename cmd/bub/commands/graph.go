package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/grindlemire/graft"
	"github.com/spf13/cobra"

	"github.com/GrahamStJack/bottom-up-build/internal/app"
	"github.com/GrahamStJack/bottom-up-build/internal/engine/planner"
)

func (c *CLI) newGraphCmd() *cobra.Command {
	var conditionals []string
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Plan the project and print its package/binary tree as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if len(conditionals) > 0 {
				_ = os.Setenv(planner.EnvConditionals, strings.Join(conditionals, ","))
			}
			components, _, err := graft.ExecuteFor[*app.Components](cmd.Context())
			if err != nil {
				return err
			}
			out, err := components.App.Graph()
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&conditionals, "conditionals", nil, "Enabled Bubfile condition tags")
	return cmd
}
