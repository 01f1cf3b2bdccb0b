package commands

import (
	"os"
	"runtime"
	"strings"

	"github.com/grindlemire/graft"
	"github.com/spf13/cobra"

	"github.com/GrahamStJack/bottom-up-build/internal/adapters/telemetry"
	"github.com/GrahamStJack/bottom-up-build/internal/app"
	"github.com/GrahamStJack/bottom-up-build/internal/engine/planner"
)

func (c *CLI) newBuildCmd() *cobra.Command {
	var (
		jobs         int
		progress     bool
		conditionals []string
	)
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the project from the current build directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Graft nodes read these before the planner exists.
			if progress {
				_ = os.Setenv(telemetry.EnvProgress, "1")
			}
			if len(conditionals) > 0 {
				_ = os.Setenv(planner.EnvConditionals, strings.Join(conditionals, ","))
			}
			components, _, err := graft.ExecuteFor[*app.Components](cmd.Context())
			if err != nil {
				return err
			}
			return components.App.Build(cmd.Context(), jobs)
		},
	}
	cmd.Flags().IntVarP(&jobs, "jobs", "j", runtime.NumCPU(), "Number of worker processes")
	cmd.Flags().BoolVar(&progress, "progress", false, "Render per-action progress")
	cmd.Flags().StringSliceVar(&conditionals, "conditionals", nil, "Enabled Bubfile condition tags")
	return cmd
}
