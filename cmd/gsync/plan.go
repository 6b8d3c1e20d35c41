package main

import (
	"github.com/4thel00z/gsync/internal"
	"github.com/spf13/cobra"
)

func NewPlanCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "plan [commits...]",
		Short: "Show which files would be pushed and where",
		Long: `Resolve the changed files and print the ignored, mapped and unmapped paths
without connecting anywhere. With no commits the dirty working tree is used.
A commit is a single ref or a from..to range.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := a.planUseCase().Execute(cmd.Context(), planInput(cmd, args))
			if err != nil {
				return err
			}
			internal.RenderPlan(cmd.OutOrStdout(), out.Plan)
			return nil
		},
	}
}
