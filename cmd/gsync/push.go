package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"github.com/4thel00z/gsync/internal"
	"github.com/spf13/cobra"
)

func NewPushCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "push [commits...]",
		Short: "Copy changed files to their remote directories",
		Long: `Resolve the changed files, show the plan, ask which entries to send and copy
them over ssh. Answer 'y' for all, 'n' to cancel or list line numbers.`,
		RunE: makePushRunner(a),
	}

	cmd.Flags().StringP("destination", "d", "", "Remote [user@]host[:port], overrides the config")
	cmd.Flags().BoolP("yes", "y", false, "Push every mapped file without asking")
	return cmd
}

func makePushRunner(a *app) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		destination, _ := cmd.Flags().GetString("destination")
		yes, _ := cmd.Flags().GetBool("yes")

		planned, err := a.planUseCase().Execute(cmd.Context(), planInput(cmd, args))
		if err != nil {
			return err
		}

		plan := planned.Plan
		internal.RenderPlan(cmd.OutOrStdout(), plan)
		if plan.Empty() {
			return nil
		}

		if destination == "" {
			destination = planned.Config.Destination
		}
		if destination == "" {
			return fmt.Errorf("%w: pass --destination or set destination in %s",
				internal.ErrDestinationInvalid, planned.Workspace.Config)
		}

		selected := plan.Mapped
		if !yes {
			indices, err := askSelection(cmd.InOrStdin(), cmd.OutOrStdout(), len(plan.Mapped))
			if errors.Is(err, internal.ErrCancelled) {
				fmt.Fprintln(cmd.OutOrStdout(), "Update cancelled.")
				return nil
			}
			if err != nil {
				return err
			}
			selected = plan.Select(indices)
		}

		out, err := a.pushUseCase().Execute(cmd.Context(), internal.PushInput{
			Root:        planned.Workspace.Root,
			Destination: destination,
			SSH:         planned.Config.SSH,
			Mappings:    selected,
			Progress:    cmd.OutOrStdout(),
		})
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Updated %d of %d files on %s\n",
			len(out.Uploaded), len(selected), out.Destination.String())
		if len(out.Failed) > 0 {
			for _, f := range out.Failed {
				fmt.Fprintf(cmd.ErrOrStderr(), "failed %s: %v\n", f.Mapping.Source, f.Err)
			}
			return fmt.Errorf("%d files were not updated", len(out.Failed))
		}
		return nil
	}
}

func askSelection(in io.Reader, out io.Writer, n int) ([]int, error) {
	fmt.Fprintln(out, internal.SelectionPrompt)

	answer, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read answer: %w", err)
	}

	return internal.ParseSelection(answer, n)
}
