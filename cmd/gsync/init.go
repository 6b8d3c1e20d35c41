package main

import (
	"fmt"
	"os"

	"github.com/4thel00z/gsync/internal"
	"github.com/spf13/cobra"
)

func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a sample config",
		Long:  `Write a sample ` + internal.DefaultConfigFilename + ` at the repository root.`,
		Args:  cobra.NoArgs,
		RunE:  runInit,
	}

	cmd.Flags().Bool("force", false, "Overwrite an existing config")
	return cmd
}

func runInit(cmd *cobra.Command, _ []string) error {
	force, _ := cmd.Flags().GetBool("force")
	source, _ := cmd.Flags().GetString("source")
	config, _ := cmd.Flags().GetString("config")

	ws, err := internal.ResolveWorkspace(source, config)
	if err != nil {
		return err
	}

	if _, err := os.Stat(ws.Config); err == nil && !force {
		return fmt.Errorf("already initialized at %s", ws.Config)
	}

	if err := internal.SaveConfig(ws.Config, internal.SampleConfig()); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Wrote sample config to %s\n", ws.Config)
	return nil
}
