package main

import (
	"fmt"
	"os"

	"github.com/4thel00z/gsync/internal"
	"github.com/spf13/cobra"
)

func NewRootCmd(version string, a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "gsync",
		Short: "Push the files a git change touched to a remote host",
		Long: `gsync resolves the files changed in the working tree, a commit or a commit
range, maps them to remote directories with ordered rules and copies them over ssh.`,
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		Run: func(cmd *cobra.Command, _ []string) {
			_ = cmd.Help()
		},
	}

	addPersistentFlags(rootCmd)
	setHelpWithExternals(rootCmd)

	if a != nil {
		rootCmd.PersistentPreRun = func(cmd *cobra.Command, _ []string) {
			verbosity, _ := cmd.Flags().GetCount("verbose")
			a.logger = internal.NewLogger(cmd.ErrOrStderr(), verbosity)
		}
		addSubcommands(rootCmd, a)
	}

	return rootCmd
}

func addPersistentFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringP("source", "s", ".", "Source folder inside the git repository")
	cmd.PersistentFlags().StringP("config", "c", "", "Config file (default <repo root>/"+internal.DefaultConfigFilename+")")
	cmd.PersistentFlags().String("backend", "", "Git backend (git|go-git), overrides the config")
	cmd.PersistentFlags().CountP("verbose", "v", "Log verbosity, repeat for more (-v info, -vv debug)")
}

func addSubcommands(root *cobra.Command, a *app) {
	root.AddCommand(
		NewInitCmd(),
		NewPlanCmd(a),
		NewPushCmd(a),
		NewWatchCmd(a),
	)
}

// planInput collects the persistent flags shared by every planning command.
func planInput(cmd *cobra.Command, commits []string) internal.PlanInput {
	source, _ := cmd.Flags().GetString("source")
	config, _ := cmd.Flags().GetString("config")
	backend, _ := cmd.Flags().GetString("backend")
	return internal.PlanInput{
		Source:     source,
		ConfigPath: config,
		Backend:    backend,
		Commits:    commits,
	}
}

func setHelpWithExternals(cmd *cobra.Command) {
	defaultHelp := cmd.HelpFunc()

	cmd.SetHelpFunc(func(c *cobra.Command, args []string) {
		defaultHelp(c, args)
		printExternalCommands(c)
	})
}

func printExternalCommands(cmd *cobra.Command) {
	if cmd != cmd.Root() {
		return
	}
	externals := discoverExtensions(cmd.Root(), os.Getenv("PATH"))
	if len(externals) == 0 {
		return
	}

	width := 0
	for _, ext := range externals {
		width = max(width, len(ext.Name))
	}

	fmt.Fprintln(cmd.OutOrStdout(), "\nExternal commands (gsync-*):")
	for _, ext := range externals {
		fmt.Fprintf(cmd.OutOrStdout(), "  %-*s  %s\n", width, ext.Name, ext.Path)
	}
}
