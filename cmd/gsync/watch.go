package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/4thel00z/gsync/internal"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

func NewWatchCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-plan the working tree whenever files change",
		Long: `Watch the repository for file changes and print the plan for the dirty working
tree after each batch. With --push every mapped file is copied without asking.`,
		Args: cobra.NoArgs,
		RunE: makeWatchRunner(a),
	}

	cmd.Flags().Duration("debounce", 500*time.Millisecond, "Debounce window for batching changes")
	cmd.Flags().Bool("push", false, "Push each batch to the destination")
	cmd.Flags().StringP("destination", "d", "", "Remote [user@]host[:port], overrides the config")
	return cmd
}

func makeWatchRunner(a *app) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		debounce, _ := cmd.Flags().GetDuration("debounce")
		push, _ := cmd.Flags().GetBool("push")
		destination, _ := cmd.Flags().GetString("destination")
		input := planInput(cmd, nil)

		ws, err := internal.ResolveWorkspace(input.Source, input.ConfigPath)
		if err != nil {
			return err
		}

		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			return fmt.Errorf("create watcher: %w", err)
		}
		defer watcher.Close()

		if err := addWatchDirs(watcher, ws.Root); err != nil {
			return fmt.Errorf("add watch dirs: %w", err)
		}

		gitDir := filepath.Join(ws.Root, ".git")
		fmt.Fprintf(cmd.OutOrStdout(), "Watching %s for changes...\n", ws.Root)

		timer := time.NewTimer(0)
		if !timer.Stop() {
			<-timer.C
		}
		pending := false

		for {
			select {
			case <-cmd.Context().Done():
				return nil
			case event, ok := <-watcher.Events:
				if !ok {
					return nil
				}
				if shouldIgnoreEvent(event, gitDir) {
					continue
				}
				if event.Op&fsnotify.Create != 0 {
					if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
						_ = addWatchDirs(watcher, event.Name)
					}
				}
				if !pending {
					timer.Reset(debounce)
					pending = true
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return nil
				}
				a.logger.Error("watch error", "err", err)
			case <-timer.C:
				pending = false
				if err := watchBatch(cmd, a, input, destination, push); err != nil {
					a.logger.Error("batch failed", "err", err)
				}
			}
		}
	}
}

func watchBatch(cmd *cobra.Command, a *app, input internal.PlanInput, destination string, push bool) error {
	planned, err := a.planUseCase().Execute(cmd.Context(), input)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "--- %s\n", time.Now().Format(time.TimeOnly))
	internal.RenderPlan(cmd.OutOrStdout(), planned.Plan)
	if !push || planned.Plan.Empty() {
		return nil
	}

	if destination == "" {
		destination = planned.Config.Destination
	}
	out, err := a.pushUseCase().Execute(cmd.Context(), internal.PushInput{
		Root:        planned.Workspace.Root,
		Destination: destination,
		SSH:         planned.Config.SSH,
		Mappings:    planned.Plan.Mapped,
		Progress:    cmd.OutOrStdout(),
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Updated %d files on %s\n", len(out.Uploaded), out.Destination.String())
	return nil
}

func addWatchDirs(watcher *fsnotify.Watcher, root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}

		if info.IsDir() {
			base := filepath.Base(path)
			if strings.HasPrefix(base, ".") && path != root {
				return filepath.SkipDir
			}
			return watcher.Add(path)
		}
		return nil
	})
}

func shouldIgnoreEvent(event fsnotify.Event, gitDir string) bool {
	if event.Name == gitDir || strings.HasPrefix(event.Name, gitDir+string(filepath.Separator)) {
		return true
	}

	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return true
	}

	return false
}
