package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/4thel00z/gsync/internal"
	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/kevinburke/ssh_config"
)

// version is set via ldflags at build time
var version = "dev"

func main() {
	ctx := context.Background()
	rootCmd := NewRootCmd(version, newApp())

	ran, err := runExtension(ctx, rootCmd, os.Args[1:])
	if ran {
		if err != nil {
			fmt.Fprintf(os.Stderr, "gsync: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := fang.Execute(ctx, rootCmd); err != nil {
		os.Exit(1)
	}
}

type app struct {
	logger     *log.Logger
	backendFor func(string) (internal.Backend, error)
	dialerFor  func(internal.SSHConfig) internal.Dialer
	settings   internal.HostSettings
}

func newApp() *app {
	a := &app{
		logger:     log.New(io.Discard),
		backendFor: internal.NewBackend,
		settings:   ssh_config.DefaultUserSettings,
	}
	a.dialerFor = func(cfg internal.SSHConfig) internal.Dialer {
		return internal.NewSSHDialer(cfg, internal.TerminalPassword(os.Stdin, os.Stderr), a.logger)
	}
	return a
}

func (a *app) planUseCase() *internal.PlanUseCase {
	return internal.NewPlanUseCase(a.backendFor, a.logger)
}

func (a *app) pushUseCase() *internal.PushUseCase {
	return internal.NewPushUseCase(a.dialerFor, a.settings, a.logger)
}
