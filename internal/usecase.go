package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/charmbracelet/log"
)

// Use case input/output DTOs

type PlanInput struct {
	Source     string
	ConfigPath string
	// Backend overrides the configured backend when set.
	Backend string
	Commits []string
}

type PlanOutput struct {
	Workspace Workspace
	Config    *Config
	Plan      *SyncPlan
}

type PushInput struct {
	Root        string
	Destination string
	SSH         SSHConfig
	Mappings    []Mapping
	// Progress receives one line per file as it finishes, nil for none
	Progress io.Writer
}

type PushFailure struct {
	Mapping Mapping
	Err     error
}

type PushOutput struct {
	Destination Destination
	Uploaded    []Mapping
	Failed      []PushFailure
}

// Use cases

type PlanUseCase struct {
	backendFor func(name string) (Backend, error)
	logger     *log.Logger
}

func NewPlanUseCase(backendFor func(string) (Backend, error), logger *log.Logger) *PlanUseCase {
	if backendFor == nil {
		backendFor = NewBackend
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &PlanUseCase{backendFor: backendFor, logger: logger}
}

func (uc *PlanUseCase) Execute(ctx context.Context, input PlanInput) (*PlanOutput, error) {
	ws, err := ResolveWorkspace(input.Source, input.ConfigPath)
	if err != nil {
		return nil, err
	}

	cfg, err := LoadConfig(ws.Config)
	if err != nil {
		return nil, err
	}

	rules, err := cfg.RuleSet()
	if err != nil {
		return nil, err
	}
	ignore, err := NewIgnoreMatcher(ws.Root, cfg.IgnoreFile)
	if err != nil {
		return nil, err
	}
	if ignore.Len() > 0 {
		uc.logger.Debug("loaded ignore file", "file", ignore.Source(), "patterns", ignore.Len())
		rules = rules.WithIgnoreFile(ignore)
	}

	name := cfg.Backend
	if input.Backend != "" {
		name = input.Backend
	}
	backend, err := uc.backendFor(name)
	if err != nil {
		return nil, err
	}

	extractor := NewExtractor(backend, uc.logger, cfg.Concurrency)
	plan := NewPlanner(extractor, rules, uc.logger).Plan(ctx, ws.Root, input.Commits)

	return &PlanOutput{Workspace: ws, Config: cfg, Plan: plan}, nil
}

type PushUseCase struct {
	dialerFor func(SSHConfig) Dialer
	settings  HostSettings
	logger    *log.Logger
}

func NewPushUseCase(dialerFor func(SSHConfig) Dialer, settings HostSettings, logger *log.Logger) *PushUseCase {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &PushUseCase{dialerFor: dialerFor, settings: settings, logger: logger}
}

// Execute uploads every mapping over one connection. A file that fails is
// reported and the rest are still sent.
func (uc *PushUseCase) Execute(ctx context.Context, input PushInput) (*PushOutput, error) {
	dst, err := ParseDestination(input.Destination, uc.settings, input.SSH.Port)
	if err != nil {
		return nil, err
	}

	out := &PushOutput{Destination: dst}
	if len(input.Mappings) == 0 {
		return out, nil
	}

	transport, err := uc.dialerFor(input.SSH).Dial(ctx, dst)
	if err != nil {
		return nil, fmt.Errorf("failed to connect remote machine: %w", err)
	}
	defer transport.Close()

	total := len(input.Mappings)
	width := len(strconv.Itoa(total))
	for i, m := range input.Mappings {
		if err := ctx.Err(); err != nil {
			return out, err
		}

		err := uploadOne(ctx, transport, input.Root, m)
		if input.Progress != nil {
			status := "ok"
			if err != nil {
				status = "failed"
			}
			fmt.Fprintf(input.Progress, "[%*d/%d] %s %s --> %s\n", width, i+1, total, status, m.Source, m.Destination)
		}
		if err != nil {
			uc.logger.Error("upload failed", "source", m.Source, "destination", m.Destination, "err", err)
			out.Failed = append(out.Failed, PushFailure{Mapping: m, Err: err})
			if errors.Is(err, context.Canceled) {
				return out, err
			}
			continue
		}
		uc.logger.Info("uploaded", "progress", fmt.Sprintf("%d/%d", i+1, total), "source", m.Source)
		out.Uploaded = append(out.Uploaded, m)
	}

	return out, nil
}

func uploadOne(ctx context.Context, t Transport, root string, m Mapping) error {
	f, err := os.Open(filepath.Join(root, filepath.FromSlash(m.Source)))
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s is not a regular file", m.Source)
	}

	return t.Upload(ctx, m.Destination, info.Mode().Perm(), info.Size(), f)
}
