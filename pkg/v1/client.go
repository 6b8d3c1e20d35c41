package v1

import (
	"context"
	"errors"
	"fmt"

	"github.com/4thel00z/gsync/internal"
)

// Client resolves sync plans for one repository.
type Client struct {
	plan *internal.PlanUseCase
	cfg  *clientConfig
}

// New creates a new Client with the given options.
func New(opts ...Option) (*Client, error) {
	cfg := &clientConfig{source: "."}
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.backend != "" {
		if _, err := internal.NewBackend(cfg.backend); err != nil {
			return nil, err
		}
	}

	return &Client{
		plan: internal.NewPlanUseCase(internal.NewBackend, cfg.logger),
		cfg:  cfg,
	}, nil
}

// Plan resolves commits (none means the dirty working tree) into a plan.
func (c *Client) Plan(ctx context.Context, commits ...string) (*Plan, error) {
	out, err := c.plan.Execute(ctx, internal.PlanInput{
		Source:     c.cfg.source,
		ConfigPath: c.cfg.configFile,
		Backend:    c.cfg.backend,
		Commits:    commits,
	})
	if err != nil {
		return nil, fmt.Errorf("plan: %w", err)
	}

	p := out.Plan
	plan := &Plan{
		Root:     out.Workspace.Root,
		Ignored:  append([]string{}, p.Ignored...),
		Mapped:   make([]Mapping, 0, len(p.Mapped)),
		Unmapped: append([]string{}, p.Unmapped...),
	}
	for _, m := range p.Mapped {
		plan.Mapped = append(plan.Mapped, Mapping{Source: m.Source, Destination: m.Destination})
	}
	for _, f := range p.Failed {
		plan.Failures = append(plan.Failures, Failure{Subject: f.Path, Error: f.Err.Error()})
	}
	for _, err := range p.SpecErrors {
		subject := ""
		var specErr *internal.SpecError
		if errors.As(err, &specErr) {
			subject = specErr.Spec
		}
		plan.Warnings = append(plan.Warnings, Failure{Subject: subject, Error: err.Error()})
	}

	return plan, nil
}

// Close releases any resources held by the client.
func (c *Client) Close() error {
	return nil
}
