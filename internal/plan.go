package internal

import (
	"context"
	"io"
	"sort"

	"github.com/charmbracelet/log"
)

// Mapping pairs a repository-relative source path with its remote path.
type Mapping struct {
	Source      string
	Destination string
	Rule        int
}

// MappingFailure is a path that matched a rule but could not be rewritten.
type MappingFailure struct {
	Path string
	Rule string
	Err  error
}

// SyncPlan is the classified, destination-resolved change set of one run.
type SyncPlan struct {
	Ignored  []string
	Mapped   []Mapping
	Unmapped []string
	Failed   []MappingFailure
	// SpecErrors holds commit specifiers that contributed nothing.
	SpecErrors []error
}

func (p *SyncPlan) Empty() bool {
	return len(p.Mapped) == 0
}

// Select returns the mappings at the given zero-based indices.
func (p *SyncPlan) Select(indices []int) []Mapping {
	out := make([]Mapping, 0, len(indices))
	for _, i := range indices {
		if i >= 0 && i < len(p.Mapped) {
			out = append(out, p.Mapped[i])
		}
	}
	return out
}

// BuildPlan classifies every path of cs. A rule that cannot rewrite its
// path fails only that path.
func BuildPlan(cs ChangeSet, rs *RuleSet) *SyncPlan {
	plan := &SyncPlan{
		Ignored:  []string{},
		Mapped:   []Mapping{},
		Unmapped: []string{},
	}

	for _, p := range cs.Sorted() {
		m := rs.Classify(p)
		switch m.Class {
		case Ignored:
			plan.Ignored = append(plan.Ignored, p)
		case Mapped:
			dst, err := m.Rule.Map(p)
			if err != nil {
				plan.Failed = append(plan.Failed, MappingFailure{Path: p, Rule: m.Rule.Source, Err: err})
				continue
			}
			plan.Mapped = append(plan.Mapped, Mapping{Source: p, Destination: dst, Rule: m.Index})
		default:
			plan.Unmapped = append(plan.Unmapped, p)
		}
	}

	sort.SliceStable(plan.Mapped, func(i, j int) bool {
		return plan.Mapped[i].Source < plan.Mapped[j].Source
	})

	return plan
}

// Planner composes extraction and classification for one workspace.
type Planner struct {
	extractor *Extractor
	rules     *RuleSet
	logger    *log.Logger
}

func NewPlanner(extractor *Extractor, rules *RuleSet, logger *log.Logger) *Planner {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Planner{extractor: extractor, rules: rules, logger: logger}
}

func (p *Planner) Plan(ctx context.Context, root string, specs []string) *SyncPlan {
	cs, failed := p.extractor.Extract(ctx, root, specs)

	plan := BuildPlan(cs, p.rules)
	plan.SpecErrors = failed

	for _, f := range plan.Failed {
		p.logger.Error("cannot map path", "path", f.Path, "rule", f.Rule, "err", f.Err)
	}
	p.logger.Info("plan ready",
		"changed", len(cs),
		"mapped", len(plan.Mapped),
		"ignored", len(plan.Ignored),
		"unmapped", len(plan.Unmapped),
	)

	return plan
}
