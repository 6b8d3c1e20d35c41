package internal

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
)

// Extractor turns commit specifiers into the union of their syncable paths.
type Extractor struct {
	backend     Backend
	resolver    *AncestryResolver
	logger      *log.Logger
	concurrency int
}

func NewExtractor(backend Backend, logger *log.Logger, concurrency int) *Extractor {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Extractor{
		backend:     backend,
		resolver:    NewAncestryResolver(backend, logger),
		logger:      logger,
		concurrency: concurrency,
	}
}

// Extract resolves every specifier against root. With no specifiers the dirty
// working tree is used. A failing specifier contributes nothing; its error is
// returned alongside the union of the others.
func (e *Extractor) Extract(ctx context.Context, root string, specs []string) (ChangeSet, []error) {
	if len(specs) == 0 {
		cs, err := e.workingTree(ctx, root)
		if err != nil {
			return NewChangeSet(), []error{&SpecError{Err: err}}
		}
		return cs, nil
	}

	var (
		mu     sync.Mutex
		union  = NewChangeSet()
		failed []error
	)

	var g errgroup.Group
	if e.concurrency > 0 {
		g.SetLimit(e.concurrency)
	}

	for i, raw := range specs {
		// the same specifier twice adds nothing to a set union
		if indexOf(specs[:i], raw) >= 0 {
			continue
		}
		g.Go(func() error {
			cs, err := e.ExtractOne(ctx, root, raw)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				e.logger.Error("skipping commit", "spec", raw, "err", err)
				failed = append(failed, &SpecError{Spec: raw, Err: err})
				return nil
			}
			union.Union(cs)
			return nil
		})
	}
	_ = g.Wait()

	return union, failed
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}

// ExtractOne resolves a single specifier.
func (e *Extractor) ExtractOne(ctx context.Context, root, raw string) (ChangeSet, error) {
	spec, err := ParseCommitSpec(raw)
	if err != nil {
		return nil, err
	}

	var out string
	switch spec.Kind {
	case SpecEmpty:
		e.logger.Warn("empty commit range, nothing to sync", "spec", raw)
		return NewChangeSet(), nil
	case SpecSingle:
		out, err = e.backend.DiffNameStatus(ctx, root, "", spec.To)
	case SpecRange:
		older, newer := e.resolver.Resolve(ctx, root, spec.From, spec.To)
		out, err = e.backend.DiffNameStatus(ctx, root, older, newer)
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidSpecifier, raw)
	}
	if err != nil {
		return nil, err
	}

	records, err := ParseNameStatus(out)
	if err != nil {
		return nil, err
	}
	e.logger.Debug("resolved commit", "spec", raw, "records", len(records))

	return ChangeSetFromRecords(records), nil
}

func (e *Extractor) workingTree(ctx context.Context, root string) (ChangeSet, error) {
	out, err := e.backend.WorkingTreeStatus(ctx, root)
	if err != nil {
		return nil, err
	}

	records, err := ParseNameStatus(out)
	if err != nil {
		return nil, err
	}
	e.logger.Debug("resolved working tree", "records", len(records))

	return ChangeSetFromRecords(records), nil
}
