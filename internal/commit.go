package internal

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"
)

const (
	rangeSeparator  = ".."
	defaultRangeEnd = "HEAD"
)

type SpecKind int

const (
	SpecSingle SpecKind = iota
	SpecRange
	SpecEmpty
)

// CommitSpec is a parsed commit specifier: one ref, a from..to range, or the
// explicit empty range "..".
type CommitSpec struct {
	Raw  string
	Kind SpecKind
	From string
	To   string
}

func ParseCommitSpec(raw string) (CommitSpec, error) {
	segments := strings.Split(raw, rangeSeparator)

	switch len(segments) {
	case 1:
		return CommitSpec{Raw: raw, Kind: SpecSingle, To: raw}, nil
	case 2:
		from, to := segments[0], segments[1]
		if from == "" && to == "" {
			return CommitSpec{Raw: raw, Kind: SpecEmpty}, nil
		}
		// "a...b" splits into ["a", ".b"]; symmetric difference is not a range we sync.
		if strings.HasPrefix(to, ".") {
			return CommitSpec{}, fmt.Errorf("%w: %q", ErrInvalidSpecifier, raw)
		}
		// git reads an open end as HEAD.
		if from == "" {
			from = defaultRangeEnd
		}
		if to == "" {
			to = defaultRangeEnd
		}
		return CommitSpec{Raw: raw, Kind: SpecRange, From: from, To: to}, nil
	default:
		return CommitSpec{}, fmt.Errorf("%w: %q", ErrInvalidSpecifier, raw)
	}
}

func (s CommitSpec) String() string {
	return s.Raw
}

// AncestryResolver orders the two ends of a range as (older, newer).
type AncestryResolver struct {
	backend Backend
	logger  *log.Logger
}

func NewAncestryResolver(backend Backend, logger *log.Logger) *AncestryResolver {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &AncestryResolver{backend: backend, logger: logger}
}

// Resolve returns (c1, c2) when c1 is an ancestor of c2 and (c2, c1) otherwise.
// When the backend cannot answer, the original order is kept.
func (r *AncestryResolver) Resolve(ctx context.Context, root, c1, c2 string) (string, string) {
	ok, err := r.backend.IsAncestor(ctx, root, c1, c2)
	if err != nil {
		r.logger.Error("ancestry check failed, keeping given order", "from", c1, "to", c2, "err", err)
		return c1, c2
	}
	if ok {
		return c1, c2
	}
	r.logger.Debug("swapping range ends", "from", c1, "to", c2)
	return c2, c1
}
