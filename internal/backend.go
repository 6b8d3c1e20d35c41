package internal

import (
	"context"
	"fmt"
)

const (
	BackendGit   = "git"
	BackendGoGit = "go-git"
)

// Backend is the narrow view of version control this package needs. Every call
// names the repository root explicitly; implementations must not depend on the
// process working directory. Diff output uses git's name-status line format.
type Backend interface {
	// IsAncestor reports whether ancestor is reachable from descendant.
	IsAncestor(ctx context.Context, root, ancestor, descendant string) (bool, error)
	// DiffNameStatus diffs from against to. An empty from means the parent of to.
	DiffNameStatus(ctx context.Context, root, from, to string) (string, error)
	// WorkingTreeStatus lists uncommitted changes, untracked files included.
	WorkingTreeStatus(ctx context.Context, root string) (string, error)
}

func NewBackend(name string) (Backend, error) {
	switch name {
	case "", BackendGit:
		return NewCLIBackend("git"), nil
	case BackendGoGit:
		return NewGoGitBackend(), nil
	default:
		return nil, fmt.Errorf("%w: unknown backend %q", ErrConfigInvalid, name)
	}
}
