package internal

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/input-output-hk/catalyst-forge-libs/executor"
)

// CLIBackend runs the git executable. The repository root is always passed
// with -C so concurrent queries never share process state.
type CLIBackend struct {
	program string
	git     *executor.WrappedExecutor
}

func NewCLIBackend(program string) *CLIBackend {
	if program == "" {
		program = "git"
	}
	return &CLIBackend{program: program, git: executor.NewWrappedExecutor(program)}
}

// run maps a failed execution onto QueryError: a non-zero exit is a failed
// query, anything that kept git from running makes the backend unavailable.
func (b *CLIBackend) run(ctx context.Context, root string, args ...string) (*executor.Result, error) {
	full := append([]string{"-C", root, "-c", "core.quotePath=false"}, args...)

	res, err := b.git.Execute(ctx, full)
	if err == nil {
		return res, nil
	}
	if res == nil {
		res = &executor.Result{ExitCode: -1}
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return res, &QueryError{
			Op:       b.program,
			Args:     args,
			ExitCode: res.ExitCode,
			Stderr:   res.Stderr,
			Err:      ErrBackendQueryFailed,
		}
	}
	return res, &QueryError{
		Op:   b.program,
		Args: args,
		Err:  fmt.Errorf("%w: %v", ErrBackendUnavailable, err),
	}
}

func (b *CLIBackend) IsAncestor(ctx context.Context, root, ancestor, descendant string) (bool, error) {
	res, err := b.run(ctx, root, "merge-base", "--is-ancestor", ancestor, descendant)
	if err == nil {
		return true, nil
	}
	// merge-base exits 1 for "not an ancestor" and >1 for real failures.
	if res != nil && res.ExitCode == 1 {
		return false, nil
	}
	return false, err
}

// DiffNameStatus diffs from against to. An empty from means the first parent
// of to, or the empty tree for a root commit, so merges are never shown as a
// combined diff.
func (b *CLIBackend) DiffNameStatus(ctx context.Context, root, from, to string) (string, error) {
	if from == "" {
		parent, err := b.firstParent(ctx, root, to)
		if err != nil {
			return "", err
		}
		from = parent
	}

	res, err := b.run(ctx, root, "diff", "--no-color", "--name-status", "-M", from, to, "--")
	if err != nil {
		return "", err
	}
	return res.Stdout, nil
}

func (b *CLIBackend) firstParent(ctx context.Context, root, ref string) (string, error) {
	res, err := b.run(ctx, root, "rev-list", "--parents", "-n", "1", ref, "--")
	if err != nil {
		return "", err
	}

	fields := strings.Fields(res.Stdout)
	switch {
	case len(fields) == 0:
		return "", &QueryError{Op: b.program, Args: []string{"rev-list", ref}, Err: fmt.Errorf("%w: no such commit", ErrBackendQueryFailed)}
	case len(fields) > 1:
		return fields[1], nil
	}

	// hash-object knows the empty tree id for both sha1 and sha256 repositories
	res, err = b.run(ctx, root, "hash-object", "-t", "tree", "/dev/null")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(res.Stdout), nil
}

func (b *CLIBackend) WorkingTreeStatus(ctx context.Context, root string) (string, error) {
	tracked, err := b.run(ctx, root, "diff", "--no-color", "--name-status", "-M", "HEAD", "--")
	if err != nil {
		return "", err
	}

	untracked, err := b.run(ctx, root, "ls-files", "--others", "--exclude-standard")
	if err != nil {
		return "", err
	}

	var out strings.Builder
	out.WriteString(tracked.Stdout)
	if tracked.Stdout != "" && !strings.HasSuffix(tracked.Stdout, "\n") {
		out.WriteString("\n")
	}
	// ls-files quotes names the same way diff does
	for _, line := range strings.Split(untracked.Stdout, "\n") {
		if line = strings.TrimRight(line, "\r"); line != "" {
			fmt.Fprintf(&out, "A\t%s\n", line)
		}
	}
	return out.String(), nil
}
