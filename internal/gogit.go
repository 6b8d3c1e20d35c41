package internal

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/cache"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/filesystem"
	"github.com/go-git/go-git/v5/utils/merkletrie"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// renameThreshold matches git's default -M similarity of 50%.
const renameThreshold = 50

// GoGitBackend answers backend queries in-process with go-git.
type GoGitBackend struct{}

func NewGoGitBackend() *GoGitBackend {
	return &GoGitBackend{}
}

func openRepository(root string) (*git.Repository, error) {
	dotGit := filepath.Join(root, ".git")

	info, err := os.Stat(dotGit)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotGitRepo, root)
	}
	if !info.IsDir() {
		// linked worktrees and submodules point at their git dir through a file
		repo, err := git.PlainOpenWithOptions(root, &git.PlainOpenOptions{EnableDotGitCommonDir: true})
		if err != nil {
			return nil, fmt.Errorf("open repository: %w", err)
		}
		return repo, nil
	}

	storage := filesystem.NewStorage(osfs.New(dotGit), cache.NewObjectLRUDefault())
	repo, err := git.Open(storage, osfs.New(root))
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}
	return repo, nil
}

func (b *GoGitBackend) open(op, root string) (*git.Repository, error) {
	repo, err := openRepository(root)
	if err != nil {
		return nil, &QueryError{Op: op, Err: fmt.Errorf("%w: %v", ErrBackendUnavailable, err)}
	}
	return repo, nil
}

func resolveCommit(repo *git.Repository, op, ref string) (*object.Commit, error) {
	hash, err := repo.ResolveRevision(plumbing.Revision(ref))
	if err != nil {
		return nil, &QueryError{Op: op, Args: []string{ref}, Stderr: err.Error(), Err: ErrBackendQueryFailed}
	}

	commit, err := repo.CommitObject(*hash)
	if err != nil {
		return nil, &QueryError{Op: op, Args: []string{ref}, Stderr: err.Error(), Err: ErrBackendQueryFailed}
	}
	return commit, nil
}

func (b *GoGitBackend) IsAncestor(ctx context.Context, root, ancestor, descendant string) (bool, error) {
	repo, err := b.open("is-ancestor", root)
	if err != nil {
		return false, err
	}

	older, err := resolveCommit(repo, "is-ancestor", ancestor)
	if err != nil {
		return false, err
	}
	newer, err := resolveCommit(repo, "is-ancestor", descendant)
	if err != nil {
		return false, err
	}

	if older.Hash == newer.Hash {
		return true, nil
	}

	ok, err := older.IsAncestor(newer)
	if err != nil {
		return false, &QueryError{Op: "is-ancestor", Args: []string{ancestor, descendant}, Err: fmt.Errorf("%w: %v", ErrBackendQueryFailed, err)}
	}
	return ok, nil
}

func (b *GoGitBackend) DiffNameStatus(ctx context.Context, root, from, to string) (string, error) {
	repo, err := b.open("diff", root)
	if err != nil {
		return "", err
	}

	toCommit, err := resolveCommit(repo, "diff", to)
	if err != nil {
		return "", err
	}
	toTree, err := toCommit.Tree()
	if err != nil {
		return "", &QueryError{Op: "diff", Args: []string{to}, Err: fmt.Errorf("%w: tree: %v", ErrBackendQueryFailed, err)}
	}

	var fromTree *object.Tree
	switch {
	case from != "":
		fromCommit, err := resolveCommit(repo, "diff", from)
		if err != nil {
			return "", err
		}
		if fromTree, err = fromCommit.Tree(); err != nil {
			return "", &QueryError{Op: "diff", Args: []string{from}, Err: fmt.Errorf("%w: tree: %v", ErrBackendQueryFailed, err)}
		}
	case toCommit.NumParents() > 0:
		parent, err := toCommit.Parent(0)
		if err != nil {
			return "", &QueryError{Op: "diff", Args: []string{to + "^"}, Err: fmt.Errorf("%w: %v", ErrBackendQueryFailed, err)}
		}
		if fromTree, err = parent.Tree(); err != nil {
			return "", &QueryError{Op: "diff", Args: []string{to + "^"}, Err: fmt.Errorf("%w: tree: %v", ErrBackendQueryFailed, err)}
		}
	default:
		// a root commit diffs against the empty tree
		fromTree = &object.Tree{}
	}

	changes, err := object.DiffTreeWithOptions(ctx, fromTree, toTree, &object.DiffTreeOptions{
		DetectRenames: true,
		RenameScore:   renameThreshold,
	})
	if err != nil {
		return "", &QueryError{Op: "diff", Args: []string{from, to}, Err: fmt.Errorf("%w: %v", ErrBackendQueryFailed, err)}
	}

	var out strings.Builder
	for _, change := range changes {
		line, err := nameStatusLine(change)
		if err != nil {
			return "", &QueryError{Op: "diff", Args: []string{from, to}, Err: fmt.Errorf("%w: %v", ErrBackendQueryFailed, err)}
		}
		out.WriteString(line)
	}
	return out.String(), nil
}

func nameStatusLine(change *object.Change) (string, error) {
	action, err := change.Action()
	if err != nil {
		return "", err
	}

	switch action {
	case merkletrie.Insert:
		return fmt.Sprintf("A\t%s\n", quotePath(change.To.Name)), nil
	case merkletrie.Delete:
		return fmt.Sprintf("D\t%s\n", quotePath(change.From.Name)), nil
	}

	if change.From.Name == change.To.Name {
		return fmt.Sprintf("M\t%s\n", quotePath(change.To.Name)), nil
	}

	score := 100
	if change.From.TreeEntry.Hash != change.To.TreeEntry.Hash {
		fromFile, toFile, err := change.Files()
		if err != nil {
			return "", err
		}
		score, err = renameScore(fromFile, toFile)
		if err != nil {
			return "", err
		}
	}
	return fmt.Sprintf("R%03d\t%s\t%s\n", score, quotePath(change.From.Name), quotePath(change.To.Name)), nil
}

// renameScore estimates similarity of two different blobs in percent, capped
// below 100 because identical content never reaches here.
func renameScore(from, to *object.File) (int, error) {
	if from == nil || to == nil {
		return renameThreshold, nil
	}

	binary, err := from.IsBinary()
	if err != nil {
		return 0, err
	}
	if binary {
		return renameThreshold, nil
	}

	a, err := from.Contents()
	if err != nil {
		return 0, err
	}
	b, err := to.Contents()
	if err != nil {
		return 0, err
	}

	return similarity(a, b), nil
}

func similarity(a, b string) int {
	longest := len(a)
	if len(b) > longest {
		longest = len(b)
	}
	if longest == 0 {
		return 99
	}

	dmp := diffmatchpatch.New()
	same := 0
	for _, d := range dmp.DiffMain(a, b, false) {
		if d.Type == diffmatchpatch.DiffEqual {
			same += len(d.Text)
		}
	}

	score := same * 100 / longest
	if score > 99 {
		score = 99
	}
	return score
}

func (b *GoGitBackend) WorkingTreeStatus(ctx context.Context, root string) (string, error) {
	repo, err := b.open("status", root)
	if err != nil {
		return "", err
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return "", &QueryError{Op: "status", Err: fmt.Errorf("%w: worktree: %v", ErrBackendQueryFailed, err)}
	}

	status, err := worktree.Status()
	if err != nil {
		return "", &QueryError{Op: "status", Err: fmt.Errorf("%w: %v", ErrBackendQueryFailed, err)}
	}

	paths := make([]string, 0, len(status))
	for p := range status {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var out strings.Builder
	for _, p := range paths {
		if line := statusLine(p, status[p]); line != "" {
			out.WriteString(line)
		}
	}
	return out.String(), nil
}

func statusLine(path string, s *git.FileStatus) string {
	extra := quotePath(s.Extra)
	path = quotePath(path)
	switch {
	case s.Worktree == git.Untracked:
		return fmt.Sprintf("A\t%s\n", path)
	case s.Worktree == git.Deleted, s.Staging == git.Deleted:
		return fmt.Sprintf("D\t%s\n", path)
	case s.Staging == git.Renamed && s.Extra != "":
		// status carries no similarity, so the new path is treated as edited
		return fmt.Sprintf("R\t%s\t%s\n", extra, path)
	case s.Staging == git.Added:
		return fmt.Sprintf("A\t%s\n", path)
	case s.Staging == git.Unmodified && s.Worktree == git.Unmodified:
		return ""
	default:
		return fmt.Sprintf("M\t%s\n", path)
	}
}
