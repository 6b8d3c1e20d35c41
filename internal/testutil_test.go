package internal

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"
)

// fakeBackend answers from canned name-status text.
type fakeBackend struct {
	mu sync.Mutex

	// ancestors holds pairs for which IsAncestor is true
	ancestors   map[[2]string]bool
	ancestorErr error

	// diffs is keyed by "to" for a single commit and "from..to" for a range
	diffs    map[string]string
	diffErrs map[string]error

	status    string
	statusErr error

	calls []string
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		ancestors: map[[2]string]bool{},
		diffs:     map[string]string{},
		diffErrs:  map[string]error{},
	}
}

func (f *fakeBackend) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeBackend) IsAncestor(_ context.Context, _, ancestor, descendant string) (bool, error) {
	f.record("is-ancestor " + ancestor + " " + descendant)
	if f.ancestorErr != nil {
		return false, f.ancestorErr
	}
	return f.ancestors[[2]string{ancestor, descendant}], nil
}

func (f *fakeBackend) DiffNameStatus(_ context.Context, _, from, to string) (string, error) {
	key := to
	if from != "" {
		key = from + ".." + to
	}
	f.record("diff " + key)
	if err, ok := f.diffErrs[key]; ok {
		return "", err
	}
	out, ok := f.diffs[key]
	if !ok {
		return "", &QueryError{Op: "diff", Args: []string{key}, ExitCode: 128, Stderr: "bad revision", Err: ErrBackendQueryFailed}
	}
	return out, nil
}

func (f *fakeBackend) WorkingTreeStatus(context.Context, string) (string, error) {
	f.record("status")
	return f.status, f.statusErr
}

// testRepo is a go-git repository in a temp dir.
type testRepo struct {
	t    *testing.T
	Root string
	Repo *git.Repository
	n    int
}

func newTestRepo(t *testing.T) *testRepo {
	t.Helper()
	root := t.TempDir()
	repo, err := git.PlainInit(root, false)
	require.NoError(t, err)
	return &testRepo{t: t, Root: root, Repo: repo}
}

func (r *testRepo) write(path, content string) {
	r.t.Helper()
	full := filepath.Join(r.Root, filepath.FromSlash(path))
	require.NoError(r.t, os.MkdirAll(filepath.Dir(full), 0755))
	require.NoError(r.t, os.WriteFile(full, []byte(content), 0644))
}

// commit writes files, removes the listed paths and commits everything.
func (r *testRepo) commit(files map[string]string, remove ...string) string {
	r.t.Helper()
	return r.commitOn(nil, files, remove...)
}

// commitOn is commit with explicit parents; none means HEAD.
func (r *testRepo) commitOn(parents []string, files map[string]string, remove ...string) string {
	r.t.Helper()
	wt, err := r.Repo.Worktree()
	require.NoError(r.t, err)

	for _, p := range remove {
		_, err := wt.Remove(p)
		require.NoError(r.t, err)
	}
	for p, content := range files {
		r.write(p, content)
		_, err := wt.Add(p)
		require.NoError(r.t, err)
	}

	r.n++
	hash, err := wt.Commit(fmt.Sprintf("commit %d", r.n), &git.CommitOptions{
		Author: &object.Signature{
			Name:  "gsync",
			Email: "gsync@example.com",
			When:  time.Date(2024, 1, 1, 0, r.n, 0, 0, time.UTC),
		},
		Parents: hashes(parents),
	})
	require.NoError(r.t, err)
	return hash.String()
}

func hashes(refs []string) []plumbing.Hash {
	if len(refs) == 0 {
		return nil
	}
	out := make([]plumbing.Hash, len(refs))
	for i, ref := range refs {
		out[i] = plumbing.NewHash(ref)
	}
	return out
}

// mergeRepo builds a merge that adds one.txt against its first parent and
// two.txt against its second, so a combined diff of it is empty.
func mergeRepo(t *testing.T) (r *testRepo, merge string) {
	t.Helper()
	r = newTestRepo(t)
	base := r.commit(map[string]string{"a.txt": "a\n"})
	first := r.commit(map[string]string{"two.txt": "2\n"})
	side := r.commitOn([]string{base}, map[string]string{"one.txt": "1\n"}, "two.txt")
	merge = r.commitOn([]string{first, side}, map[string]string{"two.txt": "2\n"})
	return r, merge
}

// lines builds a multi-line text body used for rename similarity.
func lines(n int, prefix string) string {
	var s string
	for i := 0; i < n; i++ {
		s += fmt.Sprintf("%s line %02d\n", prefix, i)
	}
	return s
}
