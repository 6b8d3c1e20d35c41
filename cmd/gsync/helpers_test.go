package main

import (
	"bytes"
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/4thel00z/gsync/internal"
	"github.com/charmbracelet/log"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"
)

type sentFile struct {
	remote string
	mode   fs.FileMode
	body   string
}

type recordingTransport struct {
	sent []sentFile
}

func (r *recordingTransport) Upload(_ context.Context, remote string, mode fs.FileMode, _ int64, body io.Reader) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	r.sent = append(r.sent, sentFile{remote: remote, mode: mode, body: string(data)})
	return nil
}

func (r *recordingTransport) Close() error { return nil }

type recordingDialer struct {
	transport *recordingTransport
	dialed    []internal.Destination
}

func (d *recordingDialer) Dial(_ context.Context, dst internal.Destination) (internal.Transport, error) {
	d.dialed = append(d.dialed, dst)
	return d.transport, nil
}

func newTestApp() (*app, *recordingDialer) {
	dialer := &recordingDialer{transport: &recordingTransport{}}
	return &app{
		logger:     log.New(io.Discard),
		backendFor: internal.NewBackend,
		dialerFor:  func(internal.SSHConfig) internal.Dialer { return dialer },
	}, dialer
}

// setupRepo creates a repository with two commits and a config mapping src/app.
func setupRepo(t *testing.T) (root string, first, second string) {
	t.Helper()
	root = t.TempDir()

	repo, err := git.PlainInit(root, false)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)

	commit := func(msg string, files map[string]string) string {
		for p, content := range files {
			full := filepath.Join(root, p)
			require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
			require.NoError(t, os.WriteFile(full, []byte(content), 0644))
			_, err := wt.Add(p)
			require.NoError(t, err)
		}
		hash, err := wt.Commit(msg, &git.CommitOptions{
			Author: &object.Signature{Name: "gsync", Email: "gsync@example.com", When: time.Now()},
		})
		require.NoError(t, err)
		return hash.String()
	}

	first = commit("first", map[string]string{"src/app/a.go": "a\n", "README.md": "r\n"})
	second = commit("second", map[string]string{"src/app/a.go": "a2\n", "src/app/b.go": "b\n", "README.md": "r2\n", "misc/x": "x\n"})

	config := "destination: deploy@web-1\nbackend: go-git\ndir_map:\n  - [src/app, /remote/app]\nignored:\n  - '\\.md$'\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, internal.DefaultConfigFilename), []byte(config), 0644))
	return root, first, second
}

func runRoot(t *testing.T, a *app, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd("test", a)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}
