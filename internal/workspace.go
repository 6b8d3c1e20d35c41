package internal

import (
	"fmt"
	"os"
	"path/filepath"
)

const DefaultConfigFilename = ".gsync.yaml"

// Workspace is the repository a run operates on.
type Workspace struct {
	Source string // directory given by the operator
	Root   string // directory holding .git
	Config string // config file path
}

func (w Workspace) IgnorePath(name string) string {
	if name == "" {
		name = DefaultIgnoreFilename
	}
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(w.Root, name)
}

// ResolveWorkspace locates the repository containing source. An empty
// configPath means DefaultConfigFilename at the repository root.
func ResolveWorkspace(source, configPath string) (Workspace, error) {
	if source == "" {
		source = "."
	}

	abs, err := filepath.Abs(source)
	if err != nil {
		return Workspace{}, fmt.Errorf("resolve source: %w", err)
	}

	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		return Workspace{}, fmt.Errorf("%w: %s", ErrSourceNotExist, source)
	}

	root, err := FindRepoRoot(abs)
	if err != nil {
		return Workspace{}, err
	}

	if configPath == "" {
		configPath = filepath.Join(root, DefaultConfigFilename)
	}

	return Workspace{Source: abs, Root: root, Config: configPath}, nil
}

// FindRepoRoot walks up from dir looking for a .git entry. Linked worktrees
// and submodules carry a .git file instead of a directory.
func FindRepoRoot(dir string) (string, error) {
	start := dir
	for {
		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("%w: %s", ErrNotGitRepo, start)
		}
		dir = parent
	}
}

// EnvVars is the environment handed to external gsync-* commands.
func (w Workspace) EnvVars(version string) map[string]string {
	bin, _ := os.Executable()
	return map[string]string{
		"GSYNC_ROOT":    w.Root,
		"GSYNC_SOURCE":  w.Source,
		"GSYNC_CONFIG":  w.Config,
		"GSYNC_VERSION": version,
		"GSYNC_BIN":     bin,
	}
}
