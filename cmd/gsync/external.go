package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/4thel00z/gsync/internal"
	"github.com/spf13/cobra"
)

const externalPrefix = "gsync-"

// extension is a gsync-<name> executable reachable through PATH. It runs
// with the workspace of the current directory described in GSYNC_* variables.
type extension struct {
	Name string
	Path string
}

// cobra adds these lazily, so they are not in root.Commands() yet
var lazyBuiltins = []string{"help", "completion"}

func isBuiltin(root *cobra.Command, name string) bool {
	for _, n := range lazyBuiltins {
		if n == name {
			return true
		}
	}
	for _, c := range root.Commands() {
		if c.Name() == name || c.HasAlias(name) {
			return true
		}
	}
	return false
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular() && info.Mode()&0o111 != 0
}

// lookupExtension resolves name the way a shell would. Built-in commands
// always win over an extension with the same name.
func lookupExtension(root *cobra.Command, name string) (extension, error) {
	if name == "" || strings.ContainsRune(name, os.PathSeparator) {
		return extension{}, fmt.Errorf("invalid command name %q", name)
	}
	if isBuiltin(root, name) {
		return extension{}, fmt.Errorf("%q is a built-in command", name)
	}

	path, err := exec.LookPath(externalPrefix + name)
	if err != nil {
		return extension{}, fmt.Errorf("unknown command %q: %s%s not found in PATH", name, externalPrefix, name)
	}
	return extension{Name: name, Path: path}, nil
}

// discoverExtensions lists extensions on pathList sorted by name. The first
// directory providing a name shadows later ones.
func discoverExtensions(root *cobra.Command, pathList string) []extension {
	seen := make(map[string]bool)
	var found []extension

	for _, dir := range filepath.SplitList(pathList) {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			name, ok := strings.CutPrefix(entry.Name(), externalPrefix)
			if !ok || name == "" || seen[name] || isBuiltin(root, name) {
				continue
			}
			path := filepath.Join(dir, entry.Name())
			if !isExecutable(path) {
				continue
			}
			seen[name] = true
			found = append(found, extension{Name: name, Path: path})
		}
	}

	sort.Slice(found, func(i, j int) bool { return found[i].Name < found[j].Name })
	return found
}

// runExtension executes args[0] as an extension when it is not a built-in.
// It reports whether an extension was run.
func runExtension(ctx context.Context, root *cobra.Command, args []string) (bool, error) {
	if len(args) == 0 || args[0] == "" || args[0][0] == '-' {
		return false, nil
	}

	ext, err := lookupExtension(root, args[0])
	if err != nil {
		return false, nil
	}
	return true, ext.run(ctx, args[1:], version)
}

func (e extension) run(ctx context.Context, args []string, version string) error {
	cmd := exec.CommandContext(ctx, e.Path, args...)
	cmd.Env = buildExternalEnv(version)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s%s: %w", externalPrefix, e.Name, err)
	}
	return nil
}

// buildExternalEnv exposes the workspace of the current directory when there
// is one; outside a repository only the version and binary are set.
func buildExternalEnv(version string) []string {
	env := os.Environ()

	vars := map[string]string{"GSYNC_VERSION": version}
	if bin, err := os.Executable(); err == nil {
		vars["GSYNC_BIN"] = bin
	}
	if ws, err := internal.ResolveWorkspace(".", ""); err == nil {
		vars = ws.EnvVars(version)
	}

	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		env = append(env, k+"="+vars[k])
	}
	return env
}
