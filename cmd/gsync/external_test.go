package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeScript(t *testing.T, dir, name string, perm os.FileMode) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\necho ok\n"), perm); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLookupExtension(t *testing.T) {
	tmp := t.TempDir()
	script := writeScript(t, tmp, "gsync-deploy", 0755)
	t.Setenv("PATH", tmp)

	root := NewRootCmd("test", &app{})
	ext, err := lookupExtension(root, "deploy")
	if err != nil {
		t.Fatalf("expected to find gsync-deploy, got error: %v", err)
	}
	if ext.Path != script || ext.Name != "deploy" {
		t.Errorf("unexpected extension %+v", ext)
	}
}

func TestLookupExtensionNotFound(t *testing.T) {
	t.Setenv("PATH", t.TempDir())

	if _, err := lookupExtension(NewRootCmd("test", &app{}), "nonexistent-command-12345"); err == nil {
		t.Fatal("expected error for nonexistent command")
	}
}

func TestBuiltinsShadowExtensions(t *testing.T) {
	tmp := t.TempDir()
	writeScript(t, tmp, "gsync-push", 0755)
	writeScript(t, tmp, "gsync-help", 0755)
	t.Setenv("PATH", tmp)

	root := NewRootCmd("test", &app{})
	for _, name := range []string{"push", "help"} {
		if _, err := lookupExtension(root, name); err == nil {
			t.Errorf("%s must resolve to the built-in command", name)
		}
	}
	if exts := discoverExtensions(root, tmp); len(exts) != 0 {
		t.Errorf("expected built-in names to be hidden, got %+v", exts)
	}

	ran, err := runExtension(context.Background(), root, []string{"push", "--yes"})
	if ran || err != nil {
		t.Errorf("push must not run as an extension, ran=%v err=%v", ran, err)
	}
}

func TestLookupExtensionRejectsPaths(t *testing.T) {
	if _, err := lookupExtension(NewRootCmd("test", &app{}), "../evil"); err == nil {
		t.Fatal("expected error for a name containing a separator")
	}
}

func TestDiscoverExtensions(t *testing.T) {
	first := t.TempDir()
	second := t.TempDir()

	writeScript(t, first, "gsync-foo", 0755)
	writeScript(t, first, "gsync-bar", 0755)
	writeScript(t, first, "gsync-noexec", 0644)
	writeScript(t, first, "other-script", 0755)
	shadowed := writeScript(t, second, "gsync-foo", 0755)
	writeScript(t, second, "gsync-baz", 0755)
	if err := os.Mkdir(filepath.Join(second, "gsync-dir"), 0755); err != nil {
		t.Fatal(err)
	}

	exts := discoverExtensions(NewRootCmd("test", &app{}), first+string(os.PathListSeparator)+second)

	var names []string
	for _, e := range exts {
		names = append(names, e.Name)
		if e.Path == shadowed {
			t.Errorf("gsync-foo from a later PATH entry must be shadowed")
		}
	}
	if got := strings.Join(names, ","); got != "bar,baz,foo" {
		t.Errorf("expected bar,baz,foo, got %s", got)
	}
}

func TestRunExtensionPassesArgs(t *testing.T) {
	tmp := t.TempDir()
	out := filepath.Join(tmp, "args.txt")
	script := filepath.Join(tmp, "gsync-record")
	body := "#!/bin/sh\necho \"$GSYNC_VERSION $*\" > " + out + "\n"
	if err := os.WriteFile(script, []byte(body), 0755); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PATH", tmp)
	t.Chdir(t.TempDir())

	ran, err := runExtension(context.Background(), NewRootCmd("test", &app{}), []string{"record", "a", "b"})
	if !ran || err != nil {
		t.Fatalf("expected extension to run, ran=%v err=%v", ran, err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.TrimSpace(string(data)); got != version+" a b" {
		t.Errorf("unexpected extension output %q", got)
	}
}

func TestRunExtensionIgnoresFlags(t *testing.T) {
	ran, err := runExtension(context.Background(), NewRootCmd("test", &app{}), []string{"--verbose"})
	if ran || err != nil {
		t.Errorf("flags are never extensions, ran=%v err=%v", ran, err)
	}
}

func TestBuildExternalEnv(t *testing.T) {
	root, _, _ := setupRepo(t)
	t.Chdir(root)

	env := map[string]string{}
	for _, e := range buildExternalEnv("1.0.0") {
		if k, v, ok := strings.Cut(e, "="); ok && strings.HasPrefix(k, "GSYNC_") {
			env[k] = v
		}
	}

	if env["GSYNC_VERSION"] != "1.0.0" {
		t.Errorf("expected GSYNC_VERSION=1.0.0, got %q", env["GSYNC_VERSION"])
	}
	if _, ok := env["GSYNC_BIN"]; !ok {
		t.Error("GSYNC_BIN not found in env")
	}
	if env["GSYNC_ROOT"] != root {
		t.Errorf("expected GSYNC_ROOT=%s, got %q", root, env["GSYNC_ROOT"])
	}
	if env["GSYNC_CONFIG"] == "" {
		t.Error("GSYNC_CONFIG not found in env")
	}
}

func TestBuildExternalEnvOutsideRepository(t *testing.T) {
	t.Chdir(t.TempDir())

	var hasRoot, hasVersion bool
	for _, e := range buildExternalEnv("1.0.0") {
		hasRoot = hasRoot || strings.HasPrefix(e, "GSYNC_ROOT=")
		hasVersion = hasVersion || e == "GSYNC_VERSION=1.0.0"
	}
	if hasRoot {
		t.Error("GSYNC_ROOT must not be set outside a repository")
	}
	if !hasVersion {
		t.Error("GSYNC_VERSION not found in env")
	}
}
