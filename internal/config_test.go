package internal

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), DefaultConfigFilename)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, BackendGit, cfg.Backend)
	assert.Equal(t, 4, cfg.Concurrency)
	assert.Equal(t, DefaultIgnoreFilename, cfg.IgnoreFile)
	assert.NotNil(t, cfg.DirMap)
	assert.NotNil(t, cfg.Ignored)
}

func TestLoadConfigJSON(t *testing.T) {
	path := writeConfig(t, `{"dir_map": [["aaa/bbb", "/usr/local/bin/aaa/bbb"], ["ccc", "/srv/ccc"]], "ignored": ["ccc/ddd"]}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, []RuleEntry{
		{Source: "aaa/bbb", Destination: "/usr/local/bin/aaa/bbb"},
		{Source: "ccc", Destination: "/srv/ccc"},
	}, cfg.DirMap)
	assert.Equal(t, []string{"ccc/ddd"}, cfg.Ignored)
	assert.Equal(t, BackendGit, cfg.Backend)
}

func TestLoadConfigYAMLMixedForms(t *testing.T) {
	path := writeConfig(t, `
destination: deploy@web-1
backend: go-git
concurrency: 2
dir_map:
  - ["src/app", "/remote/app"]
  - source: etc/nginx
    destination: /etc/nginx
ignored:
  - '\.md$'
ssh:
  port: 2222
  known_hosts: [/tmp/known_hosts]
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "deploy@web-1", cfg.Destination)
	assert.Equal(t, BackendGoGit, cfg.Backend)
	assert.Equal(t, 2, cfg.Concurrency)
	assert.Equal(t, []RuleEntry{
		{Source: "src/app", Destination: "/remote/app"},
		{Source: "etc/nginx", Destination: "/etc/nginx"},
	}, cfg.DirMap)
	assert.Equal(t, 2222, cfg.SSH.Port)
	assert.Equal(t, []string{"/tmp/known_hosts"}, cfg.SSH.KnownHosts)
}

func TestLoadConfigNotFound(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, ErrConfigNotFound)
}

func TestLoadConfigInvalid(t *testing.T) {
	tests := map[string]string{
		"bad ignore regex":     `{"dir_map": [], "ignored": ["("]}`,
		"bad rule regex":       `{"dir_map": [["[a-", "/x"]], "ignored": []}`,
		"pair too short":       `{"dir_map": [["only"]]}`,
		"scalar entry":         `{"dir_map": ["src"]}`,
		"unknown backend":      "backend: svn\n",
		"negative concurrency": "concurrency: -1\n",
		"not yaml":             "dir_map: [\n",
	}

	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, content))
			assert.ErrorIs(t, err, ErrConfigInvalid)
		})
	}
}

func TestConfigSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", DefaultConfigFilename)

	cfg := SampleConfig()
	cfg.Destination = "me@host:2200"
	require.NoError(t, SaveConfig(path, cfg))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, ".ssh/id_rsa"), ExpandHome("~/.ssh/id_rsa"))
	assert.Equal(t, "/etc/x", ExpandHome("/etc/x"))
	assert.Equal(t, "~user/x", ExpandHome("~user/x"))
}
