package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byte4ever/gitstore/config"
)

// writeConfig writes a config file into a temp dir and
// returns its path.
func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(
		t.TempDir(), "gitstore.yml",
	)

	require.NoError(t, os.WriteFile(
		path, []byte(content), 0o600,
	))

	return path
}

func TestLoad_full(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
host: https://gl.corp.example.com
repo: org/site
token: tok
branch: master
editorial_workflow: true
squash_merges: true
concurrency: 5
author:
  name: CMS Bot
  email: bot@example.com
commit_messages:
  create: "add {{slug}}"
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "org/site", cfg.Repo)
	assert.Equal(t, "master", cfg.Branch)
	assert.True(t, cfg.EditorialWorkflow)
	assert.True(t, cfg.SquashMerges)
	assert.Equal(t, 5, cfg.Concurrency)
	assert.Equal(t, "CMS Bot", cfg.Author.Name)

	backend := cfg.Backend()
	assert.Equal(
		t, "https://gl.corp.example.com",
		backend.Host,
	)
	assert.Equal(t, "tok", backend.Token)
	assert.Equal(t, 5, backend.FetchConcurrency)
}

func TestLoad_defaults(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "repo: org/site\n")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "main", cfg.Branch)
	assert.Equal(t, 10, cfg.Concurrency)
	assert.False(t, cfg.EditorialWorkflow)
}

func TestLoad_missing_repo(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "branch: main\n")

	cfg, err := config.Load(path)

	assert.Nil(t, cfg)
	assert.ErrorContains(t, err, "repo must be set")
}

func TestLoad_missing_file(t *testing.T) {
	t.Parallel()

	cfg, err := config.Load(
		filepath.Join(t.TempDir(), "absent.yml"),
	)

	assert.Nil(t, cfg)
	assert.Error(t, err)
}

func TestLoad_malformed_yaml(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "repo: [broken\n")

	cfg, err := config.Load(path)

	assert.Nil(t, cfg)
	assert.ErrorContains(t, err, "decoding yaml")
}

func TestLoad_env_token_wins(t *testing.T) {
	path := writeConfig(
		t, "repo: org/site\ntoken: from-file\n",
	)

	t.Setenv("GITSTORE_TOKEN", "from-env")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Token)
}

func TestTemplates_merge(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
repo: org/site
commit_messages:
  create: "add {{slug}}"
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	tpl := cfg.Templates()

	// Configured template replaces the stock one;
	// the rest keep their defaults.
	assert.Equal(t, "add {{slug}}", tpl.Create)
	assert.Equal(
		t, `Update {{collection}} "{{slug}}"`,
		tpl.Update,
	)
}
