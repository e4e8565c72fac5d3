package config

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"

	"github.com/byte4ever/gitstore/store"
	"github.com/byte4ever/gitstore/store/commitmsg"
	"github.com/byte4ever/gitstore/store/gitlab"
)

// tokenEnv is the environment fallback for the access
// token.
const tokenEnv = "GITSTORE_TOKEN"

// Author overrides the commit author identity.
type Author struct {
	Name  string `yaml:"name"`
	Email string `yaml:"email"`
}

// Messages holds the commit-message templates; empty
// fields keep the stock template.
type Messages struct {
	Create      string `yaml:"create"`
	Update      string `yaml:"update"`
	Delete      string `yaml:"delete"`
	UploadMedia string `yaml:"upload_media"`
	DeleteMedia string `yaml:"delete_media"`
}

// Config mirrors the YAML configuration file.
type Config struct {
	// Host is the GitLab instance base URL.
	Host string `yaml:"host"`
	// Repo is the full project path
	// (e.g. "org/site").
	Repo string `yaml:"repo"`
	// Token is the access token; the GITSTORE_TOKEN
	// environment variable takes precedence.
	Token string `yaml:"token"`
	// Branch is the base branch (default "main").
	Branch string `yaml:"branch"`
	// EditorialWorkflow routes persists through the
	// draft/review/publish pipeline.
	EditorialWorkflow bool `yaml:"editorial_workflow"`
	// SquashMerges squashes on publish.
	SquashMerges bool `yaml:"squash_merges"`
	// Concurrency caps simultaneous file fetches.
	Concurrency int `yaml:"concurrency"`

	Author         Author   `yaml:"author"`
	CommitMessages Messages `yaml:"commit_messages"`
}

// Load reads and validates the configuration file at
// path, applying defaults for absent fields.
func Load(path string) (*Config, error) {
	const errCtx = "loading configuration"

	raw, err := os.ReadFile(path) //nolint:gosec
	if err != nil {
		return nil, fmt.Errorf(
			"%s: read %s: %w", errCtx, path, err,
		)
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf(
			"%s: decoding yaml: %w", errCtx, err,
		)
	}

	if tok := os.Getenv(tokenEnv); tok != "" {
		cfg.Token = tok
	}

	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf(
			"%s: %w", errCtx, err,
		)
	}

	return &cfg, nil
}

// applyDefaults fills absent fields.
func (c *Config) applyDefaults() {
	if c.Branch == "" {
		c.Branch = "main"
	}

	if c.Concurrency == 0 {
		c.Concurrency = 10
	}
}

// validate rejects configurations the client cannot
// work with.
func (c *Config) validate() error {
	if c.Repo == "" {
		return fmt.Errorf("repo must be set")
	}

	if c.Concurrency < 0 {
		return fmt.Errorf(
			"concurrency must be positive, got %d",
			c.Concurrency,
		)
	}

	return nil
}

// Backend converts the file configuration into a
// GitLab client configuration.
func (c *Config) Backend() gitlab.Config {
	return gitlab.Config{
		Host:                  c.Host,
		Repo:                  c.Repo,
		Token:                 c.Token,
		Branch:                c.Branch,
		SquashMerges:          c.SquashMerges,
		InitialWorkflowStatus: store.StatusDraft,
		AuthorName:            c.Author.Name,
		AuthorEmail:           c.Author.Email,
		FetchConcurrency:      c.Concurrency,
	}
}

// Templates merges the configured commit-message
// templates over the stock ones.
func (c *Config) Templates() commitmsg.Templates {
	tpl := commitmsg.Defaults()

	if m := c.CommitMessages.Create; m != "" {
		tpl.Create = m
	}

	if m := c.CommitMessages.Update; m != "" {
		tpl.Update = m
	}

	if m := c.CommitMessages.Delete; m != "" {
		tpl.Delete = m
	}

	if m := c.CommitMessages.UploadMedia; m != "" {
		tpl.UploadMedia = m
	}

	if m := c.CommitMessages.DeleteMedia; m != "" {
		tpl.DeleteMedia = m
	}

	return tpl
}
