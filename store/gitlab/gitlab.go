package gitlab

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-cleanhttp"

	"github.com/byte4ever/gitstore/store"
)

// Default client settings.
const (
	defaultHost        = "https://gitlab.com"
	defaultAPIVersion  = "v4"
	defaultBranch      = "main"
	defaultConcurrency = 10

	// writeAccessLevel is the minimum GitLab access
	// level allowed to push (Developer).
	writeAccessLevel = 30

	// rebase poll parameters (see updateEntry).
	defaultRebaseAttempts = 10
	defaultRebaseInterval = time.Second
)

// Config holds the settings needed to create a GitLab
// content-store client.
type Config struct {
	// Host is the base URL of the GitLab instance
	// (e.g. "https://gitlab.com").
	Host string
	// APIVersion selects the REST API version
	// (default "v4").
	APIVersion string
	// Repo is the full project path
	// (e.g. "org/site").
	Repo string
	// Token is a personal or project access token.
	// Empty allows unauthenticated reads of public
	// repositories.
	Token string
	// Branch is the base branch content is published
	// to (default "main").
	Branch string
	// SquashMerges squashes workflow merge requests
	// when publishing.
	SquashMerges bool
	// InitialWorkflowStatus is the status a new
	// editorial change starts in.
	InitialWorkflowStatus store.Status
	// AuthorName and AuthorEmail override the commit
	// author; when empty the provider's default
	// committer identity applies.
	AuthorName  string
	AuthorEmail string
	// FetchConcurrency caps simultaneous in-flight
	// file fetches (default 10).
	FetchConcurrency int
	// HTTPClient overrides the transport; defaults
	// to a pooled cleanhttp client.
	HTTPClient *http.Client
}

// Client talks to one GitLab project through its REST
// API and implements store.Backend.
//
// Pattern: Strategy -- implements store.Backend.
type Client struct {
	apiRoot    string
	repo       string
	token      string
	branch     string
	squash     bool
	initial    store.Status
	author     string
	email      string
	httpClient *http.Client

	// sem bounds in-flight file fetches; it is the
	// only shared resource of the client.
	sem chan struct{}

	rebaseAttempts int
	rebaseInterval time.Duration
}

// interface guard
var _ store.Backend = (*Client)(nil)

// NewClient validates cfg and returns a Client ready
// to serve content-store operations.
func NewClient(cfg Config) (*Client, error) {
	const errCtx = "creating gitlab client"

	if cfg.Repo == "" {
		return nil, fmt.Errorf(
			"%s: repo must be set", errCtx,
		)
	}

	host := cfg.Host
	if host == "" {
		host = defaultHost
	}

	apiVersion := cfg.APIVersion
	if apiVersion == "" {
		apiVersion = defaultAPIVersion
	}

	branch := cfg.Branch
	if branch == "" {
		branch = defaultBranch
	}

	concurrency := cfg.FetchConcurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = cleanhttp.DefaultPooledClient()
	}

	return &Client{
		apiRoot: strings.TrimSuffix(host, "/") +
			"/api/" + apiVersion,
		repo:           cfg.Repo,
		token:          cfg.Token,
		branch:         branch,
		squash:         cfg.SquashMerges,
		initial:        cfg.InitialWorkflowStatus,
		author:         cfg.AuthorName,
		email:          cfg.AuthorEmail,
		httpClient:     httpClient,
		sem:            make(chan struct{}, concurrency),
		rebaseAttempts: defaultRebaseAttempts,
		rebaseInterval: defaultRebaseInterval,
	}, nil
}

// projectPath builds an API path under the project
// scope, escaping each trailing element.
func (c *Client) projectPath(parts ...string) string {
	segs := []string{
		"projects", url.PathEscape(c.repo),
	}

	for _, p := range parts {
		segs = append(segs, url.PathEscape(p))
	}

	return strings.Join(segs, "/")
}

// gitlabUser mirrors GET /user.
type gitlabUser struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// gitlabProject mirrors the access fields of
// GET /projects/{repo}.
type gitlabProject struct {
	Permissions struct {
		ProjectAccess *struct {
			AccessLevel int `json:"access_level"`
		} `json:"project_access"`
		GroupAccess *struct {
			AccessLevel int `json:"access_level"`
		} `json:"group_access"`
	} `json:"permissions"`
	SharedWithGroups []struct {
		GroupAccessLevel int `json:"group_access_level"`
	} `json:"shared_with_groups"`
}

// Authenticate verifies the token against /user and
// probes the project for write access. It returns
// ErrPermissionDenied when the account cannot push to
// the repository.
func (c *Client) Authenticate(
	ctx context.Context,
) (*store.User, error) {
	const errCtx = "authenticating against gitlab"

	resp, err := c.do(ctx, apiRequest{
		method: http.MethodGet,
		path:   "user",
	})
	if err != nil {
		return nil, fmt.Errorf(
			"%s: %w", errCtx, err,
		)
	}

	var u gitlabUser
	if err := decodeJSON(resp, &u); err != nil {
		return nil, fmt.Errorf(
			"%s: %w", errCtx, err,
		)
	}

	if err := c.checkWriteAccess(ctx); err != nil {
		return nil, fmt.Errorf(
			"%s: %w", errCtx, err,
		)
	}

	return &store.User{
		ID:       u.ID,
		Name:     u.Name,
		Username: u.Username,
		Email:    u.Email,
	}, nil
}

// checkWriteAccess probes the project permissions and
// fails with ErrPermissionDenied below Developer
// access.
func (c *Client) checkWriteAccess(
	ctx context.Context,
) error {
	resp, err := c.do(ctx, apiRequest{
		method: http.MethodGet,
		path:   c.projectPath(),
	})
	if err != nil {
		return err
	}

	var project gitlabProject
	if err := decodeJSON(resp, &project); err != nil {
		return err
	}

	perms := project.Permissions

	if perms.ProjectAccess != nil &&
		perms.ProjectAccess.AccessLevel >=
			writeAccessLevel {
		return nil
	}

	if perms.GroupAccess != nil &&
		perms.GroupAccess.AccessLevel >=
			writeAccessLevel {
		return nil
	}

	for _, g := range project.SharedWithGroups {
		if g.GroupAccessLevel >= writeAccessLevel {
			return nil
		}
	}

	return fmt.Errorf(
		"project %s: %w",
		c.repo, ErrPermissionDenied,
	)
}
