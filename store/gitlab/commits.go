package gitlab

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/byte4ever/gitstore/store"
)

// commitAction classifies one file change inside a
// commit batch.
type commitAction string

// The provider's commit action verbs.
const (
	actionCreate commitAction = "create"
	actionUpdate commitAction = "update"
	actionDelete commitAction = "delete"
	actionMove   commitAction = "move"
)

// commitItem mirrors one element of the actions array
// of POST /repository/commits. Content is present iff
// the action is create or update.
type commitItem struct {
	Action       commitAction `json:"action"`
	FilePath     string       `json:"file_path"`
	PreviousPath string       `json:"previous_path,omitempty"`
	Content      string       `json:"content,omitempty"`
	Encoding     string       `json:"encoding,omitempty"`
}

// commitBody mirrors POST /repository/commits.
type commitBody struct {
	Branch        string       `json:"branch"`
	CommitMessage string       `json:"commit_message"`
	StartBranch   string       `json:"start_branch,omitempty"`
	AuthorName    string       `json:"author_name,omitempty"`
	AuthorEmail   string       `json:"author_email,omitempty"`
	Actions       []commitItem `json:"actions"`
}

// commitInfo mirrors the commit created by
// POST /repository/commits.
type commitInfo struct {
	ID      string `json:"id"`
	ShortID string `json:"short_id"`
}

// trimSlash normalizes a repository path by stripping
// any leading slash.
func trimSlash(path string) string {
	return strings.TrimPrefix(path, "/")
}

// commitItems classifies each file as create or
// update by probing its existence at ref, and encodes
// its content as base64. Probe and encoding run
// concurrently per file under the fetch cap; result
// order matches the input order.
func (c *Client) commitItems(
	ctx context.Context,
	files []store.File,
	ref string,
) ([]commitItem, error) {
	const errCtx = "classifying commit actions"

	items := make([]commitItem, len(files))
	errs := make([]error, len(files))

	var wg sync.WaitGroup

	for i, f := range files {
		wg.Add(1)
		c.sem <- struct{}{}

		go func(i int, f store.File) {
			defer wg.Done()
			defer func() { <-c.sem }()

			path := trimSlash(f.Path)

			exists, err := c.FileExists(
				ctx, path, ref,
			)
			if err != nil {
				errs[i] = err

				return
			}

			action := actionCreate
			if exists {
				action = actionUpdate
			}

			items[i] = commitItem{
				Action:   action,
				FilePath: path,
				Content: base64.StdEncoding.
					EncodeToString(f.Data),
				Encoding: "base64",
			}
		}(i, f)
	}

	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, fmt.Errorf(
				"%s: %w", errCtx, err,
			)
		}
	}

	return items, nil
}

// commit submits one atomic multi-file commit and
// returns the created commit.
func (c *Client) commit(
	ctx context.Context,
	body commitBody,
) (*commitInfo, error) {
	const errCtx = "committing batch"

	body.AuthorName = c.author
	body.AuthorEmail = c.email

	req, err := apiRequest{
		method: http.MethodPost,
		path: c.projectPath(
			"repository", "commits",
		),
	}.withJSONBody(body)
	if err != nil {
		return nil, fmt.Errorf(
			"%s: %w", errCtx, err,
		)
	}

	resp, err := c.do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf(
			"%s: %w", errCtx, err,
		)
	}

	var info commitInfo
	if err := decodeJSON(resp, &info); err != nil {
		return nil, fmt.Errorf(
			"%s: %w", errCtx, err,
		)
	}

	slog.Info(
		"created commit",
		"branch", body.Branch,
		"sha", info.ShortID,
		"files", len(body.Actions),
	)

	return &info, nil
}

// PersistFiles commits a batch of files atomically.
// Without workflow the batch lands directly on the
// base branch; with workflow it is routed through the
// editorial branch and merge request lifecycle.
func (c *Client) PersistFiles(
	ctx context.Context,
	files []store.File,
	opts store.PersistOptions,
) error {
	const errCtx = "persisting files"

	if opts.UseWorkflow {
		if err := c.persistEntry(
			ctx, files, opts,
		); err != nil {
			return fmt.Errorf(
				"%s: %w", errCtx, err,
			)
		}

		return nil
	}

	items, err := c.commitItems(
		ctx, files, c.branch,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	if _, err := c.commit(ctx, commitBody{
		Branch:        c.branch,
		CommitMessage: opts.CommitMessage,
		Actions:       items,
	}); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	return nil
}
