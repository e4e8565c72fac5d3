package gitlab

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/byte4ever/gitstore/store"
)

// rawFileRequest builds the descriptor for the raw
// content of one file at ref.
func (c *Client) rawFileRequest(
	method string,
	path string,
	ref string,
) apiRequest {
	if ref == "" {
		ref = c.branch
	}

	return apiRequest{
		method: method,
		path: c.projectPath(
			"repository", "files", path, "raw",
		),
	}.withParam("ref", ref)
}

// ReadFile returns the raw content of one file at ref
// (empty ref means the base branch). A missing file
// surfaces as an *APIError wrapping ErrNotFound.
func (c *Client) ReadFile(
	ctx context.Context,
	path string,
	ref string,
) ([]byte, error) {
	const errCtx = "reading file"

	resp, err := c.do(
		ctx,
		c.rawFileRequest(
			http.MethodGet, path, ref,
		).withNoCache(),
	)
	if err != nil {
		return nil, fmt.Errorf(
			"%s %s: %w", errCtx, path, err,
		)
	}

	data, err := readBlob(resp)
	if err != nil {
		return nil, fmt.Errorf(
			"%s %s: %w", errCtx, path, err,
		)
	}

	return data, nil
}

// FileExists probes a path with a head-only request.
// 404 is the expected "file absent" signal and is
// never an error.
func (c *Client) FileExists(
	ctx context.Context,
	path string,
	ref string,
) (bool, error) {
	const errCtx = "probing file"

	req := c.rawFileRequest(
		http.MethodHead, path, ref,
	)
	req.anyStatus = true

	resp, err := c.do(ctx, req.withNoCache())
	if err != nil {
		return false, fmt.Errorf(
			"%s %s: %w", errCtx, path, err,
		)
	}

	defer resp.Body.Close() //nolint:errcheck

	switch {
	case isSuccess(resp.StatusCode):
		return true, nil
	case resp.StatusCode == http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf(
			"%s %s: %w",
			errCtx, path, failFromResponse(resp),
		)
	}
}

// FetchFiles reads many files concurrently under the
// client's fetch cap and returns the subset that
// succeeded. Individual failures are logged and
// dropped so one bad file cannot fail the batch. No
// ordering is guaranteed.
func (c *Client) FetchFiles(
	ctx context.Context,
	refs []store.FileRef,
	ref string,
) ([]store.File, error) {
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		files []store.File
	)

	for _, fr := range refs {
		wg.Add(1)
		c.sem <- struct{}{}

		go func(fr store.FileRef) {
			defer wg.Done()
			defer func() { <-c.sem }()

			data, err := c.ReadFile(
				ctx, fr.Path, ref,
			)
			if err != nil {
				slog.Warn(
					"skipping unreadable file",
					"path", fr.Path,
					"error", err,
				)

				return
			}

			mu.Lock()
			files = append(files, store.File{
				Path: fr.Path,
				Data: data,
			})
			mu.Unlock()
		}(fr)
	}

	wg.Wait()

	return files, nil
}

// deleteFileBody mirrors the payload of
// DELETE /repository/files/{path}.
type deleteFileBody struct {
	Branch        string `json:"branch"`
	CommitMessage string `json:"commit_message"`
	AuthorName    string `json:"author_name,omitempty"`
	AuthorEmail   string `json:"author_email,omitempty"`
}

// DeleteFile removes a single file from the base
// branch in its own commit.
func (c *Client) DeleteFile(
	ctx context.Context,
	path string,
	commitMessage string,
) error {
	const errCtx = "deleting file"

	req, err := apiRequest{
		method: http.MethodDelete,
		path: c.projectPath(
			"repository", "files", path,
		),
	}.withJSONBody(deleteFileBody{
		Branch:        c.branch,
		CommitMessage: commitMessage,
		AuthorName:    c.author,
		AuthorEmail:   c.email,
	})
	if err != nil {
		return fmt.Errorf(
			"%s %s: %w", errCtx, path, err,
		)
	}

	resp, err := c.do(ctx, req)
	if err != nil {
		return fmt.Errorf(
			"%s %s: %w", errCtx, path, err,
		)
	}

	resp.Body.Close() //nolint:errcheck

	slog.Info("deleted file", "path", path)

	return nil
}
