package gitlab

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/byte4ever/gitstore/store"
)

// branchPrefix namespaces workflow branches. Content
// keys round-trip to branch names through this prefix
// and to (collection, slug) pairs through
// store.EntryKey / store.SplitKey.
const branchPrefix = "cms"

// statusLabels is the single bidirectional mapping
// between editorial statuses and merge request
// labels.
var statusLabels = map[store.Status]string{
	store.StatusDraft:  "cms/draft",
	store.StatusReview: "cms/pending_review",
	store.StatusReady:  "cms/pending_publish",
}

// labelToStatus inverts statusLabels.
func labelToStatus(
	label string,
) (store.Status, bool) {
	for status, l := range statusLabels {
		if l == label {
			return status, true
		}
	}

	return 0, false
}

// branchFromContentKey derives the workflow branch
// holding a change.
func branchFromContentKey(key string) string {
	return branchPrefix + "/" + key
}

// contentKeyFromBranch inverts branchFromContentKey;
// ok is false for branches outside the workflow
// namespace.
func contentKeyFromBranch(
	branch string,
) (string, bool) {
	return strings.CutPrefix(
		branch, branchPrefix+"/",
	)
}

// mergeRequest mirrors the fields of the provider's
// merge request objects this client reads.
type mergeRequest struct {
	IID              int      `json:"iid"`
	SHA              string   `json:"sha"`
	Title            string   `json:"title"`
	SourceBranch     string   `json:"source_branch"`
	TargetBranch     string   `json:"target_branch"`
	State            string   `json:"state"`
	Labels           []string `json:"labels"`
	MergeError       string   `json:"merge_error"`
	RebaseInProgress bool     `json:"rebase_in_progress"`
}

// statusLabel returns the change's editorial status
// from its labels; ok is false when no recognized
// status label is present.
func (mr *mergeRequest) statusLabel() (
	store.Status, bool,
) {
	for _, label := range mr.Labels {
		if status, ok := labelToStatus(label); ok {
			return status, true
		}
	}

	return 0, false
}

// mergeRequestListOptions encodes the query of
// GET /merge_requests.
type mergeRequestListOptions struct {
	State        string `url:"state"`
	TargetBranch string `url:"target_branch"`
	SourceBranch string `url:"source_branch,omitempty"`
	PerPage      int    `url:"per_page,omitempty"`
}

// createMergeRequestBody mirrors
// POST /merge_requests.
type createMergeRequestBody struct {
	SourceBranch       string `json:"source_branch"`
	TargetBranch       string `json:"target_branch"`
	Title              string `json:"title"`
	Description        string `json:"description"`
	Labels             string `json:"labels"`
	Squash             bool   `json:"squash"`
	RemoveSourceBranch bool   `json:"remove_source_branch"`
}

// listOpenMergeRequests returns the open merge
// requests targeting the base branch, optionally
// restricted to one source branch.
func (c *Client) listOpenMergeRequests(
	ctx context.Context,
	sourceBranch string,
) ([]mergeRequest, error) {
	req, err := apiRequest{
		method: http.MethodGet,
		path:   c.projectPath("merge_requests"),
	}.withOptions(mergeRequestListOptions{
		State:        "opened",
		TargetBranch: c.branch,
		SourceBranch: sourceBranch,
		PerPage:      listPageSize,
	})
	if err != nil {
		return nil, err
	}

	resp, err := c.do(ctx, req.withNoCache())
	if err != nil {
		return nil, err
	}

	var mrs []mergeRequest
	if err := decodeJSON(resp, &mrs); err != nil {
		return nil, err
	}

	return mrs, nil
}

// lookupEntry finds the open merge request backing a
// content key. The source branch must match the
// derived branch name exactly and carry a recognized
// status label; anything else is a workflow-integrity
// failure, not a plain not-found.
func (c *Client) lookupEntry(
	ctx context.Context,
	key string,
) (*mergeRequest, error) {
	branch := branchFromContentKey(key)

	mrs, err := c.listOpenMergeRequests(ctx, branch)
	if err != nil {
		return nil, err
	}

	for i := range mrs {
		mr := &mrs[i]

		if mr.SourceBranch != branch {
			continue
		}

		if _, ok := mr.statusLabel(); !ok {
			continue
		}

		return mr, nil
	}

	return nil, &WorkflowError{
		Key: key,
		Reason: fmt.Sprintf(
			"no open merge request for branch %q",
			branch,
		),
	}
}

// createEntry commits the initial file batch to a new
// workflow branch and opens the labeled merge
// request.
func (c *Client) createEntry(
	ctx context.Context,
	files []store.File,
	opts store.PersistOptions,
	branch string,
) error {
	// The branch does not exist yet; classify
	// against the base branch.
	items, err := c.commitItems(
		ctx, files, c.branch,
	)
	if err != nil {
		return err
	}

	if _, err := c.commit(ctx, commitBody{
		Branch:        branch,
		StartBranch:   c.branch,
		CommitMessage: opts.CommitMessage,
		Actions:       items,
	}); err != nil {
		return err
	}

	status := opts.Status
	if _, ok := statusLabels[status]; !ok {
		status = c.initial
	}

	body := createMergeRequestBody{
		SourceBranch: branch,
		TargetBranch: c.branch,
		Title:        opts.CommitMessage,
		Description:  "Automatically generated. Merged on demand.",
		Labels:       statusLabels[status],
		Squash:       c.squash,
		// The provider deletes the branch as part
		// of the merge.
		RemoveSourceBranch: true,
	}

	req, err := apiRequest{
		method: http.MethodPost,
		path:   c.projectPath("merge_requests"),
	}.withJSONBody(body)
	if err != nil {
		return err
	}

	resp, err := c.do(ctx, req)
	if err != nil {
		return err
	}

	var mr mergeRequest
	if err := decodeJSON(resp, &mr); err != nil {
		return err
	}

	slog.Info(
		"opened editorial change",
		"branch", branch,
		"iid", mr.IID,
		"status", status.String(),
	)

	return nil
}

// updateEntry rebases an open change onto the base
// branch, reconciles the caller's file set against
// the branch's prior diff, and commits the result.
func (c *Client) updateEntry(
	ctx context.Context,
	files []store.File,
	opts store.PersistOptions,
	key string,
	branch string,
) error {
	mr, err := c.lookupEntry(ctx, key)
	if err != nil {
		return err
	}

	// Without the rebase the commit builder cannot
	// tell which of the branch's files survive.
	if err := c.rebaseMergeRequest(
		ctx, mr.IID,
	); err != nil {
		return err
	}

	diffs, err := c.compare(ctx, c.branch, branch)
	if err != nil {
		return err
	}

	items, err := c.commitItems(ctx, files, branch)
	if err != nil {
		return err
	}

	// Prior paths missing from the new payload are
	// deletions.
	kept := make(map[string]struct{}, len(files))
	for _, f := range files {
		kept[trimSlash(f.Path)] = struct{}{}
	}

	for _, d := range diffs {
		if d.Deleted {
			continue
		}

		path := trimSlash(d.NewPath)
		if _, ok := kept[path]; ok {
			continue
		}

		items = append(items, commitItem{
			Action:   actionDelete,
			FilePath: path,
		})
	}

	_, err = c.commit(ctx, commitBody{
		Branch:        branch,
		CommitMessage: opts.CommitMessage,
		Actions:       items,
	})

	return err
}

// persistEntry routes a workflow persist to entry
// creation or update.
func (c *Client) persistEntry(
	ctx context.Context,
	files []store.File,
	opts store.PersistOptions,
) error {
	key := store.EntryKey(opts.Collection, opts.Slug)
	branch := branchFromContentKey(key)

	if opts.NewEntry {
		return c.createEntry(
			ctx, files, opts, branch,
		)
	}

	return c.updateEntry(
		ctx, files, opts, key, branch,
	)
}

// rebaseMergeRequest triggers a rebase of the merge
// request's branch onto its target and polls until
// the provider reports completion. Polling stops with
// ErrRebaseTimeout after the attempt cap, or with a
// RebaseError carrying the provider's message
// verbatim.
func (c *Client) rebaseMergeRequest(
	ctx context.Context,
	iid int,
) error {
	const errCtx = "rebasing merge request"

	mrPath := c.projectPath(
		"merge_requests", fmt.Sprint(iid),
	)

	resp, err := c.do(ctx, apiRequest{
		method: http.MethodPut,
		path:   mrPath + "/rebase",
	})
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	resp.Body.Close() //nolint:errcheck

	for attempt := 0; attempt < c.rebaseAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return fmt.Errorf(
				"%s: %w", errCtx, ctx.Err(),
			)
		case <-time.After(c.rebaseInterval):
		}

		resp, err := c.do(
			ctx,
			apiRequest{
				method: http.MethodGet,
				path:   mrPath,
			}.withParam(
				"include_rebase_in_progress",
				"true",
			),
		)
		if err != nil {
			return fmt.Errorf(
				"%s: %w", errCtx, err,
			)
		}

		var mr mergeRequest
		if err := decodeJSON(resp, &mr); err != nil {
			return fmt.Errorf(
				"%s: %w", errCtx, err,
			)
		}

		if mr.MergeError != "" {
			return fmt.Errorf(
				"%s: %w", errCtx,
				&RebaseError{Message: mr.MergeError},
			)
		}

		if !mr.RebaseInProgress {
			slog.Info(
				"rebased branch",
				"iid", iid,
				"sha", mr.SHA,
			)

			return nil
		}
	}

	return fmt.Errorf(
		"%s: %w", errCtx, ErrRebaseTimeout,
	)
}

// compareDiff mirrors one diff of
// GET /repository/compare.
type compareDiff struct {
	OldPath string `json:"old_path"`
	NewPath string `json:"new_path"`
	New     bool   `json:"new_file"`
	Renamed bool   `json:"renamed_file"`
	Deleted bool   `json:"deleted_file"`
}

// compare lists the file differences between two
// refs.
func (c *Client) compare(
	ctx context.Context,
	from string,
	to string,
) ([]compareDiff, error) {
	const errCtx = "comparing refs"

	resp, err := c.do(
		ctx,
		apiRequest{
			method: http.MethodGet,
			path: c.projectPath(
				"repository", "compare",
			),
		}.
			withParam("from", from).
			withParam("to", to).
			withNoCache(),
	)
	if err != nil {
		return nil, fmt.Errorf(
			"%s: %w", errCtx, err,
		)
	}

	var body struct {
		Diffs []compareDiff `json:"diffs"`
	}

	if err := decodeJSON(resp, &body); err != nil {
		return nil, fmt.Errorf(
			"%s: %w", errCtx, err,
		)
	}

	return body.Diffs, nil
}

// UnpublishedEntries lists the content keys of all
// in-progress editorial changes: open merge requests
// targeting the base branch whose source branch lives
// in the workflow namespace and which carry a
// recognized status label.
func (c *Client) UnpublishedEntries(
	ctx context.Context,
) ([]string, error) {
	const errCtx = "listing unpublished entries"

	mrs, err := c.listOpenMergeRequests(ctx, "")
	if err != nil {
		return nil, fmt.Errorf(
			"%s: %w", errCtx, err,
		)
	}

	var keys []string

	for i := range mrs {
		mr := &mrs[i]

		key, ok := contentKeyFromBranch(
			mr.SourceBranch,
		)
		if !ok {
			continue
		}

		if _, ok := mr.statusLabel(); !ok {
			continue
		}

		keys = append(keys, key)
	}

	return keys, nil
}

// UnpublishedEntry describes one in-progress
// editorial change, including the files it touches
// relative to the base branch.
func (c *Client) UnpublishedEntry(
	ctx context.Context,
	collection string,
	slug string,
) (*store.UnpublishedEntry, error) {
	const errCtx = "loading unpublished entry"

	key := store.EntryKey(collection, slug)

	mr, err := c.lookupEntry(ctx, key)
	if err != nil {
		return nil, fmt.Errorf(
			"%s: %w", errCtx, err,
		)
	}

	status, _ := mr.statusLabel()

	diffs, err := c.compare(
		ctx, c.branch, mr.SHA,
	)
	if err != nil {
		return nil, fmt.Errorf(
			"%s: %w", errCtx, err,
		)
	}

	entry := &store.UnpublishedEntry{
		Collection: collection,
		Slug:       slug,
		Status:     status,
		Branch:     mr.SourceBranch,
	}

	for _, d := range diffs {
		entry.Diffs = append(
			entry.Diffs, store.DiffPath{
				OldPath: d.OldPath,
				NewPath: d.NewPath,
				New:     d.New,
				Deleted: d.Deleted,
			},
		)
	}

	return entry, nil
}

// UpdateUnpublishedEntryStatus replaces the status
// label on the change's merge request, preserving all
// non-status labels.
func (c *Client) UpdateUnpublishedEntryStatus(
	ctx context.Context,
	collection string,
	slug string,
	newStatus store.Status,
) error {
	const errCtx = "updating entry status"

	label, ok := statusLabels[newStatus]
	if !ok {
		return fmt.Errorf(
			"%s: unknown status %v",
			errCtx, newStatus,
		)
	}

	key := store.EntryKey(collection, slug)

	mr, err := c.lookupEntry(ctx, key)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	labels := make([]string, 0, len(mr.Labels)+1)

	for _, l := range mr.Labels {
		if _, isStatus := labelToStatus(l); isStatus {
			continue
		}

		labels = append(labels, l)
	}

	labels = append(labels, label)

	req, err := apiRequest{
		method: http.MethodPut,
		path: c.projectPath(
			"merge_requests", fmt.Sprint(mr.IID),
		),
	}.withJSONBody(map[string]string{
		"labels": strings.Join(labels, ","),
	})
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	resp, err := c.do(ctx, req)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	resp.Body.Close() //nolint:errcheck

	slog.Info(
		"updated entry status",
		"key", key,
		"status", newStatus.String(),
	)

	return nil
}

// PublishUnpublishedEntry merges the change's merge
// request into the base branch; the provider removes
// the workflow branch as part of the merge.
func (c *Client) PublishUnpublishedEntry(
	ctx context.Context,
	collection string,
	slug string,
) error {
	const errCtx = "publishing entry"

	key := store.EntryKey(collection, slug)

	mr, err := c.lookupEntry(ctx, key)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	req, err := apiRequest{
		method: http.MethodPut,
		path: c.projectPath(
			"merge_requests", fmt.Sprint(mr.IID),
		) + "/merge",
	}.withJSONBody(map[string]bool{
		"squash":                      c.squash,
		"should_remove_source_branch": true,
	})
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	resp, err := c.do(ctx, req)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	resp.Body.Close() //nolint:errcheck

	slog.Info("published entry", "key", key)

	return nil
}

// DeleteUnpublishedEntry discards a change: the merge
// request is closed, then its branch is deleted
// explicitly (closing alone leaves the branch
// behind).
func (c *Client) DeleteUnpublishedEntry(
	ctx context.Context,
	collection string,
	slug string,
) error {
	const errCtx = "discarding entry"

	key := store.EntryKey(collection, slug)

	mr, err := c.lookupEntry(ctx, key)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	req, err := apiRequest{
		method: http.MethodPut,
		path: c.projectPath(
			"merge_requests", fmt.Sprint(mr.IID),
		),
	}.withJSONBody(map[string]string{
		"state_event": "close",
	})
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	resp, err := c.do(ctx, req)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	resp.Body.Close() //nolint:errcheck

	resp, err = c.do(ctx, apiRequest{
		method: http.MethodDelete,
		path: c.projectPath(
			"repository", "branches",
			mr.SourceBranch,
		),
	})
	if err != nil {
		return fmt.Errorf(
			"%s: delete branch: %w", errCtx, err,
		)
	}

	resp.Body.Close() //nolint:errcheck

	slog.Info("discarded entry", "key", key)

	return nil
}

// CommitStatus is one CI status attached to a
// change's head commit.
type CommitStatus struct {
	Name      string `json:"name"`
	Status    string `json:"status"`
	TargetURL string `json:"target_url"`
}

// Statuses lists the CI statuses reported for a
// commit.
func (c *Client) Statuses(
	ctx context.Context,
	sha string,
	ref string,
) ([]CommitStatus, error) {
	const errCtx = "listing commit statuses"

	req := apiRequest{
		method: http.MethodGet,
		path: c.projectPath(
			"repository", "commits", sha,
		) + "/statuses",
	}

	if ref != "" {
		req = req.withParam("ref", ref)
	}

	resp, err := c.do(ctx, req.withNoCache())
	if err != nil {
		return nil, fmt.Errorf(
			"%s: %w", errCtx, err,
		)
	}

	var statuses []CommitStatus
	if err := decodeJSON(
		resp, &statuses,
	); err != nil {
		return nil, fmt.Errorf(
			"%s: %w", errCtx, err,
		)
	}

	return statuses, nil
}
