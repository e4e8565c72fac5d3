package gitlab

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/byte4ever/gitstore/store"
	"github.com/byte4ever/gitstore/store/cursor"
)

// listPageSize is the page size used when scanning a
// whole tree (the provider's maximum).
const listPageSize = 100

// treeEntry mirrors one item of
// GET /repository/tree.
type treeEntry struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Path string `json:"path"`
	// Type is "blob" for files and "tree" for
	// directories.
	Type string `json:"type"`
	Mode string `json:"mode"`
}

// treeOptions encodes the query parameters of
// GET /repository/tree.
type treeOptions struct {
	Path      string `url:"path,omitempty"`
	Ref       string `url:"ref"`
	Recursive bool   `url:"recursive"`
	PerPage   int    `url:"per_page,omitempty"`
	Page      int    `url:"page,omitempty"`
}

// cursorFromHeaders builds a wire-order cursor from
// the provider's pagination headers. Page numbers are
// one-based on the wire and zero-based here.
func cursorFromHeaders(h http.Header) cursor.Cursor {
	page := headerInt(h, "X-Page")
	totalPages := headerInt(h, "X-Total-Pages")

	index := page - 1
	if index < 0 {
		index = 0
	}

	pageCount := totalPages - 1
	if pageCount < 0 {
		pageCount = 0
	}

	return cursor.New(
		cursor.Meta{
			Index:     index,
			PageCount: pageCount,
			PageSize:  headerInt(h, "X-Per-Page"),
			Count:     headerInt(h, "X-Total"),
		},
		parseLinkHeader(h.Get("Link")),
	)
}

// headerInt parses a numeric header, returning zero
// when absent or malformed.
func headerInt(h http.Header, key string) int {
	n, err := strconv.Atoi(h.Get(key))
	if err != nil {
		return 0
	}

	return n
}

// parseLinkHeader parses an RFC 5988 Link header of
// the form `<url>; rel="next", <url>; rel="last"`
// into an action-to-URL map.
func parseLinkHeader(
	raw string,
) map[cursor.Action]string {
	links := make(map[cursor.Action]string)

	for _, part := range strings.Split(raw, ",") {
		segs := strings.Split(part, ";")
		if len(segs) < 2 {
			continue
		}

		target := strings.TrimSpace(segs[0])
		if !strings.HasPrefix(target, "<") ||
			!strings.HasSuffix(target, ">") {
			continue
		}

		target = target[1 : len(target)-1]

		for _, attr := range segs[1:] {
			attr = strings.TrimSpace(attr)

			rel, ok := strings.CutPrefix(attr, `rel="`)
			if !ok {
				continue
			}

			rel = strings.TrimSuffix(rel, `"`)

			switch a := cursor.Action(rel); a {
			case cursor.ActionFirst,
				cursor.ActionPrev,
				cursor.ActionNext,
				cursor.ActionLast:
				links[a] = target
			}
		}
	}

	return links
}

// fetchTreePage dispatches a tree request and returns
// the decoded entries plus the wire-order cursor read
// from the response headers.
func (c *Client) fetchTreePage(
	ctx context.Context,
	req apiRequest,
) ([]treeEntry, cursor.Cursor, error) {
	resp, err := c.do(ctx, req.withNoCache())
	if err != nil {
		return nil, cursor.Cursor{}, err
	}

	cur := cursorFromHeaders(resp.Header)

	var entries []treeEntry
	if err := decodeJSON(resp, &entries); err != nil {
		return nil, cursor.Cursor{}, err
	}

	return entries, cur, nil
}

// treeRequest builds the descriptor for one tree
// listing page.
func (c *Client) treeRequest(
	method string,
	opts treeOptions,
) (apiRequest, error) {
	if opts.Ref == "" {
		opts.Ref = c.branch
	}

	return apiRequest{
		method: method,
		path: c.projectPath(
			"repository", "tree",
		),
	}.withOptions(opts)
}

// ListFiles returns one page of files under path in
// ascending path order. The provider serves pages in
// descending name order, so the final wire page is
// fetched first and both the cursor and the in-page
// entry order are reversed; "next" on the returned
// cursor walks toward lower wire indices.
func (c *Client) ListFiles(
	ctx context.Context,
	path string,
	recursive bool,
) ([]store.FileRef, cursor.Cursor, error) {
	const errCtx = "listing files"

	probe, err := c.treeRequest(
		http.MethodHead,
		treeOptions{Path: path, Recursive: recursive},
	)
	if err != nil {
		return nil, cursor.Cursor{}, fmt.Errorf(
			"%s: %w", errCtx, err,
		)
	}

	// Head-only request to learn the page count and
	// the link to the final wire page.
	resp, err := c.do(ctx, probe.withNoCache())
	if err != nil {
		return nil, cursor.Cursor{}, fmt.Errorf(
			"%s: %w", errCtx, err,
		)
	}

	resp.Body.Close() //nolint:errcheck

	wireCur := cursorFromHeaders(resp.Header)

	var (
		entries []treeEntry
		pageCur cursor.Cursor
	)

	if last, ok := wireCur.Link(
		cursor.ActionLast,
	); ok {
		entries, pageCur, err = c.fetchTreePage(
			ctx, apiRequest{
				method: http.MethodGet,
				rawURL: last,
			},
		)
	} else {
		// Single page: refetch page one with a GET.
		var req apiRequest

		req, err = c.treeRequest(
			http.MethodGet,
			treeOptions{
				Path:      path,
				Recursive: recursive,
			},
		)
		if err == nil {
			entries, pageCur, err = c.fetchTreePage(
				ctx, req,
			)
		}
	}

	if err != nil {
		return nil, cursor.Cursor{}, fmt.Errorf(
			"%s: %w", errCtx, err,
		)
	}

	return filesFromTree(reverseEntries(entries)),
		pageCur.Reverse(),
		nil
}

// TraverseCursor follows one navigation action of a
// cursor previously returned by ListFiles and returns
// the page it leads to, again in ascending order.
func (c *Client) TraverseCursor(
	ctx context.Context,
	cur cursor.Cursor,
	action cursor.Action,
) ([]store.FileRef, cursor.Cursor, error) {
	const errCtx = "traversing cursor"

	link, ok := cur.Link(action)
	if !ok {
		return nil, cursor.Cursor{}, fmt.Errorf(
			"%s: no %q link on cursor",
			errCtx, action,
		)
	}

	entries, pageCur, err := c.fetchTreePage(
		ctx, apiRequest{
			method: http.MethodGet,
			rawURL: link,
		},
	)
	if err != nil {
		return nil, cursor.Cursor{}, fmt.Errorf(
			"%s: %w", errCtx, err,
		)
	}

	return filesFromTree(reverseEntries(entries)),
		pageCur.Reverse(),
		nil
}

// ListAllFiles returns every file under path by paging
// forward in wire order through the "next" links. No
// ordering is guaranteed; this feeds full-tree scans,
// not incremental UI pagination.
func (c *Client) ListAllFiles(
	ctx context.Context,
	path string,
	recursive bool,
) ([]store.FileRef, error) {
	const errCtx = "listing all files"

	req, err := c.treeRequest(
		http.MethodGet,
		treeOptions{
			Path:      path,
			Recursive: recursive,
			PerPage:   listPageSize,
		},
	)
	if err != nil {
		return nil, fmt.Errorf(
			"%s: %w", errCtx, err,
		)
	}

	var all []store.FileRef

	for {
		entries, wireCur, err := c.fetchTreePage(
			ctx, req,
		)
		if err != nil {
			return nil, fmt.Errorf(
				"%s: %w", errCtx, err,
			)
		}

		all = append(
			all, filesFromTree(entries)...,
		)

		next, ok := wireCur.Link(cursor.ActionNext)
		if !ok {
			return all, nil
		}

		req = apiRequest{
			method: http.MethodGet,
			rawURL: next,
		}
	}
}

// filesFromTree keeps regular files and drops
// directory entries.
func filesFromTree(
	entries []treeEntry,
) []store.FileRef {
	refs := make([]store.FileRef, 0, len(entries))

	for _, e := range entries {
		if e.Type != "blob" {
			continue
		}

		refs = append(refs, store.FileRef{
			Path: e.Path,
			ID:   e.ID,
		})
	}

	return refs
}

// reverseEntries returns the entries in opposite
// order; pages arrive wire-descending and are served
// ascending.
func reverseEntries(
	entries []treeEntry,
) []treeEntry {
	out := make([]treeEntry, len(entries))

	for i, e := range entries {
		out[len(entries)-1-i] = e
	}

	return out
}
