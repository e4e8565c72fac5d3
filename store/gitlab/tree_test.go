package gitlab_test

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byte4ever/gitstore/store"
	"github.com/byte4ever/gitstore/store/cursor"
	gl "github.com/byte4ever/gitstore/store/gitlab"
)

const treePath = "/api/v4/projects/org/site/repository/tree"

// blob builds one tree entry.
func blob(path string) map[string]any {
	return map[string]any{
		"id":   "sha-" + path,
		"name": path,
		"path": path,
		"type": "blob",
	}
}

// tree builds one directory entry.
func tree(path string) map[string]any {
	return map[string]any{
		"id":   "sha-" + path,
		"name": path,
		"path": path,
		"type": "tree",
	}
}

func TestParseLinkHeader(t *testing.T) {
	t.Parallel()

	links := gl.ParseLinkHeaderForTest(
		`<https://x/p2>; rel="next", ` +
			`<https://x/p5>; rel="last", ` +
			`<https://x/self>; rel="self"`,
	)

	assert.Equal(t, map[cursor.Action]string{
		cursor.ActionNext: "https://x/p2",
		cursor.ActionLast: "https://x/p5",
	}, links)
}

func TestParseLinkHeader_empty(t *testing.T) {
	t.Parallel()

	assert.Empty(t, gl.ParseLinkHeaderForTest(""))
}

func TestCursorFromHeaders(t *testing.T) {
	t.Parallel()

	h := http.Header{}
	h.Set("X-Page", "3")
	h.Set("X-Total-Pages", "5")
	h.Set("X-Per-Page", "20")
	h.Set("X-Total", "90")
	h.Set(
		"Link",
		`<https://x/p4>; rel="next", `+
			`<https://x/p5>; rel="last"`,
	)

	cur := gl.CursorFromHeadersForTest(h)

	// One-based wire pages become zero-based.
	assert.Equal(t, cursor.Meta{
		Index:     2,
		PageCount: 4,
		PageSize:  20,
		Count:     90,
	}, cur.Meta())

	assert.True(t, cur.HasAction(cursor.ActionNext))
	assert.True(t, cur.HasAction(cursor.ActionPrev))
}

func TestCursorFromHeaders_missing(t *testing.T) {
	t.Parallel()

	cur := gl.CursorFromHeadersForTest(http.Header{})

	assert.Equal(t, cursor.Meta{}, cur.Meta())
	assert.Empty(t, cur.Actions())
}

// treeHandler serves a three-page descending listing:
// page 1 holds f,e; page 2 d,c; page 3 b,a plus a
// directory entry.
func treeHandler(
	t *testing.T,
) http.HandlerFunc {
	t.Helper()

	pages := map[string][]map[string]any{
		"1": {blob("f.md"), blob("e.md")},
		"2": {blob("d.md"), blob("c.md")},
		"3": {blob("b.md"), tree("img"), blob("a.md")},
	}

	return func(
		w http.ResponseWriter, r *http.Request,
	) {
		require.Equal(t, treePath, r.URL.Path)

		page := r.URL.Query().Get("page")
		if page == "" {
			page = "1"
		}

		base := "http://" + r.Host + treePath +
			"?per_page=2&page="

		w.Header().Set("X-Page", page)
		w.Header().Set("X-Total-Pages", "3")
		w.Header().Set("X-Per-Page", "2")
		w.Header().Set("X-Total", "6")

		var links string

		switch page {
		case "1":
			links = fmt.Sprintf(
				`<%s2>; rel="next", <%s3>; rel="last"`,
				base, base,
			)
		case "2":
			links = fmt.Sprintf(
				`<%s1>; rel="first", `+
					`<%s1>; rel="prev", `+
					`<%s3>; rel="next", `+
					`<%s3>; rel="last"`,
				base, base, base, base,
			)
		case "3":
			links = fmt.Sprintf(
				`<%s1>; rel="first", <%s2>; rel="prev"`,
				base, base,
			)
		}

		w.Header().Set("Link", links)

		writeJSON(t, w, http.StatusOK, pages[page])
	}
}

func TestListFiles_ascending_order(t *testing.T) {
	t.Parallel()

	client := newTestClient(
		t, gl.Config{Token: "tok"}, treeHandler(t),
	)

	refs, cur, err := client.ListFiles(
		context.Background(), "", false,
	)
	require.NoError(t, err)

	// The provider serves descending order; the
	// caller sees the final wire page, ascending,
	// directories dropped.
	assert.Equal(t, []store.FileRef{
		{Path: "a.md", ID: "sha-a.md"},
		{Path: "b.md", ID: "sha-b.md"},
	}, refs)

	// The reversed cursor starts at the caller's
	// first page.
	assert.Equal(t, 0, cur.Meta().Index)
	assert.True(t, cur.HasAction(cursor.ActionNext))
	assert.False(t, cur.HasAction(cursor.ActionPrev))
}

func TestTraverseCursor_next_page(t *testing.T) {
	t.Parallel()

	client := newTestClient(
		t, gl.Config{Token: "tok"}, treeHandler(t),
	)

	ctx := context.Background()

	_, cur, err := client.ListFiles(ctx, "", false)
	require.NoError(t, err)

	refs, cur, err := client.TraverseCursor(
		ctx, cur, cursor.ActionNext,
	)
	require.NoError(t, err)

	// "next" from the caller walks toward lower
	// wire pages.
	assert.Equal(t, []store.FileRef{
		{Path: "c.md", ID: "sha-c.md"},
		{Path: "d.md", ID: "sha-d.md"},
	}, refs)

	assert.Equal(t, 1, cur.Meta().Index)
	assert.True(t, cur.HasAction(cursor.ActionPrev))
	assert.True(t, cur.HasAction(cursor.ActionNext))
}

func TestTraverseCursor_missing_action(t *testing.T) {
	t.Parallel()

	client := newTestClient(
		t, gl.Config{Token: "tok"}, treeHandler(t),
	)

	_, _, err := client.TraverseCursor(
		context.Background(),
		cursor.Cursor{},
		cursor.ActionNext,
	)

	assert.ErrorContains(t, err, "no \"next\" link")
}

func TestListFiles_single_page(t *testing.T) {
	t.Parallel()

	client := newTestClient(
		t,
		gl.Config{Token: "tok"},
		func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Page", "1")
			w.Header().Set("X-Total-Pages", "1")
			w.Header().Set("X-Per-Page", "20")
			w.Header().Set("X-Total", "2")

			writeJSON(t, w, http.StatusOK,
				[]map[string]any{
					blob("b.md"), blob("a.md"),
				},
			)
		},
	)

	refs, cur, err := client.ListFiles(
		context.Background(), "", false,
	)
	require.NoError(t, err)

	assert.Equal(
		t, []string{"a.md", "b.md"},
		[]string{refs[0].Path, refs[1].Path},
	)
	assert.Empty(t, cur.Actions())
}

func TestListAllFiles_all_pages(t *testing.T) {
	t.Parallel()

	var perPages []string

	handler := treeHandler(t)

	client := newTestClient(
		t,
		gl.Config{Token: "tok"},
		func(w http.ResponseWriter, r *http.Request) {
			perPages = append(
				perPages,
				r.URL.Query().Get("per_page"),
			)

			handler(w, r)
		},
	)

	refs, err := client.ListAllFiles(
		context.Background(), "", true,
	)
	require.NoError(t, err)

	// All six files, exactly once each, regardless
	// of the page size.
	unique := make(map[string]struct{})
	for _, ref := range refs {
		unique[ref.Path] = struct{}{}
	}

	assert.Len(t, refs, 6)
	assert.Len(t, unique, 6)

	// The initial scan request asks for the largest
	// page size available.
	require.NotEmpty(t, perPages)
	assert.Equal(t, "100", perPages[0])
}
