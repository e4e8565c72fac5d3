package cursor_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byte4ever/gitstore/store/cursor"
)

func TestNew_first_page_actions(t *testing.T) {
	t.Parallel()

	cur := cursor.New(
		cursor.Meta{Index: 0, PageCount: 4},
		nil,
	)

	assert.False(t, cur.HasAction(cursor.ActionFirst))
	assert.False(t, cur.HasAction(cursor.ActionPrev))
	assert.True(t, cur.HasAction(cursor.ActionNext))
	assert.True(t, cur.HasAction(cursor.ActionLast))
}

func TestNew_last_page_actions(t *testing.T) {
	t.Parallel()

	cur := cursor.New(
		cursor.Meta{Index: 4, PageCount: 4},
		nil,
	)

	assert.True(t, cur.HasAction(cursor.ActionFirst))
	assert.True(t, cur.HasAction(cursor.ActionPrev))
	assert.False(t, cur.HasAction(cursor.ActionNext))
	assert.False(t, cur.HasAction(cursor.ActionLast))
}

func TestNew_middle_page_actions(t *testing.T) {
	t.Parallel()

	cur := cursor.New(
		cursor.Meta{Index: 2, PageCount: 4},
		nil,
	)

	assert.Len(t, cur.Actions(), 4)
}

func TestNew_single_page_actions(t *testing.T) {
	t.Parallel()

	cur := cursor.New(
		cursor.Meta{Index: 0, PageCount: 0},
		nil,
	)

	assert.Empty(t, cur.Actions())
}

func TestReverse_relabels_actions_and_links(
	t *testing.T,
) {
	t.Parallel()

	cur := cursor.New(
		cursor.Meta{
			Index:     4,
			PageCount: 4,
			PageSize:  20,
			Count:     90,
		},
		map[cursor.Action]string{
			cursor.ActionFirst: "https://x/p1",
			cursor.ActionPrev:  "https://x/p4",
		},
	)

	rev := cur.Reverse()

	// The wire-final page becomes the caller's first
	// page.
	assert.Equal(t, 0, rev.Meta().Index)
	assert.True(t, rev.HasAction(cursor.ActionNext))
	assert.True(t, rev.HasAction(cursor.ActionLast))
	assert.False(t, rev.HasAction(cursor.ActionPrev))

	link, ok := rev.Link(cursor.ActionNext)
	require.True(t, ok)
	assert.Equal(t, "https://x/p4", link)

	link, ok = rev.Link(cursor.ActionLast)
	require.True(t, ok)
	assert.Equal(t, "https://x/p1", link)
}

func TestReverse_twice_is_identity(t *testing.T) {
	t.Parallel()

	// reverse(reverse(c)) == c for index, actions,
	// and link mapping.
	for index := 0; index <= 4; index++ {
		cur := cursor.New(
			cursor.Meta{
				Index:     index,
				PageCount: 4,
				PageSize:  20,
				Count:     90,
			},
			map[cursor.Action]string{
				cursor.ActionFirst: "https://x/p1",
				cursor.ActionNext:  "https://x/next",
				cursor.ActionLast:  "https://x/p5",
			},
		)

		back := cur.Reverse().Reverse()

		assert.True(
			t, cur.Equal(back),
			"index %d", index,
		)
		assert.Equal(
			t, cur.Meta(), back.Meta(),
		)
	}
}

func TestReverse_keeps_structural_consistency(
	t *testing.T,
) {
	t.Parallel()

	cur := cursor.New(
		cursor.Meta{Index: 1, PageCount: 3},
		nil,
	)

	rev := cur.Reverse()

	// Mirrored index still satisfies the action
	// derivation rules.
	assert.Equal(t, 2, rev.Meta().Index)
	assert.True(t, rev.HasAction(cursor.ActionPrev))
	assert.True(t, rev.HasAction(cursor.ActionNext))
}

func TestEqual_detects_differences(t *testing.T) {
	t.Parallel()

	a := cursor.New(
		cursor.Meta{Index: 1, PageCount: 3},
		map[cursor.Action]string{
			cursor.ActionNext: "https://x/p3",
		},
	)
	b := cursor.New(
		cursor.Meta{Index: 1, PageCount: 3},
		map[cursor.Action]string{
			cursor.ActionNext: "https://x/other",
		},
	)

	assert.False(t, a.Equal(b))
	assert.True(t, a.Equal(a))
}
