package cursor

// Action is one pagination navigation action.
type Action string

// The four structural navigation actions.
const (
	ActionFirst Action = "first"
	ActionPrev  Action = "prev"
	ActionNext  Action = "next"
	ActionLast  Action = "last"
)

// reversed is the involutive action relabeling applied
// when a cursor changes direction.
var reversed = map[Action]Action{
	ActionFirst: ActionLast,
	ActionLast:  ActionFirst,
	ActionPrev:  ActionNext,
	ActionNext:  ActionPrev,
}

// Meta holds the page arithmetic of a cursor. All
// fields are zero-based, even when the provider counts
// pages from one.
type Meta struct {
	// Index is the current page, in [0, PageCount].
	Index int
	// PageCount is the index of the final page.
	PageCount int
	// PageSize is the number of entries per page.
	PageSize int
	// Count is the total number of entries across
	// all pages.
	Count int
}

// Cursor is an immutable snapshot of pagination state.
type Cursor struct {
	actions map[Action]struct{}
	links   map[Action]string
	meta    Meta
}

// New builds a cursor from page arithmetic and the
// follow-up link per action. The available action set
// is derived structurally from meta: first/prev exist
// iff the index is positive, next/last iff the index
// is below the final page.
func New(
	meta Meta,
	links map[Action]string,
) Cursor {
	actions := make(map[Action]struct{}, 4)

	if meta.Index > 0 {
		actions[ActionFirst] = struct{}{}
		actions[ActionPrev] = struct{}{}
	}

	if meta.Index < meta.PageCount {
		actions[ActionNext] = struct{}{}
		actions[ActionLast] = struct{}{}
	}

	cloned := make(map[Action]string, len(links))
	for k, v := range links {
		cloned[k] = v
	}

	return Cursor{
		actions: actions,
		links:   cloned,
		meta:    meta,
	}
}

// Meta returns the page arithmetic of the cursor.
func (c Cursor) Meta() Meta {
	return c.meta
}

// HasAction reports whether the action is currently
// available.
func (c Cursor) HasAction(a Action) bool {
	_, ok := c.actions[a]

	return ok
}

// Actions returns the currently available action set.
func (c Cursor) Actions() []Action {
	out := make([]Action, 0, len(c.actions))

	for _, a := range []Action{
		ActionFirst,
		ActionPrev,
		ActionNext,
		ActionLast,
	} {
		if _, ok := c.actions[a]; ok {
			out = append(out, a)
		}
	}

	return out
}

// Link returns the follow-up link for an action, and
// whether one exists.
func (c Cursor) Link(a Action) (string, bool) {
	link, ok := c.links[a]

	return link, ok
}

// Reverse returns a new cursor describing the same
// remote state walked in the opposite direction: the
// index is mirrored against the final page and each
// action is relabeled through the first<->last,
// prev<->next involution. Reverse(Reverse(c)) equals
// c.
func (c Cursor) Reverse() Cursor {
	actions := make(
		map[Action]struct{}, len(c.actions),
	)
	for a := range c.actions {
		actions[reversed[a]] = struct{}{}
	}

	links := make(map[Action]string, len(c.links))
	for a, link := range c.links {
		links[reversed[a]] = link
	}

	meta := c.meta
	meta.Index = meta.PageCount - meta.Index

	return Cursor{
		actions: actions,
		links:   links,
		meta:    meta,
	}
}

// Equal reports whether two cursors carry the same
// actions, links, and meta.
func (c Cursor) Equal(o Cursor) bool {
	if c.meta != o.meta {
		return false
	}

	if len(c.actions) != len(o.actions) ||
		len(c.links) != len(o.links) {
		return false
	}

	for a := range c.actions {
		if _, ok := o.actions[a]; !ok {
			return false
		}
	}

	for a, link := range c.links {
		if o.links[a] != link {
			return false
		}
	}

	return true
}
