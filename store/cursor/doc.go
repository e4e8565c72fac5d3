// Package cursor models opaque, immutable pagination state. A Cursor
// carries the set of navigation actions the provider currently offers,
// zero-based page arithmetic, and the follow-up link for each action.
//
// Cursors are values: every transformation returns a new Cursor and
// never mutates the receiver. Reverse relabels a cursor so that a
// provider paginating in descending order can be walked in ascending
// order; reversing twice reproduces the original cursor.
package cursor
