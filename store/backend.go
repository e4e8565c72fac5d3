package store

import (
	"context"
	"fmt"

	"github.com/byte4ever/gitstore/store/cursor"
)

// Pattern: Strategy -- swap git hosting platform
// without changing content-store logic.

// File is a logical file carried through a persist
// batch or returned from a fetch.
type File struct {
	// Path is repository-relative, without a leading
	// slash.
	Path string
	// Data is the raw file content.
	Data []byte
}

// FileRef identifies a file discovered by a listing
// operation.
type FileRef struct {
	// Path is repository-relative.
	Path string
	// ID is the blob identifier reported by the
	// provider.
	ID string
}

// Status is the editorial state of an unpublished
// change.
type Status int

// Editorial workflow states, in pipeline order.
const (
	StatusDraft Status = iota
	StatusReview
	StatusReady
)

// String returns the wire-neutral status name.
func (s Status) String() string {
	switch s {
	case StatusDraft:
		return "draft"
	case StatusReview:
		return "pending_review"
	case StatusReady:
		return "pending_publish"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// ParseStatus maps a wire-neutral status name back to
// a Status.
func ParseStatus(name string) (Status, error) {
	switch name {
	case "draft":
		return StatusDraft, nil
	case "pending_review":
		return StatusReview, nil
	case "pending_publish":
		return StatusReady, nil
	default:
		return 0, fmt.Errorf(
			"unknown status %q", name,
		)
	}
}

// PersistOptions controls how a file batch is
// committed.
type PersistOptions struct {
	// CommitMessage is used verbatim as the commit
	// message and, under workflow, as the merge
	// request title.
	CommitMessage string
	// UseWorkflow routes the batch through the
	// editorial workflow instead of committing to
	// the base branch.
	UseWorkflow bool
	// NewEntry marks the first persist of a content
	// key; a workflow branch is created rather than
	// updated.
	NewEntry bool
	// Status is the editorial status for the change
	// (workflow only).
	Status Status
	// Collection and Slug identify the entry under
	// workflow.
	Collection string
	Slug       string
}

// DiffPath is one changed file in an unpublished
// change, relative to the base branch.
type DiffPath struct {
	OldPath string
	NewPath string
	New     bool
	Deleted bool
}

// UnpublishedEntry describes an in-progress editorial
// change.
type UnpublishedEntry struct {
	Collection string
	Slug       string
	Status     Status
	// Branch is the workflow branch holding the
	// change.
	Branch string
	// Diffs lists the files the change touches.
	Diffs []DiffPath
}

// User identifies the authenticated account.
type User struct {
	ID       int
	Name     string
	Username string
	Email    string
}

// Backend is the capability set a hosting provider
// must offer to act as a content store.
type Backend interface {
	// Authenticate verifies the token and that the
	// account has write access to the repository.
	Authenticate(ctx context.Context) (*User, error)

	// ListFiles returns one page of files under path
	// in ascending path order, plus a cursor for
	// further navigation.
	ListFiles(
		ctx context.Context,
		path string,
		recursive bool,
	) ([]FileRef, cursor.Cursor, error)

	// TraverseCursor follows one navigation action of
	// a cursor previously returned by ListFiles.
	TraverseCursor(
		ctx context.Context,
		cur cursor.Cursor,
		action cursor.Action,
	) ([]FileRef, cursor.Cursor, error)

	// ListAllFiles returns every file under path; no
	// ordering is guaranteed.
	ListAllFiles(
		ctx context.Context,
		path string,
		recursive bool,
	) ([]FileRef, error)

	// ReadFile returns the content of one file at
	// ref (empty ref means the base branch).
	ReadFile(
		ctx context.Context,
		path string,
		ref string,
	) ([]byte, error)

	// FetchFiles reads many files concurrently and
	// returns the subset that succeeded.
	FetchFiles(
		ctx context.Context,
		refs []FileRef,
		ref string,
	) ([]File, error)

	// PersistFiles commits a batch of files
	// atomically, via the editorial workflow when
	// opts request it.
	PersistFiles(
		ctx context.Context,
		files []File,
		opts PersistOptions,
	) error

	// DeleteFile removes a single file from the base
	// branch.
	DeleteFile(
		ctx context.Context,
		path string,
		commitMessage string,
	) error

	// UnpublishedEntries lists the content keys of
	// all in-progress editorial changes.
	UnpublishedEntries(
		ctx context.Context,
	) ([]string, error)

	// UnpublishedEntry describes one in-progress
	// editorial change.
	UnpublishedEntry(
		ctx context.Context,
		collection string,
		slug string,
	) (*UnpublishedEntry, error)

	// UpdateUnpublishedEntryStatus moves a change to
	// a new editorial status.
	UpdateUnpublishedEntryStatus(
		ctx context.Context,
		collection string,
		slug string,
		newStatus Status,
	) error

	// PublishUnpublishedEntry merges a change into
	// the base branch and removes its branch.
	PublishUnpublishedEntry(
		ctx context.Context,
		collection string,
		slug string,
	) error

	// DeleteUnpublishedEntry discards a change,
	// closing its merge request and deleting its
	// branch.
	DeleteUnpublishedEntry(
		ctx context.Context,
		collection string,
		slug string,
	) error
}
