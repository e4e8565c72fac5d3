// Package store defines the provider-neutral boundary between a content
// management application and a hosted-git repository used as a versioned
// content store.
//
// The Backend interface abstracts listing, reading, and atomically writing
// files, plus an editorial draft/review/publish workflow emulated on top of
// branches and merge requests. Implementations exist per hosting provider
// in sub-packages; the calling application depends only on this package.
package store
