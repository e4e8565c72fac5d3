// Package gitlab implements store.Backend against the GitLab REST API.
//
// A Client scopes every call to one project and talks only through the
// HTTP API; there is no local repository. Listing operations hide the
// provider's descending page order behind a reversed cursor, file
// fetches are bounded by a counting semaphore, and the editorial
// draft/review/publish workflow is emulated with workflow branches,
// labeled merge requests, and a bounded rebase-retry loop.
package gitlab
