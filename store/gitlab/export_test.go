package gitlab

import "time"

// Exported aliases for testing internal types and
// functions from the gitlab_test package.

// BranchFromContentKeyForTest exposes
// branchFromContentKey.
var BranchFromContentKeyForTest = branchFromContentKey

// ContentKeyFromBranchForTest exposes
// contentKeyFromBranch.
var ContentKeyFromBranchForTest = contentKeyFromBranch

// ParseLinkHeaderForTest exposes parseLinkHeader.
var ParseLinkHeaderForTest = parseLinkHeader

// CursorFromHeadersForTest exposes cursorFromHeaders.
var CursorFromHeadersForTest = cursorFromHeaders

// SetRebasePollForTest shrinks the rebase poll loop so
// tests do not wait on the production interval.
func (c *Client) SetRebasePollForTest(
	attempts int,
	interval time.Duration,
) {
	c.rebaseAttempts = attempts
	c.rebaseInterval = interval
}
