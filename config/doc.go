// Package config loads the YAML configuration of the gitstore CLI and
// turns it into a GitLab client configuration plus commit-message
// templates. Missing fields receive defaults; the access token may come
// from the GITSTORE_TOKEN environment variable instead of the file.
package config
