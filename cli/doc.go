// Package cli implements the gitstore command tree. Commands load the
// YAML configuration, build a GitLab-backed content store client, and
// expose listing, reading, persisting, and editorial-workflow operations
// from the command line.
package cli
