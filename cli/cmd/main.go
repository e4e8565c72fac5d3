// Command gitstore drives a GitLab project as a
// versioned content store: listing, reading, and
// committing files, and managing editorial changes
// built on branches and merge requests.
package main

import "github.com/byte4ever/gitstore/cli"

func main() {
	cli.Execute()
}
