package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/byte4ever/gitstore/config"
	"github.com/byte4ever/gitstore/store/gitlab"
)

// version is set at build time via -ldflags.
var version = "dev"

// NewRootCmd creates the top-level `gitstore` command.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "gitstore",
		Short: "Use a hosted git repository as a versioned content store",
		Long: `gitstore treats a GitLab project as a versioned content store:
list and read files, commit batches atomically, and drive an editorial
draft/review/publish workflow built on branches and merge requests.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringP(
		"config", "c", "gitstore.yml",
		"Path to the configuration file",
	)

	root.AddCommand(newWhoamiCmd())
	root.AddCommand(newLsCmd())
	root.AddCommand(newCatCmd())
	root.AddCommand(newPutCmd())
	root.AddCommand(newStatusCmd())
	root.AddCommand(newPublishCmd())
	root.AddCommand(newDiscardCmd())
	root.AddCommand(newReviewCmd())

	return root
}

// Execute runs the root command.
func Execute() {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

// newBackend loads the configuration referenced by the
// command's --config flag and builds the client.
func newBackend(
	cmd *cobra.Command,
) (*gitlab.Client, *config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, nil, err
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}

	client, err := gitlab.NewClient(cfg.Backend())
	if err != nil {
		return nil, nil, err
	}

	return client, cfg, nil
}
