package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/byte4ever/gitstore/store"
	"github.com/byte4ever/gitstore/store/commitmsg"
)

// newPutCmd persists one or more files as a single
// atomic commit, through the editorial workflow when
// the configuration enables it.
func newPutCmd() *cobra.Command {
	var (
		message   string
		statusArg string
		newEntry  bool
	)

	cmd := &cobra.Command{
		Use:   "put <collection> <slug> <file>...",
		Short: "Persist files as one atomic commit",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(
			cmd *cobra.Command, args []string,
		) error {
			client, cfg, err := newBackend(cmd)
			if err != nil {
				return err
			}

			collection, slug := args[0], args[1]

			var files []store.File

			for _, name := range args[2:] {
				data, err := os.ReadFile(name) //nolint:gosec
				if err != nil {
					return fmt.Errorf(
						"reading %s: %w", name, err,
					)
				}

				files = append(files, store.File{
					Path: filepath.ToSlash(name),
					Data: data,
				})
			}

			status := store.StatusDraft
			if statusArg != "" {
				status, err = store.ParseStatus(
					statusArg,
				)
				if err != nil {
					return err
				}
			}

			if message == "" {
				kind := commitmsg.KindUpdate
				if newEntry {
					kind = commitmsg.KindCreate
				}

				message = cfg.Templates().Render(
					kind, commitmsg.Vars{
						Collection: collection,
						Slug:       slug,
						Author:     cfg.Author.Name,
					},
				)
			}

			return client.PersistFiles(
				cmd.Context(), files,
				store.PersistOptions{
					CommitMessage: message,
					UseWorkflow:   cfg.EditorialWorkflow,
					NewEntry:      newEntry,
					Status:        status,
					Collection:    collection,
					Slug:          slug,
				},
			)
		},
	}

	cmd.Flags().StringVarP(
		&message, "message", "m", "",
		"Commit message (default from templates)",
	)
	cmd.Flags().StringVar(
		&statusArg, "status", "",
		"Initial editorial status",
	)
	cmd.Flags().BoolVar(
		&newEntry, "new", false,
		"First persist of this entry",
	)

	return cmd
}

// newStatusCmd moves an unpublished entry to a new
// editorial status.
func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <collection> <slug> <status>",
		Short: "Change the editorial status of an entry",
		Args:  cobra.ExactArgs(3),
		RunE: func(
			cmd *cobra.Command, args []string,
		) error {
			client, _, err := newBackend(cmd)
			if err != nil {
				return err
			}

			status, err := store.ParseStatus(args[2])
			if err != nil {
				return err
			}

			return client.UpdateUnpublishedEntryStatus(
				cmd.Context(),
				args[0], args[1], status,
			)
		},
	}
}

// newPublishCmd merges an unpublished entry into the
// base branch.
func newPublishCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "publish <collection> <slug>",
		Short: "Publish an unpublished entry",
		Args:  cobra.ExactArgs(2),
		RunE: func(
			cmd *cobra.Command, args []string,
		) error {
			client, _, err := newBackend(cmd)
			if err != nil {
				return err
			}

			return client.PublishUnpublishedEntry(
				cmd.Context(), args[0], args[1],
			)
		},
	}
}

// newDiscardCmd discards an unpublished entry.
func newDiscardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "discard <collection> <slug>",
		Short: "Discard an unpublished entry",
		Args:  cobra.ExactArgs(2),
		RunE: func(
			cmd *cobra.Command, args []string,
		) error {
			client, _, err := newBackend(cmd)
			if err != nil {
				return err
			}

			return client.DeleteUnpublishedEntry(
				cmd.Context(), args[0], args[1],
			)
		},
	}
}

// newReviewCmd lists all unpublished entries with
// their status and touched files.
func newReviewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "review",
		Short: "List unpublished entries",
		Args:  cobra.NoArgs,
		RunE: func(
			cmd *cobra.Command, _ []string,
		) error {
			client, _, err := newBackend(cmd)
			if err != nil {
				return err
			}

			ctx := cmd.Context()

			keys, err := client.UnpublishedEntries(
				ctx,
			)
			if err != nil {
				return err
			}

			for _, key := range keys {
				collection, slug, err :=
					store.SplitKey(key)
				if err != nil {
					continue
				}

				entry, err := client.UnpublishedEntry(
					ctx, collection, slug,
				)
				if err != nil {
					return err
				}

				fmt.Fprintf(
					cmd.OutOrStdout(),
					"%s\t%s\t%d file(s)\n",
					key,
					entry.Status.String(),
					len(entry.Diffs),
				)
			}

			return nil
		},
	}
}
