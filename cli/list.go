package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newWhoamiCmd reports the authenticated account and
// verifies write access.
func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Verify the token and repository access",
		Args:  cobra.NoArgs,
		RunE: func(
			cmd *cobra.Command, _ []string,
		) error {
			client, _, err := newBackend(cmd)
			if err != nil {
				return err
			}

			user, err := client.Authenticate(
				cmd.Context(),
			)
			if err != nil {
				return err
			}

			fmt.Fprintf(
				cmd.OutOrStdout(),
				"%s (@%s)\n",
				user.Name, user.Username,
			)

			return nil
		},
	}
}

// newLsCmd lists files under a path.
func newLsCmd() *cobra.Command {
	var (
		recursive bool
		all       bool
	)

	cmd := &cobra.Command{
		Use:   "ls [path]",
		Short: "List files under a path",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(
			cmd *cobra.Command, args []string,
		) error {
			client, _, err := newBackend(cmd)
			if err != nil {
				return err
			}

			path := ""
			if len(args) == 1 {
				path = args[0]
			}

			ctx := cmd.Context()

			if all {
				refs, err := client.ListAllFiles(
					ctx, path, recursive,
				)
				if err != nil {
					return err
				}

				for _, ref := range refs {
					fmt.Fprintln(
						cmd.OutOrStdout(), ref.Path,
					)
				}

				return nil
			}

			refs, _, err := client.ListFiles(
				ctx, path, recursive,
			)
			if err != nil {
				return err
			}

			for _, ref := range refs {
				fmt.Fprintln(
					cmd.OutOrStdout(), ref.Path,
				)
			}

			return nil
		},
	}

	cmd.Flags().BoolVarP(
		&recursive, "recursive", "r", false,
		"Descend into subdirectories",
	)
	cmd.Flags().BoolVar(
		&all, "all", false,
		"Fetch every page instead of the first",
	)

	return cmd
}

// newCatCmd prints the content of one file.
func newCatCmd() *cobra.Command {
	var ref string

	cmd := &cobra.Command{
		Use:   "cat <path>",
		Short: "Print the content of a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(
			cmd *cobra.Command, args []string,
		) error {
			client, _, err := newBackend(cmd)
			if err != nil {
				return err
			}

			data, err := client.ReadFile(
				cmd.Context(), args[0], ref,
			)
			if err != nil {
				return err
			}

			_, err = cmd.OutOrStdout().Write(data)

			return err
		},
	}

	cmd.Flags().StringVar(
		&ref, "ref", "",
		"Branch, tag, or commit to read from",
	)

	return cmd
}
