package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iliyamo/bookmyseat/internal/model"
	"github.com/iliyamo/bookmyseat/internal/repository"
)

// NewPromoteCommand creates the promote command, which grants the admin
// dashboard to an existing account.
func NewPromoteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:          "promote <email>",
		Short:        "Give a user the ADMIN role",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := rootOpts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			err = repository.NewUserRepo(db).SetRole(cmd.Context(), args[0], model.RoleAdmin)
			if errors.Is(err, repository.ErrUserNotFound) {
				return fmt.Errorf("no user with email %q", args[0])
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", args[0], model.RoleAdmin)
			return nil
		},
	}
}
