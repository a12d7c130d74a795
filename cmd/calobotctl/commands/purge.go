package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// NewPurgeCmd creates the purge command
func NewPurgeCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete all users and meal records",
		Long:  "Delete every row from both tables. Irreversible; requires --yes.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to purge without --yes")
			}

			store, zapLogger, err := openStore()
			if err != nil {
				return err
			}
			defer closeStore(store, zapLogger)

			users, meals, err := store.PurgeAll(context.Background())
			if err != nil {
				return fmt.Errorf("purge failed: %w", err)
			}

			fmt.Printf("Deleted %d user(s) and %d meal record(s).\n", users, meals)
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm deletion of all data")
	return cmd
}
