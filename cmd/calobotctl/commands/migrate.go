package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewMigrateCmd creates the migrate command
func NewMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the schema and run migrations",
		Long:  "Create the database schema and apply idempotent migrations, then exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, zapLogger, err := openStore()
			if err != nil {
				return err
			}
			defer closeStore(store, zapLogger)

			fmt.Println("Schema created and migrations applied.")
			return nil
		},
	}
}
