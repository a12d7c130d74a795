package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// NewCleanupCmd creates the cleanup command
func NewCleanupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Remove corrupted meal records",
		Long:  "Delete meal records whose calorie value is not a positive integer",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, zapLogger, err := openStore()
			if err != nil {
				return err
			}
			defer closeStore(store, zapLogger)

			removed, err := store.CleanCorruptedData(context.Background())
			if err != nil {
				return fmt.Errorf("cleanup failed: %w", err)
			}

			if removed == 0 {
				fmt.Println("No corrupted meal records found.")
				return nil
			}
			fmt.Printf("Removed %d corrupted meal record(s).\n", removed)
			return nil
		},
	}
}
