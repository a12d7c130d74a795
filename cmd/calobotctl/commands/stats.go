package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// NewStatsCmd creates the stats command
func NewStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print stored row counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, zapLogger, err := openStore()
			if err != nil {
				return err
			}
			defer closeStore(store, zapLogger)

			stats, err := store.Stats(context.Background())
			if err != nil {
				return fmt.Errorf("failed to read stats: %w", err)
			}

			fmt.Println("Database statistics:")
			fmt.Printf("  Users: %d\n", stats.Users)
			fmt.Printf("  Meals: %d\n", stats.Meals)
			return nil
		},
	}
}
