package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// NewRecalcCmd creates the recalc command
func NewRecalcCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recalc",
		Short: "Recompute stored daily calorie targets",
		Long:  "Normalize legacy activity-level spellings and recompute every user's daily calorie target with the current formula",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, zapLogger, err := openStore()
			if err != nil {
				return err
			}
			defer closeStore(store, zapLogger)

			updated, err := store.RecalcTargets(context.Background())
			if err != nil {
				return fmt.Errorf("recalculation failed: %w", err)
			}

			fmt.Printf("Recalculated daily targets for %d user(s).\n", updated)
			return nil
		},
	}
}
