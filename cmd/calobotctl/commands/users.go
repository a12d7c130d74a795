package commands

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/dkotenko/calobot/internal/database"
)

// NewUsersCmd creates the users command with show and delete subcommands.
func NewUsersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Inspect or delete individual users",
	}
	cmd.AddCommand(newUsersShowCmd())
	cmd.AddCommand(newUsersDeleteCmd())
	return cmd
}

func newUsersShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print a user's profile and the most recent meals",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseUserID(args[0])
			if err != nil {
				return err
			}

			store, zapLogger, err := openStore()
			if err != nil {
				return err
			}
			defer closeStore(store, zapLogger)

			ctx := context.Background()
			profile, err := store.GetUser(ctx, userID)
			if err != nil {
				if errors.Is(err, database.ErrNotFound) {
					return fmt.Errorf("user %d not found", userID)
				}
				return fmt.Errorf("failed to load user: %w", err)
			}

			fmt.Printf("User %d:\n", profile.UserID)
			if profile.Username != "" {
				fmt.Printf("  Username: %s\n", profile.Username)
			}
			fmt.Printf("  Name: %s\n", profile.Name)
			fmt.Printf("  Gender: %s\n", profile.Gender)
			fmt.Printf("  Age: %d\n", profile.Age)
			fmt.Printf("  Height: %.1f cm\n", profile.Height)
			fmt.Printf("  Weight: %.1f kg\n", profile.Weight)
			fmt.Printf("  Activity: %s\n", profile.ActivityLevel)
			fmt.Printf("  Daily target: %d kcal\n", profile.DailyCalories)
			fmt.Printf("  Created: %s\n", profile.CreatedAt.Format("2006-01-02 15:04:05"))
			fmt.Printf("  Updated: %s\n", profile.UpdatedAt.Format("2006-01-02 15:04:05"))

			meals, err := store.GetMealHistory(ctx, userID, 10)
			if err != nil {
				return fmt.Errorf("failed to load meal history: %w", err)
			}
			if len(meals) == 0 {
				fmt.Println("  No meal records.")
				return nil
			}
			fmt.Printf("  Last %d meal(s):\n", len(meals))
			for _, meal := range meals {
				fmt.Printf("    %s  %5d kcal  %-5s  %s\n",
					meal.CreatedAt.Format("2006-01-02 15:04"), meal.Calories, meal.Source, meal.FoodName)
			}
			return nil
		},
	}
}

func newUsersDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a user's profile and all meal records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseUserID(args[0])
			if err != nil {
				return err
			}

			store, zapLogger, err := openStore()
			if err != nil {
				return err
			}
			defer closeStore(store, zapLogger)

			if err := store.ResetAllUserData(context.Background(), userID); err != nil {
				return fmt.Errorf("failed to delete user data: %w", err)
			}

			fmt.Printf("Deleted all data for user %d.\n", userID)
			return nil
		},
	}
}

func parseUserID(raw string) (int64, error) {
	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || userID <= 0 {
		return 0, fmt.Errorf("invalid user id %q", raw)
	}
	return userID, nil
}
