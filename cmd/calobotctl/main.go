package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dkotenko/calobot/cmd/calobotctl/commands"
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "calobotctl",
		Short: "Maintenance tool for the calobot storage",
		Long:  "CLI tool for schema migration, data repair, and inspection of the calobot database",
	}

	rootCmd.AddCommand(commands.NewMigrateCmd())
	rootCmd.AddCommand(commands.NewCleanupCmd())
	rootCmd.AddCommand(commands.NewStatsCmd())
	rootCmd.AddCommand(commands.NewRecalcCmd())
	rootCmd.AddCommand(commands.NewPurgeCmd())
	rootCmd.AddCommand(commands.NewUsersCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
