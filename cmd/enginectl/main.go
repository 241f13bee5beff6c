package main

import (
	"fmt"
	"os"

	"github.com/dynamo-works/claude-engine/cmd/enginectl/commands"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "enginectl",
		Short: "Engine operator CLI",
		Long: `Operator tooling for the engine: issue, list, revoke and rotate
API keys, and inspect monthly token budgets. Connects directly to the
database via --db-url or DATABASE_URL.`,
	}

	rootCmd.PersistentFlags().String("db-url", "", "database URL (defaults to DATABASE_URL)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")

	rootCmd.AddCommand(commands.NewKeyCommand())
	rootCmd.AddCommand(commands.NewBudgetCommand())

	return rootCmd
}
