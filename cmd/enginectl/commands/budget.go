package commands

import (
	"fmt"

	"github.com/dynamo-works/claude-engine/internal/catalog"
	"github.com/dynamo-works/claude-engine/internal/services/budget"
	"github.com/spf13/cobra"
)

func NewBudgetCommand() *cobra.Command {
	budgetCmd := &cobra.Command{
		Use:   "budget",
		Short: "Inspect monthly token budgets",
	}

	budgetCmd.AddCommand(newBudgetShowCommand())
	budgetCmd.AddCommand(newBudgetSummaryCommand())

	return budgetCmd
}

func newBudgetShowCommand() *cobra.Command {
	var role string

	cmd := &cobra.Command{
		Use:   "show <user-id>",
		Short: "Show one user's budget for the current period",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB(cmd)
			if err != nil {
				return err
			}

			svc := budget.NewService(db, nil, newCLILogger())
			st, err := svc.GetUserBudget(cmd.Context(), args[0], role)
			if err != nil {
				return err
			}

			if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
				return printJSON(st)
			}

			limit := "unlimited"
			if st.MonthlyLimit != nil {
				limit = fmt.Sprintf("%d", *st.MonthlyLimit)
			}
			fmt.Printf("User:    %s (%s)\n", st.UserID, st.Role)
			fmt.Printf("Usage:   %d / %s (%d%%)\n", st.CurrentUsage, limit, st.PercentUsed)
			fmt.Printf("Resets:  %s\n", st.ResetDate)
			if st.Exceeded {
				fmt.Println("Status:  EXCEEDED")
			} else if st.Warning {
				fmt.Println("Status:  warning")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&role, "role", catalog.DefaultRole, "role used for the limit")
	return cmd
}

func newBudgetSummaryCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Show every user's counter for the current period",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB(cmd)
			if err != nil {
				return err
			}

			svc := budget.NewService(db, nil, newCLILogger())
			rows, err := svc.AdminSummary(cmd.Context())
			if err != nil {
				return err
			}

			if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
				return printJSON(rows)
			}

			for _, r := range rows {
				limit := "unlimited"
				if r.MonthlyLimit != nil {
					limit = fmt.Sprintf("%d", *r.MonthlyLimit)
				}
				marker := ""
				if r.Exceeded {
					marker = "  EXCEEDED"
				}
				fmt.Printf("%-24s %-12s %12d / %-12s %3d%%%s\n",
					r.UserID, r.Role, r.CurrentUsage, limit, r.PercentUsed, marker)
			}
			return nil
		},
	}
}
