package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var updateBalancesCmd = &cobra.Command{
	Use:   "update-balances",
	Short: "Recompute balances and refresh the balance cache",
	Example: `  # All accounts
  ledgerctl update-balances

  # Only some accounts
  ledgerctl update-balances --ids 1,2,3`,
	Args: cobra.NoArgs,
	RunE: runUpdateBalances,
}

func init() {
	rootCmd.AddCommand(updateBalancesCmd)
	updateBalancesCmd.Flags().Int64Slice("ids", nil, "Account ids to update (default: all accounts)")
}

func runUpdateBalances(cmd *cobra.Command, args []string) error {
	ids, _ := cmd.Flags().GetInt64Slice("ids")
	ctx := cmd.Context()

	l, err := openLedger(ctx)
	if err != nil {
		return err
	}
	defer l.Close(ctx)

	if len(ids) == 0 {
		ids = nil
	}
	n, err := l.services.Balances.UpdateBalances(ctx, ids)
	if err != nil {
		return fmt.Errorf("failed to update balances: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Updated %d balances\n", n)
	return nil
}
