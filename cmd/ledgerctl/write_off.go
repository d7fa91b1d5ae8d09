package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var writeOffCmd = &cobra.Command{
	Use:   "write-off <account-id>...",
	Short: "Write off the negative balance of inactive accounts",
	Long: `Write off settles the negative balance of each given account with a
transfer from the system and deactivates the account. Accounts with a zero or
positive balance are reported and skipped.`,
	Example: `  ledgerctl write-off 42 43`,
	Args:    cobra.MinimumNArgs(1),
	RunE:    runWriteOff,
}

func init() {
	rootCmd.AddCommand(writeOffCmd)
}

func runWriteOff(cmd *cobra.Command, args []string) error {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := strconv.ParseInt(arg, 10, 64)
		if err != nil || id <= 0 {
			return fmt.Errorf("invalid account id %q", arg)
		}
		ids = append(ids, id)
	}

	ctx := cmd.Context()
	l, err := openLedger(ctx)
	if err != nil {
		return err
	}
	defer l.Close(ctx)

	out := cmd.OutOrStdout()
	failed := 0
	for _, id := range ids {
		w, err := l.services.WriteOffs.CreateWriteOff(ctx, id)
		if err != nil {
			failed++
			fmt.Fprintf(out, "account %d: %v\n", id, err)
			continue
		}
		fmt.Fprintf(out, "account %d: written off %s (write-off %d)\n", id, w.Amount.String(), w.ID)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d write-offs failed", failed, len(ids))
	}
	return nil
}
