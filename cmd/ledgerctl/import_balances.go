package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/sudosos-ledger/internal/config"
	"github.com/sudosos-ledger/internal/domain/money"
)

var importBalancesCmd = &cobra.Command{
	Use:   "import-balances <csv-file>",
	Short: "Import account balances from the previous system",
	Long: `Import books one system transfer per account carrying the signed legacy
balance. The file has two columns, account_id and amount in major units
(e.g. -12.50); a header row is optional. Accounts that already have an
imported balance are skipped, so the import can be re-run safely.`,
	Example: `  ledgerctl import-balances balances.csv --dry-run`,
	Args:    cobra.ExactArgs(1),
	RunE:    runImportBalances,
}

func init() {
	rootCmd.AddCommand(importBalancesCmd)
	importBalancesCmd.Flags().Bool("dry-run", false, "Validate the file without booking transfers")
}

type legacyBalance struct {
	AccountID int64
	Amount    money.Money
}

// parseLegacyBalances reads account_id,amount records. Every line is checked
// before anything is booked; duplicate accounts are rejected.
func parseLegacyBalances(r io.Reader, ledgerCfg config.LedgerConfig) ([]legacyBalance, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = 2
	reader.TrimLeadingSpace = true

	var (
		balances []legacyBalance
		seen     = make(map[int64]int)
		line     int
	)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if line == 1 && strings.EqualFold(strings.TrimSpace(record[0]), "account_id") {
			continue
		}

		id, err := strconv.ParseInt(strings.TrimSpace(record[0]), 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("line %d: invalid account id %q", line, record[0])
		}
		amount, err := money.Parse(strings.TrimSpace(record[1]), ledgerCfg.Currency, ledgerCfg.Precision)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if prev, ok := seen[id]; ok {
			return nil, fmt.Errorf("line %d: account %d already listed on line %d", line, id, prev)
		}
		seen[id] = line

		balances = append(balances, legacyBalance{AccountID: id, Amount: amount})
	}
	return balances, nil
}

func runImportBalances(cmd *cobra.Command, args []string) error {
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", args[0], err)
	}
	defer f.Close()

	balances, err := parseLegacyBalances(f, cfg.Ledger)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", args[0], err)
	}

	out := cmd.OutOrStdout()
	if dryRun {
		fmt.Fprintf(out, "%d balances valid, nothing booked\n", len(balances))
		return nil
	}

	ctx := cmd.Context()
	l, err := openLedger(ctx)
	if err != nil {
		return err
	}
	defer l.Close(ctx)

	imported, skipped := 0, 0
	for _, b := range balances {
		created, err := l.services.Transfers.ImportLegacyBalance(ctx, b.AccountID, b.Amount)
		if err != nil {
			return fmt.Errorf("account %d: %w (%d imported before the failure)", b.AccountID, err, imported)
		}
		if created {
			imported++
		} else {
			skipped++
		}
	}

	log.Info("Legacy balances imported", "imported", imported, "skipped", skipped)
	fmt.Fprintf(out, "Imported %d balances, skipped %d\n", imported, skipped)
	return nil
}
