package cmd

import (
	"fmt"

	"github.com/Mohsinsiddi/w3market/internal/ui"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show your local purchase history",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		records := newLedger().Records()
		out := cmd.OutOrStdout()
		if len(records) == 0 {
			fmt.Fprintln(out, ui.Info("No purchases yet."))
			fmt.Fprintln(out, ui.Hint("Browse items with: w3market items"))
			return nil
		}
		fmt.Fprintln(out, ui.HistoryTable(records, currency()).Render())
		fmt.Fprintln(out, ui.Meta(fmt.Sprintf("%d purchase(s), newest first", len(records))))
		return nil
	},
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete the local purchase history",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		ledger := newLedger()
		n := ledger.Len()
		if n == 0 {
			fmt.Fprintln(out, ui.Info("No purchases to clear."))
			return nil
		}
		if !prompter(cmd).ConfirmDanger(fmt.Sprintf("Delete %d purchase record(s)?", n)) {
			fmt.Fprintln(out, ui.Meta("Cancelled."))
			return nil
		}
		ledger.Clear()
		fmt.Fprintln(out, ui.Success("Purchase history cleared."))
		return nil
	},
}

func init() {
	historyCmd.AddCommand(historyClearCmd)
}
