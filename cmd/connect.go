package cmd

import (
	"fmt"

	"github.com/Mohsinsiddi/w3market/internal/chain"
	"github.com/Mohsinsiddi/w3market/internal/ui"
	"github.com/spf13/cobra"
)

var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Connect a wallet and show its account and balance",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := currentNetwork()
		if err != nil {
			return err
		}
		s, err := dialSession(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, ui.Banner())
		fmt.Fprintln(out, ui.KeyValueBlock("Connected", [][2]string{
			{"Account", s.Address.Hex()},
			{"Balance", chain.FormatEther(s.Balance) + " " + n.NativeCurrency},
			{"Network", fmt.Sprintf("%s (chain %d)", n.DisplayName, n.ChainID)},
			{"Marketplace", cfg.ContractAddress},
		}))
		return nil
	},
}
