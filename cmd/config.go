package cmd

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/Mohsinsiddi/w3market/internal/chain"
	"github.com/Mohsinsiddi/w3market/internal/errs"
	"github.com/Mohsinsiddi/w3market/internal/ui"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s\n\n", ui.StyleTitle.Render("Current Configuration"))
		fmt.Fprintln(out, string(data))
		if n, err := currentNetwork(); err == nil {
			fmt.Fprintln(out, ui.Meta(fmt.Sprintf("RPC in use: %s (chain %d)", rpcURL(n), n.ChainID)))
		}
		fmt.Fprintln(out, ui.Meta("Config directory: "+cfg.Dir()))
		return nil
	},
}

var configSetRPCCmd = &cobra.Command{
	Use:   "set-rpc <url>",
	Short: `Override the network's RPC endpoint ("" restores the default)`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw := args[0]
		if raw != "" {
			u, err := url.Parse(raw)
			if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
				return errs.Validation("invalid RPC URL %q", raw)
			}
		}
		cfg.RPCURL = raw
		if err := cfg.Save(); err != nil {
			return err
		}
		if raw == "" {
			fmt.Fprintln(cmd.OutOrStdout(), ui.Success("RPC override removed"))
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), ui.Success("RPC set to "+raw))
		}
		return nil
	},
}

var configSetContractCmd = &cobra.Command{
	Use:   "set-contract <address>",
	Short: "Set the marketplace contract address",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !common.IsHexAddress(args[0]) {
			return errs.Validation("invalid contract address %q", args[0])
		}
		cfg.ContractAddress = common.HexToAddress(args[0]).Hex()
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.Success("Marketplace contract set to "+cfg.ContractAddress))
		return nil
	},
}

var configSetNetworkCmd = &cobra.Command{
	Use:   "set-network <name>",
	Short: "Set the default network",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := chain.NewRegistry().GetByName(args[0])
		if err != nil {
			var names []string
			for _, known := range chain.NewRegistry().All() {
				names = append(names, known.Name)
			}
			return errs.Validation("unknown network %q (known: %v)", args[0], names)
		}
		cfg.Network = n.Name
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.Success(fmt.Sprintf("Network set to %s (chain %d)", ui.ChainName(n.DisplayName), n.ChainID)))
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd, configSetRPCCmd, configSetContractCmd, configSetNetworkCmd)
}
