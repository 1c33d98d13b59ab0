package cmd

import (
	"fmt"

	"github.com/Mohsinsiddi/w3market/internal/ui"
	"github.com/Mohsinsiddi/w3market/internal/wallet"
	"github.com/spf13/cobra"
)

var walletKeyFlag string

var walletCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Manage wallets",
}

var walletAddCmd = &cobra.Command{
	Use:   "add <name> [address]",
	Short: "Add a wallet",
	Long: `Add a signing wallet from a private key, or a watch-only wallet from an
address. Private keys are kept in the OS keychain (an encrypted file under
the config directory on headless systems).

  w3market wallet add alice --key 0x59c6…        # can list, buy and transfer
  w3market wallet add shop 0x3C44…               # read-only browsing`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		mgr := newWalletManager()
		out := cmd.OutOrStdout()

		if walletKeyFlag != "" {
			if err := mgr.AddWithKey(name, walletKeyFlag); err != nil {
				return err
			}
			w, _ := mgr.Get(name)
			fmt.Fprintln(out, ui.Success(fmt.Sprintf("Signing wallet %q added: %s", name, ui.Addr(w.Address))))
		} else {
			if len(args) < 2 {
				return fmt.Errorf("address required for watch-only wallet\n  Usage: w3market wallet add <name> <address>\n  Or for signing: w3market wallet add <name> --key <private-key>")
			}
			if err := mgr.Add(name, &wallet.Wallet{Address: args[1], Type: wallet.TypeWatchOnly}); err != nil {
				return err
			}
			w, _ := mgr.Get(name)
			fmt.Fprintln(out, ui.Success(fmt.Sprintf("Watch-only wallet %q added: %s", name, ui.Addr(w.Address))))
		}
		fmt.Fprintln(out, ui.Hint(fmt.Sprintf("Set as default with: w3market wallet use %s", name)))
		return nil
	},
}

var walletListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all wallets",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		wallets := newWalletManager().List()
		if len(wallets) == 0 {
			fmt.Fprintln(out, ui.Info("No wallets configured yet."))
			fmt.Fprintln(out, ui.Hint("Add one with: w3market wallet add <name> --key <private-key>"))
			return nil
		}

		t := ui.NewTable([]ui.Column{
			{Title: "Name", Width: 16},
			{Title: "Address", Width: 42},
			{Title: "Type", Width: 12},
			{Title: "Default", Width: 7},
		})
		for _, w := range wallets {
			def := ""
			if w.IsDefault {
				def = "✓"
			}
			t.AddRow(ui.Row{w.Name, w.Address, walletTypeLabel(w.Type), def})
		}
		fmt.Fprintln(out, t.Render())
		fmt.Fprintln(out, ui.Meta(fmt.Sprintf("%d wallet(s) configured", len(wallets))))
		return nil
	},
}

var walletRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a wallet and its stored key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		out := cmd.OutOrStdout()
		if !prompter(cmd).ConfirmDanger(fmt.Sprintf("Remove wallet %q?", name)) {
			fmt.Fprintln(out, ui.Meta("Cancelled."))
			return nil
		}
		if err := newWalletManager().Remove(name); err != nil {
			return err
		}
		if cfg.DefaultWallet == name {
			cfg.DefaultWallet = ""
			if err := cfg.Save(); err != nil {
				return err
			}
		}
		fmt.Fprintln(out, ui.Success(fmt.Sprintf("Wallet %q removed.", name)))
		return nil
	},
}

var walletUseCmd = &cobra.Command{
	Use:   "use [name]",
	Short: "Set the default wallet",
	Long:  "Set the default wallet. Without a name an interactive picker is shown.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr := newWalletManager()
		out := cmd.OutOrStdout()

		var name string
		if len(args) == 1 {
			name = args[0]
		} else {
			var items []ui.PickerItem
			for _, w := range mgr.List() {
				items = append(items, ui.PickerItem{
					Label:    w.Name,
					SubLabel: ui.TruncateAddr(w.Address) + "  " + walletTypeLabel(w.Type),
					Value:    w.Name,
					Current:  w.IsDefault,
				})
			}
			picked, err := ui.PickItem("Default wallet", items)
			if err != nil {
				return err
			}
			if picked == "" {
				fmt.Fprintln(out, ui.Meta("Cancelled."))
				return nil
			}
			name = picked
		}

		if err := mgr.SetDefault(name); err != nil {
			return err
		}
		cfg.DefaultWallet = name
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Fprintln(out, ui.Success(fmt.Sprintf("Default wallet set to %q.", name)))
		return nil
	},
}

func init() {
	walletAddCmd.Flags().StringVar(&walletKeyFlag, "key", "", "private key for a signing wallet (stored in the OS keychain)")
	walletCmd.AddCommand(walletAddCmd, walletListCmd, walletRemoveCmd, walletUseCmd)
}

// walletTypeLabel converts an internal wallet type to a user-facing label.
func walletTypeLabel(t string) string {
	switch t {
	case wallet.TypeSigning:
		return "read-write"
	default:
		return t
	}
}

// newWalletManager creates a Manager backed by the config-dir JSON store and
// the keychain.
func newWalletManager() *wallet.Manager {
	return wallet.NewManager(
		wallet.WithStore(wallet.NewJSONStore(cfg.WalletsPath())),
		wallet.WithKeystore(newKeystore(cfg.Dir())),
	)
}
