package cmd

import (
	"fmt"

	"github.com/Mohsinsiddi/w3market/internal/chain"
	"github.com/Mohsinsiddi/w3market/internal/contract"
	"github.com/Mohsinsiddi/w3market/internal/market"
	"github.com/Mohsinsiddi/w3market/internal/ui"
	"github.com/spf13/cobra"
)

var listForm market.ListingForm

var listCmd = &cobra.Command{
	Use:     "list",
	Short:   "List a new item for sale",
	Example: `  w3market list --name "Vintage lamp" --price 0.25`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, _, err := listForm.Validate(); err != nil {
			return err
		}
		_, b, err := openMarket(cmd)
		if err != nil {
			return err
		}
		c := newCatalog()
		d := newDispatcher(cmd, c, newLedger())

		name, price := listForm.Name, listForm.Price
		res, err := d.ListItem(cmd.Context(), b, &listForm)
		if err != nil {
			return err
		}
		reportResult(cmd.OutOrStdout(), res, fmt.Sprintf("Listed %q for %s %s", name, price, currency()))
		return nil
	},
}

var buyCmd = &cobra.Command{
	Use:   "buy <id>",
	Short: "Buy a listed item at its catalog price",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseItemID(args[0])
		if err != nil {
			return err
		}
		_, b, err := openMarket(cmd)
		if err != nil {
			return err
		}
		c := newCatalog()
		if err := loadCatalog(cmd, c, b); err != nil {
			return err
		}
		return runBuy(cmd, c, b, id)
	},
}

var transferCmd = &cobra.Command{
	Use:   "transfer <id> <to>",
	Short: "Give an item you own to another address",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseItemID(args[0])
		if err != nil {
			return err
		}
		if _, err := market.ParseRecipient(args[1]); err != nil {
			return err
		}
		_, b, err := openMarket(cmd)
		if err != nil {
			return err
		}
		c := newCatalog()
		if err := loadCatalog(cmd, c, b); err != nil {
			return err
		}
		return runTransfer(cmd, c, b, id, args[1])
	},
}

// runBuy buys id from a loaded catalog.
func runBuy(cmd *cobra.Command, c *market.Catalog, b *contract.Binding, id uint64) error {
	res, err := newDispatcher(cmd, c, newLedger()).BuyItem(cmd.Context(), b, id, nil)
	if err != nil {
		return err
	}
	rec := res.Record
	reportResult(cmd.OutOrStdout(), res, fmt.Sprintf("Bought #%s %q for %s %s", rec.ItemID, rec.Name, rec.Price, currency()))
	return nil
}

// runTransfer sends id to the address to.
func runTransfer(cmd *cobra.Command, c *market.Catalog, b *contract.Binding, id uint64, to string) error {
	res, err := newDispatcher(cmd, c, newLedger()).TransferItem(cmd.Context(), b, id, to)
	if err != nil {
		return err
	}
	reportResult(cmd.OutOrStdout(), res, fmt.Sprintf("Transferred #%d to %s", id, ui.TruncateAddr(to)))
	if it, ok := c.Find(id); ok {
		fmt.Fprintf(cmd.OutOrStdout(), "  %s %s (%s %s)\n", ui.Meta("item:"), it.Name, chain.FormatEther(it.Price), currency())
	}
	return nil
}

func init() {
	listCmd.Flags().StringVar(&listForm.Name, "name", "", "item name")
	listCmd.Flags().StringVar(&listForm.Price, "price", "", "price in the network's native currency, e.g. 0.5")
}
