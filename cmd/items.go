package cmd

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/Mohsinsiddi/w3market/internal/contract"
	"github.com/Mohsinsiddi/w3market/internal/errs"
	"github.com/Mohsinsiddi/w3market/internal/market"
	"github.com/Mohsinsiddi/w3market/internal/ui"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
)

var (
	itemsQuery       string
	itemsOwner       string
	itemsInteractive bool
	watchInterval    time.Duration
)

var itemsCmd = &cobra.Command{
	Use:   "items",
	Short: "Show the marketplace catalog",
	Long: `Load every item from the marketplace contract and print it.

  w3market items                     # everything
  w3market items --query lamp        # case-insensitive name search
  w3market items --owner me          # items held by the connected account
  w3market items --owner 0xAbc…      # items held by another address
  w3market items -i                  # interactive browser`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, b, err := openMarket(cmd)
		if err != nil {
			return err
		}

		c := newCatalog()
		if itemsOwner != "" {
			owner, err := resolveOwner(itemsOwner, s.Address)
			if err != nil {
				return err
			}
			sp := ui.NewSpinnerTo(cmd.ErrOrStderr(), "Loading items of "+ui.TruncateAddr(owner.Hex())+"…")
			sp.Start()
			err = c.LoadByOwner(cmd.Context(), b, owner)
			sp.Stop()
			if err != nil {
				return err
			}
		} else if err := loadCatalog(cmd, c, b); err != nil {
			return err
		}

		if itemsInteractive {
			return browse(cmd, c, b, s.Address)
		}
		renderCatalog(cmd.OutOrStdout(), c.Snapshot(), false, s.Address, itemsQuery)
		return nil
	},
}

var itemsWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Reload the catalog on an interval and print every change",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, b, err := openMarket(cmd)
		if err != nil {
			return err
		}

		interval := watchInterval
		if interval <= 0 {
			interval = time.Duration(cfg.WatchInterval) * time.Second
		}

		out := cmd.OutOrStdout()
		var (
			mu     sync.Mutex
			c      *market.Catalog
			loaded bool
		)
		c = newCatalog(
			market.WithOnLoadStart(func(snap market.Snapshot) {
				mu.Lock()
				defer mu.Unlock()
				if !loaded {
					renderCatalog(out, snap, c.Loading(), s.Address, itemsQuery)
				}
			}),
			market.WithOnChange(func(snap market.Snapshot) {
				mu.Lock()
				defer mu.Unlock()
				loaded = true
				fmt.Fprintln(out, ui.Meta(snap.LoadedAt.Format("15:04:05")))
				renderCatalog(out, snap, false, s.Address, itemsQuery)
			}),
		)

		w, err := market.WatchCatalog(c, b, interval, logger)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.ErrOrStderr(), ui.Info(fmt.Sprintf("Reloading every %s. Ctrl+C to stop.", w.Interval())))
		w.Start()
		<-cmd.Context().Done()
		return w.Stop()
	},
}

// renderCatalog prints snap, or placeholder rows while an empty catalog is
// still loading.
func renderCatalog(w io.Writer, snap market.Snapshot, loading bool, account common.Address, query string) {
	if len(snap.Items) == 0 && loading {
		fmt.Fprintln(w, ui.SkeletonTable(3).Render())
		return
	}

	items := market.Filter(snap.Items, query)
	if len(items) == 0 {
		if query != "" {
			fmt.Fprintln(w, ui.Info(fmt.Sprintf("No items match %q.", query)))
		} else {
			fmt.Fprintln(w, ui.Info("No items listed yet."))
			fmt.Fprintln(w, ui.Hint("List one with: w3market list --name <name> --price <amount>"))
		}
		return
	}

	fmt.Fprintln(w, ui.ItemTable(items, account, currency()).Render())
	view := "all items"
	if snap.View == market.ViewOwner {
		view = "owned by " + snap.Owner.Hex()
	}
	fmt.Fprintln(w, ui.Meta(fmt.Sprintf("%d of %d item(s), %s", len(items), len(snap.Items), view)))
}

// resolveOwner accepts "me" or an address.
func resolveOwner(s string, self common.Address) (common.Address, error) {
	if strings.EqualFold(s, "me") {
		return self, nil
	}
	if !common.IsHexAddress(s) {
		return common.Address{}, errs.Validation("invalid owner address %q", s)
	}
	return common.HexToAddress(s), nil
}

// browse runs the interactive catalog and performs the chosen action.
func browse(cmd *cobra.Command, c *market.Catalog, b *contract.Binding, account common.Address) error {
	explorer := ""
	if n, err := currentNetwork(); err == nil {
		explorer = n.AddressURL(cfg.ContractAddress)
	}
	sel, err := ui.RunCatalog(ui.BrowserConfig{
		Title:       "Marketplace",
		Items:       c.Items(),
		Account:     account,
		Currency:    currency(),
		Query:       itemsQuery,
		ExplorerURL: explorer,
	})
	if err != nil || sel == nil {
		return err
	}

	switch sel.Action {
	case market.ActionBuy:
		return runBuy(cmd, c, b, sel.ItemID)
	case market.ActionTransfer:
		to := prompter(cmd).Input(fmt.Sprintf("Transfer item #%d to address", sel.ItemID))
		return runTransfer(cmd, c, b, sel.ItemID, to)
	}
	return nil
}

func init() {
	itemsCmd.Flags().StringVarP(&itemsQuery, "query", "q", "", "case-insensitive name filter")
	itemsCmd.Flags().StringVar(&itemsOwner, "owner", "", `show only items held by an address ("me" for the connected account)`)
	itemsCmd.Flags().BoolVarP(&itemsInteractive, "interactive", "i", false, "browse and act on items interactively")
	itemsWatchCmd.Flags().StringVarP(&itemsQuery, "query", "q", "", "case-insensitive name filter")
	itemsWatchCmd.Flags().DurationVar(&watchInterval, "interval", 0, "reload period (default: watch_interval from config)")
	itemsCmd.AddCommand(itemsWatchCmd)
}
