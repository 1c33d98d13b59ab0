package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Mohsinsiddi/w3market/internal/chain"
	"github.com/Mohsinsiddi/w3market/internal/contract"
	"github.com/Mohsinsiddi/w3market/internal/errs"
	"github.com/Mohsinsiddi/w3market/internal/market"
	"github.com/Mohsinsiddi/w3market/internal/purchases"
	"github.com/Mohsinsiddi/w3market/internal/storage"
	"github.com/Mohsinsiddi/w3market/internal/ui"
	"github.com/Mohsinsiddi/w3market/internal/wallet"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
)

// Hooks replaced by tests.
var (
	newKeystore = func(dir string) wallet.KeystoreBackend { return wallet.DefaultKeystore(dir) }
	dialSession = connectWallet
	prompter    = func(cmd *cobra.Command) *ui.Prompter {
		p := ui.NewPrompter(cmd.InOrStdin(), cmd.ErrOrStderr())
		p.AssumeYes = assumeYes
		return p
	}
)

// currentNetwork resolves the configured network.
func currentNetwork() (*chain.Network, error) {
	n, err := chain.NewRegistry().GetByName(cfg.Network)
	if err != nil {
		return nil, errs.Validation("unknown network %q (use flow-testnet, flow-mainnet or localhost)", cfg.Network)
	}
	return n, nil
}

func rpcURL(n *chain.Network) string {
	if cfg.RPCURL != "" {
		return cfg.RPCURL
	}
	return n.RPCURL
}

func currency() string {
	if n, err := currentNetwork(); err == nil {
		return n.NativeCurrency
	}
	return "ETH"
}

// connectWallet authorizes the configured wallet through the keystore-backed
// provider and opens a session.
func connectWallet(ctx context.Context, cmd *cobra.Command) (*market.Session, error) {
	n, err := currentNetwork()
	if err != nil {
		return nil, err
	}
	p := prompter(cmd)
	provider := wallet.NewProvider(wallet.ProviderConfig{
		Manager:    newWalletManager(),
		WalletName: cfg.DefaultWallet,
		Client:     chain.NewEVMClient(rpcURL(n)),
		ChainID:    n.ChainID,
		Authorize: func(w *wallet.Wallet) bool {
			return p.Confirm(fmt.Sprintf("Connect wallet %q (%s) to %s?", w.Name, ui.TruncateAddr(w.Address), n.DisplayName))
		},
		ConfirmTx: func(req contract.TxRequest) bool {
			return p.Confirm(fmt.Sprintf("Send transaction to %s with %s %s (gas ceiling %d)?",
				ui.TruncateAddr(req.To.Hex()), chain.FormatEther(req.Value), n.NativeCurrency, req.GasLimit))
		},
		Logger: logger,
	})
	return market.Connect(ctx, provider)
}

// bindMarket attaches the marketplace contract to s.
func bindMarket(s *market.Session) (*contract.Binding, error) {
	if !common.IsHexAddress(cfg.ContractAddress) {
		return nil, errs.Validation("invalid contract address %q", cfg.ContractAddress)
	}
	contractABI, err := contract.LoadABI(cfg.ABIPath)
	if err != nil {
		return nil, fmt.Errorf("loading contract ABI: %w", err)
	}
	return s.Bind(common.HexToAddress(cfg.ContractAddress), contractABI, cfg.GasLimit), nil
}

// openMarket connects and binds in one step.
func openMarket(cmd *cobra.Command) (*market.Session, *contract.Binding, error) {
	s, err := dialSession(cmd.Context(), cmd)
	if err != nil {
		return nil, nil, err
	}
	b, err := bindMarket(s)
	if err != nil {
		return nil, nil, err
	}
	return s, b, nil
}

func newCatalog(opts ...market.CatalogOption) *market.Catalog {
	opts = append([]market.CatalogOption{
		market.WithWorkers(cfg.FetchWorkers),
		market.WithCatalogLogger(logger),
	}, opts...)
	return market.NewCatalog(opts...)
}

func newLedger() *purchases.Ledger {
	l := purchases.NewLedger(storage.NewLocal(cfg.StatePath()), logger)
	l.Load()
	return l
}

// loadCatalog runs LoadAll behind a spinner.
func loadCatalog(cmd *cobra.Command, c *market.Catalog, r market.ItemReader) error {
	sp := ui.NewSpinnerTo(cmd.ErrOrStderr(), "Loading items…")
	sp.Start()
	err := c.LoadAll(cmd.Context(), r)
	sp.Stop()
	return err
}

// newDispatcher returns a dispatcher that reports progress on stderr.
func newDispatcher(cmd *cobra.Command, c *market.Catalog, l *purchases.Ledger) *market.Dispatcher {
	return market.NewDispatcher(c, l,
		market.WithDispatcherLogger(logger),
		market.WithTransitionHook(progressReporter(cmd.ErrOrStderr())),
	)
}

// progressReporter renders action transitions: a line on submission, a
// spinner while waiting for the receipt.
func progressReporter(w io.Writer) func(market.Transition) {
	var sp *ui.Spinner
	return func(t market.Transition) {
		switch t.State {
		case market.StateSubmitting:
			fmt.Fprintln(w, ui.Info(fmt.Sprintf("Submitting %s transaction…", t.Action)))
		case market.StateAwaitingConfirmation:
			sp = ui.NewSpinnerTo(w, "Waiting for confirmation of "+ui.TruncateAddr(t.TxHash.Hex()))
			sp.Start()
		default:
			if sp != nil {
				sp.Stop()
				sp = nil
			}
		}
	}
}

// reportResult prints the outcome of a confirmed action.
func reportResult(w io.Writer, res market.Result, summary string) {
	fmt.Fprintln(w, ui.Success(summary))
	fmt.Fprintf(w, "  %s %s\n", ui.Meta("tx:"), ui.Addr(res.TxHash.Hex()))
	if n, err := currentNetwork(); err == nil {
		if url := n.TxURL(res.TxHash.Hex()); url != "" {
			fmt.Fprintf(w, "  %s %s\n", ui.Meta("explorer:"), url)
		}
	}
	if res.ReloadErr != nil {
		fmt.Fprintln(w, ui.Warn("Catalog refresh failed: "+res.ReloadErr.Error()))
	}
}

func parseItemID(s string) (uint64, error) {
	id, err := strconv.ParseUint(strings.TrimPrefix(strings.TrimSpace(s), "#"), 10, 64)
	if err != nil || id == 0 {
		return 0, errs.Validation("invalid item id %q", s)
	}
	return id, nil
}

// printError renders err with a hint for its kind.
func printError(w io.Writer, err error) {
	fmt.Fprintln(w, ui.Err(err.Error()))
	if hint := hintFor(err); hint != "" {
		fmt.Fprintln(w, ui.Hint(hint))
	}
}

func hintFor(err error) string {
	switch errs.KindOf(err) {
	case errs.KindProviderUnavailable:
		if errors.Is(err, wallet.ErrWalletNotFound) {
			return "No wallet found. Add one with: w3market wallet add <name> --key <private-key>"
		}
		return "Check the wallet and RPC endpoint with: w3market config show"
	case errs.KindUserRejected:
		return "Nothing was sent."
	case errs.KindNoSession, errs.KindNoBinding:
		return "Connect first with: w3market connect"
	case errs.KindTransactionFailed:
		return "Check your balance and that the item is still available."
	case errs.KindCatalogLoadFailed:
		return "Check the RPC endpoint and contract address with: w3market config show"
	}
	return ""
}
