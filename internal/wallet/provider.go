package wallet

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"strings"

	"github.com/Mohsinsiddi/w3market/internal/chain"
	"github.com/Mohsinsiddi/w3market/internal/contract"
	"github.com/Mohsinsiddi/w3market/internal/errs"
	"github.com/ethereum/go-ethereum/common"
)

// keyChallenge is signed and recovered to prove a stored key matches its
// wallet before a signer is handed out.
const keyChallenge = "w3market: unlock signer"

// ProviderConfig wires a Provider to local wallets and an RPC endpoint.
type ProviderConfig struct {
	Manager    *Manager
	WalletName string // empty selects the default wallet
	Client     *chain.EVMClient
	ChainID    int64 // expected chain id, 0 accepts any

	// Authorize asks the user to connect w. Nil approves automatically.
	Authorize func(w *Wallet) bool
	// ConfirmTx is installed on every signer handed out. Nil approves.
	ConfirmTx ConfirmFunc

	Logger *slog.Logger
}

// Provider is the wallet provider backed by the local keystore: it authorizes
// an account, reports balances and hands out signers.
type Provider struct {
	cfg        ProviderConfig
	log        *slog.Logger
	authorized *Wallet
	chainID    *big.Int
}

// NewProvider creates a keystore-backed wallet provider.
func NewProvider(cfg ProviderConfig) *Provider {
	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Provider{cfg: cfg, log: log}
}

// RequestAccounts resolves the configured wallet, checks the RPC endpoint is
// reachable and asks the user to authorize the connection.
func (p *Provider) RequestAccounts(ctx context.Context) (common.Address, error) {
	if p.cfg.Manager == nil || p.cfg.Client == nil || p.cfg.Client.URL() == "" {
		return common.Address{}, errs.New(errs.KindProviderUnavailable, "no wallet provider configured")
	}

	w, err := p.cfg.Manager.Resolve(p.cfg.WalletName)
	if err != nil {
		if errors.Is(err, ErrWalletNotFound) {
			return common.Address{}, errs.Wrap(errs.KindProviderUnavailable,
				"no wallet available (add one with `w3market wallet add`)", err)
		}
		return common.Address{}, errs.Wrap(errs.KindProviderUnavailable, "loading wallets", err)
	}

	id, err := p.cfg.Client.ChainID(ctx)
	if err != nil {
		return common.Address{}, errs.Wrap(errs.KindProviderUnavailable,
			"RPC endpoint "+p.cfg.Client.URL()+" unreachable", err)
	}
	if p.cfg.ChainID != 0 && id != p.cfg.ChainID {
		return common.Address{}, errs.New(errs.KindProviderUnavailable,
			fmt.Sprintf("RPC endpoint is on chain %d, expected %d", id, p.cfg.ChainID))
	}

	if p.cfg.Authorize != nil && !p.cfg.Authorize(w) {
		return common.Address{}, errs.New(errs.KindUserRejected, "connection request rejected")
	}

	p.authorized = w
	p.chainID = big.NewInt(id)
	p.log.Debug("account authorized", "wallet", w.Name, "address", w.Address, "chain_id", id)
	return common.HexToAddress(w.Address), nil
}

// Balance returns the native balance of addr in wei.
func (p *Provider) Balance(ctx context.Context, addr common.Address) (*big.Int, error) {
	if p.cfg.Client == nil {
		return nil, errs.New(errs.KindProviderUnavailable, "no RPC client")
	}
	bal, err := p.cfg.Client.GetBalance(ctx, addr.Hex())
	if err != nil {
		return nil, errs.Wrap(errs.KindProviderUnavailable, "fetching balance", err)
	}
	return bal.Wei, nil
}

// Signer returns a signer for the authorized account. Signing wallets must
// prove their stored key matches the wallet address.
func (p *Provider) Signer(_ context.Context, addr common.Address) (contract.Signer, error) {
	w := p.authorized
	if w == nil || !strings.EqualFold(w.Address, addr.Hex()) {
		return nil, errs.New(errs.KindNoSession, "account "+addr.Hex()+" is not authorized")
	}
	ks := p.cfg.Manager.Keystore()
	if w.CanSign() {
		if err := ProveKey(w, ks, keyChallenge); err != nil {
			return nil, errs.Wrap(errs.KindProviderUnavailable, "unlocking signer", err)
		}
	} else {
		p.log.Warn("watch-only wallet connected; transactions will fail", "wallet", w.Name)
	}
	return NewSigner(w, ks, p.cfg.Client, p.chainID).WithConfirm(p.cfg.ConfirmTx), nil
}
