// Package market keeps the client's view of the marketplace in sync with
// the chain: the wallet session, the item catalog, purchase history and the
// write actions that change them.
package market

import (
	"context"
	"math/big"

	"github.com/Mohsinsiddi/w3market/internal/contract"
	"github.com/Mohsinsiddi/w3market/internal/errs"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Provider is the wallet provider a session is obtained from.
type Provider interface {
	RequestAccounts(ctx context.Context) (common.Address, error)
	Balance(ctx context.Context, addr common.Address) (*big.Int, error)
	Signer(ctx context.Context, addr common.Address) (contract.Signer, error)
}

// Session is one connected account. Balance is a snapshot taken at connect
// time and is never refreshed. Reconnecting produces a new Session; any
// Binding built from the old one must be discarded.
type Session struct {
	Address common.Address
	Balance *big.Int
	signer  contract.Signer
}

// Connect authorizes an account with p and reads its balance.
func Connect(ctx context.Context, p Provider) (*Session, error) {
	if p == nil {
		return nil, errs.New(errs.KindProviderUnavailable, "no wallet provider")
	}

	addr, err := p.RequestAccounts(ctx)
	if err != nil {
		return nil, classify(errs.KindProviderUnavailable, "requesting accounts", err)
	}
	bal, err := p.Balance(ctx, addr)
	if err != nil {
		return nil, classify(errs.KindProviderUnavailable, "reading balance", err)
	}
	signer, err := p.Signer(ctx, addr)
	if err != nil {
		return nil, classify(errs.KindProviderUnavailable, "obtaining signer", err)
	}
	return &Session{Address: addr, Balance: bal, signer: signer}, nil
}

// NewSession builds a session from parts. Used by tests and by callers that
// already hold a signer.
func NewSession(signer contract.Signer, balance *big.Int) *Session {
	if balance == nil {
		balance = new(big.Int)
	}
	return &Session{Address: signer.Address(), Balance: balance, signer: signer}
}

// Signer returns the session's signer.
func (s *Session) Signer() contract.Signer { return s.signer }

// Bind builds a contract handle acting as this session's account.
func (s *Session) Bind(address common.Address, contractABI abi.ABI, gasLimit uint64) *contract.Binding {
	return contract.Bind(address, contractABI, s.signer).WithGasLimit(gasLimit)
}

// classify wraps err with kind unless it already carries one.
func classify(kind errs.Kind, msg string, err error) error {
	if errs.KindOf(err) != "" {
		return err
	}
	return errs.Wrap(kind, msg, err)
}
