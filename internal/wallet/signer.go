package wallet

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/Mohsinsiddi/w3market/internal/chain"
	"github.com/Mohsinsiddi/w3market/internal/config"
	"github.com/Mohsinsiddi/w3market/internal/contract"
	"github.com/Mohsinsiddi/w3market/internal/errs"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// DefaultReceiptTimeout bounds how long WaitMined polls for a receipt.
const DefaultReceiptTimeout = config.TxConfirmTimeout

// ConfirmFunc asks the user to approve a transaction before it is signed.
// Returning false rejects it.
type ConfirmFunc func(req contract.TxRequest) bool

// Signer signs EVM transactions for a signing wallet and talks to the chain
// on its behalf. It implements contract.Signer.
type Signer struct {
	wallet  *Wallet
	ks      KeystoreBackend
	client  *chain.EVMClient
	chainID *big.Int
	confirm ConfirmFunc

	// ReceiptTimeout bounds WaitMined.
	ReceiptTimeout time.Duration
}

var _ contract.Signer = (*Signer)(nil)

// NewSigner creates a signer for the given wallet. client and chainID may be
// nil when the signer is only used for SignTx.
func NewSigner(w *Wallet, ks KeystoreBackend, client *chain.EVMClient, chainID *big.Int) *Signer {
	return &Signer{
		wallet:         w,
		ks:             ks,
		client:         client,
		chainID:        chainID,
		ReceiptTimeout: DefaultReceiptTimeout,
	}
}

// WithConfirm installs an approval prompt run before every SendTransaction.
func (s *Signer) WithConfirm(fn ConfirmFunc) *Signer {
	s.confirm = fn
	return s
}

// Address returns the wallet's address.
func (s *Signer) Address() common.Address {
	return common.HexToAddress(s.wallet.Address)
}

// SignTx signs an EVM transaction and returns the raw signed bytes.
func (s *Signer) SignTx(tx *types.Transaction, chainID *big.Int) ([]byte, error) {
	if !s.wallet.CanSign() {
		return nil, fmt.Errorf("wallet %q is watch-only and cannot sign", s.wallet.Name)
	}

	hexKey, err := s.ks.Retrieve(s.wallet.KeyRef)
	if err != nil {
		return nil, fmt.Errorf("retrieving key: %w", err)
	}

	privKey, err := crypto.HexToECDSA(normaliseHexKey(hexKey))
	if err != nil {
		return nil, fmt.Errorf("parsing private key: %w", err)
	}

	signer := types.NewLondonSigner(chainID)
	signed, err := types.SignTx(tx, signer, privKey)
	if err != nil {
		return nil, fmt.Errorf("signing transaction: %w", err)
	}

	raw, err := signed.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("marshaling signed tx: %w", err)
	}

	return raw, nil
}

// CallContract runs a read-only call from this wallet's address.
func (s *Signer) CallContract(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	if s.client == nil {
		return nil, errs.New(errs.KindProviderUnavailable, "no RPC client")
	}
	out, err := s.client.CallContract(ctx, s.wallet.Address, to.Hex(), hexutil.Encode(data))
	if err != nil {
		return nil, err
	}
	return hexutil.Decode(out)
}

// SendTransaction estimates, signs and broadcasts req. A gas estimate above
// req.GasLimit fails without broadcasting anything.
func (s *Signer) SendTransaction(ctx context.Context, req contract.TxRequest) (common.Hash, error) {
	if s.client == nil || s.chainID == nil {
		return common.Hash{}, errs.New(errs.KindProviderUnavailable, "no RPC client")
	}
	if !s.wallet.CanSign() {
		return common.Hash{}, errs.New(errs.KindTransactionFailed,
			fmt.Sprintf("wallet %q is watch-only and cannot sign", s.wallet.Name))
	}
	if s.confirm != nil && !s.confirm(req) {
		return common.Hash{}, errs.New(errs.KindUserRejected, "transaction rejected")
	}

	from := s.wallet.Address
	value := req.Value
	if value == nil {
		value = new(big.Int)
	}

	gas, err := s.client.EstimateGas(ctx, from, req.To.Hex(), hexutil.Encode(req.Data), value)
	if err != nil {
		return common.Hash{}, errs.Wrap(errs.KindTransactionFailed, "estimating gas", err)
	}
	if req.GasLimit > 0 && gas > req.GasLimit {
		return common.Hash{}, errs.New(errs.KindTransactionFailed,
			fmt.Sprintf("gas estimate %d exceeds ceiling %d", gas, req.GasLimit))
	}
	limit := req.GasLimit
	if limit == 0 {
		limit = gas
	}

	gasPrice, err := s.client.GasPrice(ctx)
	if err != nil {
		return common.Hash{}, errs.Wrap(errs.KindTransactionFailed, "getting gas price", err)
	}

	nonce, err := s.client.GetPendingNonce(ctx, from)
	if err != nil {
		return common.Hash{}, errs.Wrap(errs.KindTransactionFailed, "getting nonce", err)
	}

	to := req.To
	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   s.chainID,
		Nonce:     nonce,
		GasTipCap: gasPrice,
		GasFeeCap: new(big.Int).Mul(gasPrice, big.NewInt(2)),
		Gas:       limit,
		To:        &to,
		Value:     value,
		Data:      req.Data,
	})

	raw, err := s.SignTx(tx, s.chainID)
	if err != nil {
		return common.Hash{}, errs.Wrap(errs.KindTransactionFailed, "signing transaction", err)
	}

	hash, err := s.client.SendRawTransaction(ctx, hexutil.Encode(raw))
	if err != nil {
		return common.Hash{}, errs.Wrap(errs.KindTransactionFailed, "broadcasting transaction", err)
	}
	return common.HexToHash(hash), nil
}

// WaitMined polls for the receipt of hash.
func (s *Signer) WaitMined(ctx context.Context, hash common.Hash) (*chain.TxReceipt, error) {
	if s.client == nil {
		return nil, errs.New(errs.KindProviderUnavailable, "no RPC client")
	}
	timeout := s.ReceiptTimeout
	if timeout <= 0 {
		timeout = DefaultReceiptTimeout
	}
	return s.client.WaitForReceipt(ctx, hash.Hex(), timeout)
}
