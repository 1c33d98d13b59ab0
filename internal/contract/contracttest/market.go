// Package contracttest provides an in-memory marketplace contract for tests.
//
// Calldata is decoded with the real marketplace ABI and outputs are packed the
// same way a node would return them, so a contract.Binding talking to a
// Market exercises the full encode/decode path.
package contracttest

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/Mohsinsiddi/w3market/internal/chain"
	"github.com/Mohsinsiddi/w3market/internal/contract"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// DefaultGasPerTx is the gas every write is assumed to need.
const DefaultGasPerTx = 120_000

// Market is a fake marketplace contract shared by any number of accounts.
type Market struct {
	mu       sync.Mutex
	abi      abi.ABI
	address  common.Address
	items    []contract.Item
	receipts map[common.Hash]*chain.TxReceipt
	sent     []contract.TxRequest
	txCount  uint64
	block    uint64

	// GasPerTx is the gas a write needs; a TxRequest with a lower GasLimit
	// is rejected before submission.
	GasPerTx uint64

	// BeforeCall, when set, runs before every read with the method name.
	// Tests use it to block or fail specific reads.
	BeforeCall func(ctx context.Context, method string) error

	// SendErr, when set, is returned by every SendTransaction.
	SendErr error
}

// NewMarket returns an empty marketplace deployed at address.
func NewMarket(address common.Address) *Market {
	return &Market{
		abi:      contract.MarketABI(),
		address:  address,
		receipts: make(map[common.Hash]*chain.TxReceipt),
		GasPerTx: DefaultGasPerTx,
	}
}

// Address returns the contract address.
func (m *Market) Address() common.Address { return m.address }

// ABI returns the ABI the market decodes calldata with.
func (m *Market) ABI() abi.ABI { return m.abi }

// Seed appends an item directly, bypassing ListItems. The id is assigned.
func (m *Market) Seed(name string, price *big.Int, seller common.Address) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.addItem(name, price, seller)
}

// Items returns a copy of the current contract state.
func (m *Market) Items() []contract.Item {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]contract.Item, len(m.items))
	copy(out, m.items)
	return out
}

// Sent returns every transaction request that reached the market.
func (m *Market) Sent() []contract.TxRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]contract.TxRequest, len(m.sent))
	copy(out, m.sent)
	return out
}

// As returns a signer acting as from.
func (m *Market) As(from common.Address) *Account {
	return &Account{market: m, from: from}
}

// Account is a contract.Signer backed by a Market.
type Account struct {
	market *Market
	from   common.Address
}

var _ contract.Signer = (*Account)(nil)

// Address implements contract.Signer.
func (a *Account) Address() common.Address { return a.from }

// CallContract implements contract.Signer.
func (a *Account) CallContract(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	m := a.market
	method, args, err := m.decode(to, data)
	if err != nil {
		return nil, err
	}
	if m.BeforeCall != nil {
		if err := m.BeforeCall(ctx, method.Name); err != nil {
			return nil, err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	switch method.Name {
	case contract.MethodItemCount:
		return method.Outputs.Pack(big.NewInt(int64(len(m.items))))
	case contract.MethodItems:
		id := args[0].(*big.Int).Uint64()
		it := contract.Item{Price: new(big.Int)}
		if id >= 1 && id <= uint64(len(m.items)) {
			it = m.items[id-1]
		}
		return method.Outputs.Pack(new(big.Int).SetUint64(it.ID), it.Name, it.Price, it.Seller, it.Owner, it.IsSold)
	case contract.MethodItemsByOwner:
		owner := args[0].(common.Address)
		ids := []*big.Int{}
		for _, it := range m.items {
			if it.Owner == owner {
				ids = append(ids, new(big.Int).SetUint64(it.ID))
			}
		}
		return method.Outputs.Pack(ids)
	default:
		return nil, fmt.Errorf("%s is not a read method", method.Name)
	}
}

// SendTransaction implements contract.Signer. A write the contract would
// reject is still mined, with a reverted receipt.
func (a *Account) SendTransaction(ctx context.Context, req contract.TxRequest) (common.Hash, error) {
	m := a.market
	method, args, err := m.decode(req.To, req.Data)
	if err != nil {
		return common.Hash{}, err
	}
	if err := ctx.Err(); err != nil {
		return common.Hash{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.SendErr != nil {
		return common.Hash{}, m.SendErr
	}
	if req.GasLimit < m.GasPerTx {
		return common.Hash{}, fmt.Errorf("gas required (%d) exceeds allowance (%d)", m.GasPerTx, req.GasLimit)
	}
	m.sent = append(m.sent, req)

	status := uint64(1)
	if err := m.apply(a.from, method.Name, args, req.Value); err != nil {
		status = 0
	}

	m.txCount++
	m.block++
	hash := crypto.Keccak256Hash(a.from.Bytes(), new(big.Int).SetUint64(m.txCount).Bytes())
	m.receipts[hash] = &chain.TxReceipt{
		Hash:        hash.Hex(),
		Status:      status,
		BlockNumber: m.block,
		GasUsed:     m.GasPerTx,
	}
	return hash, nil
}

// WaitMined implements contract.Signer.
func (a *Account) WaitMined(ctx context.Context, hash common.Hash) (*chain.TxReceipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	a.market.mu.Lock()
	r, ok := a.market.receipts[hash]
	a.market.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("unknown transaction %s", hash.Hex())
	}
	if r.Status == 0 {
		return r, fmt.Errorf("transaction reverted (hash: %s)", r.Hash)
	}
	return r, nil
}

// --- contract logic ---

var (
	errNotFound  = errors.New("item does not exist")
	errSold      = errors.New("item already sold")
	errOwnItem   = errors.New("cannot buy your own item")
	errPrice     = errors.New("incorrect payment")
	errNotOwner  = errors.New("caller is not the owner")
	errZeroPrice = errors.New("price must be positive")
)

func (m *Market) apply(from common.Address, method string, args []interface{}, value *big.Int) error {
	switch method {
	case contract.MethodListItem:
		price := args[1].(*big.Int)
		if price.Sign() <= 0 {
			return errZeroPrice
		}
		m.addItem(args[0].(string), price, from)
		return nil

	case contract.MethodBuyItem:
		it, err := m.item(args[0].(*big.Int))
		if err != nil {
			return err
		}
		switch {
		case it.IsSold:
			return errSold
		case it.Owner == from:
			return errOwnItem
		case value == nil || value.Cmp(it.Price) != 0:
			return errPrice
		}
		it.Owner = from
		it.IsSold = true
		return nil

	case contract.MethodTransferItem:
		it, err := m.item(args[0].(*big.Int))
		if err != nil {
			return err
		}
		if it.Owner != from {
			return errNotOwner
		}
		it.Owner = args[1].(common.Address)
		return nil
	}
	return fmt.Errorf("%s is not a write method", method)
}

func (m *Market) addItem(name string, price *big.Int, seller common.Address) uint64 {
	id := uint64(len(m.items)) + 1
	m.items = append(m.items, contract.Item{
		ID:     id,
		Name:   name,
		Price:  new(big.Int).Set(price),
		Seller: seller,
		Owner:  seller,
	})
	return id
}

func (m *Market) item(id *big.Int) (*contract.Item, error) {
	n := id.Uint64()
	if n < 1 || n > uint64(len(m.items)) {
		return nil, errNotFound
	}
	return &m.items[n-1], nil
}

func (m *Market) decode(to common.Address, data []byte) (*abi.Method, []interface{}, error) {
	if to != m.address {
		return nil, nil, fmt.Errorf("no contract at %s", to.Hex())
	}
	if len(data) < 4 {
		return nil, nil, errors.New("calldata too short")
	}
	method, err := m.abi.MethodById(data[:4])
	if err != nil {
		return nil, nil, err
	}
	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, nil, fmt.Errorf("decoding %s args: %w", method.Name, err)
	}
	return method, args, nil
}
