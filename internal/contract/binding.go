package contract

import (
	"context"
	"fmt"
	"math/big"

	"github.com/Mohsinsiddi/w3market/internal/chain"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// TxRequest is a contract write ready to be signed and broadcast.
type TxRequest struct {
	To       common.Address
	Value    *big.Int
	Data     []byte
	GasLimit uint64
}

// Signer is the account a Binding acts as. It performs reads against the
// chain and signs, submits and awaits writes.
type Signer interface {
	Address() common.Address
	CallContract(ctx context.Context, to common.Address, data []byte) ([]byte, error)
	SendTransaction(ctx context.Context, req TxRequest) (common.Hash, error)
	WaitMined(ctx context.Context, hash common.Hash) (*chain.TxReceipt, error)
}

// Item is one marketplace listing as stored on chain.
type Item struct {
	ID     uint64
	Name   string
	Price  *big.Int // wei
	Seller common.Address
	Owner  common.Address
	IsSold bool
}

// rawItem mirrors the items(uint256) output tuple for UnpackIntoInterface.
type rawItem struct {
	Id     *big.Int //nolint:revive // field name fixed by the ABI output
	Name   string
	Price  *big.Int
	Seller common.Address
	Owner  common.Address
	IsSold bool
}

// Binding is a marketplace contract handle bound to one signer. A Binding is
// tied to the session that created it and must be rebuilt when the session
// changes.
type Binding struct {
	address  common.Address
	abi      abi.ABI
	signer   Signer
	gasLimit uint64
}

// Bind creates a Binding. It makes no network calls.
func Bind(address common.Address, contractABI abi.ABI, signer Signer) *Binding {
	return &Binding{address: address, abi: contractABI, signer: signer}
}

// WithGasLimit sets the gas ceiling attached to every write.
func (b *Binding) WithGasLimit(limit uint64) *Binding {
	b.gasLimit = limit
	return b
}

// Address returns the contract address.
func (b *Binding) Address() common.Address { return b.address }

// Signer returns the account this binding acts as.
func (b *Binding) Signer() Signer { return b.signer }

// GasLimit returns the gas ceiling for writes.
func (b *Binding) GasLimit() uint64 { return b.gasLimit }

// ItemCount returns the number of listed items. Ids run 1..count.
func (b *Binding) ItemCount(ctx context.Context) (uint64, error) {
	out, err := b.call(ctx, MethodItemCount)
	if err != nil {
		return 0, err
	}
	n, ok := out[0].(*big.Int)
	if !ok {
		return 0, fmt.Errorf("%s: unexpected output %T", MethodItemCount, out[0])
	}
	return n.Uint64(), nil
}

// Item fetches one item by id.
func (b *Binding) Item(ctx context.Context, id uint64) (Item, error) {
	data, err := b.callRaw(ctx, MethodItems, new(big.Int).SetUint64(id))
	if err != nil {
		return Item{}, err
	}
	var raw rawItem
	if err := b.abi.UnpackIntoInterface(&raw, MethodItems, data); err != nil {
		return Item{}, fmt.Errorf("decoding %s(%d): %w", MethodItems, id, err)
	}
	item := Item{
		Name:   raw.Name,
		Price:  raw.Price,
		Seller: raw.Seller,
		Owner:  raw.Owner,
		IsSold: raw.IsSold,
	}
	if raw.Id != nil {
		item.ID = raw.Id.Uint64()
	}
	if item.Price == nil {
		item.Price = new(big.Int)
	}
	return item, nil
}

// ItemsByOwner returns the ids of the items owned by owner.
func (b *Binding) ItemsByOwner(ctx context.Context, owner common.Address) ([]uint64, error) {
	out, err := b.call(ctx, MethodItemsByOwner, owner)
	if err != nil {
		return nil, err
	}
	raw, ok := out[0].([]*big.Int)
	if !ok {
		return nil, fmt.Errorf("%s: unexpected output %T", MethodItemsByOwner, out[0])
	}
	ids := make([]uint64, len(raw))
	for i, n := range raw {
		ids[i] = n.Uint64()
	}
	return ids, nil
}

// ListItem lists a new item for sale at price wei.
func (b *Binding) ListItem(ctx context.Context, name string, price *big.Int) (*PendingTx, error) {
	return b.transact(ctx, nil, MethodListItem, name, price)
}

// BuyItem buys item id, paying value wei.
func (b *Binding) BuyItem(ctx context.Context, id uint64, value *big.Int) (*PendingTx, error) {
	return b.transact(ctx, value, MethodBuyItem, new(big.Int).SetUint64(id))
}

// TransferItem hands item id to another address.
func (b *Binding) TransferItem(ctx context.Context, id uint64, to common.Address) (*PendingTx, error) {
	return b.transact(ctx, nil, MethodTransferItem, new(big.Int).SetUint64(id), to)
}

// PendingTx is a submitted write awaiting confirmation.
type PendingTx struct {
	Hash   common.Hash
	signer Signer
}

// Wait blocks until the transaction is mined. A reverted transaction returns
// its receipt together with an error.
func (p *PendingTx) Wait(ctx context.Context) (*chain.TxReceipt, error) {
	return p.signer.WaitMined(ctx, p.Hash)
}

// --- internal ---

func (b *Binding) callRaw(ctx context.Context, method string, args ...interface{}) ([]byte, error) {
	calldata, err := b.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", method, err)
	}
	data, err := b.signer.CallContract(ctx, b.address, calldata)
	if err != nil {
		return nil, fmt.Errorf("calling %s: %w", method, err)
	}
	return data, nil
}

func (b *Binding) call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	data, err := b.callRaw(ctx, method, args...)
	if err != nil {
		return nil, err
	}
	out, err := b.abi.Unpack(method, data)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", method, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s returned no values", method)
	}
	return out, nil
}

func (b *Binding) transact(ctx context.Context, value *big.Int, method string, args ...interface{}) (*PendingTx, error) {
	calldata, err := b.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", method, err)
	}
	if value == nil {
		value = new(big.Int)
	}
	hash, err := b.signer.SendTransaction(ctx, TxRequest{
		To:       b.address,
		Value:    value,
		Data:     calldata,
		GasLimit: b.gasLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("sending %s: %w", method, err)
	}
	return &PendingTx{Hash: hash, signer: b.signer}, nil
}
