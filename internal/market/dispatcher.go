package market

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/Mohsinsiddi/w3market/internal/chain"
	"github.com/Mohsinsiddi/w3market/internal/contract"
	"github.com/Mohsinsiddi/w3market/internal/errs"
	"github.com/Mohsinsiddi/w3market/internal/purchases"
	"github.com/ethereum/go-ethereum/common"
)

// Action names a write operation.
type Action string

const (
	ActionList     Action = "list"
	ActionBuy      Action = "buy"
	ActionTransfer Action = "transfer"
)

// State is the lifecycle stage of one action.
type State int

const (
	StateIdle State = iota
	StateSubmitting
	StateAwaitingConfirmation
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSubmitting:
		return "submitting"
	case StateAwaitingConfirmation:
		return "awaiting confirmation"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Terminal reports whether s is Succeeded or Failed.
func (s State) Terminal() bool { return s == StateSucceeded || s == StateFailed }

// Transition is emitted each time an action changes state.
type Transition struct {
	Action Action
	State  State
	TxHash common.Hash // set from AwaitingConfirmation on
	Err    error       // set for Failed
}

// Result is the outcome of one action.
type Result struct {
	Action  Action
	State   State
	TxHash  common.Hash
	Receipt *chain.TxReceipt
	Record  *purchases.Record // set for a successful buy

	// ReloadErr is the catalog reload failure after a confirmed action. The
	// action itself still succeeded.
	ReloadErr error
}

// ListingForm holds the user's pending listing input. It is cleared only
// after a listing is confirmed.
type ListingForm struct {
	Name  string
	Price string // decimal ether
}

// Clear empties the form.
func (f *ListingForm) Clear() {
	f.Name = ""
	f.Price = ""
}

// Validate checks the form and returns the trimmed name and the price in wei.
func (f ListingForm) Validate() (string, *big.Int, error) {
	name := strings.TrimSpace(f.Name)
	if name == "" {
		return "", nil, errs.Validation("item name is required")
	}
	price, err := chain.ParseEther(f.Price)
	if err != nil {
		return "", nil, errs.Validation("invalid price: %v", err)
	}
	if price.Sign() <= 0 {
		return "", nil, errs.Validation("price must be greater than zero")
	}
	return name, price, nil
}

// ParseRecipient validates a transfer recipient address.
func ParseRecipient(to string) (common.Address, error) {
	to = strings.TrimSpace(to)
	if to == "" {
		return common.Address{}, errs.Validation("recipient address is required")
	}
	if !common.IsHexAddress(to) {
		return common.Address{}, errs.Validation("invalid recipient address %q", to)
	}
	return common.HexToAddress(to), nil
}

// timestampLayout matches JavaScript's Date.toISOString.
const timestampLayout = "2006-01-02T15:04:05.000Z"

// Dispatcher submits marketplace writes and drives each through submission,
// confirmation and catalog refresh. Callers pass the binding for the current
// session to every call.
type Dispatcher struct {
	catalog      *Catalog
	ledger       *purchases.Ledger
	log          *slog.Logger
	onTransition func(Transition)
	now          func() time.Time
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithDispatcherLogger sets the logger.
func WithDispatcherLogger(log *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if log != nil {
			d.log = log
		}
	}
}

// WithTransitionHook registers fn to observe every state change.
func WithTransitionHook(fn func(Transition)) DispatcherOption {
	return func(d *Dispatcher) { d.onTransition = fn }
}

// WithClock overrides the purchase timestamp source.
func WithClock(now func() time.Time) DispatcherOption {
	return func(d *Dispatcher) { d.now = now }
}

// NewDispatcher creates a Dispatcher that refreshes catalog and records buys
// in ledger.
func NewDispatcher(catalog *Catalog, ledger *purchases.Ledger, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		catalog: catalog,
		ledger:  ledger,
		log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// ListItem validates form, lists the item and reloads the catalog. The form
// is cleared only on success.
func (d *Dispatcher) ListItem(ctx context.Context, b *contract.Binding, form *ListingForm) (Result, error) {
	res := Result{Action: ActionList}
	if b == nil {
		return d.fail(res, errs.ErrNoBinding)
	}
	if form == nil {
		return d.fail(res, errs.Validation("no listing input"))
	}
	name, price, err := form.Validate()
	if err != nil {
		return d.fail(res, err)
	}

	res, err = d.run(ctx, res, func() (*contract.PendingTx, error) {
		return b.ListItem(ctx, name, price)
	})
	if err != nil {
		return res, err
	}
	form.Clear()
	res.ReloadErr = d.reload(ctx, b)
	return res, nil
}

// BuyItem pays price for item id, records the purchase and reloads the
// catalog. A nil price pays the catalog price.
func (d *Dispatcher) BuyItem(ctx context.Context, b *contract.Binding, id uint64, price *big.Int) (Result, error) {
	res := Result{Action: ActionBuy}
	if b == nil {
		return d.fail(res, errs.ErrNoBinding)
	}
	account := b.Signer().Address()

	// Name and price come from the catalog as it was before the purchase.
	item, ok := d.catalog.Find(id)
	if !ok {
		return d.fail(res, errs.Validation("item %d is not in the catalog", id))
	}
	if !CanBuy(item, account) {
		return d.fail(res, errs.Validation("item %d cannot be bought by %s", id, account.Hex()))
	}
	if price == nil {
		price = item.Price
	}

	res, err := d.run(ctx, res, func() (*contract.PendingTx, error) {
		return b.BuyItem(ctx, id, price)
	})
	if err != nil {
		return res, err
	}

	rec := purchases.Record{
		ItemID: strconv.FormatUint(id, 10),
		Name:   item.Name,
		Price:  chain.FormatEther(price),
		TxHash: res.TxHash.Hex(),
		Date:   d.now().UTC().Format(timestampLayout),
	}
	if d.ledger != nil {
		d.ledger.Append(rec)
	}
	res.Record = &rec
	res.ReloadErr = d.reload(ctx, b)
	return res, nil
}

// TransferItem hands item id to the address to and reloads the catalog.
func (d *Dispatcher) TransferItem(ctx context.Context, b *contract.Binding, id uint64, to string) (Result, error) {
	res := Result{Action: ActionTransfer}
	if b == nil {
		return d.fail(res, errs.ErrNoBinding)
	}
	recipient, err := ParseRecipient(to)
	if err != nil {
		return d.fail(res, err)
	}

	account := b.Signer().Address()
	item, ok := d.catalog.Find(id)
	if !ok {
		return d.fail(res, errs.Validation("item %d is not in the catalog", id))
	}
	if !CanTransfer(item, account) {
		return d.fail(res, errs.Validation("item %d is not owned by %s", id, account.Hex()))
	}

	res, err = d.run(ctx, res, func() (*contract.PendingTx, error) {
		return b.TransferItem(ctx, id, recipient)
	})
	if err != nil {
		return res, err
	}
	res.ReloadErr = d.reload(ctx, b)
	return res, nil
}

// --- internal ---

// run drives submit → confirm. Once a transaction is submitted the wait for
// its receipt ignores ctx cancellation.
func (d *Dispatcher) run(ctx context.Context, res Result, submit func() (*contract.PendingTx, error)) (Result, error) {
	d.emit(Transition{Action: res.Action, State: StateSubmitting})
	res.State = StateSubmitting

	tx, err := submit()
	if err != nil {
		return d.fail(res, classify(errs.KindTransactionFailed, "submitting "+string(res.Action), err))
	}
	res.TxHash = tx.Hash
	res.State = StateAwaitingConfirmation
	d.emit(Transition{Action: res.Action, State: StateAwaitingConfirmation, TxHash: tx.Hash})
	d.log.Debug("transaction submitted", "action", res.Action, "tx", tx.Hash.Hex())

	receipt, err := tx.Wait(context.WithoutCancel(ctx))
	res.Receipt = receipt
	if err != nil {
		return d.fail(res, errs.Wrap(errs.KindTransactionFailed,
			fmt.Sprintf("%s transaction %s", res.Action, tx.Hash.Hex()), err))
	}

	res.State = StateSucceeded
	d.emit(Transition{Action: res.Action, State: StateSucceeded, TxHash: tx.Hash})
	d.log.Info("transaction confirmed", "action", res.Action, "tx", tx.Hash.Hex(), "block", receipt.BlockNumber)
	return res, nil
}

func (d *Dispatcher) fail(res Result, err error) (Result, error) {
	res.State = StateFailed
	d.emit(Transition{Action: res.Action, State: StateFailed, TxHash: res.TxHash, Err: err})
	d.log.Warn("action failed", "action", res.Action, "kind", errs.KindOf(err), "err", err)
	return res, err
}

func (d *Dispatcher) reload(ctx context.Context, b *contract.Binding) error {
	if d.catalog == nil {
		return nil
	}
	if err := d.catalog.LoadAll(ctx, b); err != nil {
		d.log.Warn("catalog reload after action failed", "err", err)
		return err
	}
	return nil
}

func (d *Dispatcher) emit(t Transition) {
	if d.onTransition != nil {
		d.onTransition(t)
	}
}
