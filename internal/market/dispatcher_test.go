package market_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Mohsinsiddi/w3market/internal/chain"
	"github.com/Mohsinsiddi/w3market/internal/contract"
	"github.com/Mohsinsiddi/w3market/internal/contract/contracttest"
	"github.com/Mohsinsiddi/w3market/internal/errs"
	"github.com/Mohsinsiddi/w3market/internal/market"
	"github.com/Mohsinsiddi/w3market/internal/purchases"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 10, 19, 12, 30, 0, 0, time.UTC)

type fixture struct {
	market  *contracttest.Market
	catalog *market.Catalog
	ledger  *purchases.Ledger
	disp    *market.Dispatcher

	mu          sync.Mutex
	transitions []market.Transition
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		market:  newMarket(t),
		catalog: market.NewCatalog(),
		ledger:  newTestLedger(t),
	}
	f.disp = market.NewDispatcher(f.catalog, f.ledger,
		market.WithClock(func() time.Time { return fixedNow }),
		market.WithTransitionHook(func(tr market.Transition) {
			f.mu.Lock()
			f.transitions = append(f.transitions, tr)
			f.mu.Unlock()
		}),
	)
	return f
}

// load refreshes the catalog as who.
func (f *fixture) load(t *testing.T, who common.Address) *contract.Binding {
	t.Helper()
	b := bindAs(f.market, who)
	require.NoError(t, f.catalog.LoadAll(context.Background(), b))
	return b
}

func (f *fixture) states() []market.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]market.State, len(f.transitions))
	for i, tr := range f.transitions {
		out[i] = tr.State
	}
	return out
}

var happyPath = []market.State{
	market.StateSubmitting,
	market.StateAwaitingConfirmation,
	market.StateSucceeded,
}

func TestBuyItemRecordsPurchase(t *testing.T) {
	f := newFixture(t)
	f.market.Seed("Book", ether(1), alice)
	b := f.load(t, bob)

	res, err := f.disp.BuyItem(context.Background(), b, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, market.StateSucceeded, res.State)
	assert.NoError(t, res.ReloadErr)
	require.NotNil(t, res.Receipt)
	assert.Equal(t, uint64(1), res.Receipt.Status)

	require.NotNil(t, res.Record)
	want := purchases.Record{
		ItemID: "1",
		Name:   "Book",
		Price:  "1.0",
		TxHash: res.TxHash.Hex(),
		Date:   "2026-10-19T12:30:00.000Z",
	}
	assert.Equal(t, want, *res.Record)

	records := f.ledger.Records()
	require.Len(t, records, 1)
	assert.Equal(t, want, records[0])

	it, ok := f.catalog.Find(1)
	require.True(t, ok)
	assert.Equal(t, bob, it.Owner)
	assert.True(t, it.IsSold)
	assert.False(t, market.CanBuy(it, bob))
	assert.True(t, market.CanTransfer(it, bob))

	assert.Equal(t, happyPath, f.states())
}

func TestBuyItemPaysCatalogPrice(t *testing.T) {
	f := newFixture(t)
	f.market.Seed("Lamp", ether(3), alice)
	b := f.load(t, bob)

	_, err := f.disp.BuyItem(context.Background(), b, 1, nil)
	require.NoError(t, err)

	sent := f.market.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, ether(3), sent[0].Value)
	assert.Equal(t, uint64(500_000), sent[0].GasLimit)
}

func TestBuyItemRejectsIneligible(t *testing.T) {
	f := newFixture(t)
	f.market.Seed("Mine", ether(1), bob)
	f.market.Seed("Sold", ether(1), alice)
	_, err := f.disp.BuyItem(context.Background(), f.load(t, carol), 2, nil)
	require.NoError(t, err)
	b := f.load(t, bob)
	f.mu.Lock()
	f.transitions = nil
	f.mu.Unlock()

	for _, id := range []uint64{1, 2, 99} {
		t.Run(fmt.Sprint(id), func(t *testing.T) {
			res, err := f.disp.BuyItem(context.Background(), b, id, nil)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errs.ErrValidation))
			assert.Equal(t, market.StateFailed, res.State)
			assert.Equal(t, common.Hash{}, res.TxHash)
		})
	}
	assert.Len(t, f.market.Sent(), 1, "only the setup purchase was sent")
	assert.Equal(t, 1, f.ledger.Len())
}

func TestBuyItemRevert(t *testing.T) {
	f := newFixture(t)
	f.market.Seed("Book", ether(1), alice)
	b := f.load(t, bob)

	// Wrong payment is mined and reverted by the contract.
	res, err := f.disp.BuyItem(context.Background(), b, 1, ether(2))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrTransactionFailed))
	assert.Contains(t, err.Error(), "reverted")
	assert.Equal(t, market.StateFailed, res.State)
	assert.NotEqual(t, common.Hash{}, res.TxHash)
	assert.Nil(t, res.Record)

	assert.Zero(t, f.ledger.Len())
	it, _ := f.catalog.Find(1)
	assert.Equal(t, alice, it.Owner)
	assert.False(t, it.IsSold)

	assert.Equal(t, []market.State{
		market.StateSubmitting,
		market.StateAwaitingConfirmation,
		market.StateFailed,
	}, f.states())
}

func TestGasCeilingExceeded(t *testing.T) {
	f := newFixture(t)
	f.market.Seed("Book", ether(1), alice)
	f.market.GasPerTx = 600_000
	b := f.load(t, bob)

	res, err := f.disp.BuyItem(context.Background(), b, 1, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrTransactionFailed))
	assert.Equal(t, market.StateFailed, res.State)
	assert.Equal(t, common.Hash{}, res.TxHash)

	assert.Empty(t, f.market.Sent())
	assert.Zero(t, f.ledger.Len())
	assert.Equal(t, []market.State{market.StateSubmitting, market.StateFailed}, f.states())
}

func TestUserRejectionKeepsKind(t *testing.T) {
	f := newFixture(t)
	f.market.Seed("Book", ether(1), alice)
	f.market.SendErr = errs.New(errs.KindUserRejected, "transaction rejected")
	b := f.load(t, bob)

	res, err := f.disp.BuyItem(context.Background(), b, 1, nil)
	require.Error(t, err)
	assert.Equal(t, errs.KindUserRejected, errs.KindOf(err))
	assert.Equal(t, market.StateFailed, res.State)
	assert.Zero(t, f.ledger.Len())
}

func TestListItem(t *testing.T) {
	f := newFixture(t)
	b := f.load(t, alice)

	form := &market.ListingForm{Name: "  Lamp ", Price: "0.5"}
	res, err := f.disp.ListItem(context.Background(), b, form)
	require.NoError(t, err)
	assert.Equal(t, market.StateSucceeded, res.State)
	assert.Nil(t, res.Record)
	assert.Equal(t, market.ListingForm{}, *form)

	items := f.catalog.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "Lamp", items[0].Name)
	assert.Equal(t, "500000000000000000", items[0].Price.String())
	assert.Equal(t, alice, items[0].Seller)
	assert.Equal(t, alice, items[0].Owner)
	assert.False(t, items[0].IsSold)
	assert.Equal(t, happyPath, f.states())
}

func TestListItemValidation(t *testing.T) {
	tests := []struct {
		name string
		form market.ListingForm
	}{
		{"empty name", market.ListingForm{Name: "", Price: "1.0"}},
		{"blank name", market.ListingForm{Name: "   ", Price: "1.0"}},
		{"empty price", market.ListingForm{Name: "Book", Price: ""}},
		{"zero price", market.ListingForm{Name: "Book", Price: "0"}},
		{"negative price", market.ListingForm{Name: "Book", Price: "-1"}},
		{"garbage price", market.ListingForm{Name: "Book", Price: "one"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			b := f.load(t, alice)
			form := tt.form

			res, err := f.disp.ListItem(context.Background(), b, &form)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errs.ErrValidation))
			assert.Equal(t, market.StateFailed, res.State)
			assert.Equal(t, tt.form, form, "form kept on failure")
			assert.Empty(t, f.market.Sent())
			assert.Equal(t, []market.State{market.StateFailed}, f.states())
		})
	}
}

func TestListingFormValidate(t *testing.T) {
	name, price, err := market.ListingForm{Name: "  Lamp ", Price: "0.5"}.Validate()
	require.NoError(t, err)
	assert.Equal(t, "Lamp", name)
	assert.Equal(t, "0.5", chain.FormatEther(price))

	for _, f := range []market.ListingForm{
		{Name: "", Price: "1"},
		{Name: "Lamp", Price: ""},
		{Name: "Lamp", Price: "-1"},
		{Name: "Lamp", Price: "0"},
	} {
		_, _, err := f.Validate()
		assert.True(t, errors.Is(err, errs.ErrValidation), "%+v", f)
	}
}

func TestParseRecipient(t *testing.T) {
	addr, err := market.ParseRecipient(" " + carol.Hex() + " ")
	require.NoError(t, err)
	assert.Equal(t, carol, addr)

	for _, in := range []string{"", "  ", "0xnope", "carol"} {
		_, err := market.ParseRecipient(in)
		assert.True(t, errors.Is(err, errs.ErrValidation), "%q", in)
	}
}

func TestListItemFailureKeepsForm(t *testing.T) {
	f := newFixture(t)
	f.market.GasPerTx = 900_000
	b := f.load(t, alice)

	form := &market.ListingForm{Name: "Book", Price: "1.0"}
	_, err := f.disp.ListItem(context.Background(), b, form)
	require.Error(t, err)
	assert.Equal(t, "Book", form.Name)
	assert.Equal(t, "1.0", form.Price)
}

func TestTransferItem(t *testing.T) {
	f := newFixture(t)
	f.market.Seed("Book", ether(1), alice)
	b := f.load(t, alice)

	res, err := f.disp.TransferItem(context.Background(), b, 1, carol.Hex())
	require.NoError(t, err)
	assert.Equal(t, market.StateSucceeded, res.State)

	it, _ := f.catalog.Find(1)
	assert.Equal(t, carol, it.Owner)
	assert.False(t, market.CanTransfer(it, alice))
	assert.True(t, market.CanTransfer(it, carol))
}

func TestTransferItemValidation(t *testing.T) {
	f := newFixture(t)
	f.market.Seed("Book", ether(1), alice)
	ctx := context.Background()

	owner := f.load(t, alice)
	for _, to := range []string{"", "not-an-address", "0x1234"} {
		_, err := f.disp.TransferItem(ctx, owner, 1, to)
		assert.True(t, errors.Is(err, errs.ErrValidation), "recipient %q", to)
	}

	stranger := f.load(t, bob)
	_, err := f.disp.TransferItem(ctx, stranger, 1, carol.Hex())
	assert.True(t, errors.Is(err, errs.ErrValidation))

	_, err = f.disp.TransferItem(ctx, owner, 42, carol.Hex())
	assert.True(t, errors.Is(err, errs.ErrValidation))

	assert.Empty(t, f.market.Sent())
}

func TestActionsWithoutBinding(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.disp.ListItem(ctx, nil, &market.ListingForm{Name: "Book", Price: "1"})
	assert.True(t, errors.Is(err, errs.ErrNoBinding))
	_, err = f.disp.BuyItem(ctx, nil, 1, nil)
	assert.True(t, errors.Is(err, errs.ErrNoBinding))
	_, err = f.disp.TransferItem(ctx, nil, 1, carol.Hex())
	assert.True(t, errors.Is(err, errs.ErrNoBinding))
}

func TestConfirmationSurvivesCancellation(t *testing.T) {
	f := newFixture(t)
	f.market.Seed("Book", ether(1), alice)
	b := f.load(t, bob)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	disp := market.NewDispatcher(f.catalog, f.ledger, market.WithTransitionHook(func(tr market.Transition) {
		if tr.State == market.StateAwaitingConfirmation {
			cancel()
		}
	}))

	res, err := disp.BuyItem(ctx, b, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, market.StateSucceeded, res.State)
	assert.Equal(t, 1, f.ledger.Len())

	// The follow-up reload runs on the cancelled context and fails; the
	// previous catalog stays.
	require.Error(t, res.ReloadErr)
	assert.True(t, errors.Is(res.ReloadErr, errs.ErrCatalogLoadFailed))
	it, _ := f.catalog.Find(1)
	assert.False(t, it.IsSold)
}

func TestReloadFailureAfterSuccess(t *testing.T) {
	f := newFixture(t)
	b := f.load(t, alice)
	f.market.BeforeCall = func(context.Context, string) error { return errors.New("rpc down") }

	form := &market.ListingForm{Name: "Book", Price: "1"}
	res, err := f.disp.ListItem(context.Background(), b, form)
	require.NoError(t, err)
	assert.Equal(t, market.StateSucceeded, res.State)
	assert.Error(t, res.ReloadErr)
	assert.Empty(t, form.Name)
	assert.Len(t, f.market.Items(), 1)
	assert.Empty(t, f.catalog.Items())
}

func TestTransitionCarriesHash(t *testing.T) {
	f := newFixture(t)
	f.market.Seed("Book", ether(1), alice)
	b := f.load(t, bob)

	res, err := f.disp.BuyItem(context.Background(), b, 1, nil)
	require.NoError(t, err)

	f.mu.Lock()
	defer f.mu.Unlock()
	require.Len(t, f.transitions, 3)
	assert.Equal(t, common.Hash{}, f.transitions[0].TxHash)
	assert.Equal(t, res.TxHash, f.transitions[1].TxHash)
	assert.Equal(t, res.TxHash, f.transitions[2].TxHash)
	for _, tr := range f.transitions {
		assert.Equal(t, market.ActionBuy, tr.Action)
		assert.NoError(t, tr.Err)
	}
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", market.StateIdle.String())
	assert.Equal(t, "awaiting confirmation", market.StateAwaitingConfirmation.String())
	assert.True(t, market.StateSucceeded.Terminal())
	assert.True(t, market.StateFailed.Terminal())
	assert.False(t, market.StateSubmitting.Terminal())
}
