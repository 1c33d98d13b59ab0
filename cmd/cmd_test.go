package cmd

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Mohsinsiddi/w3market/internal/config"
	"github.com/Mohsinsiddi/w3market/internal/contract/contracttest"
	"github.com/Mohsinsiddi/w3market/internal/errs"
	"github.com/Mohsinsiddi/w3market/internal/market"
	"github.com/Mohsinsiddi/w3market/internal/wallet"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/params"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const hardhatKey0 = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

var (
	marketAddr = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	alice      = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	bob        = common.HexToAddress("0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC")
	carol      = common.HexToAddress("0x90F79bf6EB2c4f870365E785982E1f101E93b906")
)

func ether(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(params.Ether))
}

// newEnv gives each test its own config dir and an in-memory keystore.
func newEnv(t *testing.T) string {
	t.Helper()
	origDial, origKS := dialSession, newKeystore
	ks := wallet.NewInMemoryKeystore()
	newKeystore = func(string) wallet.KeystoreBackend { return ks }
	t.Cleanup(func() {
		dialSession, newKeystore = origDial, origKS
	})
	return t.TempDir()
}

// withMarket points the CLI at an in-memory marketplace.
func withMarket(t *testing.T) *contracttest.Market {
	t.Helper()
	t.Setenv(config.EnvContract, marketAddr.Hex())
	return contracttest.NewMarket(marketAddr)
}

// actAs makes every command connect as who.
func actAs(m *contracttest.Market, who common.Address) {
	dialSession = func(context.Context, *cobra.Command) (*market.Session, error) {
		return market.NewSession(m.As(who), ether(10)), nil
	}
}

func resetFlags() {
	verbose, networkFlag, walletFlag, assumeYes = false, "", "", false
	itemsQuery, itemsOwner, itemsInteractive, watchInterval = "", "", false, 0
	listForm = market.ListingForm{}
	walletKeyFlag = ""
}

// lockedBuffer is shared by the command, its spinner goroutine and the
// logger, all of which write to stderr.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func run(t *testing.T, dir, stdin string, args ...string) (string, string, error) {
	t.Helper()
	return runContext(t, context.Background(), dir, stdin, args...)
}

func runContext(t *testing.T, ctx context.Context, dir, stdin string, args ...string) (string, string, error) {
	t.Helper()
	resetFlags()
	var out, errOut lockedBuffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(append([]string{"--config", dir}, args...))
	err := rootCmd.ExecuteContext(ctx)
	return out.String(), errOut.String(), err
}

func TestConnect(t *testing.T) {
	dir := newEnv(t)
	m := withMarket(t)
	actAs(m, bob)

	out, _, err := run(t, dir, "", "connect")
	require.NoError(t, err)
	assert.Contains(t, out, bob.Hex())
	assert.Contains(t, out, "10.0 FLOW")
	assert.Contains(t, out, "Flow EVM Testnet")
	assert.Contains(t, out, marketAddr.Hex())
	assert.Contains(t, out, "On-chain marketplace")
}

func TestConnectWithoutWallet(t *testing.T) {
	dir := newEnv(t)

	_, _, err := run(t, dir, "", "connect")
	require.Error(t, err)
	assert.Equal(t, errs.KindProviderUnavailable, errs.KindOf(err))
	assert.True(t, errors.Is(err, wallet.ErrWalletNotFound))

	var buf bytes.Buffer
	printError(&buf, err)
	assert.Contains(t, buf.String(), "wallet add")
}

func TestItems(t *testing.T) {
	dir := newEnv(t)
	m := withMarket(t)
	m.Seed("Book", ether(1), alice)
	m.Seed("Lamp", ether(2), bob)
	actAs(m, bob)

	out, _, err := run(t, dir, "", "items")
	require.NoError(t, err)
	assert.Contains(t, out, "Book")
	assert.Contains(t, out, "Lamp")
	assert.Contains(t, out, "1.0 FLOW")
	assert.Contains(t, out, "buy")
	assert.Contains(t, out, "transfer")
	assert.Contains(t, out, "you")
	assert.Contains(t, out, "2 of 2 item(s), all items")
}

func TestItemsQuery(t *testing.T) {
	dir := newEnv(t)
	m := withMarket(t)
	m.Seed("Book", ether(1), alice)
	m.Seed("Desk lamp", ether(2), alice)
	actAs(m, bob)

	out, _, err := run(t, dir, "", "items", "--query", "LAMP")
	require.NoError(t, err)
	assert.Contains(t, out, "Desk lamp")
	assert.NotContains(t, out, "Book")
	assert.Contains(t, out, "1 of 2 item(s)")

	out, _, err = run(t, dir, "", "items", "-q", "chair")
	require.NoError(t, err)
	assert.Contains(t, out, `No items match "chair"`)
}

func TestItemsEmpty(t *testing.T) {
	dir := newEnv(t)
	actAs(withMarket(t), bob)

	out, _, err := run(t, dir, "", "items")
	require.NoError(t, err)
	assert.Contains(t, out, "No items listed yet")
}

func TestItemsByOwner(t *testing.T) {
	dir := newEnv(t)
	m := withMarket(t)
	m.Seed("Book", ether(1), alice)
	m.Seed("Lamp", ether(2), bob)
	actAs(m, bob)

	out, _, err := run(t, dir, "", "items", "--owner", "me")
	require.NoError(t, err)
	assert.Contains(t, out, "Lamp")
	assert.NotContains(t, out, "Book")
	assert.Contains(t, out, "owned by "+bob.Hex())

	out, _, err = run(t, dir, "", "items", "--owner", alice.Hex())
	require.NoError(t, err)
	assert.Contains(t, out, "Book")
	assert.NotContains(t, out, "Lamp")

	_, _, err = run(t, dir, "", "items", "--owner", "nobody")
	assert.True(t, errors.Is(err, errs.ErrValidation))
}

func TestItemsLoadFailure(t *testing.T) {
	dir := newEnv(t)
	m := withMarket(t)
	m.BeforeCall = func(context.Context, string) error { return errors.New("connection refused") }
	actAs(m, bob)

	_, _, err := run(t, dir, "", "items")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrCatalogLoadFailed))
}

func TestItemsWatch(t *testing.T) {
	dir := newEnv(t)
	m := withMarket(t)
	m.Seed("Book", ether(1), alice)
	actAs(m, bob)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	out, errOut, err := runContext(t, ctx, dir, "", "items", "watch", "--interval", "50ms")
	require.NoError(t, err)
	assert.Contains(t, out, "Book")
	assert.Contains(t, errOut, "Reloading every 50ms")

	// Placeholder rows are drawn while the first load is in flight.
	skeleton := strings.Index(out, "░")
	require.GreaterOrEqual(t, skeleton, 0)
	assert.Less(t, skeleton, strings.Index(out, "Book"))
}

func TestBuy(t *testing.T) {
	dir := newEnv(t)
	m := withMarket(t)
	m.Seed("Book", ether(1), alice)
	actAs(m, bob)

	out, _, err := run(t, dir, "", "buy", "1")
	require.NoError(t, err)
	assert.Contains(t, out, `Bought #1 "Book" for 1.0 FLOW`)
	assert.Contains(t, out, "https://evm-testnet.flowscan.io/tx/0x")

	it := m.Items()[0]
	assert.Equal(t, bob, it.Owner)
	assert.True(t, it.IsSold)

	out, _, err = run(t, dir, "", "history")
	require.NoError(t, err)
	assert.Contains(t, out, "Book")
	assert.Contains(t, out, "1.0 FLOW")
	assert.Contains(t, out, "1 purchase(s)")
}

func TestBuyRejected(t *testing.T) {
	dir := newEnv(t)
	m := withMarket(t)
	m.Seed("Book", ether(1), alice)

	actAs(m, alice)
	_, _, err := run(t, dir, "", "buy", "1")
	assert.True(t, errors.Is(err, errs.ErrValidation), "owner cannot buy")

	actAs(m, bob)
	_, _, err = run(t, dir, "", "buy", "abc")
	assert.True(t, errors.Is(err, errs.ErrValidation))
	_, _, err = run(t, dir, "", "buy", "0")
	assert.True(t, errors.Is(err, errs.ErrValidation))
	_, _, err = run(t, dir, "", "buy", "9")
	assert.True(t, errors.Is(err, errs.ErrValidation))

	assert.Empty(t, m.Sent())
	out, _, err := run(t, dir, "", "history")
	require.NoError(t, err)
	assert.Contains(t, out, "No purchases yet")
}

func TestBuyOverGasCeiling(t *testing.T) {
	dir := newEnv(t)
	m := withMarket(t)
	m.Seed("Book", ether(1), alice)
	m.GasPerTx = 600_000
	actAs(m, bob)

	_, _, err := run(t, dir, "", "buy", "1")
	require.Error(t, err)
	assert.Equal(t, errs.KindTransactionFailed, errs.KindOf(err))
	assert.Empty(t, m.Sent())
}

func TestList(t *testing.T) {
	dir := newEnv(t)
	m := withMarket(t)
	actAs(m, alice)

	out, errOut, err := run(t, dir, "", "list", "--name", "Lamp", "--price", "0.5")
	require.NoError(t, err)
	assert.Contains(t, out, `Listed "Lamp" for 0.5 FLOW`)
	assert.Contains(t, errOut, "Submitting list transaction")

	items := m.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "Lamp", items[0].Name)
	assert.Equal(t, alice, items[0].Seller)
}

func TestListValidation(t *testing.T) {
	dir := newEnv(t)
	m := withMarket(t)
	actAs(m, alice)

	_, _, err := run(t, dir, "", "list", "--name", "", "--price", "1.0")
	assert.True(t, errors.Is(err, errs.ErrValidation))
	_, _, err = run(t, dir, "", "list", "--name", "Lamp", "--price", "free")
	assert.True(t, errors.Is(err, errs.ErrValidation))
	assert.Empty(t, m.Sent())
}

func TestInvalidInputNeverDialsWallet(t *testing.T) {
	dir := newEnv(t)
	withMarket(t)
	dialed := 0
	dialSession = func(context.Context, *cobra.Command) (*market.Session, error) {
		dialed++
		return nil, errs.New(errs.KindProviderUnavailable, "should not connect")
	}

	_, _, err := run(t, dir, "", "list", "--name", " ", "--price", "1")
	assert.True(t, errors.Is(err, errs.ErrValidation))
	_, _, err = run(t, dir, "", "list", "--name", "Lamp", "--price", "0")
	assert.True(t, errors.Is(err, errs.ErrValidation))
	_, _, err = run(t, dir, "", "transfer", "1", "0xnope")
	assert.True(t, errors.Is(err, errs.ErrValidation))
	_, _, err = run(t, dir, "", "transfer", "1", "")
	assert.True(t, errors.Is(err, errs.ErrValidation))

	assert.Zero(t, dialed)
}

func TestTransfer(t *testing.T) {
	dir := newEnv(t)
	m := withMarket(t)
	m.Seed("Book", ether(1), alice)

	actAs(m, bob)
	_, _, err := run(t, dir, "", "transfer", "1", carol.Hex())
	assert.True(t, errors.Is(err, errs.ErrValidation), "only the owner transfers")

	actAs(m, alice)
	_, _, err = run(t, dir, "", "transfer", "1", "0xnope")
	assert.True(t, errors.Is(err, errs.ErrValidation))

	out, _, err := run(t, dir, "", "transfer", "1", carol.Hex())
	require.NoError(t, err)
	assert.Contains(t, out, "Transferred #1")
	assert.Equal(t, carol, m.Items()[0].Owner)
}

func TestHistoryClear(t *testing.T) {
	dir := newEnv(t)
	m := withMarket(t)
	m.Seed("Book", ether(1), alice)
	actAs(m, bob)
	_, _, err := run(t, dir, "", "buy", "1")
	require.NoError(t, err)

	out, errOut, err := run(t, dir, "n\n", "history", "clear")
	require.NoError(t, err)
	assert.Contains(t, out, "Cancelled")
	assert.Contains(t, errOut, "Delete 1 purchase record(s)?")
	out, _, _ = run(t, dir, "", "history")
	assert.Contains(t, out, "Book")

	out, _, err = run(t, dir, "y\n", "history", "clear")
	require.NoError(t, err)
	assert.Contains(t, out, "cleared")
	out, _, _ = run(t, dir, "", "history")
	assert.Contains(t, out, "No purchases yet")

	out, _, err = run(t, dir, "", "history", "clear")
	require.NoError(t, err)
	assert.Contains(t, out, "No purchases to clear")
}

func TestTheme(t *testing.T) {
	dir := newEnv(t)

	out, _, err := run(t, dir, "", "theme")
	require.NoError(t, err)
	assert.Contains(t, out, "dark")

	out, _, err = run(t, dir, "", "theme", "toggle")
	require.NoError(t, err)
	assert.Contains(t, out, "light")

	out, _, _ = run(t, dir, "", "theme")
	assert.Contains(t, out, "light")

	_, _, err = run(t, dir, "", "theme", "set", "neon")
	assert.True(t, errors.Is(err, errs.ErrValidation))

	_, _, err = run(t, dir, "", "theme", "set", "dark")
	require.NoError(t, err)
	out, _, _ = run(t, dir, "", "theme")
	assert.Contains(t, out, "dark")
}

func TestWalletCommands(t *testing.T) {
	dir := newEnv(t)

	out, _, err := run(t, dir, "", "wallet", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No wallets configured")

	out, _, err = run(t, dir, "", "wallet", "add", "alice", "--key", hardhatKey0)
	require.NoError(t, err)
	assert.Contains(t, out, "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")

	_, _, err = run(t, dir, "", "wallet", "add", "shop", strings.ToLower(bob.Hex()))
	require.NoError(t, err)

	_, _, err = run(t, dir, "", "wallet", "add", "broken")
	assert.Error(t, err)

	_, _, err = run(t, dir, "", "wallet", "use", "shop")
	require.NoError(t, err)

	out, _, err = run(t, dir, "", "wallet", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "alice")
	assert.Contains(t, out, "read-write")
	assert.Contains(t, out, bob.Hex())
	assert.Contains(t, out, "watch-only")
	assert.Contains(t, out, "2 wallet(s)")

	out, _, _ = run(t, dir, "", "config", "show")
	assert.Contains(t, out, `"default_wallet": "shop"`)

	_, _, err = run(t, dir, "y\n", "wallet", "remove", "shop")
	require.NoError(t, err)
	out, _, _ = run(t, dir, "", "config", "show")
	assert.Contains(t, out, `"default_wallet": ""`)

	_, _, err = run(t, dir, "", "wallet", "use", "shop")
	assert.True(t, errors.Is(err, wallet.ErrWalletNotFound))
}

func TestConfigCommands(t *testing.T) {
	dir := newEnv(t)

	out, _, err := run(t, dir, "", "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, `"network": "flow-testnet"`)
	assert.Contains(t, out, "https://testnet.evm.nodes.onflow.org")

	_, _, err = run(t, dir, "", "config", "set-network", "localhost")
	require.NoError(t, err)
	_, _, err = run(t, dir, "", "config", "set-network", "goerli")
	assert.True(t, errors.Is(err, errs.ErrValidation))

	_, _, err = run(t, dir, "", "config", "set-rpc", "http://127.0.0.1:9545")
	require.NoError(t, err)
	_, _, err = run(t, dir, "", "config", "set-rpc", "not a url")
	assert.True(t, errors.Is(err, errs.ErrValidation))

	lower := strings.ToLower(marketAddr.Hex())
	_, _, err = run(t, dir, "", "config", "set-contract", lower)
	require.NoError(t, err)
	_, _, err = run(t, dir, "", "config", "set-contract", "0x123")
	assert.True(t, errors.Is(err, errs.ErrValidation))

	out, _, err = run(t, dir, "", "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, `"network": "localhost"`)
	assert.Contains(t, out, "http://127.0.0.1:9545 (chain 31337)")
	assert.Contains(t, out, marketAddr.Hex())
}

func TestNetworkFlag(t *testing.T) {
	dir := newEnv(t)
	m := withMarket(t)
	actAs(m, bob)

	out, _, err := run(t, dir, "", "--network", "localhost", "connect")
	require.NoError(t, err)
	assert.Contains(t, out, "10.0 ETH")

	_, _, err = run(t, dir, "", "--network", "ropsten", "connect")
	assert.True(t, errors.Is(err, errs.ErrValidation))
}

func TestParseItemID(t *testing.T) {
	for in, want := range map[string]uint64{"1": 1, "#7": 7, " 42 ": 42} {
		got, err := parseItemID(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	for _, in := range []string{"", "0", "-1", "x", "1.5"} {
		_, err := parseItemID(in)
		assert.True(t, errors.Is(err, errs.ErrValidation), in)
	}
}

func TestHintFor(t *testing.T) {
	assert.Contains(t, hintFor(errs.New(errs.KindUserRejected, "no")), "Nothing was sent")
	assert.Contains(t, hintFor(errs.New(errs.KindNoBinding, "")), "connect")
	assert.Contains(t, hintFor(errs.New(errs.KindCatalogLoadFailed, "")), "config show")
	assert.Contains(t, hintFor(errs.New(errs.KindProviderUnavailable, "")), "RPC")
	assert.Empty(t, hintFor(errors.New("plain")))
}
