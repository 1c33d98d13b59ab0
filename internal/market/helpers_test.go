package market_test

import (
	"math/big"
	"path/filepath"
	"testing"

	"github.com/Mohsinsiddi/w3market/internal/config"
	"github.com/Mohsinsiddi/w3market/internal/contract"
	"github.com/Mohsinsiddi/w3market/internal/contract/contracttest"
	"github.com/Mohsinsiddi/w3market/internal/purchases"
	"github.com/Mohsinsiddi/w3market/internal/storage"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/params"
)

var (
	marketAddr = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	alice      = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	bob        = common.HexToAddress("0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC")
	carol      = common.HexToAddress("0x90F79bf6EB2c4f870365E785982E1f101E93b906")
)

func ether(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(params.Ether))
}

func newMarket(t *testing.T) *contracttest.Market {
	t.Helper()
	return contracttest.NewMarket(marketAddr)
}

func bindAs(m *contracttest.Market, who common.Address) *contract.Binding {
	return contract.Bind(m.Address(), m.ABI(), m.As(who)).WithGasLimit(config.DefaultGasLimit)
}

func newTestLedger(t *testing.T) *purchases.Ledger {
	t.Helper()
	store := storage.NewLocal(filepath.Join(t.TempDir(), "state.json"))
	l := purchases.NewLedger(store, nil)
	l.Load()
	return l
}

func itemIDs(items []contract.Item) []uint64 {
	ids := make([]uint64, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	return ids
}
