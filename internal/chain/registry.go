package chain

import (
	"errors"
	"sort"
	"strings"
)

// ErrNetworkNotFound is returned when a network is not in the registry.
var ErrNetworkNotFound = errors.New("network not found")

// Network holds the metadata for one EVM network the marketplace runs on.
type Network struct {
	Name           string `json:"name"`
	DisplayName    string `json:"display_name"`
	ChainID        int64  `json:"chain_id"`
	NativeCurrency string `json:"native_currency"`
	RPCURL         string `json:"rpc_url"`
	Explorer       string `json:"explorer"` // empty for local nodes
}

// TxURL returns the explorer link for a transaction, or "" when the network
// has no explorer.
func (n *Network) TxURL(hash string) string {
	if n.Explorer == "" {
		return ""
	}
	return n.Explorer + "/tx/" + hash
}

// AddressURL returns the explorer link for an account or contract, or "".
func (n *Network) AddressURL(addr string) string {
	if n.Explorer == "" {
		return ""
	}
	return n.Explorer + "/address/" + addr
}

// Registry is the network registry.
type Registry struct {
	byName map[string]*Network
}

// NewRegistry returns the registry of known networks.
func NewRegistry() *Registry {
	r := &Registry{byName: make(map[string]*Network)}
	for _, n := range allNetworks() {
		n := n
		r.byName[n.Name] = &n
	}
	return r
}

// All returns every network sorted by name.
func (r *Registry) All() []Network {
	out := make([]Network, 0, len(r.byName))
	for _, n := range r.byName {
		out = append(out, *n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// GetByName finds a network by its slug (case-insensitive).
func (r *Registry) GetByName(name string) (*Network, error) {
	n, ok := r.byName[strings.ToLower(name)]
	if !ok {
		return nil, ErrNetworkNotFound
	}
	return n, nil
}

// --- network data ---

func allNetworks() []Network {
	return []Network{
		{
			Name: "flow-testnet", DisplayName: "Flow EVM Testnet", ChainID: 545,
			NativeCurrency: "FLOW",
			RPCURL:         "https://testnet.evm.nodes.onflow.org",
			Explorer:       "https://evm-testnet.flowscan.io",
		},
		{
			Name: "flow-mainnet", DisplayName: "Flow EVM", ChainID: 747,
			NativeCurrency: "FLOW",
			RPCURL:         "https://mainnet.evm.nodes.onflow.org",
			Explorer:       "https://evm.flowscan.io",
		},
		{
			Name: "localhost", DisplayName: "Local node", ChainID: 31337,
			NativeCurrency: "ETH",
			RPCURL:         "http://127.0.0.1:8545",
		},
	}
}
