package config

// Config holds all w3market configuration.
type Config struct {
	Network         string `json:"network"`           // registry slug, e.g. "flow-testnet"
	RPCURL          string `json:"rpc_url,omitempty"` // overrides the network's default RPC
	ContractAddress string `json:"contract_address"`
	ABIPath         string `json:"abi_path,omitempty"` // raw ABI or Hardhat/Foundry artifact
	DefaultWallet   string `json:"default_wallet"`
	GasLimit        uint64 `json:"gas_limit"`
	FetchWorkers    int    `json:"fetch_workers"`
	WatchInterval   int    `json:"watch_interval"` // seconds

	// internal: config dir path used for Save()
	configDir string
}
