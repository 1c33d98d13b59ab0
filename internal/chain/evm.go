package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/Mohsinsiddi/w3market/internal/config"
)

// DefaultPollInterval is how often WaitForReceipt polls for a receipt.
const DefaultPollInterval = config.ReceiptPollInterval

// EVMClient is a minimal JSON-RPC client for EVM chains.
type EVMClient struct {
	url    string
	client *http.Client

	// PollInterval is the receipt polling period used by WaitForReceipt.
	PollInterval time.Duration
}

// Balance holds a native balance result.
type Balance struct {
	Wei *big.Int
	ETH string
}

// TxReceipt holds the on-chain receipt of a mined transaction.
type TxReceipt struct {
	Hash        string
	Status      uint64 // 1 = success, 0 = reverted
	BlockNumber uint64
	GasUsed     uint64
}

// NewEVMClient creates a new EVM JSON-RPC client pointed at url.
func NewEVMClient(url string) *EVMClient {
	return &EVMClient{
		url: url,
		client: &http.Client{
			Timeout: config.RPCTimeout,
		},
		PollInterval: DefaultPollInterval,
	}
}

// URL returns the endpoint this client talks to.
func (c *EVMClient) URL() string { return c.url }

// GetBalance returns the native balance for an address.
func (c *EVMClient) GetBalance(ctx context.Context, address string) (*Balance, error) {
	wei, err := c.callBig(ctx, "eth_getBalance", address, "latest")
	if err != nil {
		return nil, err
	}
	return &Balance{Wei: wei, ETH: FormatEther(wei)}, nil
}

// ChainID returns the chain's ID.
func (c *EVMClient) ChainID(ctx context.Context) (int64, error) {
	id, err := c.callBig(ctx, "eth_chainId")
	if err != nil {
		return 0, err
	}
	return id.Int64(), nil
}

// GasPrice returns the current gas price.
func (c *EVMClient) GasPrice(ctx context.Context) (*big.Int, error) {
	return c.callBig(ctx, "eth_gasPrice")
}

// GetPendingNonce returns the transaction count including pending (queued)
// transactions, using the "pending" block tag.
func (c *EVMClient) GetPendingNonce(ctx context.Context, address string) (uint64, error) {
	n, err := c.callBig(ctx, "eth_getTransactionCount", address, "pending")
	if err != nil {
		return 0, err
	}
	return n.Uint64(), nil
}

// EstimateGas estimates gas for a transaction.
func (c *EVMClient) EstimateGas(ctx context.Context, from, to, data string, value *big.Int) (uint64, error) {
	params := map[string]string{
		"from": from,
		"to":   to,
	}
	if data != "" {
		params["data"] = data
	}
	if value != nil && value.Sign() > 0 {
		params["value"] = "0x" + value.Text(16)
	}

	n, err := c.callBig(ctx, "eth_estimateGas", params, "latest")
	if err != nil {
		return 0, err
	}
	return n.Uint64(), nil
}

// CallContract calls a smart contract read function with the given calldata.
// from may be empty.
func (c *EVMClient) CallContract(ctx context.Context, from, toAddr, calldata string) (string, error) {
	params := map[string]string{
		"to":   toAddr,
		"data": calldata,
	}
	if from != "" {
		params["from"] = from
	}
	result, err := c.call(ctx, "eth_call", params, "latest")
	if err != nil {
		return "", err
	}
	s, ok := result.(string)
	if !ok {
		return "", fmt.Errorf("unexpected result: %T", result)
	}
	return s, nil
}

// SendRawTransaction broadcasts a signed raw transaction.
func (c *EVMClient) SendRawTransaction(ctx context.Context, rawTx string) (string, error) {
	result, err := c.call(ctx, "eth_sendRawTransaction", rawTx)
	if err != nil {
		return "", err
	}
	hash, ok := result.(string)
	if !ok {
		return "", fmt.Errorf("unexpected result: %T", result)
	}
	return hash, nil
}

// GetTransactionReceipt fetches the receipt for hash.
// Returns nil, nil if the transaction is still pending.
func (c *EVMClient) GetTransactionReceipt(ctx context.Context, hash string) (*TxReceipt, error) {
	result, err := c.call(ctx, "eth_getTransactionReceipt", hash)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, nil // still pending
	}

	raw, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}

	var r struct {
		Status      string `json:"status"`
		BlockNumber string `json:"blockNumber"`
		GasUsed     string `json:"gasUsed"`
	}
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, err
	}

	receipt := &TxReceipt{Hash: hash}
	if s, ok := parseBigHex(r.Status); ok {
		receipt.Status = s.Uint64()
	}
	if bn, ok := parseBigHex(r.BlockNumber); ok {
		receipt.BlockNumber = bn.Uint64()
	}
	if gu, ok := parseBigHex(r.GasUsed); ok {
		receipt.GasUsed = gu.Uint64()
	}
	return receipt, nil
}

// WaitForReceipt polls every PollInterval until the transaction is mined,
// timeout expires or ctx is done. Returns the receipt together with an error
// if the transaction reverted (Status == 0).
func (c *EVMClient) WaitForReceipt(ctx context.Context, hash string, timeout time.Duration) (*TxReceipt, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	interval := c.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		receipt, err := c.GetTransactionReceipt(ctx, hash)
		if err != nil {
			return nil, err
		}
		if receipt != nil {
			if receipt.Status == 0 {
				return receipt, fmt.Errorf("transaction reverted (hash: %s)", hash)
			}
			return receipt, nil
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("transaction %s not mined within %s", hash, timeout)
		case <-ticker.C:
		}
	}
}

// --- internal JSON-RPC plumbing ---

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
	ID      int           `json:"id"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// RPCError is a JSON-RPC level error returned by the node.
type RPCError struct {
	Code    int
	Message string
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

func (c *EVMClient) call(ctx context.Context, method string, params ...interface{}) (interface{}, error) {
	if params == nil {
		params = []interface{}{}
	}
	reqBody, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      1,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("RPC request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(body, &rpcResp); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}

	if rpcResp.Error != nil {
		return nil, &RPCError{Code: rpcResp.Error.Code, Message: rpcResp.Error.Message}
	}

	if len(rpcResp.Result) == 0 {
		return nil, nil
	}
	var result interface{}
	if err := json.Unmarshal(rpcResp.Result, &result); err != nil {
		return nil, fmt.Errorf("parsing result: %w", err)
	}

	return result, nil
}

// callBig runs method and parses a hex quantity result.
func (c *EVMClient) callBig(ctx context.Context, method string, params ...interface{}) (*big.Int, error) {
	result, err := c.call(ctx, method, params...)
	if err != nil {
		return nil, err
	}
	hexStr, ok := result.(string)
	if !ok {
		return nil, fmt.Errorf("unexpected result: %T", result)
	}
	n, ok := parseBigHex(hexStr)
	if !ok {
		return nil, fmt.Errorf("could not parse %s result: %s", method, hexStr)
	}
	return n, nil
}

func parseBigHex(s string) (*big.Int, bool) {
	s = strings.TrimPrefix(s, "0x")
	if s == "" {
		return nil, false
	}
	return new(big.Int).SetString(s, 16)
}
