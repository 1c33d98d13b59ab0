package contract

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// requiredMethods is the call surface a marketplace ABI must expose.
var requiredMethods = []string{
	MethodItemCount,
	MethodItems,
	MethodItemsByOwner,
	MethodListItem,
	MethodBuyItem,
	MethodTransferItem,
}

// LoadABI returns the marketplace ABI. An empty path yields the embedded ABI;
// otherwise path is a local file that is either:
//   - a raw ABI JSON array: [{"type":"function",...}, ...]
//   - a Hardhat/Foundry artifact: {"abi":[...],"bytecode":"0x...",...}
//
// Both formats are detected automatically.
func LoadABI(path string) (abi.ABI, error) {
	if path == "" {
		return MarketABI(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return abi.ABI{}, fmt.Errorf("cannot read ABI file: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return abi.ABI{}, fmt.Errorf("ABI file is empty: %s", path)
	}

	raw := data
	var artifact struct {
		ABI json.RawMessage `json:"abi"`
	}
	if json.Unmarshal(data, &artifact) == nil && len(artifact.ABI) > 1 && artifact.ABI[0] == '[' {
		raw = artifact.ABI
	} else if trimmed := bytes.TrimSpace(data); trimmed[0] == '{' {
		return abi.ABI{}, fmt.Errorf("file is a JSON object, not an ABI array: a Hardhat/Foundry artifact must have an \"abi\" key")
	}

	parsed, err := abi.JSON(bytes.NewReader(raw))
	if err != nil {
		return abi.ABI{}, fmt.Errorf("invalid ABI JSON in %s: %w", path, err)
	}
	if err := validateABI(parsed, path); err != nil {
		return abi.ABI{}, err
	}
	return parsed, nil
}

// validateABI checks that every marketplace method is present.
func validateABI(parsed abi.ABI, path string) error {
	var missing []string
	for _, name := range requiredMethods {
		if _, ok := parsed.Methods[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("ABI in %s is missing marketplace methods: %s", path, strings.Join(missing, ", "))
	}
	return nil
}
