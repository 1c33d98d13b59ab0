package contract

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Marketplace method names as they appear in the deployed contract.
const (
	MethodItemCount    = "itemCount"
	MethodItems        = "items"
	MethodItemsByOwner = "getItemByOwner"
	MethodListItem     = "ListItems"
	MethodBuyItem      = "buyItem"
	MethodTransferItem = "transferItem"
)

// marketABIJSON is the call surface of the marketplace contract.
const marketABIJSON = `[
  {"type":"function","name":"itemCount","stateMutability":"view","inputs":[],
   "outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"items","stateMutability":"view",
   "inputs":[{"name":"","type":"uint256"}],
   "outputs":[
     {"name":"Id","type":"uint256"},
     {"name":"name","type":"string"},
     {"name":"price","type":"uint256"},
     {"name":"seller","type":"address"},
     {"name":"owner","type":"address"},
     {"name":"isSold","type":"bool"}]},
  {"type":"function","name":"getItemByOwner","stateMutability":"view",
   "inputs":[{"name":"_owner","type":"address"}],
   "outputs":[{"name":"","type":"uint256[]"}]},
  {"type":"function","name":"ListItems","stateMutability":"nonpayable",
   "inputs":[{"name":"_name","type":"string"},{"name":"_price","type":"uint256"}],
   "outputs":[]},
  {"type":"function","name":"buyItem","stateMutability":"payable",
   "inputs":[{"name":"_id","type":"uint256"}],
   "outputs":[]},
  {"type":"function","name":"transferItem","stateMutability":"nonpayable",
   "inputs":[{"name":"_id","type":"uint256"},{"name":"_to","type":"address"}],
   "outputs":[]},
  {"type":"event","name":"ItemListed","anonymous":false,
   "inputs":[{"name":"id","type":"uint256","indexed":true},
             {"name":"name","type":"string","indexed":false},
             {"name":"price","type":"uint256","indexed":false},
             {"name":"seller","type":"address","indexed":true}]},
  {"type":"event","name":"ItemSold","anonymous":false,
   "inputs":[{"name":"id","type":"uint256","indexed":true},
             {"name":"buyer","type":"address","indexed":true}]}
]`

var marketABI = mustParseABI(marketABIJSON)

// MarketABI returns the embedded marketplace ABI.
func MarketABI() abi.ABI {
	return marketABI
}

func mustParseABI(s string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic("contract: embedded marketplace ABI: " + err.Error())
	}
	return parsed
}
