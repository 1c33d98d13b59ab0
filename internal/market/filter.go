package market

import (
	"strings"

	"github.com/Mohsinsiddi/w3market/internal/contract"
	"github.com/ethereum/go-ethereum/common"
)

// A zero common.Address stands for "absent" for both accounts and owners.
// Addresses compare as bytes, so checksum casing never matters.

// CanBuy reports whether account may buy item: someone else owns it and it
// has not been sold.
func CanBuy(item contract.Item, account common.Address) bool {
	return account != (common.Address{}) &&
		item.Owner != (common.Address{}) &&
		item.Owner != account &&
		!item.IsSold
}

// CanTransfer reports whether account owns item.
func CanTransfer(item contract.Item, account common.Address) bool {
	return account != (common.Address{}) &&
		item.Owner != (common.Address{}) &&
		item.Owner == account
}

// Matches reports whether item's name contains query, ignoring case. An empty
// query matches everything.
func Matches(item contract.Item, query string) bool {
	if query == "" {
		return true
	}
	return strings.Contains(strings.ToLower(item.Name), strings.ToLower(query))
}

// Filter returns the items matching query in their original order.
func Filter(items []contract.Item, query string) []contract.Item {
	out := make([]contract.Item, 0, len(items))
	for _, it := range items {
		if Matches(it, query) {
			out = append(out, it)
		}
	}
	return out
}
