package config

import "time"

// DefaultGasLimit is the gas ceiling attached to every marketplace write.
// A transaction whose estimate exceeds it is never broadcast.
const DefaultGasLimit = uint64(500_000)

// Timeout constants used across cmd and the market package.
const (
	TxConfirmTimeout    = 3 * time.Minute // standard transaction confirmation wait
	ReceiptPollInterval = 2 * time.Second
	RPCTimeout          = 15 * time.Second
)

// Local storage keys. The values match the keys the web client used so an
// exported localStorage dump can be dropped into the state file as-is.
const (
	KeyPurchaseHistory = "purchaseHistory"
	KeyTheme           = "theme"
)

// PurchaseHistoryCap bounds the local purchase log.
const PurchaseHistoryCap = 100
