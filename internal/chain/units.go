package chain

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/params"
)

const etherDecimals = 18

var weiPerEther = big.NewInt(params.Ether)

// FormatEther renders a wei amount as a decimal ether string. Trailing zeros
// are trimmed but one fractional digit is always kept: 1e18 → "1.0".
func FormatEther(wei *big.Int) string {
	if wei == nil {
		return "0.0"
	}
	sign := ""
	abs := new(big.Int).Set(wei)
	if abs.Sign() < 0 {
		sign = "-"
		abs.Neg(abs)
	}

	whole, frac := new(big.Int).QuoRem(abs, weiPerEther, new(big.Int))
	fracStr := frac.String()
	fracStr = strings.Repeat("0", etherDecimals-len(fracStr)) + fracStr
	fracStr = strings.TrimRight(fracStr, "0")
	if fracStr == "" {
		fracStr = "0"
	}
	return sign + whole.String() + "." + fracStr
}

// ParseEther converts a decimal ether string ("1.5", "0.001", "2") to wei.
// At most 18 fractional digits are accepted; negative values are rejected.
func ParseEther(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty amount")
	}
	if strings.HasPrefix(s, "-") {
		return nil, fmt.Errorf("negative amount %q", s)
	}
	s = strings.TrimPrefix(s, "+")

	whole, frac, hasDot := strings.Cut(s, ".")
	if hasDot && whole == "" && frac == "" {
		return nil, fmt.Errorf("invalid amount %q", s)
	}
	if len(frac) > etherDecimals {
		return nil, fmt.Errorf("too many decimal places in %q (max %d)", s, etherDecimals)
	}
	if whole == "" {
		whole = "0"
	}
	if !isDigits(whole) || (frac != "" && !isDigits(frac)) {
		return nil, fmt.Errorf("invalid amount %q", s)
	}

	digits := whole + frac + strings.Repeat("0", etherDecimals-len(frac))
	wei, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", s)
	}
	return wei, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
