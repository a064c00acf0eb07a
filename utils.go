package valoremrfq

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

const (
	MaxDecimals = 18

	// USDCDecimals is the precision of the settlement token.
	USDCDecimals = 6
)

// ParseUnits converts a human-readable decimal amount such as "100.5" into
// base units. Digits beyond decimals are rejected rather than truncated.
func ParseUnits(amount string, decimals int) (*big.Int, error) {
	if decimals < 0 || decimals > MaxDecimals {
		return nil, &InvalidParamError{Message: fmt.Sprintf("decimals must be between 0 and %d, got: %d", MaxDecimals, decimals)}
	}

	amount = strings.TrimSpace(amount)
	// decimal accepts signs and exponents; amounts are plain positive numbers.
	if amount == "" || strings.ContainsAny(amount, "+-eE") {
		return nil, &InvalidParamError{Message: fmt.Sprintf("invalid amount format: %q", amount)}
	}
	if strings.HasPrefix(amount, ".") {
		amount = "0" + amount
	}

	d, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, &InvalidParamError{Message: fmt.Sprintf("invalid amount format: %q", amount)}
	}
	if d.Sign() <= 0 {
		return nil, &InvalidParamError{Message: "calculated amount is zero or negative"}
	}

	scaled := d.Shift(int32(decimals))
	if !scaled.IsInteger() {
		return nil, &InvalidParamError{Message: fmt.Sprintf("amount %s has more than %d decimals", amount, decimals)}
	}
	result := scaled.BigInt()

	// Validate result fits in uint256
	if _, overflow := uint256.FromBig(result); overflow {
		return nil, &InvalidParamError{Message: fmt.Sprintf("amount too large for uint256: %s", result.String())}
	}
	return result, nil
}

// FormatUnits renders base units as a decimal string without trailing zeros.
func FormatUnits(value *big.Int, decimals int) string {
	if value == nil {
		return "0"
	}
	return decimal.NewFromBigInt(value, -int32(decimals)).String()
}
