package eth

import (
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// NativeDecimals is the fixed-point precision of every supported native asset
const NativeDecimals = 18

// MaxIntegerDigits bounds the whole-unit part of an amount, far above any
// native supply
const MaxIntegerDigits = 60

// maxAmountLength bounds the whole literal, trailing fractional zeros included
const maxAmountLength = 100

// Plain decimal notation only; exponents and signs are rejected before the
// value reaches the decimal library
var amountPattern = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?$`)

// ErrInvalidAmount is returned for amounts that are not non-negative decimals
// with at most 18 fractional digits
var ErrInvalidAmount = errors.New("invalid amount")

// ParseAmount converts a decimal string in whole units to wei
func ParseAmount(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}

	if strings.HasPrefix(s, "-") {
		return nil, fmt.Errorf("%w: must not be negative", ErrInvalidAmount)
	}
	if len(s) > maxAmountLength || !amountPattern.MatchString(s) {
		return nil, fmt.Errorf("%w: must be a plain decimal number", ErrInvalidAmount)
	}
	if whole, _, _ := strings.Cut(s, "."); len(strings.TrimLeft(whole, "0")) > MaxIntegerDigits {
		return nil, fmt.Errorf("%w: more than %d integer digits", ErrInvalidAmount, MaxIntegerDigits)
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %q is not a number", ErrInvalidAmount, s)
	}

	wei := d.Shift(NativeDecimals)
	if !wei.Equal(wei.Truncate(0)) {
		return nil, fmt.Errorf("%w: more than %d decimal places", ErrInvalidAmount, NativeDecimals)
	}
	return wei.BigInt(), nil
}

// FormatAmount renders wei as a decimal string in whole units
func FormatAmount(wei *big.Int) string {
	if wei == nil {
		return "0"
	}
	return decimal.NewFromBigInt(wei, -NativeDecimals).String()
}
