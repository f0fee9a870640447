package api

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Josue19-08/Xelma-Blockchain/internal/model"
)

// The wire format carries token and price values as decimal strings
// ("12.5" tokens); internally everything is int64/uint64 stroops.
// Conversion happens only at this boundary.

var (
	errBadAmount = errors.New("api: amount must be a positive decimal with at most 7 fractional digits")
	errBadPrice  = errors.New("api: price must be a positive decimal with at most 7 fractional digits")
)

var stroopScale = decimal.NewFromInt(model.StroopsPerToken)

// parseTokens converts a decimal token string into stroops.
func parseTokens(s string) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, errBadAmount
	}
	scaled := d.Mul(stroopScale)
	if !scaled.IsInteger() {
		return 0, errBadAmount
	}
	if !scaled.BigInt().IsInt64() {
		return 0, errBadAmount
	}
	v := scaled.BigInt().Int64()
	if v <= 0 {
		return 0, errBadAmount
	}
	return v, nil
}

// parsePrice converts a decimal price string into stroops.
func parsePrice(s string) (uint64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, errBadPrice
	}
	scaled := d.Mul(stroopScale)
	if !scaled.IsInteger() {
		return 0, errBadPrice
	}
	bi := scaled.BigInt()
	if bi.Sign() <= 0 || !bi.IsUint64() {
		return 0, errBadPrice
	}
	return bi.Uint64(), nil
}

// formatStroops renders stroops as a decimal token string.
func formatStroops(v int64) string {
	return trimZeros(decimal.New(v, -7).String())
}

// formatPrice renders a stroop price as a decimal string.
func formatPrice(v uint64) string {
	return trimZeros(decimal.NewFromUint64(v).Shift(-7).String())
}

// trimZeros drops insignificant fractional zeros ("12.5000000" -> "12.5").
func trimZeros(s string) string {
	if !strings.Contains(s, ".") {
		return s
	}
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}
