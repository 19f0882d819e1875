package evm

import (
	"math/big"
)

const (
	// NativeDecimals is the fractional precision of the chain's native token.
	NativeDecimals = 12
	// EthDecimals is the precision Ethereum clients expect for wei amounts.
	EthDecimals = 18
)

// Amount is a fixed-point currency amount: Value scaled by 10^Decimals.
type Amount struct {
	Value    *big.Int
	Decimals uint8
}

func NewAmount(value *big.Int, decimals uint8) Amount {
	if value == nil {
		value = big.NewInt(0)
	}
	return Amount{Value: new(big.Int).Set(value), Decimals: decimals}
}

// Rescale converts the amount to another precision. Scaling down truncates.
func (a Amount) Rescale(decimals uint8) Amount {
	value := new(big.Int)
	if a.Value != nil {
		value.Set(a.Value)
	}
	switch {
	case decimals > a.Decimals:
		value.Mul(value, pow10(decimals-a.Decimals))
	case decimals < a.Decimals:
		value.Quo(value, pow10(a.Decimals-decimals))
	}
	return Amount{Value: value, Decimals: decimals}
}

// String renders the amount as a decimal number.
func (a Amount) String() string {
	if a.Value == nil {
		return "0"
	}
	if a.Decimals == 0 {
		return a.Value.String()
	}
	rat := new(big.Rat).SetFrac(a.Value, pow10(a.Decimals))
	return rat.FloatString(int(a.Decimals))
}

// NativeToEth rescales a native fee to 18 decimals.
func NativeToEth(value *big.Int, nativeDecimals uint8) *big.Int {
	return NewAmount(value, nativeDecimals).Rescale(EthDecimals).Value
}

func pow10(n uint8) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}
