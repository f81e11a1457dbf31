package games

import (
	"errors"

	"github.com/holiman/uint256"
)

// BpsDenominator is the basis point scale used by every multiplier.
const BpsDenominator = 10_000

var (
	ErrOverflow     = errors.New("games: arithmetic overflow")
	ErrDivideByZero = errors.New("games: division by zero")
)

// MulDiv computes a*b/d with a 256-bit intermediate and truncates toward zero.
// The result must fit back into 64 bits.
func MulDiv(a, b, d uint64) (uint64, error) {
	if d == 0 {
		return 0, ErrDivideByZero
	}
	x := uint256.NewInt(a)
	x.Mul(x, uint256.NewInt(b))
	x.Div(x, uint256.NewInt(d))
	if !x.IsUint64() {
		return 0, ErrOverflow
	}
	return x.Uint64(), nil
}

// ApplyBps returns amount scaled by bps/10000.
func ApplyBps(amount uint64, bps uint64) (uint64, error) {
	return MulDiv(amount, bps, BpsDenominator)
}

// Multiply returns amount*factor, failing instead of wrapping.
func Multiply(amount uint64, factor uint64) (uint64, error) {
	return MulDiv(amount, factor, 1)
}
