package house

import "github.com/holiman/uint256"

// mulDiv returns a*b/d and false when d is zero or the result overflows.
func mulDiv(a, b, d uint64) (uint64, bool) {
	if d == 0 {
		return 0, false
	}
	x := uint256.NewInt(a)
	x.Mul(x, uint256.NewInt(b))
	x.Div(x, uint256.NewInt(d))
	if !x.IsUint64() {
		return 0, false
	}
	return x.Uint64(), true
}

// withdrawable is the profit share the authority may still take out, bounded
// by what the vault holds above its reserve.
func withdrawable(h *House, vault uint64) uint64 {
	if h == nil || h.TotalProfit <= 0 {
		return 0
	}
	limit, ok := mulDiv(uint64(h.TotalProfit), h.WithdrawLimitBps, BpsDenominator)
	if !ok || limit <= h.TotalWithdrawn {
		return 0
	}
	limit -= h.TotalWithdrawn
	reserved := h.Reserved()
	if vault <= reserved {
		return 0
	}
	if free := vault - reserved; free < limit {
		return free
	}
	return limit
}
