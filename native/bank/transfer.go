package bank

import (
	"fmt"

	coreerrors "wagerchain/core/errors"
)

var (
	ErrInsufficientBalance = coreerrors.New(coreerrors.KindResource, "bank: insufficient balance")
	ErrBalanceOverflow     = coreerrors.New(coreerrors.KindState, "bank: balance overflow")
	ErrSelfTransfer        = coreerrors.New(coreerrors.KindValidation, "bank: sender and recipient must differ")
)

// Ledger is the account balance store the transfer primitive operates on.
type Ledger interface {
	BalanceGet(addr [20]byte) (uint64, error)
	BalancePut(addr [20]byte, amount uint64) error
}

// Transfer debits from and credits to in one step. Both balances are read
// and checked before either is written.
func Transfer(l Ledger, from, to [20]byte, amount uint64) error {
	if l == nil {
		return fmt.Errorf("bank: ledger required")
	}
	if amount == 0 {
		return nil
	}
	if from == to {
		return ErrSelfTransfer
	}
	src, err := l.BalanceGet(from)
	if err != nil {
		return err
	}
	if src < amount {
		return fmt.Errorf("%w: have %d, need %d", ErrInsufficientBalance, src, amount)
	}
	dst, err := l.BalanceGet(to)
	if err != nil {
		return err
	}
	if dst+amount < dst {
		return ErrBalanceOverflow
	}
	if err := l.BalancePut(from, src-amount); err != nil {
		return err
	}
	return l.BalancePut(to, dst+amount)
}

// Credit mints amount into addr. Only the faucet and genesis allocation use it.
func Credit(l Ledger, addr [20]byte, amount uint64) error {
	if l == nil {
		return fmt.Errorf("bank: ledger required")
	}
	balance, err := l.BalanceGet(addr)
	if err != nil {
		return err
	}
	if balance+amount < balance {
		return ErrBalanceOverflow
	}
	return l.BalancePut(addr, balance+amount)
}
