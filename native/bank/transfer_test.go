package bank

import (
	"errors"
	"math"
	"testing"
)

type mapLedger map[[20]byte]uint64

func (m mapLedger) BalanceGet(addr [20]byte) (uint64, error) { return m[addr], nil }

func (m mapLedger) BalancePut(addr [20]byte, amount uint64) error {
	m[addr] = amount
	return nil
}

func TestTransfer(t *testing.T) {
	a, b := [20]byte{1}, [20]byte{2}
	ledger := mapLedger{a: 100}

	if err := Transfer(ledger, a, b, 40); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if ledger[a] != 60 || ledger[b] != 40 {
		t.Fatalf("unexpected balances %v", ledger)
	}
	if err := Transfer(ledger, a, b, 61); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected insufficient balance, got %v", err)
	}
	if ledger[a] != 60 || ledger[b] != 40 {
		t.Fatalf("failed transfer must not move funds")
	}
	if err := Transfer(ledger, a, a, 1); !errors.Is(err, ErrSelfTransfer) {
		t.Fatalf("expected self transfer error, got %v", err)
	}
	if err := Transfer(ledger, a, b, 0); err != nil {
		t.Fatalf("zero transfer is a no-op, got %v", err)
	}
}

func TestCreditOverflow(t *testing.T) {
	addr := [20]byte{9}
	ledger := mapLedger{addr: math.MaxUint64 - 1}
	if err := Credit(ledger, addr, 2); !errors.Is(err, ErrBalanceOverflow) {
		t.Fatalf("expected overflow, got %v", err)
	}
	if err := Credit(ledger, addr, 1); err != nil || ledger[addr] != math.MaxUint64 {
		t.Fatalf("credit: %v", err)
	}
}
