package state

import (
	"wagerchain/native/bank"
)

func balanceKey(addr [20]byte) []byte {
	return recordKey(accountPrefix, addr[:])
}

// BalanceGet returns the balance of addr; unknown accounts hold zero.
func (m *Manager) BalanceGet(addr [20]byte) (uint64, error) {
	var amount uint64
	if _, err := m.getRLP(balanceKey(addr), &amount); err != nil {
		return 0, err
	}
	return amount, nil
}

// BalancePut overwrites the balance of addr.
func (m *Manager) BalancePut(addr [20]byte, amount uint64) error {
	if amount == 0 {
		return m.delete(balanceKey(addr))
	}
	return m.putRLP(balanceKey(addr), amount)
}

// Balance is the read side of the transfer primitive used by the engines.
func (m *Manager) Balance(addr [20]byte) (uint64, error) { return m.BalanceGet(addr) }

// Transfer moves amount between two accounts.
func (m *Manager) Transfer(from, to [20]byte, amount uint64) error {
	return bank.Transfer(m, from, to, amount)
}

// Credit mints amount into addr.
func (m *Manager) Credit(addr [20]byte, amount uint64) error {
	return bank.Credit(m, addr, amount)
}
