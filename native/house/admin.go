package house

import "fmt"

func (e *Engine) loadAsAuthority(game string, caller [20]byte) (*House, error) {
	h, err := e.Load(game)
	if err != nil {
		return nil, err
	}
	if caller != h.Authority {
		return nil, ErrUnauthorized
	}
	return h, nil
}

// UpdateMaxBet changes the per-wager ceiling, bounded by the house cap.
func (e *Engine) UpdateMaxBet(game string, caller [20]byte, maxBet uint64) (*House, error) {
	h, err := e.loadAsAuthority(game, caller)
	if err != nil {
		return nil, err
	}
	if maxBet == 0 || maxBet < h.MinBet {
		return nil, fmt.Errorf("%w: max bet %d below min bet %d", ErrInvalidAmount, maxBet, h.MinBet)
	}
	if maxBet > h.MaxBetCap {
		return nil, fmt.Errorf("%w: %d > %d", ErrAboveMaxBetCap, maxBet, h.MaxBetCap)
	}
	previous := h.MaxBet
	h.MaxBet = maxBet
	if err := e.state.HousePut(h); err != nil {
		return nil, err
	}
	e.emit(MaxBetUpdatedEvent(h.Game, previous, maxBet))
	return h.Clone(), nil
}

// Settings is a partial update; nil fields are left unchanged.
type Settings struct {
	MinBet                 *uint64
	MaxBet                 *uint64
	JackpotContributionBps *uint64
	MinReserve             *uint64
}

// UpdateSettings applies an authority-signed settings change atomically:
// every field is validated before any is written.
func (e *Engine) UpdateSettings(game string, caller [20]byte, s Settings) (*House, error) {
	h, err := e.loadAsAuthority(game, caller)
	if err != nil {
		return nil, err
	}
	next := h.Clone()
	if s.MinBet != nil {
		next.MinBet = *s.MinBet
	}
	if s.MaxBet != nil {
		next.MaxBet = *s.MaxBet
	}
	if s.JackpotContributionBps != nil {
		next.JackpotContributionBps = *s.JackpotContributionBps
	}
	if s.MinReserve != nil {
		next.MinReserve = *s.MinReserve
	}
	if next.MinBet == 0 || next.MinBet > next.MaxBet {
		return nil, fmt.Errorf("%w: min bet %d, max bet %d", ErrInvalidParams, next.MinBet, next.MaxBet)
	}
	if next.MaxBet > next.MaxBetCap {
		return nil, ErrAboveMaxBetCap
	}
	if next.JackpotContributionBps > MaxJackpotContribution {
		return nil, ErrContributionLimit
	}
	if err := e.state.HousePut(next); err != nil {
		return nil, err
	}
	e.emit(SettingsUpdatedEvent(next))
	return next.Clone(), nil
}

// TogglePause flips the emergency switch and returns the new value.
func (e *Engine) TogglePause(game string, caller [20]byte) (bool, error) {
	h, err := e.loadAsAuthority(game, caller)
	if err != nil {
		return false, err
	}
	h.EmergencyPause = !h.EmergencyPause
	if err := e.state.HousePut(h); err != nil {
		return false, err
	}
	e.emit(PauseToggledEvent(h.Game, h.EmergencyPause))
	return h.EmergencyPause, nil
}

// WithdrawProfit pays realised profit to the authority. The amount is
// bounded by the withdraw limit share of profit and may never dip into the
// jackpot, the referral pool or the minimum reserve.
func (e *Engine) WithdrawProfit(game string, caller [20]byte, amount uint64) (*House, error) {
	h, err := e.loadAsAuthority(game, caller)
	if err != nil {
		return nil, err
	}
	if amount == 0 {
		return nil, ErrInvalidAmount
	}
	if h.TotalProfit <= 0 {
		return nil, ErrNoProfit
	}
	limit, ok := mulDiv(uint64(h.TotalProfit), h.WithdrawLimitBps, BpsDenominator)
	if !ok || saturatingAdd(h.TotalWithdrawn, amount) > limit {
		return nil, fmt.Errorf("%w: %d requested, %d withdrawn of %d", ErrWithdrawLimit, amount, h.TotalWithdrawn, limit)
	}
	vault, err := e.state.Balance(h.Vault)
	if err != nil {
		return nil, err
	}
	if vault < amount || vault-amount < h.Reserved() {
		return nil, fmt.Errorf("%w: vault %d, reserved %d", ErrReserveBreached, vault, h.Reserved())
	}
	if err := e.state.Transfer(h.Vault, caller, amount); err != nil {
		return nil, err
	}
	h.TotalWithdrawn += amount
	if err := e.state.HousePut(h); err != nil {
		return nil, err
	}
	e.emit(ProfitWithdrawnEvent(h.Game, caller, amount))
	return h.Clone(), nil
}

// Deposit funds the vault from any account.
func (e *Engine) Deposit(game string, from [20]byte, amount uint64) (*House, error) {
	h, err := e.Load(game)
	if err != nil {
		return nil, err
	}
	if amount == 0 {
		return nil, ErrInvalidAmount
	}
	if err := e.fund(h, from, amount); err != nil {
		return nil, err
	}
	h.TotalDeposited = saturatingAdd(h.TotalDeposited, amount)
	if err := e.state.HousePut(h); err != nil {
		return nil, err
	}
	e.emit(DepositEvent(h.Game, from, amount))
	return h.Clone(), nil
}

// SeedJackpot funds the vault and credits the whole amount to the jackpot.
func (e *Engine) SeedJackpot(game string, caller [20]byte, amount uint64) (*House, error) {
	h, err := e.loadAsAuthority(game, caller)
	if err != nil {
		return nil, err
	}
	if amount == 0 {
		return nil, ErrInvalidAmount
	}
	if err := e.fund(h, caller, amount); err != nil {
		return nil, err
	}
	h.Jackpot = saturatingAdd(h.Jackpot, amount)
	if err := e.state.HousePut(h); err != nil {
		return nil, err
	}
	e.emit(JackpotSeededEvent(h.Game, caller, amount, h.Jackpot))
	return h.Clone(), nil
}

func (e *Engine) fund(h *House, from [20]byte, amount uint64) error {
	balance, err := e.state.Balance(from)
	if err != nil {
		return err
	}
	if balance < amount {
		return ErrInsufficientFunds
	}
	return e.state.Transfer(from, h.Vault, amount)
}
