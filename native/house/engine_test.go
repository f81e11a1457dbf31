package house

import (
	"errors"
	"testing"

	coreerrors "wagerchain/core/errors"
	"wagerchain/native/common"
)

type mockState struct {
	houses   map[string]*House
	balances map[[20]byte]uint64
}

func newMockState() *mockState {
	return &mockState{
		houses:   make(map[string]*House),
		balances: make(map[[20]byte]uint64),
	}
}

func (m *mockState) HouseGet(game string) (*House, bool, error) {
	h, ok := m.houses[game]
	if !ok {
		return nil, false, nil
	}
	return h.Clone(), true, nil
}

func (m *mockState) HousePut(h *House) error {
	m.houses[h.Game] = h.Clone()
	return nil
}

func (m *mockState) Balance(addr [20]byte) (uint64, error) { return m.balances[addr], nil }

func (m *mockState) Transfer(from, to [20]byte, amount uint64) error {
	if m.balances[from] < amount {
		return errors.New("mock: insufficient balance")
	}
	m.balances[from] -= amount
	m.balances[to] += amount
	return nil
}

var (
	authority = [20]byte{0xAA}
	player    = [20]byte{0x01}
)

func setupEngine(t *testing.T, vault uint64) (*Engine, *mockState) {
	t.Helper()
	state := newMockState()
	engine := NewEngine()
	engine.SetState(state)
	engine.SetNowFunc(func() int64 { return 1_700_000_000 })
	if _, err := engine.Initialize(authority, "coinflip", Params{HouseEdgeBps: 400}); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if vault > 0 {
		state.balances[authority] = vault
		if _, err := engine.Deposit("coinflip", authority, vault); err != nil {
			t.Fatalf("deposit: %v", err)
		}
	}
	state.balances[player] = 1_000_000_000
	return engine, state
}

func assertConserved(t *testing.T, engine *Engine, state *mockState) {
	t.Helper()
	h, err := engine.Load("coinflip")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	expected := int64(h.TotalDeposited) + h.TotalProfit + int64(h.Jackpot) + int64(h.ReferralPool) - int64(h.TotalWithdrawn)
	if int64(state.balances[h.Vault]) != expected {
		t.Fatalf("vault %d does not match ledger %d", state.balances[h.Vault], expected)
	}
}

func TestInitializeOnce(t *testing.T) {
	engine, _ := setupEngine(t, 0)
	_, err := engine.Initialize(authority, "coinflip", Params{})
	if !errors.Is(err, ErrHouseExists) {
		t.Fatalf("expected ErrHouseExists, got %v", err)
	}
	if coreerrors.KindOf(err) != coreerrors.KindState {
		t.Fatalf("expected state kind")
	}
	h, err := engine.Load(" CoinFlip ")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if h.MinBet != DefaultMinBet || h.MaxBet != DefaultMaxBet || h.Vault != VaultAddress("coinflip") {
		t.Fatalf("unexpected defaults %+v", h)
	}
	if h.MinReserve != DefaultMinReserve {
		t.Fatalf("expected default reserve %d, got %d", DefaultMinReserve, h.MinReserve)
	}
	if _, err := engine.Initialize(authority, "dice", Params{MinBet: 10, MaxBet: 5}); !errors.Is(err, ErrInvalidParams) {
		t.Fatalf("expected invalid params, got %v", err)
	}
}

func TestPrecheckRules(t *testing.T) {
	engine, state := setupEngine(t, 1_000_000_000)
	h, _ := engine.Load("coinflip")

	cases := []struct {
		name      string
		stake     uint64
		worstCase uint64
		want      error
	}{
		{"below min", DefaultMinBet - 1, 0, ErrBelowMinBet},
		{"above max", DefaultMaxBet + 1, 0, ErrAboveMaxBet},
		{"zero", 0, 0, ErrInvalidAmount},
		{"ok", 10_000_000, 20_000_000, nil},
		{"worst case", 10_000_000, 1_000_000_001, ErrHouseUnderfunded},
	}
	for _, tc := range cases {
		err := engine.Precheck(h, player, tc.stake, tc.worstCase)
		if tc.want == nil && err != nil {
			t.Fatalf("%s: unexpected error %v", tc.name, err)
		}
		if tc.want != nil && !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}

	// Shrink the vault so the 10% rule binds before max bet does.
	state.balances[h.Vault] = 500_000_000
	if err := engine.Precheck(h, player, 60_000_000, 0); !errors.Is(err, ErrHouseFraction) {
		t.Fatalf("expected house fraction error, got %v", err)
	}

	state.balances[player] = 5_000_000
	if err := engine.Precheck(h, player, 10_000_000, 0); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
}

func TestPrecheckHonoursPauses(t *testing.T) {
	engine, _ := setupEngine(t, 1_000_000_000)
	if _, err := engine.TogglePause("coinflip", player); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	paused, err := engine.TogglePause("coinflip", authority)
	if err != nil || !paused {
		t.Fatalf("toggle: %v %v", paused, err)
	}
	h, _ := engine.Load("coinflip")
	if err := engine.Precheck(h, player, 10_000_000, 0); !errors.Is(err, ErrPaused) {
		t.Fatalf("expected paused, got %v", err)
	}
	paused, _ = engine.TogglePause("coinflip", authority)
	if paused {
		t.Fatalf("expected resume")
	}

	engine.SetPauses(common.NewPauseSet(map[string]bool{ModuleName: true}))
	h, _ = engine.Load("coinflip")
	err = engine.Precheck(h, player, 10_000_000, 0)
	if !errors.Is(err, common.ErrModulePaused) || coreerrors.KindOf(err) != coreerrors.KindState {
		t.Fatalf("expected module pause, got %v", err)
	}
}

func TestSettleWinningCoinFlip(t *testing.T) {
	engine, state := setupEngine(t, 1_000_000_000)
	playerBefore := state.balances[player]
	vault := VaultAddress("coinflip")
	vaultBefore := state.balances[vault]

	totals, err := engine.Settle("coinflip", Wager{
		Player:  player,
		Stake:   10_000_000,
		Payout:  20_000_000,
		Outcome: OutcomeWin,
	})
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if totals.ProfitDelta != -10_000_000 || totals.TotalProfit != -10_000_000 {
		t.Fatalf("unexpected profit %+v", totals)
	}
	if totals.TotalVolume != 10_000_000 {
		t.Fatalf("volume must grow by the stake, got %d", totals.TotalVolume)
	}
	if state.balances[player] != playerBefore+10_000_000 {
		t.Fatalf("unexpected player balance %d", state.balances[player])
	}
	if state.balances[player]+state.balances[vault] != playerBefore+vaultBefore {
		t.Fatalf("settlement must conserve value")
	}
	h, _ := engine.Load("coinflip")
	if h.TotalWins != 1 || h.TotalWagers != 1 || h.TotalLosses != 0 {
		t.Fatalf("unexpected counters %+v", h)
	}
	assertConserved(t, engine, state)
}

func TestSettleCarveOuts(t *testing.T) {
	engine, state := setupEngine(t, 1_000_000_000)

	// Losing spin with a jackpot contribution and referral accrual.
	totals, err := engine.Settle("coinflip", Wager{
		Player:              player,
		Stake:               10_000_000,
		Outcome:             OutcomeLoss,
		JackpotContribution: 10_000,
		ReferralAccrual:     500_000,
	})
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if totals.ProfitDelta != 10_000_000-10_000-500_000 || totals.Jackpot != 10_000 {
		t.Fatalf("unexpected totals %+v", totals)
	}
	// The referral engine books the pool side of the accrual.
	h, _ := engine.Load("coinflip")
	h.ReferralPool += 500_000
	_ = state.HousePut(h)
	assertConserved(t, engine, state)

	// Jackpot hit pays the base win plus the whole jackpot.
	totals, err = engine.Settle("coinflip", Wager{
		Player:              player,
		Stake:               1_000_000,
		Payout:              50_000_000 + 11_000,
		Outcome:             OutcomeWin,
		JackpotContribution: 1_000,
		JackpotPaid:         11_000,
	})
	if err != nil {
		t.Fatalf("settle jackpot: %v", err)
	}
	if totals.Jackpot != 0 {
		t.Fatalf("jackpot must reset to zero, got %d", totals.Jackpot)
	}
	if totals.ProfitDelta != 1_000_000-50_000_000-1_000 {
		t.Fatalf("unexpected jackpot profit delta %d", totals.ProfitDelta)
	}
	assertConserved(t, engine, state)

	if _, err := engine.Settle("coinflip", Wager{Player: player, Stake: 1, Payout: 5, JackpotPaid: 5}); !errors.Is(err, ErrLedgerInvariant) {
		t.Fatalf("expected invariant error for unfunded jackpot, got %v", err)
	}
}

func TestSettleRejectsWithoutMutation(t *testing.T) {
	engine, state := setupEngine(t, 1_000_000_000)
	state.balances[player] = 1
	before, _ := engine.Load("coinflip")
	if _, err := engine.Settle("coinflip", Wager{Player: player, Stake: 10_000_000, Outcome: OutcomeLoss}); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
	after, _ := engine.Load("coinflip")
	if *before != *after || state.balances[player] != 1 {
		t.Fatalf("rejected settlement must not mutate state")
	}
}

func TestPrecheckExcludesLiabilities(t *testing.T) {
	engine, state := setupEngine(t, 1_000_000_000)
	h, _ := engine.Load("coinflip")
	if err := engine.Precheck(h, player, 10_000_000, 800_000_000); err != nil {
		t.Fatalf("unencumbered vault covers 800M: %v", err)
	}

	h.Jackpot = 100_000_000
	h.ReferralPool = 200_000_000
	_ = state.HousePut(h)
	if got := h.Liabilities(); got != 300_000_000 {
		t.Fatalf("unexpected liabilities %d", got)
	}

	// 1e9 vault less 300M owed leaves 700M for payouts.
	if err := engine.Precheck(h, player, 10_000_000, 800_000_000); !errors.Is(err, ErrHouseUnderfunded) {
		t.Fatalf("expected underfunded against free vault, got %v", err)
	}
	if err := engine.Precheck(h, player, 10_000_000, 700_000_000); err != nil {
		t.Fatalf("worst case equal to free vault: %v", err)
	}
	if err := engine.Precheck(h, player, 75_000_000, 0); !errors.Is(err, ErrHouseFraction) {
		t.Fatalf("expected house fraction against free vault, got %v", err)
	}
	if err := engine.Precheck(h, player, 70_000_000, 0); err != nil {
		t.Fatalf("stake at 10%% of free vault: %v", err)
	}
}

func TestDefaultReserveHoldsBackWithdrawal(t *testing.T) {
	engine, state := setupEngine(t, 450_000_000)
	if _, err := engine.Settle("coinflip", Wager{Player: player, Stake: 100_000_000, Outcome: OutcomeLoss}); err != nil {
		t.Fatalf("settle: %v", err)
	}
	h, _ := engine.Load("coinflip")
	h.WithdrawLimitBps = BpsDenominator
	_ = state.HousePut(h)

	// 100M of profit, but only 50M of the 550M vault sits above the reserve.
	stats, err := engine.Stats("coinflip")
	if err != nil || stats.Withdrawable != 50_000_000 {
		t.Fatalf("unexpected withdrawable %+v, %v", stats, err)
	}
	if _, err := engine.WithdrawProfit("coinflip", authority, 50_000_001); !errors.Is(err, ErrReserveBreached) {
		t.Fatalf("expected reserve breach, got %v", err)
	}
	if _, err := engine.WithdrawProfit("coinflip", authority, 50_000_000); err != nil {
		t.Fatalf("withdraw down to reserve: %v", err)
	}
	if state.balances[h.Vault] != DefaultMinReserve {
		t.Fatalf("vault must stop at the reserve, got %d", state.balances[h.Vault])
	}
	assertConserved(t, engine, state)
}

func TestWithdrawProfitLimits(t *testing.T) {
	engine, state := setupEngine(t, 1_000_000_000)
	if _, err := engine.WithdrawProfit("coinflip", authority, 1); !errors.Is(err, ErrNoProfit) {
		t.Fatalf("expected no profit, got %v", err)
	}
	if _, err := engine.Settle("coinflip", Wager{Player: player, Stake: 100_000_000, Outcome: OutcomeLoss}); err != nil {
		t.Fatalf("settle: %v", err)
	}
	if _, err := engine.WithdrawProfit("coinflip", player, 1); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if _, err := engine.WithdrawProfit("coinflip", authority, 50_000_001); !errors.Is(err, ErrWithdrawLimit) {
		t.Fatalf("expected withdraw limit, got %v", err)
	}
	stats, err := engine.Stats("coinflip")
	if err != nil || stats.Withdrawable != 50_000_000 {
		t.Fatalf("unexpected withdrawable %+v, %v", stats, err)
	}
	h, err := engine.WithdrawProfit("coinflip", authority, 50_000_000)
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if h.TotalWithdrawn != 50_000_000 || state.balances[authority] != 50_000_000 {
		t.Fatalf("unexpected withdrawal state %+v", h)
	}
	if _, err := engine.WithdrawProfit("coinflip", authority, 1); !errors.Is(err, ErrWithdrawLimit) {
		t.Fatalf("limit is cumulative, got %v", err)
	}
	assertConserved(t, engine, state)
}

func TestWithdrawRespectsReserve(t *testing.T) {
	engine, state := setupEngine(t, 0)
	state.balances[authority] = 10_000_000
	if _, err := engine.Deposit("coinflip", authority, 10_000_000); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if _, err := engine.Settle("coinflip", Wager{Player: player, Stake: 1_000_000, Outcome: OutcomeLoss}); err != nil {
		t.Fatalf("settle: %v", err)
	}
	h, _ := engine.Load("coinflip")
	h.WithdrawLimitBps = BpsDenominator
	_ = state.HousePut(h)

	reserve := uint64(10_500_000)
	if _, err := engine.UpdateSettings("coinflip", authority, Settings{MinReserve: &reserve}); err != nil {
		t.Fatalf("settings: %v", err)
	}
	state.balances[authority] = 500_000
	if _, err := engine.SeedJackpot("coinflip", authority, 500_000); err != nil {
		t.Fatalf("seed: %v", err)
	}

	// Vault 11.5M against 10.5M reserve plus 0.5M jackpot leaves 0.5M free.
	if _, err := engine.WithdrawProfit("coinflip", authority, 600_000); !errors.Is(err, ErrReserveBreached) {
		t.Fatalf("expected reserve breach, got %v", err)
	}
	if _, err := engine.WithdrawProfit("coinflip", authority, 500_000); err != nil {
		t.Fatalf("withdraw within reserve: %v", err)
	}
	assertConserved(t, engine, state)
}

func TestAdminUpdates(t *testing.T) {
	engine, _ := setupEngine(t, 0)
	if _, err := engine.UpdateMaxBet("coinflip", authority, DefaultMaxBetCap+1); !errors.Is(err, ErrAboveMaxBetCap) {
		t.Fatalf("expected cap error, got %v", err)
	}
	h, err := engine.UpdateMaxBet("coinflip", authority, 200_000_000)
	if err != nil || h.MaxBet != 200_000_000 {
		t.Fatalf("update max bet: %+v, %v", h, err)
	}
	contribution := uint64(MaxJackpotContribution + 1)
	if _, err := engine.UpdateSettings("coinflip", authority, Settings{JackpotContributionBps: &contribution}); !errors.Is(err, ErrContributionLimit) {
		t.Fatalf("expected contribution limit, got %v", err)
	}
	after, _ := engine.Load("coinflip")
	if after.JackpotContributionBps != 0 {
		t.Fatalf("rejected settings must not persist")
	}
}
