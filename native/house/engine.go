package house

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"wagerchain/core/events"
	coreerrors "wagerchain/core/errors"
	"wagerchain/core/types"
	"wagerchain/native/common"
)

// ModuleName is the pause key for the house ledger.
const ModuleName = "house"

var (
	errNilState = errors.New("house engine: state not configured")

	ErrHouseExists       = coreerrors.New(coreerrors.KindState, "house engine: house already initialised")
	ErrHouseNotFound     = coreerrors.New(coreerrors.KindValidation, "house engine: house not found")
	ErrUnauthorized      = coreerrors.New(coreerrors.KindAuthorization, "house engine: caller is not the house authority")
	ErrPaused            = coreerrors.New(coreerrors.KindState, "house engine: house paused")
	ErrInvalidAmount     = coreerrors.New(coreerrors.KindValidation, "house engine: amount must be positive")
	ErrInvalidParams     = coreerrors.New(coreerrors.KindValidation, "house engine: invalid house parameters")
	ErrBelowMinBet       = coreerrors.New(coreerrors.KindValidation, "house engine: stake below minimum")
	ErrAboveMaxBet       = coreerrors.New(coreerrors.KindValidation, "house engine: stake above maximum")
	ErrAboveMaxBetCap    = coreerrors.New(coreerrors.KindValidation, "house engine: max bet above cap")
	ErrContributionLimit = coreerrors.New(coreerrors.KindValidation, "house engine: jackpot contribution above limit")
	ErrHouseFraction     = coreerrors.New(coreerrors.KindResource, "house engine: stake exceeds house fraction")
	ErrHouseUnderfunded  = coreerrors.New(coreerrors.KindResource, "house engine: house cannot cover worst case payout")
	ErrInsufficientFunds = coreerrors.New(coreerrors.KindResource, "house engine: insufficient player balance")
	ErrNoProfit          = coreerrors.New(coreerrors.KindState, "house engine: no profit to withdraw")
	ErrWithdrawLimit     = coreerrors.New(coreerrors.KindResource, "house engine: withdrawal above limit")
	ErrReserveBreached   = coreerrors.New(coreerrors.KindResource, "house engine: withdrawal would breach reserve")
	ErrLedgerInvariant   = coreerrors.New(coreerrors.KindState, "house engine: ledger invariant violated")
)

type engineState interface {
	HouseGet(game string) (*House, bool, error)
	HousePut(h *House) error
	Balance(addr [20]byte) (uint64, error)
	Transfer(from, to [20]byte, amount uint64) error
}

// Engine is the ledger accountant. It never decides outcomes; it checks a
// stake can be afforded and books the movements a game reports.
type Engine struct {
	state   engineState
	emitter events.Emitter
	pauses  common.PauseView
	nowFn   func() int64
}

// NewEngine constructs a house engine with default dependencies.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetEmitter configures the event emitter used by the engine.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetPauses wires the module pause switchboard.
func (e *Engine) SetPauses(p common.PauseView) { e.pauses = p }

// SetNowFunc overrides the time source used for deterministic testing.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

func (e *Engine) emit(evt *types.Event) {
	if e == nil || evt == nil || e.emitter == nil {
		return
	}
	e.emitter.Emit(events.Wrap(evt))
}

// Initialize creates the house for game. It can only happen once.
func (e *Engine) Initialize(authority [20]byte, game string, params Params) (*House, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	game = normalizeGame(game)
	if game == "" || isZeroAddress(authority) {
		return nil, ErrInvalidParams
	}
	if _, ok, err := e.state.HouseGet(game); err != nil {
		return nil, err
	} else if ok {
		return nil, ErrHouseExists
	}
	params = params.WithDefaults()
	if err := validateParams(params); err != nil {
		return nil, err
	}
	h := &House{
		Game:                   game,
		Authority:              authority,
		Vault:                  VaultAddress(game),
		MinBet:                 params.MinBet,
		MaxBet:                 params.MaxBet,
		MaxBetCap:              params.MaxBetCap,
		HouseEdgeBps:           params.HouseEdgeBps,
		MaxBetHouseBps:         params.MaxBetHouseBps,
		MaxMultiplierBps:       params.MaxMultiplierBps,
		JackpotContributionBps: params.JackpotContributionBps,
		WithdrawLimitBps:       params.WithdrawLimitBps,
		MinReserve:             params.MinReserve,
		CreatedAt:              e.now(),
	}
	if err := e.state.HousePut(h); err != nil {
		return nil, err
	}
	e.emit(HouseInitializedEvent(h))
	return h.Clone(), nil
}

func validateParams(p Params) error {
	switch {
	case p.MinBet == 0 || p.MinBet > p.MaxBet:
		return fmt.Errorf("%w: min bet %d, max bet %d", ErrInvalidParams, p.MinBet, p.MaxBet)
	case p.MaxBet > p.MaxBetCap:
		return fmt.Errorf("%w: max bet %d above cap %d", ErrAboveMaxBetCap, p.MaxBet, p.MaxBetCap)
	case p.HouseEdgeBps >= BpsDenominator:
		return fmt.Errorf("%w: edge %d bps", ErrInvalidParams, p.HouseEdgeBps)
	case p.MaxBetHouseBps == 0 || p.MaxBetHouseBps > BpsDenominator:
		return fmt.Errorf("%w: house fraction %d bps", ErrInvalidParams, p.MaxBetHouseBps)
	case p.WithdrawLimitBps > BpsDenominator:
		return fmt.Errorf("%w: withdraw limit %d bps", ErrInvalidParams, p.WithdrawLimitBps)
	case p.JackpotContributionBps > MaxJackpotContribution:
		return ErrContributionLimit
	}
	return nil
}

// Load returns the house for game or ErrHouseNotFound.
func (e *Engine) Load(game string) (*House, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	h, ok, err := e.state.HouseGet(normalizeGame(game))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrHouseNotFound
	}
	return h, nil
}

// Stats returns the house together with its live vault balance.
func (e *Engine) Stats(game string) (*Stats, error) {
	h, err := e.Load(game)
	if err != nil {
		return nil, err
	}
	vault, err := e.state.Balance(h.Vault)
	if err != nil {
		return nil, err
	}
	return &Stats{House: h, VaultBalance: vault, Withdrawable: withdrawable(h, vault)}, nil
}

func (e *Engine) guard(h *House) error {
	if err := common.Guard(e.pauses, ModuleName); err != nil {
		return coreerrors.Wrap(coreerrors.KindState, err)
	}
	if h.EmergencyPause {
		return ErrPaused
	}
	return nil
}

// Precheck runs every stake rule against the vault balance left after its
// liabilities. It mutates nothing. worstCase is the largest payout the wager
// can produce, excluding any jackpot, which its own reserve covers.
func (e *Engine) Precheck(h *House, player [20]byte, stake, worstCase uint64) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if h == nil {
		return ErrHouseNotFound
	}
	if err := e.guard(h); err != nil {
		return err
	}
	if stake == 0 {
		return ErrInvalidAmount
	}
	if stake < h.MinBet {
		return fmt.Errorf("%w: %d < %d", ErrBelowMinBet, stake, h.MinBet)
	}
	if stake > h.MaxBet {
		return fmt.Errorf("%w: %d > %d", ErrAboveMaxBet, stake, h.MaxBet)
	}
	vault, err := e.state.Balance(h.Vault)
	if err != nil {
		return err
	}
	var free uint64
	if owed := h.Liabilities(); vault > owed {
		free = vault - owed
	}
	if !withinFraction(stake, free, h.MaxBetHouseBps) {
		return fmt.Errorf("%w: stake %d against free vault %d", ErrHouseFraction, stake, free)
	}
	if free < worstCase {
		return fmt.Errorf("%w: need %d, free %d of vault %d", ErrHouseUnderfunded, worstCase, free, vault)
	}
	balance, err := e.state.Balance(player)
	if err != nil {
		return err
	}
	if balance < stake {
		return ErrInsufficientFunds
	}
	return nil
}

// withinFraction reports stake <= vault*bps/10000 without overflow.
func withinFraction(stake, vault, bps uint64) bool {
	limit, ok := mulDiv(vault, bps, BpsDenominator)
	if !ok {
		return true
	}
	return stake <= limit
}

// Settle books a wager: the stake moves into the vault, the payout moves
// out, and the totals absorb the signed profit net of carve-outs. Callers
// run Precheck first; Settle only re-checks what could make the transfers
// fail so a rejected call leaves state untouched.
func (e *Engine) Settle(game string, w Wager) (*Totals, error) {
	h, err := e.Load(game)
	if err != nil {
		return nil, err
	}
	delta, err := profitDelta(w)
	if err != nil {
		return nil, err
	}
	jackpot := saturatingAdd(h.Jackpot, w.JackpotContribution)
	if w.JackpotPaid > jackpot {
		return nil, fmt.Errorf("%w: jackpot paid %d above balance %d", ErrLedgerInvariant, w.JackpotPaid, jackpot)
	}
	newProfit, ok := addSigned(h.TotalProfit, delta)
	if !ok {
		return nil, fmt.Errorf("%w: profit overflow", ErrLedgerInvariant)
	}
	if w.Stake > 0 {
		balance, err := e.state.Balance(w.Player)
		if err != nil {
			return nil, err
		}
		if balance < w.Stake {
			return nil, ErrInsufficientFunds
		}
	}
	vault, err := e.state.Balance(h.Vault)
	if err != nil {
		return nil, err
	}
	if saturatingAdd(vault, w.Stake) < w.Payout {
		return nil, ErrHouseUnderfunded
	}

	if w.Stake > 0 {
		if err := e.state.Transfer(w.Player, h.Vault, w.Stake); err != nil {
			return nil, err
		}
	}
	if w.Payout > 0 {
		if err := e.state.Transfer(h.Vault, w.Player, w.Payout); err != nil {
			return nil, err
		}
	}

	h.TotalVolume = saturatingAdd(h.TotalVolume, w.Stake)
	h.TotalProfit = newProfit
	h.Jackpot = jackpot - w.JackpotPaid
	if w.Stake > 0 {
		h.TotalWagers++
	}
	switch w.Outcome {
	case OutcomeWin:
		h.TotalWins++
	case OutcomeLoss:
		h.TotalLosses++
	}
	if err := e.state.HousePut(h); err != nil {
		return nil, err
	}
	vaultAfter := vault + w.Stake - w.Payout
	e.emit(WagerSettledEvent(h.Game, w, delta))
	return &Totals{
		ProfitDelta:  delta,
		TotalVolume:  h.TotalVolume,
		TotalProfit:  h.TotalProfit,
		Jackpot:      h.Jackpot,
		VaultBalance: vaultAfter,
	}, nil
}

// profitDelta is stake minus the non-jackpot part of the payout minus every
// carve-out booked to a reserved pool.
func profitDelta(w Wager) (int64, error) {
	if w.JackpotPaid > w.Payout {
		return 0, fmt.Errorf("%w: jackpot paid exceeds payout", ErrLedgerInvariant)
	}
	in := w.Stake
	out := w.Payout - w.JackpotPaid
	out = saturatingAdd(out, w.JackpotContribution)
	out = saturatingAdd(out, w.ReferralAccrual)
	if in >= out {
		diff := in - out
		if diff > math.MaxInt64 {
			return 0, fmt.Errorf("%w: profit overflow", ErrLedgerInvariant)
		}
		return int64(diff), nil
	}
	diff := out - in
	if diff > math.MaxInt64 {
		return 0, fmt.Errorf("%w: loss overflow", ErrLedgerInvariant)
	}
	return -int64(diff), nil
}

func addSigned(a, b int64) (int64, bool) {
	sum := a + b
	if (b > 0 && sum < a) || (b < 0 && sum > a) {
		return 0, false
	}
	return sum, true
}

func normalizeGame(game string) string { return strings.ToLower(strings.TrimSpace(game)) }

func isZeroAddress(addr [20]byte) bool {
	var zero [20]byte
	return addr == zero
}
