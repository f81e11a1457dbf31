package casino

import (
	"errors"
	"fmt"

	"wagerchain/core/clock"
	coreerrors "wagerchain/core/errors"
	"wagerchain/core/events"
	"wagerchain/core/types"
	"wagerchain/native/common"
	"wagerchain/native/entropy"
	"wagerchain/native/games"
	"wagerchain/native/house"
	"wagerchain/native/referral"
)

// ModuleName is the pause key for casino operations.
const ModuleName = "casino"

var (
	errNilState = errors.New("casino engine: state not configured")

	ErrUnknownGame      = coreerrors.New(coreerrors.KindValidation, "casino engine: unknown game")
	ErrInvalidWager     = coreerrors.New(coreerrors.KindValidation, "casino engine: invalid wager parameters")
	ErrRoundGame        = coreerrors.New(coreerrors.KindValidation, "casino engine: game is played in rounds")
	ErrNotRoundGame     = coreerrors.New(coreerrors.KindValidation, "casino engine: game has no rounds")
	ErrUnauthorized     = coreerrors.New(coreerrors.KindAuthorization, "casino engine: caller is not the house authority")
	ErrRoundNotFound    = coreerrors.New(coreerrors.KindValidation, "casino engine: round not found")
	ErrRoundInProgress  = coreerrors.New(coreerrors.KindState, "casino engine: previous round still open")
	ErrRoundNotPending  = coreerrors.New(coreerrors.KindState, "casino engine: round no longer accepts bets")
	ErrRoundNotActive   = coreerrors.New(coreerrors.KindState, "casino engine: round is not active")
	ErrAlreadyBet       = coreerrors.New(coreerrors.KindState, "casino engine: player already bet this round")
	ErrBetNotFound      = coreerrors.New(coreerrors.KindValidation, "casino engine: no bet in round")
	ErrAlreadyCashedOut = coreerrors.New(coreerrors.KindState, "casino engine: bet already cashed out")
	ErrRoundCrashed     = coreerrors.New(coreerrors.KindState, "casino engine: round has crashed")
	ErrBelowMinimum     = coreerrors.New(coreerrors.KindState, "casino engine: multiplier below requested minimum")
	ErrQuotaExceeded    = coreerrors.New(coreerrors.KindResource, "casino engine: wager quota exceeded")
)

type engineState interface {
	RoundGet(game string, id uint64) (*Round, bool, error)
	RoundPut(r *Round) error
	PlayerBetGet(game string, id uint64, player [20]byte) (*PlayerBet, bool, error)
	PlayerBetPut(b *PlayerBet) error
	QuotaGet(game string, player [20]byte) (common.QuotaNow, error)
	QuotaPut(game string, player [20]byte, usage common.QuotaNow) error
}

// Engine composes the outcome generator, the game calculators, the house
// ledger and the referral pool into instant wagers and crash rounds.
type Engine struct {
	state     engineState
	houses    *house.Engine
	referrals *referral.Engine
	source    entropy.Source
	clock     clock.Source
	quota     common.Quota
	emitter   events.Emitter
	pauses    common.PauseView
}

// NewEngine wires the casino to its ledgers. The weak generator and the
// system clock are used until replaced.
func NewEngine(houses *house.Engine, referrals *referral.Engine) *Engine {
	return &Engine{
		houses:    houses,
		referrals: referrals,
		source:    entropy.Weak{},
		clock:     clock.NewSystem(clock.Genesis, clock.DefaultSlotDuration),
		emitter:   events.NoopEmitter{},
	}
}

func (e *Engine) SetState(state engineState) { e.state = state }

func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

func (e *Engine) SetPauses(p common.PauseView) { e.pauses = p }

// SetSource replaces the entropy source.
func (e *Engine) SetSource(source entropy.Source) {
	if source == nil {
		source = entropy.Weak{}
	}
	e.source = source
}

// SetClock replaces the slot and time source.
func (e *Engine) SetClock(c clock.Source) {
	if c != nil {
		e.clock = c
	}
}

// SetQuota configures per-player wager limits. The zero quota is unlimited.
func (e *Engine) SetQuota(q common.Quota) { e.quota = q }

func (e *Engine) emit(evt *types.Event) {
	if e == nil || evt == nil || e.emitter == nil {
		return
	}
	e.emitter.Emit(events.Wrap(evt))
}

func (e *Engine) ready() error {
	if e == nil || e.state == nil || e.houses == nil || e.referrals == nil {
		return errNilState
	}
	if err := common.Guard(e.pauses, ModuleName); err != nil {
		return coreerrors.Wrap(coreerrors.KindState, err)
	}
	return nil
}

// OpenHouse creates the house of a supported game with game-specific
// defaults filled in.
func (e *Engine) OpenHouse(authority [20]byte, game string, params house.Params) (*house.House, error) {
	if e == nil || e.houses == nil {
		return nil, errNilState
	}
	name := games.Normalize(game)
	if !games.Known(name) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownGame, game)
	}
	defaults := games.DefaultOptions(name)
	if params.HouseEdgeBps == 0 {
		params.HouseEdgeBps = defaults.EdgeBps
	}
	if name == games.Crash && params.MaxMultiplierBps == 0 {
		params.MaxMultiplierBps = defaults.MaxMultiplierBps
	}
	if name == games.Slots && params.JackpotContributionBps == 0 {
		params.JackpotContributionBps = house.DefaultJackpotContribBps
	}
	return e.houses.Initialize(authority, name, params)
}

// gameFor builds the calculator for a house from its stored economics.
func gameFor(h *house.House) (games.Game, error) {
	opts := games.DefaultOptions(h.Game)
	if h.HouseEdgeBps > 0 {
		opts.EdgeBps = h.HouseEdgeBps
	}
	if h.MaxMultiplierBps > 0 {
		opts.MaxMultiplierBps = h.MaxMultiplierBps
	}
	g, err := games.New(h.Game, opts)
	if err != nil {
		if errors.Is(err, games.ErrUnknownGame) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownGame, h.Game)
		}
		return nil, coreerrors.Wrap(coreerrors.KindState, err)
	}
	return g, nil
}

func (e *Engine) draw(actor [20]byte, nonce uint64) (uint64, error) {
	in := entropy.Input{
		Actor:     actor,
		Sequence:  e.clock.Slot(),
		Timestamp: e.clock.Unix(),
	}.WithNonce(nonce)
	return e.source.Draw(in)
}

// reserveQuota returns the player's usage after the wager, without
// persisting it.
func (e *Engine) reserveQuota(game string, player [20]byte, stake uint64) (common.QuotaNow, bool, error) {
	if !e.quota.Enabled() {
		return common.QuotaNow{}, false, nil
	}
	prev, err := e.state.QuotaGet(game, player)
	if err != nil {
		return common.QuotaNow{}, false, err
	}
	next, err := common.CheckQuota(e.quota, e.quota.EpochAt(e.clock.Unix()), prev, 1, stake)
	if err != nil {
		return common.QuotaNow{}, false, fmt.Errorf("%w: %v", ErrQuotaExceeded, err)
	}
	return next, true, nil
}

// Play settles one instant wager: coin flip, dice, slots or roulette. Every
// check runs before the first transfer.
func (e *Engine) Play(req PlayRequest) (*Settlement, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	name := games.Normalize(req.Game)
	if name == games.Crash {
		return nil, ErrRoundGame
	}
	h, err := e.houses.Load(name)
	if err != nil {
		return nil, err
	}
	game, err := gameFor(h)
	if err != nil {
		return nil, err
	}
	if err := game.Validate(req.Params); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWager, err)
	}
	ref, err := e.referrals.Bind(name, req.Player, req.Referrer)
	if err != nil {
		return nil, err
	}

	var contribution uint64
	if name == games.Slots && h.JackpotContributionBps > 0 {
		contribution, err = games.ApplyBps(req.Amount, h.JackpotContributionBps)
		if err != nil {
			return nil, coreerrors.Wrap(coreerrors.KindValidation, err)
		}
	}
	worstCase, err := game.MaxPayout(req.Amount, req.Params)
	if err != nil {
		return nil, coreerrors.Wrap(coreerrors.KindValidation, err)
	}
	if err := e.houses.Precheck(h, req.Player, req.Amount, worstCase); err != nil {
		return nil, err
	}
	usage, limited, err := e.reserveQuota(name, req.Player, req.Amount)
	if err != nil {
		return nil, err
	}

	nonce := h.TotalWagers
	draw, err := e.draw(req.Player, nonce)
	if err != nil {
		return nil, coreerrors.Wrap(coreerrors.KindResource, err)
	}
	outcome := game.Resolve(draw, req.Params)
	result, err := game.Payout(req.Amount, outcome, req.Params)
	if err != nil {
		return nil, coreerrors.Wrap(coreerrors.KindValidation, err)
	}

	payout := result.Payout
	var jackpotPaid uint64
	if result.JackpotHit {
		jackpotPaid = saturatingAdd(h.Jackpot, contribution)
		payout = saturatingAdd(payout, jackpotPaid)
	}

	var accrual uint64
	if base, ok := houseGain(req.Amount, result.Payout, contribution); ok {
		accrual, err = e.referrals.Quote(ref, base)
		if err != nil {
			return nil, err
		}
	}

	wager := house.Wager{
		Player:              req.Player,
		Stake:               req.Amount,
		Payout:              payout,
		Outcome:             house.OutcomeLoss,
		Detail:              name,
		JackpotContribution: contribution,
		JackpotPaid:         jackpotPaid,
		ReferralAccrual:     accrual,
	}
	if result.Win {
		wager.Outcome = house.OutcomeWin
	}
	totals, err := e.houses.Settle(name, wager)
	if err != nil {
		return nil, err
	}
	settlement := &Settlement{
		Game:            name,
		Player:          req.Player,
		Stake:           req.Amount,
		Draw:            draw,
		Outcome:         outcome,
		Win:             result.Win,
		Payout:          payout,
		MultiplierBps:   result.MultiplierBps,
		JackpotHit:      result.JackpotHit,
		JackpotPaid:     jackpotPaid,
		Contribution:    contribution,
		ReferralAccrual: accrual,
		Nonce:           nonce,
		Totals:          *totals,
	}
	if ref != nil {
		settlement.Referrer = ref.Owner
	}
	if err := e.accrue(name, ref, req.Amount, accrual); err != nil {
		return nil, err
	}
	if limited {
		if err := e.state.QuotaPut(name, req.Player, usage); err != nil {
			return nil, err
		}
	}
	e.emit(PlayedEvent(settlement))
	return settlement, nil
}

// accrue books a settled wager's referral accrual: against the bound
// referrer when there is one, otherwise straight into the shared pool.
func (e *Engine) accrue(game string, ref *referral.Referrer, volume, accrual uint64) error {
	if ref != nil {
		_, err := e.referrals.Accrue(game, ref.Owner, volume, accrual)
		return err
	}
	if accrual == 0 {
		return nil
	}
	_, err := e.referrals.AccruePool(game, accrual)
	return err
}

// houseGain is the part of a wager the house keeps before referral
// accrual: stake minus the base payout minus the jackpot contribution.
func houseGain(stake, basePayout, contribution uint64) (uint64, bool) {
	out := saturatingAdd(basePayout, contribution)
	if stake <= out {
		return 0, false
	}
	return stake - out, true
}

func saturatingAdd(a, b uint64) uint64 {
	if a+b < a {
		return ^uint64(0)
	}
	return a + b
}
