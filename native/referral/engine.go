package referral

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/holiman/uint256"

	"wagerchain/core/events"
	coreerrors "wagerchain/core/errors"
	"wagerchain/core/types"
	"wagerchain/native/common"
	"wagerchain/native/house"
)

// ModuleName is the pause key for referral operations.
const ModuleName = "referral"

var (
	errNilState = errors.New("referral engine: state not configured")

	ErrInvalidOwner         = coreerrors.New(coreerrors.KindValidation, "referral engine: owner required")
	ErrSelfReferral         = coreerrors.New(coreerrors.KindValidation, "referral engine: players cannot refer themselves")
	ErrAlreadyRegistered    = coreerrors.New(coreerrors.KindState, "referral engine: referrer already registered")
	ErrNotRegistered        = coreerrors.New(coreerrors.KindValidation, "referral engine: referrer not registered")
	ErrUnauthorized         = coreerrors.New(coreerrors.KindAuthorization, "referral engine: caller is not the house authority")
	ErrNoRewards            = coreerrors.New(coreerrors.KindState, "referral engine: no rewards to claim")
	ErrNoContribution       = coreerrors.New(coreerrors.KindState, "referral engine: no contribution to claim against")
	ErrEmptyPool            = coreerrors.New(coreerrors.KindState, "referral engine: referral pool empty")
	ErrDistributionTooEarly = coreerrors.New(coreerrors.KindState, "referral engine: distribution interval not elapsed")
	ErrDistributionPending  = coreerrors.New(coreerrors.KindState, "referral engine: no distribution since last claim")
	ErrHouseUnderfunded     = coreerrors.New(coreerrors.KindResource, "referral engine: house cannot cover claim")
	ErrInvalidAmount        = coreerrors.New(coreerrors.KindValidation, "referral engine: amount must be positive")
	ErrInsufficientFunds    = coreerrors.New(coreerrors.KindResource, "referral engine: insufficient balance")
	ErrLedgerInvariant      = coreerrors.New(coreerrors.KindState, "referral engine: ledger invariant violated")
)

type engineState interface {
	HouseGet(game string) (*house.House, bool, error)
	HousePut(h *house.House) error
	ReferrerGet(game string, owner [20]byte) (*Referrer, bool, error)
	ReferrerPut(r *Referrer) error
	Balance(addr [20]byte) (uint64, error)
	Transfer(from, to [20]byte, amount uint64) error
}

// Engine manages referrer registration, accrual and claims against the
// referral pool held in each house vault.
type Engine struct {
	state   engineState
	emitter events.Emitter
	pauses  common.PauseView
	params  Params
	nowFn   func() int64
}

// NewEngine constructs a referral engine with default parameters.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		params:  DefaultParams(),
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

// SetParams replaces the referral parameters.
func (e *Engine) SetParams(p Params) error {
	if err := p.Validate(); err != nil {
		return coreerrors.Wrap(coreerrors.KindValidation, err)
	}
	p.Tiers = append([]Tier(nil), p.Tiers...)
	e.params = p
	return nil
}

// Params returns the active parameters.
func (e *Engine) Params() Params { return e.params }

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

func (e *Engine) ready() error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := common.Guard(e.pauses, ModuleName); err != nil {
		return coreerrors.Wrap(coreerrors.KindState, err)
	}
	return nil
}

func (e *Engine) loadHouse(game string) (*house.House, error) {
	h, ok, err := e.state.HouseGet(normalizeGame(game))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, house.ErrHouseNotFound
	}
	return h, nil
}

// Register creates the referrer record for owner in game.
func (e *Engine) Register(game string, owner [20]byte) (*Referrer, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if isZeroAddress(owner) {
		return nil, ErrInvalidOwner
	}
	h, err := e.loadHouse(game)
	if err != nil {
		return nil, err
	}
	if _, ok, err := e.state.ReferrerGet(h.Game, owner); err != nil {
		return nil, err
	} else if ok {
		return nil, ErrAlreadyRegistered
	}
	ref := &Referrer{Game: h.Game, Owner: owner, CreatedAt: e.now()}
	if err := e.state.ReferrerPut(ref); err != nil {
		return nil, err
	}
	h.ReferrerCount++
	if err := e.state.HousePut(h); err != nil {
		return nil, err
	}
	e.emit(RegisteredEvent(h.Game, owner, h.ReferrerCount))
	return ref.Clone(), nil
}

// Lookup returns a registered referrer.
func (e *Engine) Lookup(game string, owner [20]byte) (*Referrer, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	ref, ok, err := e.state.ReferrerGet(normalizeGame(game), owner)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotRegistered
	}
	return ref, nil
}

// Bind resolves the referrer a player names on a wager. A zero referrer is
// no referrer.
func (e *Engine) Bind(game string, player, referrer [20]byte) (*Referrer, error) {
	if isZeroAddress(referrer) {
		return nil, nil
	}
	if referrer == player {
		return nil, ErrSelfReferral
	}
	return e.Lookup(game, referrer)
}

// Quote computes the accrual owed on houseProfit. It mutates nothing. In
// shared mode a wager without a referrer still feeds the pool at the base
// rate; in direct mode it accrues nothing.
func (e *Engine) Quote(ref *Referrer, houseProfit uint64) (uint64, error) {
	if houseProfit == 0 {
		return 0, nil
	}
	if ref == nil && e.params.Mode == ModeDirect {
		return 0, nil
	}
	rate := e.params.RateBps
	if ref != nil {
		rate += e.params.BonusFor(ref.TotalReferredVolume)
	}
	amount, ok := mulDiv(houseProfit, rate, house.BpsDenominator)
	if !ok {
		return 0, fmt.Errorf("%w: accrual overflow", ErrLedgerInvariant)
	}
	return amount, nil
}

// Accrue books amount for ref's owner. volume is the referred stake that
// produced it. The caller has already deducted amount from house profit.
func (e *Engine) Accrue(game string, owner [20]byte, volume, amount uint64) (*Referrer, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	ref, err := e.Lookup(game, owner)
	if err != nil {
		return nil, err
	}
	h, err := e.loadHouse(game)
	if err != nil {
		return nil, err
	}
	ref.TotalReferredVolume = saturatingAdd(ref.TotalReferredVolume, volume)
	if amount > 0 {
		h.ReferralPool = saturatingAdd(h.ReferralPool, amount)
		switch e.params.Mode {
		case ModeDirect:
			ref.PendingRewards = saturatingAdd(ref.PendingRewards, amount)
		default:
			ref.Contribution = saturatingAdd(ref.Contribution, amount)
			h.ReferralContributions = saturatingAdd(h.ReferralContributions, amount)
		}
		if err := e.state.HousePut(h); err != nil {
			return nil, err
		}
	}
	if err := e.state.ReferrerPut(ref); err != nil {
		return nil, err
	}
	if amount > 0 {
		e.emit(AccruedEvent(h.Game, owner, volume, amount, e.params.Mode))
	}
	return ref.Clone(), nil
}

// AccruePool books an unreferred accrual straight into the shared pool.
// No contribution is recorded, so every contributing referrer shares it.
// The caller has already deducted amount from house profit.
func (e *Engine) AccruePool(game string, amount uint64) (*house.House, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if amount == 0 {
		return nil, ErrInvalidAmount
	}
	if e.params.Mode != ModeShared {
		return nil, fmt.Errorf("%w: unreferred accrual in %s mode", ErrLedgerInvariant, e.params.Mode)
	}
	h, err := e.loadHouse(game)
	if err != nil {
		return nil, err
	}
	h.ReferralPool = saturatingAdd(h.ReferralPool, amount)
	if err := e.state.HousePut(h); err != nil {
		return nil, err
	}
	e.emit(AccruedEvent(h.Game, [20]byte{}, 0, amount, e.params.Mode))
	return h.Clone(), nil
}

// FundPool lets the authority top up the shared pool from its own balance.
// The pool only pays out against outstanding contributions, so a top-up is
// refused while there are none.
func (e *Engine) FundPool(game string, caller [20]byte, amount uint64) (*house.House, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	h, err := e.loadHouse(game)
	if err != nil {
		return nil, err
	}
	if caller != h.Authority {
		return nil, ErrUnauthorized
	}
	if amount == 0 {
		return nil, ErrInvalidAmount
	}
	if h.ReferralContributions == 0 {
		return nil, fmt.Errorf("%w: pool has no outstanding contributions", ErrNoContribution)
	}
	balance, err := e.state.Balance(caller)
	if err != nil {
		return nil, err
	}
	if balance < amount {
		return nil, ErrInsufficientFunds
	}
	if err := e.state.Transfer(caller, h.Vault, amount); err != nil {
		return nil, err
	}
	h.ReferralPool = saturatingAdd(h.ReferralPool, amount)
	if err := e.state.HousePut(h); err != nil {
		return nil, err
	}
	e.emit(PoolFundedEvent(h.Game, caller, amount, h.ReferralPool))
	return h.Clone(), nil
}

// Distribute opens a claim window. It is authority-only and rate limited to
// one call per distribution interval.
func (e *Engine) Distribute(game string, caller [20]byte) (*house.House, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	h, err := e.loadHouse(game)
	if err != nil {
		return nil, err
	}
	if caller != h.Authority {
		return nil, ErrUnauthorized
	}
	if h.ReferralPool == 0 {
		return nil, ErrEmptyPool
	}
	now := e.now()
	if h.LastDistribution != 0 && now < h.LastDistribution+e.params.DistributionInterval {
		return nil, fmt.Errorf("%w: next at %d", ErrDistributionTooEarly, h.LastDistribution+e.params.DistributionInterval)
	}
	h.LastDistribution = now
	if err := e.state.HousePut(h); err != nil {
		return nil, err
	}
	e.emit(DistributedEvent(h.Game, h.ReferralPool, h.ReferralContributions, now))
	return h.Clone(), nil
}

// Claim pays owner its rewards. Every failure leaves state untouched.
func (e *Engine) Claim(game string, owner [20]byte) (uint64, error) {
	if err := e.ready(); err != nil {
		return 0, err
	}
	ref, err := e.Lookup(game, owner)
	if err != nil {
		return 0, err
	}
	h, err := e.loadHouse(game)
	if err != nil {
		return 0, err
	}

	var amount uint64
	switch e.params.Mode {
	case ModeDirect:
		amount, err = e.directClaim(h, ref)
	default:
		amount, err = e.sharedClaim(h, ref)
	}
	if err != nil {
		return 0, err
	}

	vault, err := e.state.Balance(h.Vault)
	if err != nil {
		return 0, err
	}
	if vault < amount {
		return 0, fmt.Errorf("%w: need %d, vault %d", ErrHouseUnderfunded, amount, vault)
	}
	if err := e.state.Transfer(h.Vault, owner, amount); err != nil {
		return 0, err
	}
	ref.TotalEarned = saturatingAdd(ref.TotalEarned, amount)
	ref.ClaimCount++
	ref.LastClaim = e.now()
	if err := e.state.HousePut(h); err != nil {
		return 0, err
	}
	if err := e.state.ReferrerPut(ref); err != nil {
		return 0, err
	}
	e.emit(ClaimedEvent(h.Game, owner, amount, h.ReferralPool))
	return amount, nil
}

// directClaim zeroes pending rewards on the in-memory records.
func (e *Engine) directClaim(h *house.House, ref *Referrer) (uint64, error) {
	amount := ref.PendingRewards
	if amount == 0 {
		return 0, ErrNoRewards
	}
	if h.ReferralPool < amount {
		return 0, fmt.Errorf("%w: pending %d above pool %d", ErrLedgerInvariant, amount, h.ReferralPool)
	}
	h.ReferralPool -= amount
	ref.PendingRewards = 0
	return amount, nil
}

// sharedClaim pays contribution/Σcontributions of the pool and retires the
// contribution from the denominator.
func (e *Engine) sharedClaim(h *house.House, ref *Referrer) (uint64, error) {
	if ref.Contribution == 0 {
		return 0, ErrNoContribution
	}
	if h.ReferralPool == 0 {
		return 0, ErrEmptyPool
	}
	if e.params.RequireDistribution && (h.LastDistribution == 0 || ref.LastClaim >= h.LastDistribution) {
		return 0, ErrDistributionPending
	}
	if h.ReferralContributions < ref.Contribution {
		return 0, fmt.Errorf("%w: contribution %d above total %d", ErrLedgerInvariant, ref.Contribution, h.ReferralContributions)
	}
	share, ok := mulDiv(ref.Contribution, h.ReferralPool, h.ReferralContributions)
	if !ok {
		return 0, fmt.Errorf("%w: share overflow", ErrLedgerInvariant)
	}
	if share == 0 {
		return 0, ErrNoRewards
	}
	h.ReferralPool -= share
	h.ReferralContributions -= ref.Contribution
	ref.Contribution = 0
	return share, nil
}

// EstimateShare is what owner would receive if it claimed now.
func (e *Engine) EstimateShare(h *house.House, ref *Referrer) uint64 {
	if h == nil || ref == nil {
		return 0
	}
	if e.params.Mode == ModeDirect {
		return ref.PendingRewards
	}
	if ref.Contribution == 0 || h.ReferralContributions == 0 {
		return 0
	}
	share, ok := mulDiv(ref.Contribution, h.ReferralPool, h.ReferralContributions)
	if !ok {
		return 0
	}
	return share
}

// Stats returns the referrer view together with the pool it draws from.
func (e *Engine) Stats(game string, owner [20]byte) (*Stats, error) {
	ref, err := e.Lookup(game, owner)
	if err != nil {
		return nil, err
	}
	h, err := e.loadHouse(game)
	if err != nil {
		return nil, err
	}
	next := int64(0)
	if h.LastDistribution != 0 {
		next = h.LastDistribution + e.params.DistributionInterval
	}
	return &Stats{
		Referrer:       ref,
		Mode:           e.params.Mode,
		RateBps:        e.params.RateBps + e.params.BonusFor(ref.TotalReferredVolume),
		EstimatedShare: e.EstimateShare(h, ref),
		Pool:           h.ReferralPool,
		Contributions:  h.ReferralContributions,
		ReferrerCount:  h.ReferrerCount,
		NextDistribute: next,
	}, nil
}

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

func saturatingAdd(a, b uint64) uint64 {
	if a+b < a {
		return ^uint64(0)
	}
	return a + b
}

func normalizeGame(game string) string { return strings.ToLower(strings.TrimSpace(game)) }

func isZeroAddress(addr [20]byte) bool {
	var zero [20]byte
	return addr == zero
}
